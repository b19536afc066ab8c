package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Engine is the reconciliation pipeline's main entry point, composing the
// normalizer, subset-sum engine, stage cascade, component validator and
// aggregator behind a single Run call, with storage and the source loader
// wired in behind one struct.
type Engine struct {
	cfg    Config
	store  *TabularStore
	loader SourceLoader
}

// NewEngine opens the backing store at cfg.BBoltPath and wires a loader
// reading from it: open storage first, then wire services on top.
func NewEngine(cfg Config) (*Engine, error) {
	store, err := NewTabularStore(cfg.BBoltPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return &Engine{cfg: cfg, store: store, loader: store}, nil
}

// Close releases the engine's storage handle.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Run executes one full reconciliation pass: load the source window,
// normalize, run the stage cascade, validate components, and build the
// output tables. The pipeline itself is synchronous and single-threaded;
// ctx is honored only between the coarse phases below so a caller can
// still cancel a long-running batch.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log.Info().Str("run_id", runID).Str("tenant_id", e.cfg.TenantID).Msg("starting reconciliation run")

	from, to := e.cfg.ReadWindow()
	rawApi, rawErp, err := e.loader.LoadWindow(ctx, e.cfg.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load source window: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalizer := NewNormalizer(e.cfg)
	apiRows := normalizer.NormalizeApiRows(rawApi)
	erpRows := normalizer.NormalizeErpRows(rawErp)
	log.Info().Int("api_rows", len(apiRows)).Int("erp_rows", len(erpRows)).Msg("normalized source window")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edges := RunCascade(e.cfg, apiRows, erpRows)

	apiByID := make(map[int64]*ApiRow, len(apiRows))
	for i := range apiRows {
		apiByID[apiRows[i].ApiRowID] = &apiRows[i]
	}
	erpByID := make(map[int64]*ErpRow, len(erpRows))
	for i := range erpRows {
		erpByID[erpRows[i].ErpRowID] = &erpRows[i]
	}
	validated := ValidateComponents(edges, apiByID, erpByID)
	log.Info().Int("candidate_edges", len(edges)).Int("validated_edges", len(validated)).Msg("component validation complete")

	result := BuildResult(e.cfg, apiRows, erpRows, validated, e.cfg.DateFrom, e.cfg.DateTo)

	if err := e.store.WriteResult(ctx, e.cfg.TenantID, &result); err != nil {
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}

	return &result, nil
}
