package reconcile

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view over the environment variables / config file
// that govern a run. DefaultConfig holds the size-limit constants named
// throughout the design notes, so a Config from DefaultConfig (or one
// built by LoadConfig with nothing set) reproduces the documented behavior
// exactly. A zero-value Config has every budget at 0 and does not.
type Config struct {
	TenantID string
	DateFrom time.Time
	DateTo   time.Time

	AccTailDigits int

	CapPerValue      int
	KsumMaxItems     int
	MitmStateBudget  int
	DpMaxTargetCents int64
	DpMaxItemsDP     int
	MaxGroupGuard    int

	// DescAnchorMinCents is the "amount >= 100,000.00" threshold from
	// stages 02/03, expressed in cents.
	DescAnchorMinCents int64
	// DescMinKeywords is the ">= 2 keywords" threshold from the same
	// stages.
	DescMinKeywords int
	// MaxKeywords bounds the keyword extractor.
	MaxKeywords int

	// KsumBranchMaxDepth / KsumBranchMaxNodes bound the description-stage
	// branch-and-bound subset-sum (stage 03).
	KsumBranchMaxDepth int
	KsumBranchMaxNodes int

	BBoltPath string
}

// DefaultConfig returns the size-limit defaults used when nothing in the
// environment overrides them.
func DefaultConfig() Config {
	return Config{
		AccTailDigits:      8,
		CapPerValue:        32,
		KsumMaxItems:       48,
		MitmStateBudget:    200000,
		DpMaxTargetCents:   200000,
		DpMaxItemsDP:       24,
		MaxGroupGuard:      2000,
		DescAnchorMinCents: 10000000, // 100,000.00
		DescMinKeywords:    2,
		MaxKeywords:        8,
		KsumBranchMaxDepth: 25,
		KsumBranchMaxNodes: 200000,
		BBoltPath:          "reconcile.db",
	}
}

// LoadConfig reads RECON_-prefixed environment variables (and, if present,
// a config file discovered by viper) over the defaults, via the usual
// viper.AutomaticEnv wiring.
// Date fields (RECON_DATE_FROM / RECON_DATE_TO, "YYYY-MM-DD") and
// RECON_TENANT_ID are read explicitly; the size-limit knobs are bound by
// name so an operator can override a single constant without a full file.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if v == nil {
		v = viper.GetViper()
	}

	v.SetEnvPrefix("RECON")
	v.AutomaticEnv()

	bindInt(v, "ACC_TAIL_DIGITS", &cfg.AccTailDigits)
	bindInt(v, "CAP_PER_VALUE", &cfg.CapPerValue)
	bindInt(v, "KSUM_MAX_ITEMS", &cfg.KsumMaxItems)
	bindInt(v, "MITM_STATE_BUDGET", &cfg.MitmStateBudget)
	bindInt64(v, "DP_MAX_TARGET_CENTS", &cfg.DpMaxTargetCents)
	bindInt(v, "DP_MAX_ITEMS_DP", &cfg.DpMaxItemsDP)
	bindInt(v, "MAX_GROUP_GUARD", &cfg.MaxGroupGuard)
	bindInt64(v, "DESC_ANCHOR_MIN_CENTS", &cfg.DescAnchorMinCents)
	bindInt(v, "DESC_MIN_KEYWORDS", &cfg.DescMinKeywords)
	bindInt(v, "MAX_KEYWORDS", &cfg.MaxKeywords)

	if s := v.GetString("TENANT_ID"); s != "" {
		cfg.TenantID = s
	}
	if s := v.GetString("DB_PATH"); s != "" {
		cfg.BBoltPath = s
	}
	if s := v.GetString("DATE_FROM"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return cfg, newReconcileError(ErrInvalidAmount, "RECON_DATE_FROM", err)
		}
		cfg.DateFrom = t
	}
	if s := v.GetString("DATE_TO"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return cfg, newReconcileError(ErrInvalidAmount, "RECON_DATE_TO", err)
		}
		cfg.DateTo = t
	}

	return cfg, nil
}

func bindInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func bindInt64(v *viper.Viper, key string, dst *int64) {
	if v.IsSet(key) {
		*dst = v.GetInt64(key)
	}
}

// ReadWindow is the [DATE_FROM - 5, DATE_TO + 5] load window padded on
// both sides so D-minus-1 and candidate-date stages can see rows just
// outside the reporting range.
func (c Config) ReadWindow() (from, to time.Time) {
	return c.DateFrom.AddDate(0, 0, -5), c.DateTo.AddDate(0, 0, 5)
}
