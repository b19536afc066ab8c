package reconcile

import (
	"sort"
)

// workingSet is the pipeline's cross-module state (design notes):
// an immutable row table plus two growing sets of consumed row ids. Each
// stage reads rows \ consumed and appends new edges with its own tag.
type workingSet struct {
	apiRows []ApiRow
	erpRows []ErpRow

	apiByID map[int64]*ApiRow
	erpByID map[int64]*ErpRow

	consumedApi map[int64]bool
	consumedErp map[int64]bool

	edges    []Edge
	edgeKeys map[edgeKey]bool

	cfg Config
	sse *SubsetSumEngine
}

func newWorkingSet(cfg Config, apiRows []ApiRow, erpRows []ErpRow) *workingSet {
	ws := &workingSet{
		apiRows:     apiRows,
		erpRows:     erpRows,
		apiByID:     make(map[int64]*ApiRow, len(apiRows)),
		erpByID:     make(map[int64]*ErpRow, len(erpRows)),
		consumedApi: make(map[int64]bool, len(apiRows)),
		consumedErp: make(map[int64]bool, len(erpRows)),
		edgeKeys:    make(map[edgeKey]bool),
		cfg:         cfg,
		sse:         NewSubsetSumEngine(cfg),
	}
	for i := range apiRows {
		ws.apiByID[apiRows[i].ApiRowID] = &apiRows[i]
	}
	for i := range erpRows {
		ws.erpByID[erpRows[i].ErpRowID] = &erpRows[i]
	}
	return ws
}

// residualApi returns the API rows not yet consumed, optionally filtered.
func (ws *workingSet) residualApi(pred func(*ApiRow) bool) []*ApiRow {
	out := make([]*ApiRow, 0, len(ws.apiRows))
	for i := range ws.apiRows {
		r := &ws.apiRows[i]
		if ws.consumedApi[r.ApiRowID] {
			continue
		}
		if pred != nil && !pred(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (ws *workingSet) residualErp(pred func(*ErpRow) bool) []*ErpRow {
	out := make([]*ErpRow, 0, len(ws.erpRows))
	for i := range ws.erpRows {
		r := &ws.erpRows[i]
		if ws.consumedErp[r.ErpRowID] {
			continue
		}
		if pred != nil && !pred(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// emit records a candidate edge, deduplicated on (api_row_id, erp_row_id)
// with first-wins-stage semantics, and marks both rows consumed
// so later stages see the residual set.
func (ws *workingSet) emit(apiRowID, erpRowID int64, stage StageName, ddiff int) {
	e := Edge{
		ApiRowID: apiRowID,
		ErpRowID: erpRowID,
		Stage:    stage,
		Priority: stagePriority[stage],
		DateDiff: ddiff,
	}
	if ws.edgeKeys[e.key()] {
		return
	}
	ws.edgeKeys[e.key()] = true
	ws.edges = append(ws.edges, e)
	ws.consumedApi[apiRowID] = true
	ws.consumedErp[erpRowID] = true
}

// emitGroup records every (api, erp) pair of a cross-product match as
// edges of the same stage, used by the signature and fallback stages.
func (ws *workingSet) emitGroup(apiIDs, erpIDs []int64, stage StageName, ddiff int) {
	for _, a := range apiIDs {
		for _, e := range erpIDs {
			ws.emit(a, e, stage, ddiff)
		}
	}
}

// partitionKey is the (tenant, bank, acc_tail, sign, date) grouping key
// shared by the RN, KSUM, and fallback stages.
type partitionKey struct {
	tenantID string
	bankCode string
	accTail  string
	sign     Sign
	date     string // YYYY-MM-DD
}

func apiPartitionKey(r *ApiRow) partitionKey {
	return partitionKey{r.TenantID, r.BankCode, r.AccTail, r.ApiSign, r.ApiDate.Format("2006-01-02")}
}

func erpPartitionKey(r *ErpRow) partitionKey {
	return partitionKey{r.TenantID, r.BankCode, r.AccTail, r.ErpSign, r.ErpDate.Format("2006-01-02")}
}

// shiftedPartitionKey builds the key an ERP row would need to match an API
// row's same-day partition after shifting the API date by n business days
// (used by the M0 D-minus-1 stages, which compare API(day) to ERP(day+1)).
func shiftedPartitionKey(r *ApiRow, n int) partitionKey {
	return partitionKey{r.TenantID, r.BankCode, r.AccTail, r.ApiSign, ShiftBusinessDays(r.ApiDate, n).Format("2006-01-02")}
}

// runRNStage implements the generic "row number" 1:1 matcher: partition
// both sides by the grouping key (for D-minus-1 stages, the API side's
// key is shifted forward n business days before grouping), subkey by
// cents, sort each subkey's rows by (cents, row_id), and pair by rank.
func runRNStage(ws *workingSet, stage StageName, ddiff int, apiFilter func(*ApiRow) bool, dateShift int) {
	apiGroups := make(map[partitionKey][]*ApiRow)
	for _, r := range ws.residualApi(apiFilter) {
		key := shiftedPartitionKey(r, dateShift)
		apiGroups[key] = append(apiGroups[key], r)
	}
	if len(apiGroups) == 0 {
		return
	}

	erpGroups := make(map[partitionKey][]*ErpRow)
	for _, r := range ws.residualErp(nil) {
		key := erpPartitionKey(r)
		if _, ok := apiGroups[key]; ok {
			erpGroups[key] = append(erpGroups[key], r)
		}
	}

	keys := sortedPartitionKeys(apiGroups)
	for _, key := range keys {
		erpRows, ok := erpGroups[key]
		if !ok {
			continue
		}
		matchRowNumbers(ws, apiGroups[key], erpRows, stage, ddiff)
	}
}

// matchRowNumbers subkeys by cents, sorts each subkey by (cents, row_id),
// and pairs rank-for-rank ("Grouping key").
func matchRowNumbers(ws *workingSet, apiRows []*ApiRow, erpRows []*ErpRow, stage StageName, ddiff int) {
	apiByCents := make(map[int64][]*ApiRow)
	for _, r := range apiRows {
		apiByCents[r.ApiCents] = append(apiByCents[r.ApiCents], r)
	}
	erpByCents := make(map[int64][]*ErpRow)
	for _, r := range erpRows {
		erpByCents[r.ErpCents] = append(erpByCents[r.ErpCents], r)
	}

	cents := make([]int64, 0, len(apiByCents))
	for c := range apiByCents {
		if _, ok := erpByCents[c]; ok {
			cents = append(cents, c)
		}
	}
	sort.Slice(cents, func(i, j int) bool { return cents[i] < cents[j] })

	for _, c := range cents {
		a := apiByCents[c]
		e := erpByCents[c]
		sort.Slice(a, func(i, j int) bool { return a[i].ApiRowID < a[j].ApiRowID })
		sort.Slice(e, func(i, j int) bool { return e[i].ErpRowID < e[j].ErpRowID })
		n := len(a)
		if len(e) < n {
			n = len(e)
		}
		for i := 0; i < n; i++ {
			if ws.consumedApi[a[i].ApiRowID] || ws.consumedErp[e[i].ErpRowID] {
				continue
			}
			ws.emit(a[i].ApiRowID, e[i].ErpRowID, stage, ddiff)
		}
	}
}

func sortedPartitionKeys[V any](m map[partitionKey]V) []partitionKey {
	keys := make([]partitionKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].tenantID != keys[j].tenantID {
			return keys[i].tenantID < keys[j].tenantID
		}
		if keys[i].bankCode != keys[j].bankCode {
			return keys[i].bankCode < keys[j].bankCode
		}
		if keys[i].accTail != keys[j].accTail {
			return keys[i].accTail < keys[j].accTail
		}
		if keys[i].sign != keys[j].sign {
			return keys[i].sign < keys[j].sign
		}
		return keys[i].date < keys[j].date
	})
	return keys
}

// RunCascade executes the full stage cascade in its fixed order and
// returns the raw candidate edges (before component validation).
func RunCascade(cfg Config, apiRows []ApiRow, erpRows []ErpRow) []Edge {
	ws := newWorkingSet(cfg, apiRows, erpRows)

	runRNStage(ws, StageM0TaxDMinus1, 1, func(r *ApiRow) bool { return r.IsTax }, 1)
	runRNStage(ws, StageM0BankFeesDMinus1, 1, func(r *ApiRow) bool { return r.IsBankFees }, 1)
	runRNStage(ws, StageM0RentDMinus1, 1, func(r *ApiRow) bool { return r.IsRentD1 }, 1)

	runDescSignatureStage(ws)
	runDescFull1NStage(ws)
	runDescKsumStages(ws)

	runRNStage(ws, StageM1SameDayRN, 0, nil, 0)

	runKsumSameDayStage(ws)

	runFallbackBalanceDayStage(ws)

	log.Info().Int("edges", len(ws.edges)).Msg("cascade complete")
	return ws.edges
}
