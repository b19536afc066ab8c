package reconcile

import "sort"

// descKey is the (partition, 3-keyword signature) bucket key used by
// 01_DESC_MN_SIGNATURE.
type descKey struct {
	partitionKey
	signature string
}

// runDescSignatureStage implements 01_DESC_MN_SIGNATURE: within each
// (partition, 3-keyword signature) bucket, where the partition includes the
// row's own date, if the bucket's API rows sum equals its ERP rows sum,
// emit the whole bucket as one M:N cross-product match.
func runDescSignatureStage(ws *workingSet) {
	buckets := make(map[descKey][]*ApiRow)
	for _, r := range ws.residualApi(nil) {
		kws := ExtractKeywords(r.DescNorm, ws.cfg.MaxKeywords)
		sig := Signature(kws)
		if sig == "" {
			continue
		}
		k := descKey{apiPartitionKey(r), sig}
		buckets[k] = append(buckets[k], r)
	}

	erpBuckets := make(map[descKey][]*ErpRow)
	for _, r := range ws.residualErp(nil) {
		kws := ExtractKeywords(r.DescNorm, ws.cfg.MaxKeywords)
		sig := Signature(kws)
		if sig == "" {
			continue
		}
		k := descKey{erpPartitionKey(r), sig}
		erpBuckets[k] = append(erpBuckets[k], r)
	}

	keys := make([]descKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return descKeyLess(keys[i], keys[j]) })

	for _, k := range keys {
		erpRows := erpBuckets[k]
		if len(erpRows) == 0 {
			continue
		}
		apiRows := dedupApiRows(buckets[k])
		apiRows = filterUnconsumedApi(ws, apiRows)
		erpRows = filterUnconsumedErp(ws, erpRows)
		if len(apiRows) == 0 || len(erpRows) == 0 {
			continue
		}
		if len(apiRows) > ws.cfg.MaxGroupGuard || len(erpRows) > ws.cfg.MaxGroupGuard {
			continue
		}
		var apiSum, erpSum int64
		for _, r := range apiRows {
			apiSum += r.ApiCents
		}
		for _, r := range erpRows {
			erpSum += r.ErpCents
		}
		if apiSum != erpSum {
			continue
		}
		apiIDs := apiRowIDs(apiRows)
		erpIDs := erpRowIDs(erpRows)
		ws.emitGroup(apiIDs, erpIDs, StageDescMNSignature, 0)
	}
}

// runDescFull1NStage implements 02_DESC_FULL_1N: a single API row against
// a set of ERP rows in the same account/sign/candidate-date window whose
// keyword intersection with the anchor meets the minimum, summing to its
// cents. Sum equality (and which subset) is decided by the subset-sum
// engine itself, not by a description-equality pre-filter.
func runDescFull1NStage(ws *workingSet) {
	for _, a := range descAnchorApiRows(ws) {
		if ws.consumedApi[a.ApiRowID] {
			continue
		}
		aKeywords := ExtractKeywords(a.DescNorm, ws.cfg.MaxKeywords)
		if len(aKeywords) < ws.cfg.DescMinKeywords {
			continue
		}
		candidates := erpRowsInWindow(ws, a, aKeywords, ws.cfg.DescMinKeywords)
		if len(candidates) == 0 {
			continue
		}
		items := make([]Item, 0, len(candidates))
		for _, e := range candidates {
			items = append(items, Item{ID: e.ErpRowID, Cents: e.ErpCents})
		}
		ids, ok := ws.sse.Solve(a.ApiCents, items)
		if !ok {
			continue
		}
		ws.emitGroup([]int64{a.ApiRowID}, ids, StageDescFull1N, 0)
	}
}

// runDescKsumStages implements 03_DESC_KSUM_1N and 03_DESC_KSUM_N1: same
// account/sign and keyword-intersection gate as stage 02, but only
// candidates dated on the anchor's own date are used, solved via
// the depth-limited branch-and-bound subset-sum (not the general MITM/DP
// engine) in both directions: one API row against many ERP rows, then
// one ERP row against many API rows.
func runDescKsumStages(ws *workingSet) {
	for _, a := range descAnchorApiRows(ws) {
		aKeywords := ExtractKeywords(a.DescNorm, ws.cfg.MaxKeywords)
		if len(aKeywords) < ws.cfg.DescMinKeywords {
			continue
		}
		candidates := erpRowsInWindow(ws, a, aKeywords, ws.cfg.DescMinKeywords)
		if len(candidates) == 0 {
			continue
		}
		items := make([]Item, 0, len(candidates))
		for _, e := range candidates {
			if !sameDate(e.ErpDate, a.ApiDate) {
				continue
			}
			items = append(items, Item{ID: e.ErpRowID, Cents: e.ErpCents})
		}
		ids, ok := branchAndBoundSolve(a.ApiCents, items, ws.cfg.KsumBranchMaxDepth, ws.cfg.KsumBranchMaxNodes)
		if !ok {
			continue
		}
		ws.emitGroup([]int64{a.ApiRowID}, ids, StageDescKsum1N, 0)
	}

	for _, e := range descAnchorErpRows(ws) {
		eKeywords := ExtractKeywords(e.DescNorm, ws.cfg.MaxKeywords)
		if len(eKeywords) < ws.cfg.DescMinKeywords {
			continue
		}
		candidates := apiRowsInWindow(ws, e, eKeywords, ws.cfg.DescMinKeywords)
		if len(candidates) == 0 {
			continue
		}
		items := make([]Item, 0, len(candidates))
		for _, a := range candidates {
			if !sameDate(a.ApiDate, e.ErpDate) {
				continue
			}
			items = append(items, Item{ID: a.ApiRowID, Cents: a.ApiCents})
		}
		ids, ok := branchAndBoundSolve(e.ErpCents, items, ws.cfg.KsumBranchMaxDepth, ws.cfg.KsumBranchMaxNodes)
		if !ok {
			continue
		}
		ws.emitGroup(ids, []int64{e.ErpRowID}, StageDescKsumN1, 0)
	}
}

// erpRowsInWindow returns unconsumed ERP rows in a's account/bank/sign
// partition whose date falls in a's candidate date window and whose
// keyword intersection with a meets minKeywords.
func erpRowsInWindow(ws *workingSet, a *ApiRow, aKeywords []string, minKeywords int) []*ErpRow {
	dateSet := make(map[string]bool, 5)
	for _, d := range CandidateDates(a.ApiDate) {
		dateSet[d.Format("2006-01-02")] = true
	}
	return ws.residualErp(func(e *ErpRow) bool {
		if e.TenantID != a.TenantID || e.BankCode != a.BankCode || e.AccTail != a.AccTail || e.ErpSign != a.ApiSign {
			return false
		}
		if !dateSet[e.ErpDate.Format("2006-01-02")] {
			return false
		}
		eKeywords := ExtractKeywords(e.DescNorm, ws.cfg.MaxKeywords)
		return KeywordIntersectionSize(aKeywords, eKeywords) >= minKeywords
	})
}

// apiRowsInWindow is the ERP-anchored mirror of erpRowsInWindow.
func apiRowsInWindow(ws *workingSet, e *ErpRow, eKeywords []string, minKeywords int) []*ApiRow {
	dateSet := make(map[string]bool, 5)
	for _, d := range CandidateDates(e.ErpDate) {
		dateSet[d.Format("2006-01-02")] = true
	}
	return ws.residualApi(func(a *ApiRow) bool {
		if a.TenantID != e.TenantID || a.BankCode != e.BankCode || a.AccTail != e.AccTail || a.ApiSign != e.ErpSign {
			return false
		}
		if !dateSet[a.ApiDate.Format("2006-01-02")] {
			return false
		}
		aKeywords := ExtractKeywords(a.DescNorm, ws.cfg.MaxKeywords)
		return KeywordIntersectionSize(eKeywords, aKeywords) >= minKeywords
	})
}

// descAnchorApiRows returns residual API rows meeting the |amount| >=
// DescAnchorMinCents threshold of stages 02/03, ordered by
// |amount| descending then row_id ascending ("Anchor ordering").
func descAnchorApiRows(ws *workingSet) []*ApiRow {
	rows := ws.residualApi(func(r *ApiRow) bool { return abs64(r.ApiCents) >= ws.cfg.DescAnchorMinCents })
	sort.Slice(rows, func(i, j int) bool { return anchorLessApi(rows[i], rows[j]) })
	return rows
}

func descAnchorErpRows(ws *workingSet) []*ErpRow {
	rows := ws.residualErp(func(r *ErpRow) bool { return abs64(r.ErpCents) >= ws.cfg.DescAnchorMinCents })
	sort.Slice(rows, func(i, j int) bool { return anchorLessErp(rows[i], rows[j]) })
	return rows
}

func dedupApiRows(rows []*ApiRow) []*ApiRow {
	seen := make(map[int64]bool, len(rows))
	out := make([]*ApiRow, 0, len(rows))
	for _, r := range rows {
		if seen[r.ApiRowID] {
			continue
		}
		seen[r.ApiRowID] = true
		out = append(out, r)
	}
	return out
}

func filterUnconsumedApi(ws *workingSet, rows []*ApiRow) []*ApiRow {
	out := make([]*ApiRow, 0, len(rows))
	for _, r := range rows {
		if !ws.consumedApi[r.ApiRowID] {
			out = append(out, r)
		}
	}
	return out
}

func filterUnconsumedErp(ws *workingSet, rows []*ErpRow) []*ErpRow {
	out := make([]*ErpRow, 0, len(rows))
	for _, r := range rows {
		if !ws.consumedErp[r.ErpRowID] {
			out = append(out, r)
		}
	}
	return out
}

func apiRowIDs(rows []*ApiRow) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ApiRowID
	}
	return out
}

func erpRowIDs(rows []*ErpRow) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ErpRowID
	}
	return out
}

func descKeyLess(a, b descKey) bool {
	if a.tenantID != b.tenantID {
		return a.tenantID < b.tenantID
	}
	if a.bankCode != b.bankCode {
		return a.bankCode < b.bankCode
	}
	if a.accTail != b.accTail {
		return a.accTail < b.accTail
	}
	if a.sign != b.sign {
		return a.sign < b.sign
	}
	if a.date != b.date {
		return a.date < b.date
	}
	return a.signature < b.signature
}
