package reconcile

import "sort"

// runKsumSameDayStage implements M2_KSUM_SAME_DAY (item 6):
// per (tenant, bank, acc_tail, sign, date) partition, with at most
// MAX_GROUP_GUARD rows (else trimmed to the top KSUM_MAX_ITEMS by |cents|),
// run an N:1 pass (each residual ERP row as target against residual API
// items) then a 1:N pass (each residual API row as target against residual
// ERP items), both passes sharing the same used-row sets so a row consumed
// by the N:1 pass cannot reappear in the 1:N pass. is_rent API rows are
// excluded from this stage entirely; of them, only is_rent_d1 rows are
// taken by the M0 rent stage, and any rent row still residual here
// remains open to the fallback stage.
func runKsumSameDayStage(ws *workingSet) {
	apiGroups := make(map[partitionKey][]*ApiRow)
	for _, r := range ws.residualApi(func(r *ApiRow) bool { return !r.IsRent() }) {
		k := apiPartitionKey(r)
		apiGroups[k] = append(apiGroups[k], r)
	}
	erpGroups := make(map[partitionKey][]*ErpRow)
	for _, r := range ws.residualErp(nil) {
		k := erpPartitionKey(r)
		erpGroups[k] = append(erpGroups[k], r)
	}

	keys := make(map[partitionKey]bool, len(apiGroups))
	for k := range apiGroups {
		keys[k] = true
	}
	for k := range erpGroups {
		keys[k] = true
	}
	orderedKeys := make([]partitionKey, 0, len(keys))
	for k := range keys {
		orderedKeys = append(orderedKeys, k)
	}
	sort.Slice(orderedKeys, func(i, j int) bool { return partitionKeyLess(orderedKeys[i], orderedKeys[j]) })

	for _, key := range orderedKeys {
		apiRows := apiGroups[key]
		erpRows := erpGroups[key]
		if len(apiRows) == 0 || len(erpRows) == 0 {
			continue
		}
		if len(apiRows) > ws.cfg.MaxGroupGuard {
			log.Warn().Str("kind", string(ErrOversizedPartition)).
				Str("date", key.date).Int("rows", len(apiRows)).
				Msg("trimming oversized API partition before KSUM")
			apiRows = trimApiByAbsCents(apiRows, ws.cfg.KsumMaxItems)
		}
		if len(erpRows) > ws.cfg.MaxGroupGuard {
			log.Warn().Str("kind", string(ErrOversizedPartition)).
				Str("date", key.date).Int("rows", len(erpRows)).
				Msg("trimming oversized ERP partition before KSUM")
			erpRows = trimErpByAbsCents(erpRows, ws.cfg.KsumMaxItems)
		}

		usedApi := make(map[int64]bool)
		usedErp := make(map[int64]bool)

		ksumN1Pass(ws, apiRows, erpRows, usedApi, usedErp)
		ksum1NPass(ws, apiRows, erpRows, usedApi, usedErp)
	}
}

// ksumN1Pass targets each ERP row, sorted |amount| desc then row_id asc,
// against the residual API items of the partition.
func ksumN1Pass(ws *workingSet, apiRows []*ApiRow, erpRows []*ErpRow, usedApi, usedErp map[int64]bool) {
	sorted := append([]*ErpRow(nil), erpRows...)
	sort.Slice(sorted, func(i, j int) bool { return anchorLessErp(sorted[i], sorted[j]) })

	for _, e := range sorted {
		if usedErp[e.ErpRowID] || ws.consumedErp[e.ErpRowID] {
			continue
		}
		items := make([]Item, 0, len(apiRows))
		for _, a := range apiRows {
			if usedApi[a.ApiRowID] || ws.consumedApi[a.ApiRowID] {
				continue
			}
			items = append(items, Item{ID: a.ApiRowID, Cents: a.ApiCents})
		}
		ids, ok := ws.sse.Solve(e.ErpCents, items)
		if !ok {
			continue
		}
		ws.emitGroup(ids, []int64{e.ErpRowID}, StageM2KsumSameDay, 0)
		usedErp[e.ErpRowID] = true
		for _, id := range ids {
			usedApi[id] = true
		}
	}
}

// ksum1NPass targets each residual API row against residual ERP items.
func ksum1NPass(ws *workingSet, apiRows []*ApiRow, erpRows []*ErpRow, usedApi, usedErp map[int64]bool) {
	sorted := append([]*ApiRow(nil), apiRows...)
	sort.Slice(sorted, func(i, j int) bool { return anchorLessApi(sorted[i], sorted[j]) })

	for _, a := range sorted {
		if usedApi[a.ApiRowID] || ws.consumedApi[a.ApiRowID] {
			continue
		}
		items := make([]Item, 0, len(erpRows))
		for _, e := range erpRows {
			if usedErp[e.ErpRowID] || ws.consumedErp[e.ErpRowID] {
				continue
			}
			items = append(items, Item{ID: e.ErpRowID, Cents: e.ErpCents})
		}
		ids, ok := ws.sse.Solve(a.ApiCents, items)
		if !ok {
			continue
		}
		ws.emitGroup([]int64{a.ApiRowID}, ids, StageM2KsumSameDay, 0)
		usedApi[a.ApiRowID] = true
		for _, id := range ids {
			usedErp[id] = true
		}
	}
}

// anchorLessApi orders anchors by |amount| descending, row_id ascending
// ("Anchor ordering").
func anchorLessApi(a, b *ApiRow) bool {
	aa, ab := abs64(a.ApiCents), abs64(b.ApiCents)
	if aa != ab {
		return aa > ab
	}
	return a.ApiRowID < b.ApiRowID
}

func anchorLessErp(a, b *ErpRow) bool {
	aa, ab := abs64(a.ErpCents), abs64(b.ErpCents)
	if aa != ab {
		return aa > ab
	}
	return a.ErpRowID < b.ErpRowID
}

func trimApiByAbsCents(rows []*ApiRow, n int) []*ApiRow {
	sorted := append([]*ApiRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return anchorLessApi(sorted[i], sorted[j]) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func trimErpByAbsCents(rows []*ErpRow, n int) []*ErpRow {
	sorted := append([]*ErpRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return anchorLessErp(sorted[i], sorted[j]) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func partitionKeyLess(a, b partitionKey) bool {
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
	return a.date < b.date
}
