package reconcile

import "sort"

// runFallbackBalanceDayStage implements 07_FALLBACK_BALANCE_DAY: for
// every partition where the residual API and ERP cents sums are equal,
// emit the full cross-product as a single N:M match. The component
// validator (C6) is the authority that actually keeps or discards it
// once deduplication is accounted for.
func runFallbackBalanceDayStage(ws *workingSet) {
	apiGroups := make(map[partitionKey][]*ApiRow)
	for _, r := range ws.residualApi(nil) {
		k := apiPartitionKey(r)
		apiGroups[k] = append(apiGroups[k], r)
	}
	erpGroups := make(map[partitionKey][]*ErpRow)
	for _, r := range ws.residualErp(nil) {
		k := erpPartitionKey(r)
		erpGroups[k] = append(erpGroups[k], r)
	}

	keys := make([]partitionKey, 0, len(apiGroups))
	for k := range apiGroups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return partitionKeyLess(keys[i], keys[j]) })

	for _, key := range keys {
		apiRows := apiGroups[key]
		erpRows := erpGroups[key]
		if len(apiRows) == 0 || len(erpRows) == 0 {
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
		ws.emitGroup(apiRowIDs(apiRows), erpRowIDs(erpRows), StageFallbackBalanceDay, 0)
	}
}
