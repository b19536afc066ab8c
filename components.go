package reconcile

// ValidateComponents is the component validator (C6): build the bipartite
// graph over candidate edges, compute connected components via BFS, and
// keep only edges whose component balances (Σ api_cents == Σ erp_cents).
// Discards every edge of any unbalanced component. Stable regardless of
// traversal order, since the balance check does not depend on visit order.
func ValidateComponents(edges []Edge, apiByID map[int64]*ApiRow, erpByID map[int64]*ErpRow) []Edge {
	apiAdj := make(map[int64][]int64) // api_row_id -> erp_row_ids
	erpAdj := make(map[int64][]int64) // erp_row_id -> api_row_ids
	for _, e := range edges {
		apiAdj[e.ApiRowID] = append(apiAdj[e.ApiRowID], e.ErpRowID)
		erpAdj[e.ErpRowID] = append(erpAdj[e.ErpRowID], e.ApiRowID)
	}

	type node struct {
		isApi bool
		id    int64
	}

	compOf := make(map[node]int)
	compID := 0

	visitAll := func(start node) {
		queue := []node{start}
		compOf[start] = compID
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.isApi {
				for _, erpID := range apiAdj[cur.id] {
					n := node{false, erpID}
					if _, seen := compOf[n]; !seen {
						compOf[n] = compID
						queue = append(queue, n)
					}
				}
			} else {
				for _, apiID := range erpAdj[cur.id] {
					n := node{true, apiID}
					if _, seen := compOf[n]; !seen {
						compOf[n] = compID
						queue = append(queue, n)
					}
				}
			}
		}
	}

	for apiID := range apiAdj {
		n := node{true, apiID}
		if _, seen := compOf[n]; !seen {
			visitAll(n)
			compID++
		}
	}
	for erpID := range erpAdj {
		n := node{false, erpID}
		if _, seen := compOf[n]; !seen {
			visitAll(n)
			compID++
		}
	}

	apiSum := make(map[int]int64)
	erpSum := make(map[int]int64)
	for apiID := range apiAdj {
		c := compOf[node{true, apiID}]
		if r, ok := apiByID[apiID]; ok {
			apiSum[c] += r.ApiCents
		}
	}
	for erpID := range erpAdj {
		c := compOf[node{false, erpID}]
		if r, ok := erpByID[erpID]; ok {
			erpSum[c] += r.ErpCents
		}
	}

	balanced := make(map[int]bool, compID)
	for c := 0; c < compID; c++ {
		ok := apiSum[c] == erpSum[c]
		balanced[c] = ok
		if !ok {
			log.Warn().Str("kind", string(ErrValidationFailure)).
				Int64("api_sum_cents", apiSum[c]).Int64("erp_sum_cents", erpSum[c]).
				Msg("discarding unbalanced component")
		}
	}

	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		c := compOf[node{true, e.ApiRowID}]
		if balanced[c] {
			out = append(out, e)
		}
	}
	return out
}
