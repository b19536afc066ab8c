package reconcile

import "sort"

// branchAndBoundSolve is the depth-limited branch-and-bound subset-sum
// used by the description-stage KSUM matchers (03_DESC_KSUM_1N/N1),
// distinct from the general MITM/DP engine used elsewhere: a depth-first
// search over include/exclude decisions, pruned by suffix-sum
// feasibility and bounded by a node budget (design notes: "depth-first
// subset-sum uses prefix-sum feasibility pruning and a node budget").
// items are truncated to maxDepth, largest |cents| first, before the
// search starts.
func branchAndBoundSolve(target int64, items []Item, maxDepth, maxNodes int) (ids []int64, ok bool) {
	if target == 0 || len(items) == 0 {
		return nil, false
	}
	t := abs64(target)

	working := append([]Item(nil), items...)
	sort.Slice(working, func(i, j int) bool { return abs64(working[i].Cents) > abs64(working[j].Cents) })
	if len(working) > maxDepth {
		working = working[:maxDepth]
	}

	// suffix[i] is the sum of |cents| over working[i:], the most this
	// branch could still add on top of the current partial sum.
	suffix := make([]int64, len(working)+1)
	for i := len(working) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + abs64(working[i].Cents)
	}

	nodes := 0
	var found []int64

	var dfs func(idx int, sum int64, chosen []int64) bool
	dfs = func(idx int, sum int64, chosen []int64) bool {
		nodes++
		if nodes > maxNodes {
			return false
		}
		if sum == t {
			found = append([]int64(nil), chosen...)
			return true
		}
		if idx >= len(working) || sum > t || sum+suffix[idx] < t {
			return false
		}
		it := working[idx]
		if dfs(idx+1, sum+abs64(it.Cents), append(chosen, it.ID)) {
			return true
		}
		return dfs(idx+1, sum, chosen)
	}

	if dfs(0, 0, nil) {
		return found, true
	}
	return nil, false
}
