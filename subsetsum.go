package reconcile

import "sort"

// Item is a single (id, cents) pair fed to the subset-sum engine.
type Item struct {
	ID    int64
	Cents int64
}

// SubsetSumEngine implements item capping, meet-in-the-middle as the
// primary search, and a bounded DP fallback. Generalizes a brute
// two-at-a-time combination search over entries into an arbitrary-size
// bounded search.
type SubsetSumEngine struct {
	cfg Config
}

func NewSubsetSumEngine(cfg Config) *SubsetSumEngine { return &SubsetSumEngine{cfg: cfg} }

// Solve returns a subset of items whose cents sum to target, or ok=false
// if none was found within the engine's budgets. All items must share the
// sign of target (callers are responsible for filtering) and satisfy
// |item.Cents| <= |target|; Solve does not re-check this beyond what the
// capping step naturally discards.
func (e *SubsetSumEngine) Solve(target int64, items []Item) (ids []int64, ok bool) {
	if target == 0 {
		return nil, false
	}
	capped := e.capItems(target, items)
	if len(capped) == 0 {
		return nil, false
	}

	if ids, ok := mitmSolve(target, capped, e.cfg.MitmStateBudget); ok {
		if verifySum(target, ids, capped) {
			return ids, true
		}
	}

	if abs64(target) <= e.cfg.DpMaxTargetCents && len(capped) <= e.cfg.DpMaxItemsDP {
		if ids, ok := dpSolve(target, capped); ok {
			if verifySum(target, ids, capped) {
				return ids, true
			}
		}
	}

	return nil, false
}

// capItems applies the mandatory item-capping pre-step:
// group by cents value, keep at most
// min(count, max(1, |target|/max(1,|c|)), CapPerValue) per value, sort
// the result by |cents| descending, and truncate to KsumMaxItems.
func (e *SubsetSumEngine) capItems(target int64, items []Item) []Item {
	groups := make(map[int64][]Item)
	order := make([]int64, 0)
	for _, it := range items {
		if _, seen := groups[it.Cents]; !seen {
			order = append(order, it.Cents)
		}
		groups[it.Cents] = append(groups[it.Cents], it)
	}

	absTarget := abs64(target)
	out := make([]Item, 0, e.cfg.KsumMaxItems)
	for _, c := range order {
		group := groups[c]
		limit := len(group)
		byTarget := 1
		if ac := abs64(c); ac > 0 {
			byTarget = int(absTarget / ac)
			if byTarget < 1 {
				byTarget = 1
			}
		}
		if byTarget < limit {
			limit = byTarget
		}
		if e.cfg.CapPerValue < limit {
			limit = e.cfg.CapPerValue
		}
		out = append(out, group[:limit]...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return abs64(out[i].Cents) > abs64(out[j].Cents)
	})
	if len(out) > e.cfg.KsumMaxItems {
		log.Warn().Str("kind", string(ErrSubsetSumBudget)).
			Int("candidate_items", len(out)).Int("cap", e.cfg.KsumMaxItems).
			Msg("truncating subset-sum candidate items to budget")
		out = out[:e.cfg.KsumMaxItems]
	}
	return out
}

func verifySum(target int64, ids []int64, items []Item) bool {
	byID := make(map[int64]int64, len(items))
	for _, it := range items {
		byID[it.ID] = it.Cents
	}
	var sum int64
	for _, id := range ids {
		sum += byID[id]
	}
	return sum == target
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// mitmSolve implements the meet-in-the-middle search. n is shrunk by twos
// until 2^(n/2) <= stateBudget, discarding the smallest (already sorted
// to the end by capItems) items first.
func mitmSolve(target int64, items []Item, stateBudget int) ([]int64, bool) {
	n := len(items)
	for n > 0 && (int64(1)<<uint(n/2)) > int64(stateBudget) {
		n -= 2
	}
	if n <= 0 {
		n = min(len(items), 1)
	}
	working := items[:n]

	mid := len(working) / 2
	left := working[:mid]
	right := working[mid:]

	leftSubsets := enumerateSubsets(left)

	// Map sum -> minimum-cardinality id list seen for the right half.
	rightBest := make(map[int64][]int64, len(right)*2+1)
	for _, sub := range enumerateSubsets(right) {
		cur, exists := rightBest[sub.sum]
		if !exists || len(sub.ids) < len(cur) {
			rightBest[sub.sum] = sub.ids
		}
	}

	for _, l := range leftSubsets {
		need := target - l.sum
		if r, ok := rightBest[need]; ok {
			combined := make([]int64, 0, len(l.ids)+len(r))
			combined = append(combined, l.ids...)
			combined = append(combined, r...)
			return combined, true
		}
	}
	return nil, false
}

type subsetSum struct {
	sum int64
	ids []int64
}

// enumerateSubsets returns all 2^len(items) subsets (including the empty
// subset) as (sum, ids) pairs. Caller bounds len(items) via the MITM_STATE
// _BUDGET shrink so this never explores more than 2^(KSUM_MAX_ITEMS/2).
func enumerateSubsets(items []Item) []subsetSum {
	n := len(items)
	out := make([]subsetSum, 1<<uint(n))
	out[0] = subsetSum{sum: 0, ids: nil}
	for i := 0; i < n; i++ {
		bit := 1 << uint(i)
		for j := 0; j < bit; j++ {
			base := out[j]
			ids := make([]int64, len(base.ids), len(base.ids)+1)
			copy(ids, base.ids)
			ids = append(ids, items[i].ID)
			out[bit+j] = subsetSum{sum: base.sum + items[i].Cents, ids: ids}
		}
	}
	return out
}

// dpSolve is the bounded 0/1 subset-sum DP fallback,
// operating on absolute cents with path reconstruction via a parent
// table, then remapping the chosen indices back to original signed items.
func dpSolve(target int64, items []Item) ([]int64, bool) {
	absTarget := abs64(target)

	reached := make([]bool, absTarget+1)
	reached[0] = true

	type step struct {
		itemIdx int
		prevSum int64
	}
	// history[s] = how sum s was first reached.
	history := make(map[int64]step, absTarget+1)

	for i, it := range items {
		c := abs64(it.Cents)
		if c == 0 || c > absTarget {
			continue
		}
		for s := absTarget; s >= c; s-- {
			if reached[s-c] && !reached[s] {
				reached[s] = true
				history[s] = step{itemIdx: i, prevSum: s - c}
			}
		}
	}

	if !reached[absTarget] {
		return nil, false
	}

	var ids []int64
	s := absTarget
	for s != 0 {
		st, ok := history[s]
		if !ok {
			return nil, false
		}
		ids = append(ids, items[st.itemIdx].ID)
		s = st.prevSum
	}
	if len(ids) == 0 {
		return nil, false
	}
	return ids, true
}
