package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsetSumEngineSolve(t *testing.T) {
	cfg := DefaultConfig()
	e := NewSubsetSumEngine(cfg)

	t.Run("exact single item", func(t *testing.T) {
		ids, ok := e.Solve(1000, []Item{{ID: 1, Cents: 1000}})
		require.True(t, ok)
		assert.Equal(t, []int64{1}, ids)
	})

	t.Run("three items N:1", func(t *testing.T) {
		items := []Item{{ID: 1, Cents: 3000}, {ID: 2, Cents: 2000}, {ID: 3, Cents: 5000}}
		ids, ok := e.Solve(10000, items)
		require.True(t, ok)
		assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
	})

	t.Run("no subset sums to target", func(t *testing.T) {
		items := []Item{{ID: 1, Cents: 100}, {ID: 2, Cents: 200}}
		_, ok := e.Solve(150, items)
		assert.False(t, ok)
	})

	t.Run("zero target always fails", func(t *testing.T) {
		_, ok := e.Solve(0, []Item{{ID: 1, Cents: 0}})
		assert.False(t, ok)
	})

	t.Run("verifies sum before returning", func(t *testing.T) {
		items := make([]Item, 0, 10)
		for i := int64(1); i <= 10; i++ {
			items = append(items, Item{ID: i, Cents: i * 100})
		}
		ids, ok := e.Solve(600, items)
		require.True(t, ok)
		var sum int64
		byID := make(map[int64]int64)
		for _, it := range items {
			byID[it.ID] = it.Cents
		}
		for _, id := range ids {
			sum += byID[id]
		}
		assert.Equal(t, int64(600), sum)
	})
}

func TestCapItems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapPerValue = 2
	cfg.KsumMaxItems = 3
	e := NewSubsetSumEngine(cfg)

	items := []Item{
		{ID: 1, Cents: 100}, {ID: 2, Cents: 100}, {ID: 3, Cents: 100},
		{ID: 4, Cents: 500},
	}
	capped := e.capItems(1000, items)
	assert.LessOrEqual(t, len(capped), 3)
	// Largest-magnitude item must survive the truncation.
	found := false
	for _, it := range capped {
		if it.ID == 4 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEnumerateSubsets(t *testing.T) {
	items := []Item{{ID: 1, Cents: 10}, {ID: 2, Cents: 20}}
	subsets := enumerateSubsets(items)
	assert.Len(t, subsets, 4)

	sums := make(map[int64]bool)
	for _, s := range subsets {
		sums[s.sum] = true
	}
	assert.True(t, sums[0])
	assert.True(t, sums[10])
	assert.True(t, sums[20])
	assert.True(t, sums[30])
}

func TestDpSolve(t *testing.T) {
	items := []Item{{ID: 1, Cents: -100}, {ID: 2, Cents: -200}, {ID: 3, Cents: -50}}
	ids, ok := dpSolve(-300, items)
	require.True(t, ok)
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	_, ok = dpSolve(-999, items)
	assert.False(t, ok)
}
