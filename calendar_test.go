package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShiftBusinessDays(t *testing.T) {
	fri := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) // Friday

	t.Run("forward skips weekend", func(t *testing.T) {
		got := ShiftBusinessDays(fri, 1)
		assert.Equal(t, time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("backward skips weekend", func(t *testing.T) {
		mon := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
		got := ShiftBusinessDays(mon, -1)
		assert.Equal(t, fri, got)
	})

	t.Run("zero is identity", func(t *testing.T) {
		assert.True(t, ShiftBusinessDays(fri, 0).Equal(fri))
	})
}

func TestIsBusinessDay(t *testing.T) {
	assert.True(t, IsBusinessDay(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))  // Friday
	assert.False(t, IsBusinessDay(time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC))) // Saturday
	assert.False(t, IsBusinessDay(time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC))) // Sunday
}

func TestCandidateDates(t *testing.T) {
	wed := time.Date(2025, 8, 6, 0, 0, 0, 0, time.UTC)
	dates := CandidateDates(wed)
	assert.Len(t, dates, 5)
	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i-1].Before(dates[i]))
	}
}

func TestDateRange(t *testing.T) {
	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)
	got := DateRange(from, to)
	assert.Len(t, got, 3)
	assert.True(t, got[0].Equal(from))
	assert.True(t, got[2].Equal(to))

	assert.Nil(t, DateRange(to, from))
}

func TestMonthStart(t *testing.T) {
	d := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), MonthStart(d))
}
