package reconcile

import "time"

// ShiftBusinessDays advances (n > 0) or retreats (n < 0) d by |n| steps,
// skipping Saturday and Sunday.
func ShiftBusinessDays(d time.Time, n int) time.Time {
	if n == 0 {
		return d
	}
	step := 1
	remaining := n
	if n < 0 {
		step = -1
		remaining = -n
	}
	cur := d
	for remaining > 0 {
		cur = cur.AddDate(0, 0, step)
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			remaining--
		}
	}
	return cur
}

// IsBusinessDay reports whether d falls on a weekday. Business-holiday
// calendars are explicitly out of scope; this is weekday-only.
func IsBusinessDay(d time.Time) bool {
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
}

// BusinessDaysBetween counts the signed number of business days from a to
// b (negative if b is before a). The stages do not call it: Edge.DateDiff
// is a fixed per-stage value.
func BusinessDaysBetween(a, b time.Time) int {
	if sameDate(a, b) {
		return 0
	}
	sign := 1
	lo, hi := a, b
	if b.Before(a) {
		sign = -1
		lo, hi = b, a
	}
	count := 0
	cur := lo
	for cur.Before(hi) {
		cur = cur.AddDate(0, 0, 1)
		if IsBusinessDay(cur) {
			count++
		}
	}
	return sign * count
}

// CandidateDates returns the five business-day-shifted dates
// {d-2, d-1, d, d+1, d+2} used by the description stages (01/02/03),
// deduplicated and in ascending order.
func CandidateDates(d time.Time) []time.Time {
	seen := make(map[string]bool, 5)
	var out []time.Time
	for _, n := range []int{-2, -1, 0, 1, 2} {
		var cd time.Time
		if n == 0 {
			cd = d
		} else {
			cd = ShiftBusinessDays(d, n)
		}
		k := cd.Format("2006-01-02")
		if !seen[k] {
			seen[k] = true
			out = append(out, cd)
		}
	}
	return out
}

// DateRange yields every calendar date in [from, to] inclusive, used to
// build the dense daily aggregate spine.
func DateRange(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	out := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := dateOnly(from); !d.After(dateOnly(to)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// MonthStart truncates d to the first day of its month.
func MonthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	return dateOnly(a).Equal(dateOnly(b))
}
