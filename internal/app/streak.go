package app

import (
	"time"

	"progress-service/internal/domain"
)

// StreakOutcome is the result of advancing a streak by one active day.
type StreakOutcome struct {
	Current int
	Best    int
	Change  domain.StreakChange
}

// AdvanceStreak moves the streak given the last activity date. today and
// yesterday must come from a single clock read.
func AdvanceStreak(last *time.Time, today, yesterday time.Time, current, best int) StreakOutcome {
	out := StreakOutcome{Current: current, Change: domain.StreakNoChange}
	switch {
	case last == nil:
		out.Current = 1
		out.Change = domain.StreakIncremented
	case SameDay(*last, today):
	case SameDay(*last, yesterday):
		out.Current = current + 1
		out.Change = domain.StreakIncremented
	default:
		out.Current = 1
		out.Change = domain.StreakReset
	}
	out.Best = best
	if out.Current > out.Best {
		out.Best = out.Current
	}
	return out
}

// UTCDates derives today and yesterday (UTC calendar dates) from one instant.
func UTCDates(now time.Time) (today, yesterday time.Time) {
	today = DateOf(now)
	return today, today.AddDate(0, 0, -1)
}

// DateOf truncates t to midnight of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
