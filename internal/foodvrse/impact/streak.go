package impact

import (
	"fmt"
	"strings"
	"time"
)

// StreakPolicy decides the current streak after a purchase made at `at`,
// given the previous streak and the time of the previous purchase.
type StreakPolicy interface {
	Next(current int, last *time.Time, at time.Time) int
}

// PurchaseStreak counts every applied purchase.
type PurchaseStreak struct{}

func (PurchaseStreak) Next(current int, _ *time.Time, _ time.Time) int {
	return current + 1
}

// DailyStreak counts consecutive UTC calendar days with at least one purchase.
type DailyStreak struct{}

func (DailyStreak) Next(current int, last *time.Time, at time.Time) int {
	if last == nil || current < 1 {
		return 1
	}
	prev := dayOf(*last)
	curr := dayOf(at)
	switch {
	case curr.Equal(prev) || curr.Before(prev):
		// same day, or an out-of-order event for a day already counted
		return current
	case curr.Equal(prev.AddDate(0, 0, 1)):
		return current + 1
	default:
		return 1
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseStreakPolicy resolves a STREAK_MODE value
func ParseStreakPolicy(mode string) (StreakPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "purchase":
		return PurchaseStreak{}, nil
	case "daily":
		return DailyStreak{}, nil
	default:
		return nil, fmt.Errorf("unknown streak mode %q", mode)
	}
}
