package report

import (
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// MaxWindow bounds the number of buckets a single call may build.
const MaxWindow = 366

var (
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrInvalidWindow      = fmt.Errorf("window must be between 1 and %d", MaxWindow)
)

type (
	dayKey struct {
		year  int
		month time.Month
		day   int
	}

	monthKey struct {
		year  int
		month time.Month
	}
)

// Default returns the standard number of buckets for g: 7 days, 4 weeks or
// 6 months. Unknown granularities return 0.
func Default(g core.Granularity) int {
	switch g {
	case core.Daily:
		return 7
	case core.Weekly:
		return 4
	case core.Monthly:
		return 6
	default:
		return 0
	}
}

// ParseGranularity maps a query value onto a granularity.
func ParseGranularity(s string) (core.Granularity, error) {
	switch g := core.Granularity(s); g {
	case core.Daily, core.Weekly, core.Monthly:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
}

// BucketBy splits txns into window consecutive periods ending with the
// period that contains now, oldest first. Every period is present even when
// it has no transactions. Transactions before the first period or dated
// after now are ignored. window must be in [1, MaxWindow].
//
// Periods are calendar based in now's location: daily buckets match the
// calendar date, weekly buckets match the Monday that starts the week, and
// monthly buckets match (year, month).
func BucketBy(txns []core.Transaction, g core.Granularity, window int, now time.Time) ([]core.Bucket, error) {
	if window <= 0 || window > MaxWindow {
		return nil, ErrInvalidWindow
	}
	loc := now.Location()
	today := startOfDay(now)

	switch g {
	case core.Daily:
		starts := make([]time.Time, window)
		for i := range starts {
			starts[i] = today.AddDate(0, 0, -(window - 1 - i))
		}
		return fill(txns, starts, "Mon", now, func(t time.Time) dayKey {
			return dayOf(t)
		}), nil

	case core.Weekly:
		monday := mondayOf(today)
		starts := make([]time.Time, window)
		for i := range starts {
			starts[i] = monday.AddDate(0, 0, -7*(window-1-i))
		}
		return fill(txns, starts, "Jan 02", now, func(t time.Time) dayKey {
			return dayOf(mondayOf(startOfDay(t)))
		}), nil

	case core.Monthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		starts := make([]time.Time, window)
		for i := range starts {
			starts[i] = first.AddDate(0, -(window - 1 - i), 0)
		}
		return fill(txns, starts, "Jan", now, func(t time.Time) monthKey {
			return monthKey{year: t.Year(), month: t.Month()}
		}), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidGranularity, g)
}

func fill[K comparable](txns []core.Transaction, starts []time.Time, layout string, now time.Time, key func(time.Time) K) []core.Bucket {
	loc := now.Location()
	buckets := make([]core.Bucket, len(starts))
	index := make(map[K]int, len(starts))
	for i, s := range starts {
		buckets[i] = core.Bucket{Label: s.Format(layout), Start: s}
		index[key(s)] = i
	}
	for _, tx := range txns {
		if tx.Date.After(now) {
			continue
		}
		i, ok := index[key(tx.Date.In(loc))]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Income:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case core.Expense:
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}
	return buckets
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// mondayOf returns the Monday (ISO weekday 1) of the week containing day.
func mondayOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func dayOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{year: y, month: m, day: d}
}
