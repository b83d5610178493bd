package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summary holds the totals shown on the dashboard for a reference day.
type Summary struct {
	Year           int
	Month          int // 1-12
	MonthTotal     decimal.Decimal
	YearTotal      decimal.Decimal
	CategoryTotals map[string]decimal.Decimal // current month, zero totals omitted
	ByCategory     []CategoryAmount           // CategoryTotals sorted by amount desc
	MonthlyTotals  [12]decimal.Decimal        // today's year, index 0 = January
	Skipped        int                        // entries with an unparseable date
}

// Aggregate sums entries into current-month and current-year totals. A
// malformed amount counts as zero.
func Aggregate(entries []LedgerEntry, today time.Time) Summary {
	s := Summary{
		Year:       today.Year(),
		Month:      int(today.Month()),
		MonthTotal: decimal.Zero,
		YearTotal:  decimal.Zero,
	}
	for i := range s.MonthlyTotals {
		s.MonthlyTotals[i] = decimal.Zero
	}

	monthLabel := MonthLabeler{}.Label(today)
	byCategory := make(map[string]decimal.Decimal)

	for _, e := range entries {
		t, err := ParseDate(e.Date)
		if err != nil {
			s.Skipped++
			continue
		}
		amount := e.Amount.OrZero()

		if (MonthLabeler{}).Label(t) == monthLabel {
			s.MonthTotal = s.MonthTotal.Add(amount)
			byCategory[e.Category] = byCategory[e.Category].Add(amount)
		}
		if t.Year() == today.Year() {
			s.YearTotal = s.YearTotal.Add(amount)
			m := int(t.Month()) - 1
			s.MonthlyTotals[m] = s.MonthlyTotals[m].Add(amount)
		}
	}

	s.CategoryTotals = make(map[string]decimal.Decimal, len(byCategory))
	for name, total := range byCategory {
		if total.IsZero() {
			continue
		}
		s.CategoryTotals[name] = total
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: total})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if c := s.ByCategory[i].Amount.Cmp(s.ByCategory[j].Amount); c != 0 {
			return c > 0
		}
		return s.ByCategory[i].Name < s.ByCategory[j].Name
	})

	return s
}
