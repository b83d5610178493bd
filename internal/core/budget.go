package core

import "github.com/shopspring/decimal"

type Tier string

const (
	TierNoBudget Tier = "no_budget"
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierExceeded Tier = "exceeded"
)

var (
	warningRatio = decimal.RequireFromString("0.8")
	hundred      = decimal.NewFromInt(100)
)

// BudgetStatus is the monthly budget state derived from the month total.
type BudgetStatus struct {
	Budget    decimal.NullDecimal
	Spent     decimal.Decimal
	Remaining decimal.NullDecimal
	Percent   int // 0-100
	Tier      Tier
}

// EvaluateBudget derives the budget tier for a month total. It keeps no
// memory of earlier evaluations.
func EvaluateBudget(monthTotal decimal.Decimal, budget decimal.NullDecimal) BudgetStatus {
	status := BudgetStatus{
		Budget: budget,
		Spent:  monthTotal,
	}
	if !budget.Valid {
		status.Tier = TierNoBudget
		return status
	}

	b := budget.Decimal
	status.Remaining = decimal.NewNullDecimal(b.Sub(monthTotal))

	if b.IsPositive() {
		pct := monthTotal.Mul(hundred).Div(b).Floor().IntPart()
		switch {
		case pct < 0:
			pct = 0
		case pct > 100:
			pct = 100
		}
		status.Percent = int(pct)
	}

	switch {
	case monthTotal.GreaterThan(b):
		status.Tier = TierExceeded
	case monthTotal.Equal(b):
		status.Tier = TierNormal
	case monthTotal.GreaterThan(b.Mul(warningRatio)):
		status.Tier = TierWarning
	default:
		status.Tier = TierNormal
	}
	return status
}
