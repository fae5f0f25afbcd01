package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeTotalDue returns principal plus simple interest for the full term:
// principal * (1 + rate/100). Rate is a percentage (12.0 means 12%). The
// result is exact; rounding to 2 decimal places happens only at presentation.
func ComputeTotalDue(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Add(principal.Mul(rate).Div(oneHundred))
}

// TotalRepaid sums the amounts of the given repayments.
func TotalRepaid(repayments []*models.Repayment) decimal.Decimal {
	total := decimal.Zero
	for _, r := range repayments {
		total = total.Add(r.Amount)
	}
	return total
}

// Snapshot is the state of a loan immediately after one repayment: how much
// had been paid cumulatively and how much remained at that point in time.
type Snapshot struct {
	Repayment        *models.Repayment `json:"repayment"`
	CumulativePaid   decimal.Decimal   `json:"cumulative_paid"`
	BalanceRemaining decimal.Decimal   `json:"balance_remaining"`
}

// Progress walks the repayments in chronological order and produces one
// snapshot per repayment via a running prefix sum. The remaining balance
// never goes below zero even when the loan was overpaid.
func Progress(repayments []*models.Repayment, totalDue decimal.Decimal) []Snapshot {
	snapshots := make([]Snapshot, 0, len(repayments))
	cumulative := decimal.Zero
	for _, r := range repayments {
		cumulative = cumulative.Add(r.Amount)
		remaining := totalDue.Sub(cumulative)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		snapshots = append(snapshots, Snapshot{
			Repayment:        r,
			CumulativePaid:   cumulative,
			BalanceRemaining: remaining,
		})
	}
	return snapshots
}
