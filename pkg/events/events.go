// Package events publishes loan lifecycle events for external delivery
// (email, SMS, push). Stored notifications are written by the ledger inside
// its storage transaction; broker publishing is best-effort after commit.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys for loan lifecycle events.
const (
	LoanApplied  = "loan.applied"
	LoanApproved = "loan.approved"
	LoanRejected = "loan.rejected"
	LoanPaid     = "loan.paid"
)

// LoanEvent is the payload published for every loan lifecycle transition.
// Amounts are formatted with two decimal places.
type LoanEvent struct {
	LoanID    uuid.UUID `json:"loan_id"`
	MemberID  uuid.UUID `json:"member_id"`
	Amount    string    `json:"amount"`
	Overpaid  string    `json:"overpaid,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLoanEvent builds a LoanEvent with presentation-rounded amounts.
func NewLoanEvent(loanID, memberID uuid.UUID, amount, overpaid decimal.Decimal, at time.Time) LoanEvent {
	ev := LoanEvent{
		LoanID:    loanID,
		MemberID:  memberID,
		Amount:    amount.StringFixed(2),
		Timestamp: at,
	}
	if overpaid.IsPositive() {
		ev.Overpaid = overpaid.StringFixed(2)
	}
	return ev
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close()
}

// LogPublisher logs events instead of delivering them. It is the fallback
// when no broker is configured, and keeps the ledger's publish path uniform.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	slog.Info("event published", "routing_key", routingKey, "body", body)
	return nil
}

func (LogPublisher) Close() {}
