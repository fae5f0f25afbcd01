package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/events"
	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

// Ledger handles the business logic for loans and repayments. The loan and
// its repayments are loaded fresh from storage inside every operation, and
// all writes of one operation share a single storage transaction.
type Ledger struct {
	storage store.Storage
	events  events.Publisher
	now     func() time.Time
}

// NewLedger creates a new Ledger with a given Storage implementation and
// event publisher.
func NewLedger(s store.Storage, p events.Publisher) *Ledger {
	return &Ledger{
		storage: s,
		events:  p,
		now:     time.Now,
	}
}

// CreateLoan files a new loan application in the pending state and notifies
// the applicant plus every admin.
func (l *Ledger) CreateLoan(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, purpose string, termMonths int) (*models.Loan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if termMonths <= 0 {
		termMonths = 6
	}

	member, err := l.storage.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}

	loan := &models.Loan{
		ID:           uuid.New(),
		MemberID:     memberID,
		Principal:    amount,
		InterestRate: decimal.Zero, // fixed at approval
		Purpose:      purpose,
		TermMonths:   termMonths,
		Status:       models.LoanStatusPending,
		AppliedAt:    l.now(),
	}

	err = l.storage.ExecTx(ctx, func(tx store.Storage) error {
		if err := tx.CreateLoan(ctx, loan); err != nil {
			return err
		}

		if err := tx.CreateNotification(ctx, &models.Notification{
			ID:          uuid.New(),
			RecipientID: memberID,
			LoanID:      &loan.ID,
			Title:       "Loan Application Submitted",
			Message:     fmt.Sprintf("Your loan request of %s is under review", amount.StringFixed(2)),
			Type:        models.NotificationLoanApplication,
			Timestamp:   l.now(),
		}); err != nil {
			return err
		}

		admins, err := tx.ListAdmins(ctx)
		if err != nil {
			return err
		}
		for _, admin := range admins {
			if err := tx.CreateNotification(ctx, &models.Notification{
				ID:          uuid.New(),
				RecipientID: admin.ID,
				LoanID:      &loan.ID,
				Title:       "New Loan Application",
				Message: fmt.Sprintf("Member: @%s\nAmount: %s\nPurpose: %s\nPhone: %s",
					member.Username, amount.StringFixed(2), purpose, member.Phone),
				Type:      models.NotificationAdminLoanAlert,
				Timestamp: l.now(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(ctx, events.LoanApplied, events.NewLoanEvent(loan.ID, memberID, amount, decimal.Zero, loan.AppliedAt))
	return loan, nil
}

// ApproveLoan moves a pending loan to approved, fixes its interest rate,
// disburses the principal into the member's savings account and notifies the
// member. Only pending loans can be approved.
func (l *Ledger) ApproveLoan(ctx context.Context, loanID, adminID uuid.UUID, rate decimal.Decimal) (*models.Loan, error) {
	if rate.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var loan *models.Loan
	err := l.storage.ExecTx(ctx, func(tx store.Storage) error {
		var err error
		loan, err = tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusPending {
			return ErrLoanProcessed
		}

		account, err := tx.GetAccountByMember(ctx, loan.MemberID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNoAccount
			}
			return err
		}

		now := l.now()
		loan.Status = models.LoanStatusApproved
		loan.InterestRate = rate
		loan.ApprovedBy = &adminID
		loan.ApprovedAt = &now
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		newBalance := account.Balance.Add(loan.Principal)
		if err := tx.UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, &models.Transaction{
			ID:        uuid.New(),
			AccountID: account.ID,
			LoanID:    &loan.ID,
			Type:      models.TransactionTypeLoanDisbursement,
			Amount:    loan.Principal,
			Timestamp: now,
		}); err != nil {
			return err
		}

		return tx.CreateNotification(ctx, &models.Notification{
			ID:          uuid.New(),
			RecipientID: loan.MemberID,
			SenderID:    &adminID,
			LoanID:      &loan.ID,
			Title:       "Loan Approved",
			Message: fmt.Sprintf("Your loan of %s has been approved!\nAmount credited: %s\nNew balance: %s",
				loan.Principal.StringFixed(2), loan.Principal.StringFixed(2), newBalance.StringFixed(2)),
			Type:      models.NotificationLoanApproved,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	l.publish(ctx, events.LoanApproved, events.NewLoanEvent(loan.ID, loan.MemberID, loan.Principal, decimal.Zero, *loan.ApprovedAt))
	return loan, nil
}

// RejectLoan moves a pending loan to the terminal rejected state and notifies
// the member with the given reason.
func (l *Ledger) RejectLoan(ctx context.Context, loanID, adminID uuid.UUID, reason string) (*models.Loan, error) {
	if reason == "" {
		reason = "Not specified"
	}

	var loan *models.Loan
	err := l.storage.ExecTx(ctx, func(tx store.Storage) error {
		var err error
		loan, err = tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusPending {
			return ErrLoanProcessed
		}

		loan.Status = models.LoanStatusRejected
		loan.RejectReason = reason
		loan.ApprovedBy = &adminID
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		return tx.CreateNotification(ctx, &models.Notification{
			ID:          uuid.New(),
			RecipientID: loan.MemberID,
			SenderID:    &adminID,
			LoanID:      &loan.ID,
			Title:       "Loan Rejected",
			Message: fmt.Sprintf("Your loan application of %s has been rejected.\nReason: %s",
				loan.Principal.StringFixed(2), reason),
			Type:      models.NotificationLoanRejected,
			Timestamp: l.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	l.publish(ctx, events.LoanRejected, events.NewLoanEvent(loan.ID, loan.MemberID, loan.Principal, decimal.Zero, l.now()))
	return loan, nil
}

// LoanDetail is a loan with its derived financial figures.
type LoanDetail struct {
	Loan             *models.Loan    `json:"loan"`
	TotalDue         decimal.Decimal `json:"total_due"`
	TotalRepaid      decimal.Decimal `json:"total_repaid"`
	BalanceRemaining decimal.Decimal `json:"balance_remaining"`
	ProgressPercent  string          `json:"repayment_progress"`
}

// GetLoanDetail retrieves a loan along with total due, total repaid,
// remaining balance and a progress percentage.
func (l *Ledger) GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*LoanDetail, error) {
	loan, err := l.storage.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	repayments, err := l.storage.ListRepayments(ctx, loanID)
	if err != nil {
		return nil, err
	}

	totalDue := ComputeTotalDue(loan.Principal, loan.InterestRate)
	repaid := TotalRepaid(repayments)
	balance := totalDue.Sub(repaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	progress := "0.0%"
	if totalDue.IsPositive() {
		pct := repaid.Div(totalDue).Mul(oneHundred)
		if pct.GreaterThan(oneHundred) {
			pct = oneHundred
		}
		progress = pct.StringFixed(1) + "%"
	}

	return &LoanDetail{
		Loan:             loan,
		TotalDue:         totalDue,
		TotalRepaid:      repaid,
		BalanceRemaining: balance,
		ProgressPercent:  progress,
	}, nil
}

// LoanSummary is one line of a member's repayment summary across approved
// loans.
type LoanSummary struct {
	LoanID         uuid.UUID       `json:"loan_id"`
	Principal      decimal.Decimal `json:"original_amount"`
	TotalRepaid    decimal.Decimal `json:"total_repaid"`
	Balance        decimal.Decimal `json:"balance"`
	NextPaymentDue decimal.Decimal `json:"next_payment_due"`
}

// Summarize builds the repayment summary for every approved loan of a member.
// The suggested next payment is a third of the principal, capped at whatever
// balance remains.
func (l *Ledger) Summarize(ctx context.Context, memberID uuid.UUID) ([]LoanSummary, error) {
	loans, err := l.storage.ListLoansByStatus(ctx, memberID, models.LoanStatusApproved)
	if err != nil {
		return nil, err
	}

	summary := make([]LoanSummary, 0, len(loans))
	for _, loan := range loans {
		repayments, err := l.storage.ListRepayments(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		totalDue := ComputeTotalDue(loan.Principal, loan.InterestRate)
		repaid := TotalRepaid(repayments)
		balance := totalDue.Sub(repaid)
		if balance.IsNegative() {
			balance = decimal.Zero
		}

		next := loan.Principal.Div(decimal.NewFromInt(3))
		if next.GreaterThan(balance) {
			next = balance
		}

		summary = append(summary, LoanSummary{
			LoanID:         loan.ID,
			Principal:      loan.Principal,
			TotalRepaid:    repaid,
			Balance:        balance,
			NextPaymentDue: next,
		})
	}
	return summary, nil
}

// publish sends a lifecycle event after the surrounding transaction has
// committed. Delivery is best-effort; failures are logged, never surfaced.
func (l *Ledger) publish(ctx context.Context, routingKey string, ev events.LoanEvent) {
	if l.events == nil {
		return
	}
	if err := l.events.Publish(ctx, routingKey, ev); err != nil {
		slog.Warn("failed to publish loan event", "routing_key", routingKey, "loan_id", ev.LoanID, "err", err)
	}
}
