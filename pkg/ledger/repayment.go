package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/events"
	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

// RepaymentResult is what ApplyRepayment returns to the caller.
type RepaymentResult struct {
	Repayment        *models.Repayment `json:"repayment"`
	Status           models.LoanStatus `json:"loan_status"`
	BalanceRemaining decimal.Decimal   `json:"balance_remaining"`
	Overpaid         decimal.Decimal   `json:"overpaid_amount"`
}

// ApplyRepayment records a payment against an approved loan.
//
// The repayment is always recorded in full, even when it overshoots the
// amount due. When the cumulative repaid amount reaches the total due the
// loan becomes paid, any excess is credited to the member's savings account,
// and a "loan fully repaid" notification is written. Every write happens in
// one storage transaction, so a commit failure leaves no partial state, and
// the completion check always runs against the latest persisted repayment
// set.
func (l *Ledger) ApplyRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, method string) (*RepaymentResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if method == "" {
		method = "M-Pesa"
	}

	var result *RepaymentResult
	var loan *models.Loan
	err := l.storage.ExecTx(ctx, func(tx store.Storage) error {
		var err error
		loan, err = tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusApproved {
			return ErrLoanNotApproved
		}

		existing, err := tx.ListRepayments(ctx, loanID)
		if err != nil {
			return err
		}

		totalDue := ComputeTotalDue(loan.Principal, loan.InterestRate)
		newTotalRepaid := TotalRepaid(existing).Add(amount)

		repayment := &models.Repayment{
			ID:        uuid.New(),
			LoanID:    loanID,
			Amount:    amount,
			Method:    method,
			Timestamp: l.now(),
		}
		if err := tx.CreateRepayment(ctx, repayment); err != nil {
			return err
		}

		overpaid := decimal.Zero
		balance := totalDue.Sub(newTotalRepaid)

		if newTotalRepaid.GreaterThanOrEqual(totalDue) {
			now := l.now()
			loan.Status = models.LoanStatusPaid
			loan.CompletedAt = &now
			if err := tx.UpdateLoan(ctx, loan); err != nil {
				return err
			}

			overpaid = newTotalRepaid.Sub(totalDue)
			balance = decimal.Zero

			if overpaid.IsPositive() {
				if err := l.creditOverpayment(ctx, tx, loan, overpaid); err != nil {
					return err
				}
			}

			if err := tx.CreateNotification(ctx, &models.Notification{
				ID:          uuid.New(),
				RecipientID: loan.MemberID,
				LoanID:      &loan.ID,
				Title:       "Loan Fully Repaid",
				Message: fmt.Sprintf("Loan %s has been fully settled. Total paid: %s",
					loan.ID, newTotalRepaid.StringFixed(2)),
				Type:      models.NotificationLoanPaid,
				Timestamp: now,
			}); err != nil {
				return err
			}
		}

		result = &RepaymentResult{
			Repayment:        repayment,
			Status:           loan.Status,
			BalanceRemaining: balance,
			Overpaid:         overpaid,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == models.LoanStatusPaid {
		l.publish(ctx, events.LoanPaid,
			events.NewLoanEvent(loan.ID, loan.MemberID, loan.Principal, result.Overpaid, *loan.CompletedAt))
	}
	return result, nil
}

// creditOverpayment moves the excess of a settling repayment into the
// member's savings account and records the credit as a transaction.
func (l *Ledger) creditOverpayment(ctx context.Context, tx store.Storage, loan *models.Loan, excess decimal.Decimal) error {
	account, err := tx.GetAccountByMember(ctx, loan.MemberID)
	if err != nil {
		return fmt.Errorf("failed to credit overpayment: %w", err)
	}
	if err := tx.UpdateAccountBalance(ctx, account.ID, account.Balance.Add(excess)); err != nil {
		return err
	}
	return tx.CreateTransaction(ctx, &models.Transaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		LoanID:    &loan.ID,
		Type:      models.TransactionTypeOverpaymentCredit,
		Amount:    excess,
		Timestamp: l.now(),
	})
}

// DeleteRepayment removes a repayment (admin corrective action) and
// re-derives the loan status from the remaining set: a paid loan whose
// remaining repayments no longer cover the total due reverts to approved.
// The status never reverts to pending or rejected.
//
// A previously applied overpayment credit is NOT reversed here; the account
// keeps the excess and the loan simply owes again.
func (l *Ledger) DeleteRepayment(ctx context.Context, repaymentID uuid.UUID) (models.LoanStatus, error) {
	var status models.LoanStatus
	err := l.storage.ExecTx(ctx, func(tx store.Storage) error {
		repayment, err := tx.GetRepayment(ctx, repaymentID)
		if err != nil {
			return err
		}
		loan, err := tx.GetLoan(ctx, repayment.LoanID)
		if err != nil {
			return err
		}

		if err := tx.DeleteRepayment(ctx, repaymentID); err != nil {
			return err
		}

		if loan.Status == models.LoanStatusPaid {
			remaining, err := tx.ListRepayments(ctx, loan.ID)
			if err != nil {
				return err
			}
			totalDue := ComputeTotalDue(loan.Principal, loan.InterestRate)
			if TotalRepaid(remaining).LessThan(totalDue) {
				loan.Status = models.LoanStatusApproved
				loan.CompletedAt = nil
				if err := tx.UpdateLoan(ctx, loan); err != nil {
					return err
				}
			}
		}

		status = loan.Status
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// History returns the chronological repayment progress for a loan: one
// snapshot of cumulative paid and remaining balance per repayment.
func (l *Ledger) History(ctx context.Context, loanID uuid.UUID) ([]Snapshot, error) {
	loan, err := l.storage.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	repayments, err := l.storage.ListRepayments(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return Progress(repayments, ComputeTotalDue(loan.Principal, loan.InterestRate)), nil
}
