package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan. Transitions are forward-only:
// pending -> approved or rejected, approved -> paid. Rejected and paid are
// terminal, except that an admin deleting a repayment may revert paid back to
// approved.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusApproved LoanStatus = "approved"
	LoanStatusRejected LoanStatus = "rejected"
	LoanStatusPaid     LoanStatus = "paid"
)

// Member is a registered SACCO member. Admins approve loans and manage
// repayments and notifications.
type Member struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	IDNumber     string    `json:"id_number"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account is a member's savings account. Balance stays at or above the
// configured minimum; the overpayment-credit path and deposits/withdrawals are
// the only writers.
type Account struct {
	ID         uuid.UUID       `json:"id"`
	MemberID   uuid.UUID       `json:"member_id"`
	Balance    decimal.Decimal `json:"balance"`
	PINHash    string          `json:"-"`
	Phone      string          `json:"phone"`
	Occupation string          `json:"occupation"`
	CreatedAt  time.Time       `json:"created_at"`
}

type TransactionType string

const (
	TransactionTypeDeposit           TransactionType = "deposit"
	TransactionTypeWithdraw          TransactionType = "withdraw"
	TransactionTypeLoanDisbursement  TransactionType = "loan_disbursement"
	TransactionTypeOverpaymentCredit TransactionType = "overpayment_credit"
)

// Transaction is an append-only record of money moving in or out of an
// account. LoanID is set for disbursements and overpayment credits.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	LoanID    *uuid.UUID      `json:"loan_id,omitempty"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Loan is credit extended to a member. Principal is fixed at creation and the
// interest rate at approval; both are exact decimals.
type Loan struct {
	ID           uuid.UUID       `json:"id"`
	MemberID     uuid.UUID       `json:"member_id"`
	ApprovedBy   *uuid.UUID      `json:"approved_by,omitempty"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"` // percentage, e.g. 12.0 means 12%
	Purpose      string          `json:"purpose"`
	TermMonths   int             `json:"term_months"`
	Status       LoanStatus      `json:"status"`
	RejectReason string          `json:"reject_reason,omitempty"`
	AppliedAt    time.Time       `json:"applied_at"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Repayment is an immutable record of one payment against a loan. Repayments
// are never updated; the admin-only delete path re-derives the loan status
// from whatever remains.
type Repayment struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"payment_method"`
	Timestamp time.Time       `json:"timestamp"`
}

type NotificationType string

const (
	NotificationLoanApplication NotificationType = "loan_application"
	NotificationAdminLoanAlert  NotificationType = "admin_loan_alert"
	NotificationLoanApproved    NotificationType = "loan_approved"
	NotificationLoanRejected    NotificationType = "loan_rejected"
	NotificationLoanPaid        NotificationType = "loan_paid"
	NotificationAdminMessage    NotificationType = "admin_message"
	NotificationBroadcast       NotificationType = "broadcast"
)

// Notification is a stored message for a member. SenderID is nil for
// system-generated notifications.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	SenderID    *uuid.UUID       `json:"sender_id,omitempty"`
	LoanID      *uuid.UUID       `json:"loan_id,omitempty"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	IsRead      bool             `json:"is_read"`
	Timestamp   time.Time        `json:"timestamp"`
}

// BlockedToken records a revoked JWT by its jti claim, checked on every
// authenticated request.
type BlockedToken struct {
	JTI       string    `json:"jti"`
	CreatedAt time.Time `json:"created_at"`
}
