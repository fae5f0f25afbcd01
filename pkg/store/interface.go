package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// NotificationFilter narrows ListNotifications. Zero values mean "no filter".
type NotificationFilter struct {
	RecipientID *uuid.UUID
	LoanID      *uuid.UUID
	Type        models.NotificationType
	UnreadOnly  bool
	Since       *time.Time
	Until       *time.Time
}

// Page is a limit/offset pair for list queries. A non-positive Limit means
// no limit.
type Page struct {
	Limit  int
	Offset int
}

// sqlLimit maps a non-positive limit to SQLite's unlimited marker.
func (p Page) sqlLimit() int {
	if p.Limit <= 0 {
		return -1
	}
	return p.Limit
}

// Storage defines the persistence operations for the SACCO backend.
//
// ExecTx runs fn against a transactional view of the store; every write made
// through it commits or rolls back as one unit. On SQLite the transaction is
// opened immediately, which serializes all writers and therefore serializes
// repayment application per loan and balance updates per account.
type Storage interface {
	ExecTx(ctx context.Context, fn func(Storage) error) error

	// Members
	CreateMember(ctx context.Context, m *models.Member) error
	GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*models.Member, error)
	GetMemberByUsername(ctx context.Context, username string) (*models.Member, error)
	ListAdmins(ctx context.Context) ([]*models.Member, error)
	ListMembers(ctx context.Context) ([]*models.Member, error)

	// Token blocklist
	BlockToken(ctx context.Context, jti string, createdAt time.Time) error
	IsTokenBlocked(ctx context.Context, jti string) (bool, error)

	// Accounts
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByMember(ctx context.Context, memberID uuid.UUID) (*models.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error

	// Transactions
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context, accountID uuid.UUID, page Page) ([]*models.Transaction, int, error)

	// Loans
	CreateLoan(ctx context.Context, l *models.Loan) error
	GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	UpdateLoan(ctx context.Context, l *models.Loan) error
	ListLoansForMember(ctx context.Context, memberID uuid.UUID, page Page) ([]*models.Loan, int, error)
	ListLoansByStatus(ctx context.Context, memberID uuid.UUID, status models.LoanStatus) ([]*models.Loan, error)

	// Repayments
	CreateRepayment(ctx context.Context, r *models.Repayment) error
	GetRepayment(ctx context.Context, id uuid.UUID) (*models.Repayment, error)
	DeleteRepayment(ctx context.Context, id uuid.UUID) error
	ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*models.Repayment, error)

	// Notifications
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, f NotificationFilter, page Page) ([]*models.Notification, int, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID) (int, error)
	CountUnreadNotifications(ctx context.Context, recipientID uuid.UUID) (int, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error

	Close() error
}
