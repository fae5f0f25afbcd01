package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
)

// MemoryStore is an in-memory Storage implementation used by tests. Writes
// made inside ExecTx are applied directly; there is no rollback, so a test
// asserting rollback behavior needs the SQLite store.
type MemoryStore struct {
	mu            sync.Mutex
	members       map[uuid.UUID]*models.Member
	blocked       map[string]time.Time
	accounts      map[uuid.UUID]*models.Account
	transactions  []*models.Transaction
	loans         map[uuid.UUID]*models.Loan
	repayments    []*models.Repayment
	notifications map[uuid.UUID]*models.Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:       make(map[uuid.UUID]*models.Member),
		blocked:       make(map[string]time.Time),
		accounts:      make(map[uuid.UUID]*models.Account),
		loans:         make(map[uuid.UUID]*models.Loan),
		notifications: make(map[uuid.UUID]*models.Notification),
	}
}

func (m *MemoryStore) ExecTx(ctx context.Context, fn func(Storage) error) error {
	return fn(m)
}

func (m *MemoryStore) CreateMember(ctx context.Context, member *models.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *member
	m.members[member.ID] = &cp
	return nil
}

func (m *MemoryStore) GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *member
	return &cp, nil
}

func (m *MemoryStore) GetMemberByEmail(ctx context.Context, email string) (*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.Email == email {
			cp := *member
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetMemberByUsername(ctx context.Context, username string) (*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.Username == username {
			cp := *member
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListAdmins(ctx context.Context) ([]*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var admins []*models.Member
	for _, member := range m.members {
		if member.IsAdmin {
			cp := *member
			admins = append(admins, &cp)
		}
	}
	return admins, nil
}

func (m *MemoryStore) ListMembers(ctx context.Context) ([]*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var members []*models.Member
	for _, member := range m.members {
		cp := *member
		members = append(members, &cp)
	}
	return members, nil
}

func (m *MemoryStore) BlockToken(ctx context.Context, jti string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[jti] = createdAt
	return nil
}

func (m *MemoryStore) IsTokenBlocked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blocked[jti]
	return ok, nil
}

func (m *MemoryStore) CreateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetAccountByMember(ctx context.Context, memberID uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.MemberID == memberID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.Balance = balance
	return nil
}

func (m *MemoryStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.transactions = append(m.transactions, &cp)
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, accountID uuid.UUID, page Page) ([]*models.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Transaction
	for _, t := range m.transactions {
		if t.AccountID == accountID {
			cp := *t
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	total := len(all)
	return paginate(all, page), total, nil
}

func (m *MemoryStore) CreateLoan(ctx context.Context, l *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.loans[l.ID] = &cp
	return nil
}

func (m *MemoryStore) GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *MemoryStore) UpdateLoan(ctx context.Context, l *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[l.ID]; !ok {
		return ErrNotFound
	}
	cp := *l
	m.loans[l.ID] = &cp
	return nil
}

func (m *MemoryStore) ListLoansForMember(ctx context.Context, memberID uuid.UUID, page Page) ([]*models.Loan, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Loan
	for _, l := range m.loans {
		if l.MemberID == memberID {
			cp := *l
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AppliedAt.After(all[j].AppliedAt) })
	total := len(all)
	return paginate(all, page), total, nil
}

func (m *MemoryStore) ListLoansByStatus(ctx context.Context, memberID uuid.UUID, status models.LoanStatus) ([]*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Loan
	for _, l := range m.loans {
		if l.MemberID == memberID && l.Status == status {
			cp := *l
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AppliedAt.Before(all[j].AppliedAt) })
	return all, nil
}

func (m *MemoryStore) CreateRepayment(ctx context.Context, r *models.Repayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.repayments = append(m.repayments, &cp)
	return nil
}

func (m *MemoryStore) GetRepayment(ctx context.Context, id uuid.UUID) (*models.Repayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.repayments {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DeleteRepayment(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.repayments {
		if r.ID == id {
			m.repayments = append(m.repayments[:i], m.repayments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*models.Repayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Repayment
	for _, r := range m.repayments {
		if r.LoanID == loanID {
			cp := *r
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all, nil
}

func (m *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *MemoryStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MemoryStore) ListNotifications(ctx context.Context, f NotificationFilter, page Page) ([]*models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Notification
	for _, n := range m.notifications {
		if f.RecipientID != nil && n.RecipientID != *f.RecipientID {
			continue
		}
		if f.LoanID != nil && (n.LoanID == nil || *n.LoanID != *f.LoanID) {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.UnreadOnly && n.IsRead {
			continue
		}
		if f.Since != nil && n.Timestamp.Before(*f.Since) {
			continue
		}
		if f.Until != nil && n.Timestamp.After(*f.Until) {
			continue
		}
		cp := *n
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	total := len(all)
	return paginate(all, page), total, nil
}

func (m *MemoryStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (m *MemoryStore) MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountUnreadNotifications(ctx context.Context, recipientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifications[id]; !ok {
		return ErrNotFound
	}
	delete(m.notifications, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func paginate[T any](all []T, page Page) []T {
	if page.Limit <= 0 {
		return all
	}
	if page.Offset >= len(all) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end]
}
