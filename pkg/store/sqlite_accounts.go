package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
)

// CreateAccount inserts a new savings account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a *models.Account) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (id, member_id, balance, pin_hash, phone, occupation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.MemberID.String(), a.Balance, a.PINHash, a.Phone, a.Occupation, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByMember retrieves the savings account owned by a member.
func (s *SQLiteStore) GetAccountByMember(ctx context.Context, memberID uuid.UUID) (*models.Account, error) {
	var a models.Account
	var idStr, memberStr string

	row := s.q.QueryRowContext(ctx,
		`SELECT id, member_id, balance, pin_hash, phone, occupation, created_at FROM accounts WHERE member_id = ?`,
		memberID.String())
	err := row.Scan(&idStr, &memberStr, &a.Balance, &a.PINHash, &a.Phone, &a.Occupation, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.ID = uuid.MustParse(idStr)
	a.MemberID = uuid.MustParse(memberStr)
	return &a, nil
}

// UpdateAccountBalance sets the balance of an account.
func (s *SQLiteStore) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`, balance, accountID.String())
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTransaction inserts a new transaction into the database.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	var loanID any
	if t.LoanID != nil {
		loanID = t.LoanID.String()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, loan_id, type, amount, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.AccountID.String(), loanID, t.Type, t.Amount, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListTransactions retrieves a page of transactions for an account, newest
// first, along with the total row count for pagination metadata.
func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID uuid.UUID, page Page) ([]*models.Transaction, int, error) {
	var total int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE account_id = ?`, accountID.String()).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT id, account_id, loan_id, type, amount, timestamp FROM transactions
		WHERE account_id = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
		accountID.String(), page.sqlLimit(), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var idStr, accountStr string
		var loanStr sql.NullString
		if err := rows.Scan(&idStr, &accountStr, &loanStr, &t.Type, &t.Amount, &t.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.ID = uuid.MustParse(idStr)
		t.AccountID = uuid.MustParse(accountStr)
		if loanStr.Valid {
			loanID := uuid.MustParse(loanStr.String)
			t.LoanID = &loanID
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration: %w", err)
	}
	return transactions, total, nil
}
