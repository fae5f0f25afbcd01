package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
)

const loanColumns = `id, member_id, approved_by, principal, interest_rate, purpose, term_months, status, reject_reason, applied_at, approved_at, completed_at`

func scanLoan(row interface{ Scan(...any) error }) (*models.Loan, error) {
	var l models.Loan
	var idStr, memberStr string
	var approvedBy, rejectReason sql.NullString
	var approvedAt, completedAt sql.NullTime

	err := row.Scan(&idStr, &memberStr, &approvedBy, &l.Principal, &l.InterestRate, &l.Purpose,
		&l.TermMonths, &l.Status, &rejectReason, &l.AppliedAt, &approvedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	l.ID = uuid.MustParse(idStr)
	l.MemberID = uuid.MustParse(memberStr)
	if approvedBy.Valid {
		adminID := uuid.MustParse(approvedBy.String)
		l.ApprovedBy = &adminID
	}
	if rejectReason.Valid {
		l.RejectReason = rejectReason.String
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		l.ApprovedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		l.CompletedAt = &t
	}
	return &l, nil
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// CreateLoan inserts a new loan into the database.
func (s *SQLiteStore) CreateLoan(ctx context.Context, l *models.Loan) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.MemberID.String(), nullUUID(l.ApprovedBy), l.Principal, l.InterestRate,
		l.Purpose, l.TermMonths, l.Status, l.RejectReason, l.AppliedAt, nullTime(l.ApprovedAt), nullTime(l.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// GetLoan retrieves a loan by its ID.
func (s *SQLiteStore) GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id.String())
	l, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return l, nil
}

// UpdateLoan updates an existing loan in the database.
func (s *SQLiteStore) UpdateLoan(ctx context.Context, l *models.Loan) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE loans SET approved_by = ?, principal = ?, interest_rate = ?, purpose = ?, term_months = ?,
		status = ?, reject_reason = ?, approved_at = ?, completed_at = ? WHERE id = ?`,
		nullUUID(l.ApprovedBy), l.Principal, l.InterestRate, l.Purpose, l.TermMonths,
		l.Status, l.RejectReason, nullTime(l.ApprovedAt), nullTime(l.CompletedAt), l.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
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

// ListLoansForMember retrieves a page of a member's loans, newest application
// first, along with the total count.
func (s *SQLiteStore) ListLoansForMember(ctx context.Context, memberID uuid.UUID, page Page) ([]*models.Loan, int, error) {
	var total int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM loans WHERE member_id = ?`, memberID.String()).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count loans: %w", err)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE member_id = ? ORDER BY applied_at DESC LIMIT ? OFFSET ?`,
		memberID.String(), page.sqlLimit(), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	loans, err := collectLoans(rows)
	if err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

// ListLoansByStatus retrieves all of a member's loans in the given status.
func (s *SQLiteStore) ListLoansByStatus(ctx context.Context, memberID uuid.UUID, status models.LoanStatus) ([]*models.Loan, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE member_id = ? AND status = ? ORDER BY applied_at ASC`,
		memberID.String(), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list loans by status: %w", err)
	}
	defer rows.Close()

	return collectLoans(rows)
}

func collectLoans(rows *sql.Rows) ([]*models.Loan, error) {
	var loans []*models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// CreateRepayment inserts a new repayment into the database.
func (s *SQLiteStore) CreateRepayment(ctx context.Context, r *models.Repayment) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO repayments (id, loan_id, amount, payment_method, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID.String(), r.LoanID.String(), r.Amount, r.Method, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create repayment: %w", err)
	}
	return nil
}

// GetRepayment retrieves a repayment by its ID.
func (s *SQLiteStore) GetRepayment(ctx context.Context, id uuid.UUID) (*models.Repayment, error) {
	var r models.Repayment
	var idStr, loanStr string

	row := s.q.QueryRowContext(ctx,
		`SELECT id, loan_id, amount, payment_method, timestamp FROM repayments WHERE id = ?`, id.String())
	err := row.Scan(&idStr, &loanStr, &r.Amount, &r.Method, &r.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get repayment: %w", err)
	}
	r.ID = uuid.MustParse(idStr)
	r.LoanID = uuid.MustParse(loanStr)
	return &r, nil
}

// DeleteRepayment removes a repayment from the database.
func (s *SQLiteStore) DeleteRepayment(ctx context.Context, id uuid.UUID) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM repayments WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete repayment: %w", err)
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

// ListRepayments retrieves all repayments for a loan, oldest first. The order
// is what makes the running-progress prefix sums deterministic.
func (s *SQLiteStore) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*models.Repayment, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, loan_id, amount, payment_method, timestamp FROM repayments
		WHERE loan_id = ? ORDER BY timestamp ASC, id ASC`, loanID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list repayments for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var repayments []*models.Repayment
	for rows.Next() {
		var r models.Repayment
		var idStr, loanStr string
		if err := rows.Scan(&idStr, &loanStr, &r.Amount, &r.Method, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan repayment row: %w", err)
		}
		r.ID = uuid.MustParse(idStr)
		r.LoanID = uuid.MustParse(loanStr)
		repayments = append(repayments, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return repayments, nil
}
