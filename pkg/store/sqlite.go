package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so every store method can
// run inside or outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
	q  queryer
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
// Transactions are opened immediately (_txlock=immediate) so concurrent
// writers queue instead of failing with SQLITE_BUSY mid-transaction; that is
// also what serializes repayment application per loan.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dataSourceName+sep+"_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, q: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the database tables if they don't already exist.
// We use TEXT for decimal fields in SQLite to ensure no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		phone TEXT NOT NULL,
		id_number TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS token_blocklist (
		jti TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL,
		pin_hash TEXT NOT NULL,
		phone TEXT NOT NULL,
		occupation TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(member_id) REFERENCES members(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		loan_id TEXT,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY(account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		approved_by TEXT,
		principal TEXT NOT NULL,
		interest_rate TEXT NOT NULL DEFAULT '0',
		purpose TEXT NOT NULL,
		term_months INTEGER NOT NULL DEFAULT 6,
		status TEXT NOT NULL,
		reject_reason TEXT,
		applied_at DATETIME NOT NULL,
		approved_at DATETIME,
		completed_at DATETIME,
		FOREIGN KEY(member_id) REFERENCES members(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS repayments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY(loan_id) REFERENCES loans(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		sender_id TEXT,
		loan_id TEXT,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY(recipient_id) REFERENCES members(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_repayments_loan ON repayments(loan_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_read);
	CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ExecTx runs fn against a transactional copy of the store. Calling ExecTx on
// a store that is already transactional reuses the open transaction.
func (s *SQLiteStore) ExecTx(ctx context.Context, fn func(Storage) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &SQLiteStore{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateMember inserts a new member into the database.
func (s *SQLiteStore) CreateMember(ctx context.Context, m *models.Member) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO members (id, username, email, password_hash, phone, id_number, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.Username, m.Email, m.PasswordHash, m.Phone, m.IDNumber, m.IsAdmin, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

const memberColumns = `id, username, email, password_hash, phone, id_number, is_admin, created_at`

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	var m models.Member
	var idStr string
	if err := row.Scan(&idStr, &m.Username, &m.Email, &m.PasswordHash, &m.Phone, &m.IDNumber, &m.IsAdmin, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ID = uuid.MustParse(idStr)
	return &m, nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id.String())
	m, err := scanMember(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetMemberByEmail retrieves a member by email.
func (s *SQLiteStore) GetMemberByEmail(ctx context.Context, email string) (*models.Member, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`, email)
	m, err := scanMember(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}
	return m, nil
}

// GetMemberByUsername retrieves a member by username.
func (s *SQLiteStore) GetMemberByUsername(ctx context.Context, username string) (*models.Member, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE username = ?`, username)
	m, err := scanMember(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member by username: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) listMembersWhere(ctx context.Context, where string, args ...any) ([]*models.Member, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+memberColumns+` FROM members `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return members, nil
}

// ListAdmins retrieves all admin members.
func (s *SQLiteStore) ListAdmins(ctx context.Context) ([]*models.Member, error) {
	return s.listMembersWhere(ctx, `WHERE is_admin = 1`)
}

// ListMembers retrieves all members.
func (s *SQLiteStore) ListMembers(ctx context.Context) ([]*models.Member, error) {
	return s.listMembersWhere(ctx, ``)
}

// BlockToken records a revoked JWT id.
func (s *SQLiteStore) BlockToken(ctx context.Context, jti string, createdAt time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO token_blocklist (jti, created_at) VALUES (?, ?)`, jti, createdAt)
	if err != nil {
		return fmt.Errorf("failed to block token: %w", err)
	}
	return nil
}

// IsTokenBlocked reports whether the given jti has been revoked.
func (s *SQLiteStore) IsTokenBlocked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM token_blocklist WHERE jti = ?`, jti).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check token blocklist: %w", err)
	}
	return n > 0, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
