package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
)

const notificationColumns = `id, recipient_id, sender_id, loan_id, title, message, type, is_read, timestamp`

func scanNotification(row interface{ Scan(...any) error }) (*models.Notification, error) {
	var n models.Notification
	var idStr, recipientStr string
	var senderStr, loanStr sql.NullString

	err := row.Scan(&idStr, &recipientStr, &senderStr, &loanStr, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.Timestamp)
	if err != nil {
		return nil, err
	}
	n.ID = uuid.MustParse(idStr)
	n.RecipientID = uuid.MustParse(recipientStr)
	if senderStr.Valid {
		senderID := uuid.MustParse(senderStr.String)
		n.SenderID = &senderID
	}
	if loanStr.Valid {
		loanID := uuid.MustParse(loanStr.String)
		n.LoanID = &loanID
	}
	return &n, nil
}

// CreateNotification inserts a new notification into the database.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID.String(), n.RecipientID.String(), nullUUID(n.SenderID), nullUUID(n.LoanID),
		n.Title, n.Message, n.Type, n.IsRead, n.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotification retrieves a notification by its ID.
func (s *SQLiteStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id.String())
	n, err := scanNotification(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListNotifications retrieves a filtered page of notifications, newest first,
// with the total matching count.
func (s *SQLiteStore) ListNotifications(ctx context.Context, f NotificationFilter, page Page) ([]*models.Notification, int, error) {
	where := `WHERE 1=1`
	var args []any
	if f.RecipientID != nil {
		where += ` AND recipient_id = ?`
		args = append(args, f.RecipientID.String())
	}
	if f.LoanID != nil {
		where += ` AND loan_id = ?`
		args = append(args, f.LoanID.String())
	}
	if f.Type != "" {
		where += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.UnreadOnly {
		where += ` AND is_read = 0`
	}
	if f.Since != nil {
		where += ` AND timestamp >= ?`
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		where += ` AND timestamp <= ?`
		args = append(args, *f.Until)
	}

	var total int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM notifications `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	args = append(args, page.sqlLimit(), page.Offset)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications `+where+` ORDER BY timestamp DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration: %w", err)
	}
	return notifications, total, nil
}

// MarkNotificationRead marks one notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
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

// MarkAllNotificationsRead marks every unread notification for a recipient as
// read and returns how many were updated.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	result, err := s.q.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0`, recipientID.String())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// CountUnreadNotifications returns the recipient's unread notification count.
func (s *SQLiteStore) CountUnreadNotifications(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM notifications WHERE recipient_id = ? AND is_read = 0`, recipientID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// DeleteNotification removes a notification.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
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
