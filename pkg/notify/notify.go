// Package notify implements stored member notifications: direct admin
// messages, broadcasts, and read-state management. System notifications for
// loan lifecycle changes are written by the ledger inside its transactions;
// this package covers the member- and admin-facing surface.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

var (
	ErrNotRecipient = errors.New("notification does not belong to member")
	ErrEmptyMessage = errors.New("message must not be empty")
)

// Service manages member notifications.
type Service struct {
	storage store.Storage
	now     func() time.Time
}

func NewService(s store.Storage) *Service {
	return &Service{storage: s, now: time.Now}
}

// Send delivers a direct message from an admin to one member.
func (s *Service) Send(ctx context.Context, senderID, recipientID uuid.UUID, title, message string) (*models.Notification, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.storage.GetMember(ctx, recipientID); err != nil {
		return nil, err
	}

	n := &models.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		SenderID:    &senderID,
		Title:       title,
		Message:     message,
		Type:        models.NotificationAdminMessage,
		Timestamp:   s.now(),
	}
	if err := s.storage.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Broadcast sends the message to every member except the sender. All rows
// commit together. Returns the number of recipients.
func (s *Service) Broadcast(ctx context.Context, senderID uuid.UUID, title, message string) (int, error) {
	if message == "" {
		return 0, ErrEmptyMessage
	}
	members, err := s.storage.ListMembers(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	count := 0
	err = s.storage.ExecTx(ctx, func(tx store.Storage) error {
		for _, member := range members {
			if member.ID == senderID {
				continue
			}
			n := &models.Notification{
				ID:          uuid.New(),
				RecipientID: member.ID,
				SenderID:    &senderID,
				Title:       title,
				Message:     message,
				Type:        models.NotificationBroadcast,
				Timestamp:   now,
			}
			if err := tx.CreateNotification(ctx, n); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// List returns a page of the member's notifications, newest first, with the
// total count. The filter's recipient is forced to the given member.
func (s *Service) List(ctx context.Context, memberID uuid.UUID, f store.NotificationFilter, page store.Page) ([]*models.Notification, int, error) {
	f.RecipientID = &memberID
	return s.storage.ListNotifications(ctx, f, page)
}

// MarkRead marks one of the member's notifications as read. Members may only
// touch their own notifications.
func (s *Service) MarkRead(ctx context.Context, memberID, notificationID uuid.UUID) error {
	n, err := s.storage.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != memberID {
		return ErrNotRecipient
	}
	return s.storage.MarkNotificationRead(ctx, notificationID)
}

// MarkAllRead marks every unread notification for the member as read and
// returns how many were updated.
func (s *Service) MarkAllRead(ctx context.Context, memberID uuid.UUID) (int, error) {
	return s.storage.MarkAllNotificationsRead(ctx, memberID)
}

// UnreadCount returns the member's number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context, memberID uuid.UUID) (int, error) {
	return s.storage.CountUnreadNotifications(ctx, memberID)
}

// Delete removes one of the member's notifications.
func (s *Service) Delete(ctx context.Context, memberID, notificationID uuid.UUID) error {
	n, err := s.storage.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != memberID {
		return ErrNotRecipient
	}
	return s.storage.DeleteNotification(ctx, notificationID)
}
