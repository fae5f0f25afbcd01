package main

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/notify"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

func notificationStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, notify.ErrNotRecipient):
		return http.StatusForbidden
	case errors.Is(err, notify.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.NotificationFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Type = models.NotificationType(t)
	}

	list, total, err := s.notifications.List(r.Context(), sessionFrom(r).MemberID, filter, pageFromQuery(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"notifications": list,
		"total":         total,
	})
}

func (s *Server) markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}

	if err := s.notifications.MarkRead(r.Context(), sessionFrom(r).MemberID, id); err != nil {
		respondError(w, notificationStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}

func (s *Server) markAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	count, err := s.notifications.MarkAllRead(r.Context(), sessionFrom(r).MemberID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	respond(w, http.StatusOK, map[string]int{"marked_read": count})
}

func (s *Server) unreadCountHandler(w http.ResponseWriter, r *http.Request) {
	count, err := s.notifications.UnreadCount(r.Context(), sessionFrom(r).MemberID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	respond(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (s *Server) deleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}

	if err := s.notifications.Delete(r.Context(), sessionFrom(r).MemberID, id); err != nil {
		respondError(w, notificationStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}

// sendNotificationHandler sends a direct message to one member. Admin only.
func (s *Server) sendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
		Title       string    `json:"title" validate:"required,max=100"`
		Message     string    `json:"message" validate:"required,max=1000"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	n, err := s.notifications.Send(r.Context(), sessionFrom(r).MemberID, req.RecipientID, req.Title, req.Message)
	if err != nil {
		respondError(w, notificationStatus(err), err.Error())
		return
	}
	respond(w, http.StatusCreated, n)
}

// broadcastHandler sends the message to every member. Admin only.
func (s *Server) broadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title" validate:"required,max=100"`
		Message string `json:"message" validate:"required,max=1000"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	count, err := s.notifications.Broadcast(r.Context(), sessionFrom(r).MemberID, req.Title, req.Message)
	if err != nil {
		respondError(w, notificationStatus(err), err.Error())
		return
	}
	respond(w, http.StatusCreated, map[string]int{"recipients": count})
}
