package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const claimsKey contextKey = "claims"

// session is what authenticated handlers read from the request context.
type session struct {
	MemberID uuid.UUID
	Email    string
	IsAdmin  bool
	JTI      string
}

// requireAuth validates the Bearer token, rejects revoked tokens and stores
// the session in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "authorization token required")
			return
		}

		claims, err := s.tokens.Validate(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		revoked, err := s.auth.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to check token")
			return
		}
		if revoked {
			respondError(w, http.StatusUnauthorized, "token has been revoked")
			return
		}

		memberID, err := uuid.Parse(claims.MemberID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, session{
			MemberID: memberID,
			Email:    claims.Email,
			IsAdmin:  claims.IsAdmin,
			JTI:      claims.ID,
		})
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin rejects non-admin sessions. Must run inside requireAuth.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFrom(r).IsAdmin {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

func sessionFrom(r *http.Request) session {
	sess, _ := r.Context().Value(claimsKey).(session)
	return sess
}

// logRequests logs method, path, and duration for every request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
