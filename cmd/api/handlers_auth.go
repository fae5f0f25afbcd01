package main

import (
	"errors"
	"net/http"

	"github.com/Brianjoseph8132/sacco-backend/pkg/auth"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Phone    string `json:"phone" validate:"required,kenyan_phone"`
		IDNumber string `json:"id_number" validate:"required,id_number"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	member, err := s.auth.Register(r.Context(), auth.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		IDNumber: req.IDNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMemberExists):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to register member")
		}
		return
	}

	respond(w, http.StatusCreated, member)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	member, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.tokens.Generate(member)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"access_token": token,
		"member":       member,
	})
}

func (s *Server) currentMemberHandler(w http.ResponseWriter, r *http.Request) {
	member, err := s.storage.GetMember(r.Context(), sessionFrom(r).MemberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load member")
		return
	}
	respond(w, http.StatusOK, member)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), sessionFrom(r).JTI); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "logged out"})
}
