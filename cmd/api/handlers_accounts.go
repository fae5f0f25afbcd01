package main

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/accounts"
	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
)

// accountStatus maps account service errors to HTTP status codes.
func accountStatus(err error) int {
	switch {
	case errors.Is(err, accounts.ErrNoAccount):
		return http.StatusNotFound
	case errors.Is(err, accounts.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, accounts.ErrWrongPIN):
		return http.StatusUnauthorized
	case errors.Is(err, accounts.ErrInvalidPIN),
		errors.Is(err, accounts.ErrInvalidAmount),
		errors.Is(err, accounts.ErrBelowMinimumDeposit),
		errors.Is(err, accounts.ErrInsufficientFunds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) openAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitialDeposit decimal.Decimal `json:"initial_deposit" validate:"required"`
		PIN            string          `json:"pin" validate:"required,len=4,numeric"`
		Phone          string          `json:"phone" validate:"omitempty,kenyan_phone"`
		Occupation     string          `json:"occupation"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	account, err := s.accounts.Open(r.Context(), sessionFrom(r).MemberID, req.InitialDeposit, req.PIN, req.Phone, req.Occupation)
	if err != nil {
		respondError(w, accountStatus(err), err.Error())
		return
	}
	respond(w, http.StatusCreated, account)
}

func (s *Server) accountBalanceHandler(w http.ResponseWriter, r *http.Request) {
	balance, err := s.accounts.Balance(r.Context(), sessionFrom(r).MemberID)
	if err != nil {
		respondError(w, accountStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]string{"balance": balance.StringFixed(2)})
}

func (s *Server) accountExistsHandler(w http.ResponseWriter, r *http.Request) {
	exists, err := s.accounts.Exists(r.Context(), sessionFrom(r).MemberID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check account")
		return
	}
	respond(w, http.StatusOK, map[string]bool{"has_account": exists})
}

func (s *Server) transactionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   string          `json:"type" validate:"required,oneof=deposit withdraw"`
		Amount decimal.Decimal `json:"amount" validate:"required"`
		PIN    string          `json:"pin" validate:"required,len=4,numeric"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	memberID := sessionFrom(r).MemberID
	var (
		account *models.Account
		err     error
	)
	if req.Type == "deposit" {
		account, err = s.accounts.Deposit(r.Context(), memberID, req.Amount, req.PIN)
	} else {
		account, err = s.accounts.Withdraw(r.Context(), memberID, req.Amount, req.PIN)
	}
	if err != nil {
		respondError(w, accountStatus(err), err.Error())
		return
	}
	respond(w, http.StatusCreated, account)
}

func (s *Server) transactionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	txs, total, err := s.accounts.History(r.Context(), sessionFrom(r).MemberID, pageFromQuery(r))
	if err != nil {
		respondError(w, accountStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"total":        total,
	})
}
