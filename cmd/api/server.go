package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/accounts"
	"github.com/Brianjoseph8132/sacco-backend/pkg/auth"
	"github.com/Brianjoseph8132/sacco-backend/pkg/events"
	"github.com/Brianjoseph8132/sacco-backend/pkg/ledger"
	"github.com/Brianjoseph8132/sacco-backend/pkg/notify"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

// Server wires the HTTP handlers to the domain services.
type Server struct {
	ledger        *ledger.Ledger
	accounts      *accounts.Service
	notifications *notify.Service
	auth          *auth.Authenticator
	tokens        *auth.JWTManager
	storage       store.Storage
	validate      *validator.Validate
	defaultRate   decimal.Decimal
}

// NewServer builds a Server over the given storage and event publisher.
func NewServer(s store.Storage, pub events.Publisher, tokens *auth.JWTManager, minimumDeposit, minimumBalance, defaultRate decimal.Decimal) *Server {
	return &Server{
		ledger:        ledger.NewLedger(s, pub),
		accounts:      accounts.NewService(s, minimumDeposit, minimumBalance),
		notifications: notify.NewService(s),
		auth:          auth.NewAuthenticator(s),
		tokens:        tokens,
		storage:       s,
		validate:      newValidator(),
		defaultRate:   defaultRate,
	}
}

var (
	kenyanPhoneRe = regexp.MustCompile(`^\+254\d{9}$`)
	idNumberRe    = regexp.MustCompile(`^\d{9}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("kenyan_phone", func(fl validator.FieldLevel) bool {
		return kenyanPhoneRe.MatchString(fl.Field().String())
	})
	v.RegisterValidation("id_number", func(fl validator.FieldLevel) bool {
		return idNumberRe.MatchString(fl.Field().String())
	})
	return v
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("failed to encode response", "err", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

// decodeValid decodes the request body into req and runs struct validation.
// A false return means the error response was already written.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			respondError(w, http.StatusBadRequest, "validation failed on field "+verrs[0].Field())
		} else {
			respondError(w, http.StatusBadRequest, "validation failed")
		}
		return false
	}
	return true
}

// pageFromQuery reads limit/offset query params, clamping limit to 100.
func pageFromQuery(r *http.Request) store.Page {
	page := store.Page{Limit: 20}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page.Limit = min(n, 100)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page.Offset = n
		}
	}
	return page
}
