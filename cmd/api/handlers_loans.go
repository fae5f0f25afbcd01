package main

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/ledger"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

// loanStatus maps ledger errors to HTTP status codes.
func loanStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrLoanNotApproved),
		errors.Is(err, ledger.ErrLoanProcessed),
		errors.Is(err, ledger.ErrNoAccount):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[key])
}

func (s *Server) applyLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount     decimal.Decimal `json:"amount" validate:"required"`
		Purpose    string          `json:"purpose" validate:"required,max=200"`
		TermMonths int             `json:"term_months" validate:"omitempty,min=1,max=60"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	loan, err := s.ledger.CreateLoan(r.Context(), sessionFrom(r).MemberID, req.Amount, req.Purpose, req.TermMonths)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	respond(w, http.StatusCreated, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, total, err := s.storage.ListLoansForMember(r.Context(), sessionFrom(r).MemberID, pageFromQuery(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"loans": loans,
		"total": total,
	})
}

func (s *Server) loanDetailHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	detail, err := s.ledger.GetLoanDetail(r.Context(), loanID)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}

	// Members may only view their own loans; admins see everything.
	sess := sessionFrom(r)
	if !sess.IsAdmin && detail.Loan.MemberID != sess.MemberID {
		respondError(w, http.StatusForbidden, "not your loan")
		return
	}
	respond(w, http.StatusOK, detail)
}

// loanDecisionHandler approves or rejects a pending loan. Admin only.
func (s *Server) loanDecisionHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	var req struct {
		Decision     string           `json:"decision" validate:"required,oneof=approve reject"`
		InterestRate *decimal.Decimal `json:"interest_rate"`
		Reason       string           `json:"reason"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	adminID := sessionFrom(r).MemberID
	if req.Decision == "approve" {
		rate := s.defaultRate
		if req.InterestRate != nil {
			rate = *req.InterestRate
		}
		loan, err := s.ledger.ApproveLoan(r.Context(), loanID, adminID, rate)
		if err != nil {
			respondError(w, loanStatus(err), err.Error())
			return
		}
		respond(w, http.StatusOK, loan)
		return
	}

	loan, err := s.ledger.RejectLoan(r.Context(), loanID, adminID, req.Reason)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, loan)
}

func (s *Server) applyRepaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount" validate:"required"`
		Method string          `json:"payment_method"`
	}
	if !s.decodeValid(w, r, &req) {
		return
	}

	loan, err := s.storage.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	sess := sessionFrom(r)
	if !sess.IsAdmin && loan.MemberID != sess.MemberID {
		respondError(w, http.StatusForbidden, "not your loan")
		return
	}

	result, err := s.ledger.ApplyRepayment(r.Context(), loanID, req.Amount, req.Method)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	respond(w, http.StatusCreated, result)
}

func (s *Server) repaymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	loan, err := s.storage.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	sess := sessionFrom(r)
	if !sess.IsAdmin && loan.MemberID != sess.MemberID {
		respondError(w, http.StatusForbidden, "not your loan")
		return
	}

	history, err := s.ledger.History(r.Context(), loanID)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, history)
}

func (s *Server) repaymentSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summarize(r.Context(), sessionFrom(r).MemberID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	respond(w, http.StatusOK, summary)
}

// getRepaymentHandler returns a single repayment by ID. Admin only.
func (s *Server) getRepaymentHandler(w http.ResponseWriter, r *http.Request) {
	repaymentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid repayment ID")
		return
	}

	repayment, err := s.storage.GetRepayment(r.Context(), repaymentID)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, repayment)
}

// deleteRepaymentHandler removes a repayment and reports the re-derived loan
// status. Admin only.
func (s *Server) deleteRepaymentHandler(w http.ResponseWriter, r *http.Request) {
	repaymentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid repayment ID")
		return
	}

	status, err := s.ledger.DeleteRepayment(r.Context(), repaymentID)
	if err != nil {
		respondError(w, loanStatus(err), err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message":     "repayment deleted",
		"loan_status": status,
	})
}
