package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/Brianjoseph8132/sacco-backend/pkg/auth"
	"github.com/Brianjoseph8132/sacco-backend/pkg/config"
	"github.com/Brianjoseph8132/sacco-backend/pkg/events"
	"github.com/Brianjoseph8132/sacco-backend/pkg/logging"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

// routes registers every endpoint on the router.
func (s *Server) routes(router *mux.Router) {
	// Members and sessions
	router.HandleFunc("/members/register", s.registerHandler).Methods("POST")
	router.HandleFunc("/members/login", s.loginHandler).Methods("POST")
	router.HandleFunc("/members/me", s.requireAuth(s.currentMemberHandler)).Methods("GET")
	router.HandleFunc("/members/logout", s.requireAuth(s.logoutHandler)).Methods("POST")

	// Savings accounts
	router.HandleFunc("/accounts", s.requireAuth(s.openAccountHandler)).Methods("POST")
	router.HandleFunc("/accounts/balance", s.requireAuth(s.accountBalanceHandler)).Methods("GET")
	router.HandleFunc("/accounts/exists", s.requireAuth(s.accountExistsHandler)).Methods("GET")
	router.HandleFunc("/transactions", s.requireAuth(s.transactionHandler)).Methods("POST")
	router.HandleFunc("/transactions", s.requireAuth(s.transactionHistoryHandler)).Methods("GET")

	// Loans
	router.HandleFunc("/loans", s.requireAuth(s.applyLoanHandler)).Methods("POST")
	router.HandleFunc("/loans", s.requireAuth(s.listLoansHandler)).Methods("GET")
	router.HandleFunc("/loans/{id}", s.requireAuth(s.loanDetailHandler)).Methods("GET")
	router.HandleFunc("/loans/{id}/decision", s.requireAdmin(s.loanDecisionHandler)).Methods("POST")

	// Repayments
	router.HandleFunc("/loans/{id}/repayments", s.requireAuth(s.applyRepaymentHandler)).Methods("POST")
	router.HandleFunc("/loans/{id}/repayments", s.requireAuth(s.repaymentHistoryHandler)).Methods("GET")
	router.HandleFunc("/repayments/summary", s.requireAuth(s.repaymentSummaryHandler)).Methods("GET")
	router.HandleFunc("/repayments/{id}", s.requireAdmin(s.getRepaymentHandler)).Methods("GET")
	router.HandleFunc("/repayments/{id}", s.requireAdmin(s.deleteRepaymentHandler)).Methods("DELETE")

	// Notifications
	router.HandleFunc("/notifications", s.requireAuth(s.listNotificationsHandler)).Methods("GET")
	router.HandleFunc("/notifications/unread-count", s.requireAuth(s.unreadCountHandler)).Methods("GET")
	router.HandleFunc("/notifications/read-all", s.requireAuth(s.markAllNotificationsReadHandler)).Methods("PUT")
	router.HandleFunc("/notifications/{id}/read", s.requireAuth(s.markNotificationReadHandler)).Methods("PUT")
	router.HandleFunc("/notifications/{id}", s.requireAuth(s.deleteNotificationHandler)).Methods("DELETE")
	router.HandleFunc("/notifications/send", s.requireAdmin(s.sendNotificationHandler)).Methods("POST")
	router.HandleFunc("/notifications/broadcast", s.requireAdmin(s.broadcastHandler)).Methods("POST")
}

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize store", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer sqliteStore.Close()

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			slog.Warn("broker unavailable, loan events will be logged", "err", err)
		} else {
			publisher = amqpPub
		}
	}
	defer publisher.Close()

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	server := NewServer(sqliteStore, publisher, tokens, cfg.DepositFloor(), cfg.BalanceFloor(), cfg.InterestRate())

	router := mux.NewRouter()
	server.routes(router)

	slog.Info("server starting", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, logRequests(router)); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
