package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

// recordingPublisher captures published routing keys for assertions.
type recordingPublisher struct {
	keys []string
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() {}

func newTestLedger() (*Ledger, *store.MemoryStore, *recordingPublisher) {
	s := store.NewMemoryStore()
	p := &recordingPublisher{}
	return NewLedger(s, p), s, p
}

func seedMemberWithAccount(t *testing.T, s *store.MemoryStore, balance string) (*models.Member, *models.Account) {
	t.Helper()
	ctx := context.Background()

	member := &models.Member{
		ID:       uuid.New(),
		Username: "jane_doe",
		Email:    "jane@example.com",
		Phone:    "+254712345678",
	}
	if err := s.CreateMember(ctx, member); err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}

	account := &models.Account{
		ID:       uuid.New(),
		MemberID: member.ID,
		Balance:  decimal.RequireFromString(balance),
	}
	if err := s.CreateAccount(ctx, account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return member, account
}

func seedApprovedLoan(t *testing.T, s *store.MemoryStore, memberID uuid.UUID, principal, rate string) *models.Loan {
	t.Helper()
	loan := &models.Loan{
		ID:           uuid.New(),
		MemberID:     memberID,
		Principal:    decimal.RequireFromString(principal),
		InterestRate: decimal.RequireFromString(rate),
		Status:       models.LoanStatusApproved,
	}
	if err := s.CreateLoan(context.Background(), loan); err != nil {
		t.Fatalf("failed to seed loan: %v", err)
	}
	return loan
}

func TestApplyRepayment_PartialThenExactSettlement(t *testing.T) {
	l, s, pub := newTestLedger()
	ctx := context.Background()

	member, account := seedMemberWithAccount(t, s, "500")
	loan := seedApprovedLoan(t, s, member.ID, "5000", "12") // total due 5600

	result, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(3000), "M-Pesa")
	if err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}
	if result.Status != models.LoanStatusApproved {
		t.Errorf("expected status approved after partial repayment, got %s", result.Status)
	}
	if result.BalanceRemaining.StringFixed(2) != "2600.00" {
		t.Errorf("expected balance 2600.00, got %s", result.BalanceRemaining.StringFixed(2))
	}
	if !result.Overpaid.IsZero() {
		t.Errorf("expected no overpayment, got %s", result.Overpaid)
	}

	result, err = l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(2600), "Bank Transfer")
	if err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}
	if result.Status != models.LoanStatusPaid {
		t.Errorf("expected status paid after exact settlement, got %s", result.Status)
	}
	if !result.Overpaid.IsZero() {
		t.Errorf("expected zero overpayment on exact settlement, got %s", result.Overpaid)
	}
	if result.BalanceRemaining.StringFixed(2) != "0.00" {
		t.Errorf("expected zero balance, got %s", result.BalanceRemaining.StringFixed(2))
	}

	// Exact settlement must not touch the savings account.
	got, _ := s.GetAccountByMember(ctx, member.ID)
	if !got.Balance.Equal(account.Balance) {
		t.Errorf("account balance changed on exact settlement: %s -> %s", account.Balance, got.Balance)
	}

	stored, _ := s.GetLoan(ctx, loan.ID)
	if stored.CompletedAt == nil {
		t.Error("expected completion timestamp on paid loan")
	}

	if len(pub.keys) != 1 || pub.keys[0] != "loan.paid" {
		t.Errorf("expected a single loan.paid event, got %v", pub.keys)
	}
}

func TestApplyRepayment_OverpaymentCreditsAccount(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, account := seedMemberWithAccount(t, s, "200")
	loan := seedApprovedLoan(t, s, member.ID, "1000", "10") // total due 1100

	result, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(1500), "M-Pesa")
	if err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}
	if result.Status != models.LoanStatusPaid {
		t.Errorf("expected status paid, got %s", result.Status)
	}
	if result.Overpaid.StringFixed(2) != "400.00" {
		t.Errorf("expected overpaid 400.00, got %s", result.Overpaid.StringFixed(2))
	}

	got, _ := s.GetAccountByMember(ctx, member.ID)
	want := account.Balance.Add(decimal.NewFromInt(400))
	if !got.Balance.Equal(want) {
		t.Errorf("expected balance %s after credit, got %s", want, got.Balance)
	}

	// The credit is recorded as an overpayment_credit transaction.
	transactions, _, _ := s.ListTransactions(ctx, account.ID, store.Page{Limit: 10})
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Type != models.TransactionTypeOverpaymentCredit {
		t.Errorf("expected overpayment_credit transaction, got %s", transactions[0].Type)
	}
	if transactions[0].Amount.StringFixed(2) != "400.00" {
		t.Errorf("expected transaction amount 400.00, got %s", transactions[0].Amount.StringFixed(2))
	}

	// And a loan_paid notification for the member.
	count, _ := s.CountUnreadNotifications(ctx, member.ID)
	if count != 1 {
		t.Errorf("expected 1 unread notification, got %d", count)
	}
}

func TestApplyRepayment_RejectsNonPositiveAmounts(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	loan := seedApprovedLoan(t, s, member.ID, "1000", "10")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-50)} {
		_, err := l.ApplyRepayment(ctx, loan.ID, amount, "M-Pesa")
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount for %s, got %v", amount, err)
		}
	}

	// Nothing was recorded and the status is unchanged.
	repayments, _ := s.ListRepayments(ctx, loan.ID)
	if len(repayments) != 0 {
		t.Errorf("expected no repayments recorded, got %d", len(repayments))
	}
	stored, _ := s.GetLoan(ctx, loan.ID)
	if stored.Status != models.LoanStatusApproved {
		t.Errorf("expected status unchanged, got %s", stored.Status)
	}
}

func TestApplyRepayment_RejectsNonApprovedLoans(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()
	member, _ := seedMemberWithAccount(t, s, "0")

	for _, status := range []models.LoanStatus{models.LoanStatusPending, models.LoanStatusRejected, models.LoanStatusPaid} {
		loan := &models.Loan{
			ID:           uuid.New(),
			MemberID:     member.ID,
			Principal:    decimal.NewFromInt(1000),
			InterestRate: decimal.NewFromInt(10),
			Status:       status,
		}
		if err := s.CreateLoan(ctx, loan); err != nil {
			t.Fatalf("failed to seed loan: %v", err)
		}

		_, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(100), "M-Pesa")
		if !errors.Is(err, ErrLoanNotApproved) {
			t.Errorf("status %s: expected ErrLoanNotApproved, got %v", status, err)
		}
	}
}

func TestApplyRepayment_UnknownLoan(t *testing.T) {
	l, _, _ := newTestLedger()

	_, err := l.ApplyRepayment(context.Background(), uuid.New(), decimal.NewFromInt(100), "M-Pesa")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRepayment_RevertsPaidLoan(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	loan := seedApprovedLoan(t, s, member.ID, "1000", "10")

	first, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(600), "M-Pesa")
	if err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}
	second, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(500), "M-Pesa")
	if err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}
	if second.Status != models.LoanStatusPaid {
		t.Fatalf("expected loan paid, got %s", second.Status)
	}

	// Removing the settling repayment drops the total below the amount due.
	status, err := l.DeleteRepayment(ctx, second.Repayment.ID)
	if err != nil {
		t.Fatalf("DeleteRepayment failed: %v", err)
	}
	if status != models.LoanStatusApproved {
		t.Errorf("expected revert to approved, got %s", status)
	}

	stored, _ := s.GetLoan(ctx, loan.ID)
	if stored.CompletedAt != nil {
		t.Error("expected completion timestamp cleared on revert")
	}

	// Removing the remaining repayment from a now-approved loan changes
	// nothing further.
	status, err = l.DeleteRepayment(ctx, first.Repayment.ID)
	if err != nil {
		t.Fatalf("DeleteRepayment failed: %v", err)
	}
	if status != models.LoanStatusApproved {
		t.Errorf("expected approved, got %s", status)
	}
}

func TestDeleteRepayment_KeepsPaidWhenStillCovered(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	loan := seedApprovedLoan(t, s, member.ID, "1000", "0") // total due 1000

	first, _ := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(400), "M-Pesa")
	result, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(1000), "M-Pesa")
	if err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}
	if result.Status != models.LoanStatusPaid {
		t.Fatalf("expected paid, got %s", result.Status)
	}

	// Remaining 1000 still covers the 1000 due; status stays paid.
	status, err := l.DeleteRepayment(ctx, first.Repayment.ID)
	if err != nil {
		t.Fatalf("DeleteRepayment failed: %v", err)
	}
	if status != models.LoanStatusPaid {
		t.Errorf("expected paid to survive deletion, got %s", status)
	}
}

func TestCreateLoan_NotifiesApplicantAndAdmins(t *testing.T) {
	l, s, pub := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	admin := &models.Member{ID: uuid.New(), Username: "admin", Email: "admin@example.com", IsAdmin: true}
	if err := s.CreateMember(ctx, admin); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	loan, err := l.CreateLoan(ctx, member.ID, decimal.NewFromInt(5000), "Business expansion", 6)
	if err != nil {
		t.Fatalf("CreateLoan failed: %v", err)
	}
	if loan.Status != models.LoanStatusPending {
		t.Errorf("expected pending, got %s", loan.Status)
	}

	memberUnread, _ := s.CountUnreadNotifications(ctx, member.ID)
	adminUnread, _ := s.CountUnreadNotifications(ctx, admin.ID)
	if memberUnread != 1 || adminUnread != 1 {
		t.Errorf("expected 1 notification each, got member=%d admin=%d", memberUnread, adminUnread)
	}

	if len(pub.keys) != 1 || pub.keys[0] != "loan.applied" {
		t.Errorf("expected loan.applied event, got %v", pub.keys)
	}
}

func TestApproveLoan_DisbursesPrincipal(t *testing.T) {
	l, s, pub := newTestLedger()
	ctx := context.Background()

	member, account := seedMemberWithAccount(t, s, "100")
	loan, err := l.CreateLoan(ctx, member.ID, decimal.NewFromInt(5000), "School fees", 6)
	if err != nil {
		t.Fatalf("CreateLoan failed: %v", err)
	}

	adminID := uuid.New()
	approved, err := l.ApproveLoan(ctx, loan.ID, adminID, decimal.NewFromInt(12))
	if err != nil {
		t.Fatalf("ApproveLoan failed: %v", err)
	}
	if approved.Status != models.LoanStatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}
	if !approved.InterestRate.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected rate 12, got %s", approved.InterestRate)
	}

	got, _ := s.GetAccountByMember(ctx, member.ID)
	want := account.Balance.Add(decimal.NewFromInt(5000))
	if !got.Balance.Equal(want) {
		t.Errorf("expected disbursed balance %s, got %s", want, got.Balance)
	}

	transactions, _, _ := s.ListTransactions(ctx, account.ID, store.Page{Limit: 10})
	if len(transactions) != 1 || transactions[0].Type != models.TransactionTypeLoanDisbursement {
		t.Errorf("expected a loan_disbursement transaction, got %v", transactions)
	}

	// A processed loan cannot be approved or rejected again.
	if _, err := l.ApproveLoan(ctx, loan.ID, adminID, decimal.NewFromInt(10)); !errors.Is(err, ErrLoanProcessed) {
		t.Errorf("expected ErrLoanProcessed, got %v", err)
	}
	if _, err := l.RejectLoan(ctx, loan.ID, adminID, "late"); !errors.Is(err, ErrLoanProcessed) {
		t.Errorf("expected ErrLoanProcessed, got %v", err)
	}

	wantKeys := []string{"loan.applied", "loan.approved"}
	if len(pub.keys) != 2 || pub.keys[0] != wantKeys[0] || pub.keys[1] != wantKeys[1] {
		t.Errorf("expected events %v, got %v", wantKeys, pub.keys)
	}
}

func TestApproveLoan_RequiresAccount(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member := &models.Member{ID: uuid.New(), Username: "no_account", Email: "na@example.com"}
	if err := s.CreateMember(ctx, member); err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
	loan, err := l.CreateLoan(ctx, member.ID, decimal.NewFromInt(1000), "Emergency", 3)
	if err != nil {
		t.Fatalf("CreateLoan failed: %v", err)
	}

	_, err = l.ApproveLoan(ctx, loan.ID, uuid.New(), decimal.NewFromInt(10))
	if !errors.Is(err, ErrNoAccount) {
		t.Errorf("expected ErrNoAccount, got %v", err)
	}

	// Failed approval leaves the loan pending.
	stored, _ := s.GetLoan(ctx, loan.ID)
	if stored.Status != models.LoanStatusPending {
		t.Errorf("expected loan still pending, got %s", stored.Status)
	}
}

func TestRejectLoan(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	loan, _ := l.CreateLoan(ctx, member.ID, decimal.NewFromInt(1000), "Travel", 3)

	rejected, err := l.RejectLoan(ctx, loan.ID, uuid.New(), "insufficient savings history")
	if err != nil {
		t.Fatalf("RejectLoan failed: %v", err)
	}
	if rejected.Status != models.LoanStatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectReason != "insufficient savings history" {
		t.Errorf("unexpected reason %q", rejected.RejectReason)
	}
}

func TestGetLoanDetail(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	loan := seedApprovedLoan(t, s, member.ID, "5000", "12")

	if _, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(1400), "M-Pesa"); err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}

	detail, err := l.GetLoanDetail(ctx, loan.ID)
	if err != nil {
		t.Fatalf("GetLoanDetail failed: %v", err)
	}
	if detail.TotalDue.StringFixed(2) != "5600.00" {
		t.Errorf("expected total due 5600.00, got %s", detail.TotalDue.StringFixed(2))
	}
	if detail.BalanceRemaining.StringFixed(2) != "4200.00" {
		t.Errorf("expected balance 4200.00, got %s", detail.BalanceRemaining.StringFixed(2))
	}
	if detail.ProgressPercent != "25.0%" {
		t.Errorf("expected 25.0%% progress, got %s", detail.ProgressPercent)
	}
}

func TestSummarize(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	loan := seedApprovedLoan(t, s, member.ID, "3000", "0") // due 3000

	if _, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(2500), "M-Pesa"); err != nil {
		t.Fatalf("ApplyRepayment failed: %v", err)
	}

	summary, err := l.Summarize(ctx, member.ID)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(summary) != 1 {
		t.Fatalf("expected 1 summary line, got %d", len(summary))
	}
	if summary[0].Balance.StringFixed(2) != "500.00" {
		t.Errorf("expected balance 500.00, got %s", summary[0].Balance.StringFixed(2))
	}
	// principal/3 = 1000 exceeds the 500 remaining, so the suggestion caps.
	if summary[0].NextPaymentDue.StringFixed(2) != "500.00" {
		t.Errorf("expected next payment 500.00, got %s", summary[0].NextPaymentDue.StringFixed(2))
	}
}

func TestHistory(t *testing.T) {
	l, s, _ := newTestLedger()
	ctx := context.Background()

	member, _ := seedMemberWithAccount(t, s, "0")
	loan := seedApprovedLoan(t, s, member.ID, "1000", "10")

	amounts := []int64{300, 400, 500}
	for _, a := range amounts {
		if _, err := l.ApplyRepayment(ctx, loan.ID, decimal.NewFromInt(a), "M-Pesa"); err != nil {
			t.Fatalf("ApplyRepayment failed: %v", err)
		}
	}

	history, err := l.History(ctx, loan.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(history))
	}
	if history[1].CumulativePaid.StringFixed(2) != "700.00" {
		t.Errorf("expected cumulative 700.00, got %s", history[1].CumulativePaid.StringFixed(2))
	}
	if history[2].BalanceRemaining.StringFixed(2) != "0.00" {
		t.Errorf("expected final balance 0.00, got %s", history[2].BalanceRemaining.StringFixed(2))
	}
}
