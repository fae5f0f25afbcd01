package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore, uuid.UUID) {
	t.Helper()
	mem := store.NewMemoryStore()
	svc := NewService(mem, decimal.NewFromInt(100), decimal.Zero)

	member := &models.Member{
		ID:        uuid.New(),
		Username:  "wanjiku",
		Email:     "wanjiku@example.com",
		CreatedAt: time.Now(),
	}
	require.NoError(t, mem.CreateMember(context.Background(), member))
	return svc, mem, member.ID
}

func TestOpen(t *testing.T) {
	svc, _, memberID := newTestService(t)
	ctx := context.Background()

	account, err := svc.Open(ctx, memberID, decimal.NewFromInt(500), "1234", "+254712345678", "trader")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(500)))
	assert.NotEqual(t, "1234", account.PINHash, "pin must be stored hashed")

	// The opening deposit is recorded as a transaction.
	txs, total, err := svc.History(ctx, memberID, store.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionTypeDeposit, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(500)))
}

func TestOpen_Rejections(t *testing.T) {
	svc, _, memberID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, memberID, decimal.NewFromInt(500), "12a4", "", "")
	assert.ErrorIs(t, err, ErrInvalidPIN)

	_, err = svc.Open(ctx, memberID, decimal.NewFromInt(500), "12345", "", "")
	assert.ErrorIs(t, err, ErrInvalidPIN)

	_, err = svc.Open(ctx, memberID, decimal.NewFromInt(99), "1234", "", "")
	assert.ErrorIs(t, err, ErrBelowMinimumDeposit)

	_, err = svc.Open(ctx, memberID, decimal.NewFromInt(100), "1234", "", "")
	require.NoError(t, err)

	_, err = svc.Open(ctx, memberID, decimal.NewFromInt(100), "1234", "", "")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestDeposit(t *testing.T) {
	svc, _, memberID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, memberID, decimal.NewFromInt(200), "1234", "", "")
	require.NoError(t, err)

	account, err := svc.Deposit(ctx, memberID, decimal.NewFromFloat(150.50), "1234")
	require.NoError(t, err)
	assert.Equal(t, "350.50", account.Balance.StringFixed(2))

	_, err = svc.Deposit(ctx, memberID, decimal.NewFromInt(50), "0000")
	assert.ErrorIs(t, err, ErrWrongPIN)

	_, err = svc.Deposit(ctx, memberID, decimal.Zero, "1234")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWithdraw(t *testing.T) {
	svc, _, memberID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, memberID, decimal.NewFromInt(300), "1234", "", "")
	require.NoError(t, err)

	account, err := svc.Withdraw(ctx, memberID, decimal.NewFromInt(120), "1234")
	require.NoError(t, err)
	assert.Equal(t, "180.00", account.Balance.StringFixed(2))

	// Overdrawing is refused and leaves the balance untouched.
	_, err = svc.Withdraw(ctx, memberID, decimal.NewFromInt(181), "1234")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err := svc.Balance(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, "180.00", balance.StringFixed(2))

	// Withdrawing the full balance is allowed with a zero minimum.
	account, err = svc.Withdraw(ctx, memberID, decimal.NewFromInt(180), "1234")
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())
}

func TestWithdraw_MinimumBalance(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := NewService(mem, decimal.NewFromInt(100), decimal.NewFromInt(100))
	ctx := context.Background()

	member := &models.Member{ID: uuid.New(), Username: "otieno", Email: "otieno@example.com"}
	require.NoError(t, mem.CreateMember(ctx, member))

	_, err := svc.Open(ctx, member.ID, decimal.NewFromInt(250), "4321", "", "")
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, member.ID, decimal.NewFromInt(200), "4321")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	account, err := svc.Withdraw(ctx, member.ID, decimal.NewFromInt(150), "4321")
	require.NoError(t, err)
	assert.Equal(t, "100.00", account.Balance.StringFixed(2))
}

func TestNoAccount(t *testing.T) {
	svc, _, memberID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, memberID, decimal.NewFromInt(10), "1234")
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = svc.Balance(ctx, memberID)
	assert.ErrorIs(t, err, ErrNoAccount)

	exists, err := svc.Exists(ctx, memberID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHistoryPagination(t *testing.T) {
	svc, _, memberID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, memberID, decimal.NewFromInt(100), "1234", "", "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = svc.Deposit(ctx, memberID, decimal.NewFromInt(10), "1234")
		require.NoError(t, err)
	}

	txs, total, err := svc.History(ctx, memberID, store.Page{Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, txs, 4)

	txs, _, err = svc.History(ctx, memberID, store.Page{Limit: 4, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
