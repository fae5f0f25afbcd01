// Package accounts implements savings account operations: opening an account
// with an initial deposit, PIN-verified deposits and withdrawals, and balance
// queries. Balance updates run inside storage transactions, which serializes
// them per account.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

var (
	ErrAccountExists       = errors.New("member already has an account")
	ErrNoAccount           = errors.New("no account found")
	ErrInvalidPIN          = errors.New("pin must be a 4-digit number")
	ErrWrongPIN            = errors.New("incorrect pin")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrBelowMinimumDeposit = errors.New("initial deposit below minimum")
	ErrInsufficientFunds   = errors.New("insufficient balance")
)

// Service holds account business logic and the balance policy knobs.
type Service struct {
	storage        store.Storage
	minimumDeposit decimal.Decimal
	minimumBalance decimal.Decimal
}

// NewService creates an account service with the given policy minimums.
func NewService(s store.Storage, minimumDeposit, minimumBalance decimal.Decimal) *Service {
	return &Service{
		storage:        s,
		minimumDeposit: minimumDeposit,
		minimumBalance: minimumBalance,
	}
}

// Open creates the member's savings account with an initial deposit at or
// above the policy minimum and a bcrypt-hashed 4-digit PIN. The account row
// and the opening deposit transaction commit together.
func (s *Service) Open(ctx context.Context, memberID uuid.UUID, initialDeposit decimal.Decimal, pin, phone, occupation string) (*models.Account, error) {
	if !validPIN(pin) {
		return nil, ErrInvalidPIN
	}
	if initialDeposit.LessThan(s.minimumDeposit) {
		return nil, ErrBelowMinimumDeposit
	}

	if _, err := s.storage.GetAccountByMember(ctx, memberID); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}

	account := &models.Account{
		ID:         uuid.New(),
		MemberID:   memberID,
		Balance:    initialDeposit,
		PINHash:    string(hashed),
		Phone:      phone,
		Occupation: occupation,
		CreatedAt:  time.Now(),
	}

	err = s.storage.ExecTx(ctx, func(tx store.Storage) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return tx.CreateTransaction(ctx, &models.Transaction{
			ID:        uuid.New(),
			AccountID: account.ID,
			Type:      models.TransactionTypeDeposit,
			Amount:    initialDeposit,
			Timestamp: account.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Deposit adds funds to the member's account after PIN verification.
func (s *Service) Deposit(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, pin string) (*models.Account, error) {
	return s.transact(ctx, memberID, amount, pin, models.TransactionTypeDeposit)
}

// Withdraw removes funds from the member's account after PIN verification.
// The balance may not drop below the policy minimum.
func (s *Service) Withdraw(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, pin string) (*models.Account, error) {
	return s.transact(ctx, memberID, amount, pin, models.TransactionTypeWithdraw)
}

func (s *Service) transact(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, pin string, kind models.TransactionType) (*models.Account, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	account, err := s.storage.GetAccountByMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoAccount
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PINHash), []byte(pin)); err != nil {
		return nil, ErrWrongPIN
	}

	err = s.storage.ExecTx(ctx, func(tx store.Storage) error {
		// Re-read inside the transaction so concurrent writers cannot
		// both spend the same balance.
		account, err = tx.GetAccountByMember(ctx, memberID)
		if err != nil {
			return err
		}

		var newBalance decimal.Decimal
		switch kind {
		case models.TransactionTypeDeposit:
			newBalance = account.Balance.Add(amount)
		case models.TransactionTypeWithdraw:
			newBalance = account.Balance.Sub(amount)
			if newBalance.LessThan(s.minimumBalance) {
				return ErrInsufficientFunds
			}
		default:
			return fmt.Errorf("unsupported transaction type %q", kind)
		}

		if err := tx.UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		account.Balance = newBalance

		return tx.CreateTransaction(ctx, &models.Transaction{
			ID:        uuid.New(),
			AccountID: account.ID,
			Type:      kind,
			Amount:    amount,
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Balance returns the member's account balance.
func (s *Service) Balance(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.storage.GetAccountByMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return decimal.Zero, ErrNoAccount
		}
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// Exists reports whether the member has opened an account.
func (s *Service) Exists(ctx context.Context, memberID uuid.UUID) (bool, error) {
	_, err := s.storage.GetAccountByMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// History returns a page of the member's transactions, newest first, with
// the total count.
func (s *Service) History(ctx context.Context, memberID uuid.UUID, page store.Page) ([]*models.Transaction, int, error) {
	account, err := s.storage.GetAccountByMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrNoAccount
		}
		return nil, 0, err
	}
	return s.storage.ListTransactions(ctx, account.ID, page)
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
