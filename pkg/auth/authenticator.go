package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Brianjoseph8132/sacco-backend/pkg/models"
	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrMemberExists       = errors.New("username or email already exists")
)

// Registration carries the validated fields for a new member. Phone and ID
// number arrive here already checked by the service edge.
type Registration struct {
	Username string
	Email    string
	Password string
	Phone    string
	IDNumber string
	IsAdmin  bool
}

// Authenticator implements password-based member registration and login
// using bcrypt.
type Authenticator struct {
	storage store.Storage
}

// NewAuthenticator creates a new password-based authenticator.
func NewAuthenticator(s store.Storage) *Authenticator {
	return &Authenticator{storage: s}
}

// Register creates a new member with a hashed password. Username and email
// must be unused.
func (a *Authenticator) Register(ctx context.Context, reg Registration) (*models.Member, error) {
	if len(reg.Password) < 8 {
		return nil, ErrWeakPassword
	}

	if _, err := a.storage.GetMemberByEmail(ctx, reg.Email); err == nil {
		return nil, ErrMemberExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if _, err := a.storage.GetMemberByUsername(ctx, reg.Username); err == nil {
		return nil, ErrMemberExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &models.Member{
		ID:           uuid.New(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hashed),
		Phone:        reg.Phone,
		IDNumber:     reg.IDNumber,
		IsAdmin:      reg.IsAdmin,
		CreatedAt:    time.Now(),
	}
	if err := a.storage.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	return member, nil
}

// Authenticate verifies the email and password, returning the member if
// valid.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*models.Member, error) {
	member, err := a.storage.GetMemberByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return member, nil
}

// Logout revokes a token by recording its jti in the blocklist.
func (a *Authenticator) Logout(ctx context.Context, jti string) error {
	return a.storage.BlockToken(ctx, jti, time.Now().UTC())
}

// IsRevoked reports whether a token's jti has been blocklisted.
func (a *Authenticator) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return a.storage.IsTokenBlocked(ctx, jti)
}
