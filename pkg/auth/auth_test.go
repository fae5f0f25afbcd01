package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brianjoseph8132/sacco-backend/pkg/store"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := NewAuthenticator(store.NewMemoryStore())

	member, err := a.Register(ctx, Registration{
		Username: "jane_doe",
		Email:    "jane@example.com",
		Password: "s3cret-pw",
		Phone:    "+254712345678",
		IDNumber: "123456789",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, member.PasswordHash)
	assert.NotEqual(t, "s3cret-pw", member.PasswordHash)

	got, err := a.Authenticate(ctx, "jane@example.com", "s3cret-pw")
	require.NoError(t, err)
	assert.Equal(t, member.ID, got.ID)

	_, err = a.Authenticate(ctx, "jane@example.com", "wrong-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "nobody@example.com", "s3cret-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	a := NewAuthenticator(store.NewMemoryStore())

	_, err := a.Register(ctx, Registration{Username: "x", Email: "x@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = a.Register(ctx, Registration{Username: "jane", Email: "jane@example.com", Password: "s3cret-pw"})
	require.NoError(t, err)

	_, err = a.Register(ctx, Registration{Username: "jane2", Email: "jane@example.com", Password: "s3cret-pw"})
	assert.ErrorIs(t, err, ErrMemberExists)

	_, err = a.Register(ctx, Registration{Username: "jane", Email: "other@example.com", Password: "s3cret-pw"})
	assert.ErrorIs(t, err, ErrMemberExists)
}

func TestJWTRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	a := NewAuthenticator(s)
	m := NewJWTManager("test-secret", time.Hour)

	member, err := a.Register(ctx, Registration{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "s3cret-pw",
		IsAdmin:  true,
	})
	require.NoError(t, err)

	token, err := m.Generate(member)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, member.ID.String(), claims.MemberID)
	assert.Equal(t, member.Email, claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.NotEmpty(t, claims.ID)

	// Tampered or foreign tokens fail validation.
	_, err = m.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTManager("other-secret", time.Hour)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExpiry(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	a := NewAuthenticator(store.NewMemoryStore())

	member, err := a.Register(context.Background(), Registration{
		Username: "jane", Email: "jane@example.com", Password: "s3cret-pw",
	})
	require.NoError(t, err)

	token, err := m.Generate(member)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutBlocklist(t *testing.T) {
	ctx := context.Background()
	a := NewAuthenticator(store.NewMemoryStore())

	revoked, err := a.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, a.Logout(ctx, "some-jti"))

	revoked, err = a.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	assert.True(t, revoked)
}
