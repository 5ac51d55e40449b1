package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"echoforge/errors"
)

func TestTokenService_Generate_And_Verify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	t.Run("should round-trip the user id", func(t *testing.T) {
		req := require.New(t)

		token, err := svc.Generate(42)
		req.NoError(err)
		req.NotEmpty(token)

		userID, err := svc.Verify(token)
		req.NoError(err)
		req.Equal(int64(42), userID)
	})

	t.Run("should reject an empty token", func(t *testing.T) {
		req := require.New(t)
		_, err := svc.Verify("")
		req.ErrorIs(err, errors.ErrAuthenticationFailed)
	})

	t.Run("should reject a garbled token", func(t *testing.T) {
		req := require.New(t)
		_, err := svc.Verify("not.a.jwt")
		req.ErrorIs(err, errors.ErrAuthenticationFailed)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		req := require.New(t)

		other := NewTokenService("different-secret", time.Hour)
		token, err := other.Generate(42)
		req.NoError(err)

		_, err = svc.Verify(token)
		req.ErrorIs(err, errors.ErrAuthenticationFailed)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		req := require.New(t)

		expired := NewTokenService("test-secret", -time.Minute)
		token, err := expired.Generate(42)
		req.NoError(err)

		_, err = svc.Verify(token)
		req.ErrorIs(err, errors.ErrAuthenticationFailed)
	})
}

func TestHashPassword_And_Compare(t *testing.T) {
	t.Run("should accept the original password", func(t *testing.T) {
		req := require.New(t)

		hash, err := HashPassword("Secret123456!")
		req.NoError(err)
		req.Contains(hash, "$argon2id$")

		match, err := ComparePassword("Secret123456!", hash)
		req.NoError(err)
		req.True(match)
	})

	t.Run("should reject a wrong password", func(t *testing.T) {
		req := require.New(t)

		hash, err := HashPassword("Secret123456!")
		req.NoError(err)

		match, err := ComparePassword("WrongPassword1!", hash)
		req.NoError(err)
		req.False(match)
	})

	t.Run("should salt hashes so equal passwords differ", func(t *testing.T) {
		req := require.New(t)

		first, err := HashPassword("Secret123456!")
		req.NoError(err)
		second, err := HashPassword("Secret123456!")
		req.NoError(err)

		req.NotEqual(first, second)
	})

	t.Run("should reject a malformed stored hash", func(t *testing.T) {
		req := require.New(t)
		_, err := ComparePassword("whatever", "not-a-hash")
		req.Error(err)
	})
}

func TestValidateRegister(t *testing.T) {
	t.Run("should accept a complex password", func(t *testing.T) {
		req := require.New(t)
		err := ValidateRegister(RegisterRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "Secret123456!",
		})
		req.NoError(err)
	})

	t.Run("should reject a password without symbols", func(t *testing.T) {
		req := require.New(t)
		err := ValidateRegister(RegisterRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "Secret123456a",
		})
		req.ErrorIs(err, errors.ErrInvalidPassword)
	})

	t.Run("should reject a short password before complexity checks", func(t *testing.T) {
		req := require.New(t)
		err := ValidateRegister(RegisterRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "Sh0rt!",
		})
		req.Error(err)
	})

	t.Run("should reject an invalid email", func(t *testing.T) {
		req := require.New(t)
		err := ValidateRegister(RegisterRequest{
			Username: "alice",
			Email:    "not-an-email",
			Password: "Secret123456!",
		})
		req.Error(err)
	})
}
