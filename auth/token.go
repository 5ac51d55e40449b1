package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"echoforge/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens. The secret comes from
// configuration; it is never hardcoded in the binary.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Generate creates a signed HS256 JWT for a specific user.
func (s *TokenService) Generate(userID int64) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "echoforge",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses the token, validates signature and expiration, and
// returns the embedded user id. It implements contract.ITokenVerifier.
func (s *TokenService) Verify(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, errors.ErrAuthenticationFailed
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return 0, errors.ErrAuthenticationFailed
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return 0, errors.ErrAuthenticationFailed
	}
	return claims.UserID, nil
}
