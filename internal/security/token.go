// Package security holds the service-to-service credentials shared by the
// confera services.
package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource mints short-lived HS256 tokens for service-to-service calls.
// Upstream services verify the signature and issuer; no user identity is
// carried, the token only proves the caller is inside the platform.
type TokenSource struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenSource(secret, issuer string, ttl time.Duration) *TokenSource {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &TokenSource{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

func (s *TokenSource) Token() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}
