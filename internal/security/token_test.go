package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenSource_MintsVerifiableToken(t *testing.T) {
	src := NewTokenSource("test-secret", "notification-service", time.Minute)

	signed, err := src.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}

	claims := parsed.Claims.(*jwt.RegisteredClaims)
	if claims.Issuer != "notification-service" {
		t.Errorf("expected issuer notification-service, got %q", claims.Issuer)
	}
	if claims.Subject != claims.Issuer {
		t.Errorf("expected subject to match issuer, got %q", claims.Subject)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > time.Minute {
		t.Errorf("expected expiry within one minute, got %v", claims.ExpiresAt)
	}
}

func TestTokenSource_DefaultTTL(t *testing.T) {
	src := NewTokenSource("s", "svc", 0)

	signed, err := src.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		return []byte("s"), nil
	})
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("expected iat and exp to be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 60*time.Second {
		t.Errorf("expected 60s default ttl, got %v", got)
	}
}
