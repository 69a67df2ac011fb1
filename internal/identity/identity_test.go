package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, subject string, expiry time.Duration) string {
	t.Helper()
	claims := accessClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(expiry)),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if errSign != nil {
		t.Fatalf("sign token: %v", errSign)
	}
	return signed
}

func TestJWTResolverVerify(t *testing.T) {
	resolver := NewJWTResolver(testSecret)
	token := signToken(t, testSecret, "user-1", time.Hour)

	account, errVerify := resolver.Verify(context.Background(), token)
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if account.ID != "user-1" {
		t.Fatalf("account id = %q, want user-1", account.ID)
	}
	if account.Email != "user@example.com" {
		t.Fatalf("account email = %q", account.Email)
	}
}

func TestJWTResolverRejectsWrongSecret(t *testing.T) {
	resolver := NewJWTResolver(testSecret)
	token := signToken(t, "other-secret", "user-1", time.Hour)

	if _, errVerify := resolver.Verify(context.Background(), token); !errors.Is(errVerify, ErrUnauthorized) {
		t.Fatalf("verify = %v, want ErrUnauthorized", errVerify)
	}
}

func TestJWTResolverRejectsExpired(t *testing.T) {
	resolver := NewJWTResolver(testSecret)
	token := signToken(t, testSecret, "user-1", -time.Hour)

	if _, errVerify := resolver.Verify(context.Background(), token); !errors.Is(errVerify, ErrUnauthorized) {
		t.Fatalf("verify = %v, want ErrUnauthorized", errVerify)
	}
}

func TestJWTResolverRejectsEmptyToken(t *testing.T) {
	resolver := NewJWTResolver(testSecret)
	if _, errVerify := resolver.Verify(context.Background(), ""); !errors.Is(errVerify, ErrUnauthorized) {
		t.Fatalf("verify = %v, want ErrUnauthorized", errVerify)
	}
}

func TestProviderResolverVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-9","email":"nine@example.com"}`))
	}))
	defer server.Close()

	resolver := NewProviderResolver(server.URL, "anon-key")
	account, errVerify := resolver.Verify(context.Background(), "token-1")
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if account.ID != "user-9" || account.Email != "nine@example.com" {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestProviderResolverRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	resolver := NewProviderResolver(server.URL, "anon-key")
	if _, errVerify := resolver.Verify(context.Background(), "bad"); !errors.Is(errVerify, ErrUnauthorized) {
		t.Fatalf("verify = %v, want ErrUnauthorized", errVerify)
	}
}

func TestProviderResolverUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resolver := NewProviderResolver(server.URL, "anon-key")
	if _, errVerify := resolver.Verify(context.Background(), "token"); !errors.Is(errVerify, ErrUnavailable) {
		t.Fatalf("verify = %v, want ErrUnavailable", errVerify)
	}
}
