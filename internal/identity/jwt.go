package identity

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims models the provider's access-token claims.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTResolver verifies provider access tokens locally with the shared HS256 secret.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver constructs a JWTResolver for the given signing secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// Verify validates the token signature and expiry and extracts the account.
func (r *JWTResolver) Verify(_ context.Context, token string) (Account, error) {
	if strings.TrimSpace(token) == "" {
		return Account{}, ErrUnauthorized
	}

	parsed, errParse := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return r.secret, nil
	})
	if errParse != nil {
		return Account{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return Account{}, ErrUnauthorized
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Account{}, ErrUnauthorized
	}

	return Account{ID: claims.Subject, Email: claims.Email}, nil
}
