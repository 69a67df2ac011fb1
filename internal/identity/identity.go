// Package identity resolves bearer credentials into verified accounts.
//
// Accounts are owned by the external identity provider; this package only
// verifies tokens it issued, either locally against the provider's JWT secret
// or remotely through the provider's user endpoint.
package identity

import (
	"context"
	"errors"
)

// Resolution errors.
var (
	// ErrUnauthorized indicates a missing, malformed, or rejected credential.
	ErrUnauthorized = errors.New("identity: unauthorized")
	// ErrUnavailable indicates the identity provider could not be reached.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// Account is the verified identity behind a bearer credential.
type Account struct {
	ID    string // Provider-issued, stable, opaque.
	Email string // Optional.
}

// Resolver verifies a bearer token and returns the account it belongs to.
type Resolver interface {
	Verify(ctx context.Context, token string) (Account, error)
}
