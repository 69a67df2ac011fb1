package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProviderResolver verifies tokens against the identity provider's user endpoint.
type ProviderResolver struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewProviderResolver constructs a ProviderResolver for the given provider URL and API key.
func NewProviderResolver(baseURL, apiKey string) *ProviderResolver {
	return &ProviderResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// providerUser is the provider's user payload.
type providerUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify asks the provider to resolve the token into a user record.
func (r *ProviderResolver) Verify(ctx context.Context, token string) (Account, error) {
	if strings.TrimSpace(token) == "" {
		return Account{}, ErrUnauthorized
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/auth/v1/user", nil)
	if errReq != nil {
		return Account{}, fmt.Errorf("identity: build request: %w", errReq)
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, errDo := r.httpClient.Do(req)
	if errDo != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrUnavailable, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Account{}, ErrUnauthorized
	default:
		return Account{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var user providerUser
	if errDecode := json.NewDecoder(resp.Body).Decode(&user); errDecode != nil {
		return Account{}, fmt.Errorf("%w: decode user: %v", ErrUnavailable, errDecode)
	}
	if strings.TrimSpace(user.ID) == "" {
		return Account{}, ErrUnauthorized
	}

	return Account{ID: user.ID, Email: user.Email}, nil
}
