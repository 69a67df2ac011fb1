// Package payments talks to the payment provider over its HTTP API.
//
// The provider is addressed directly rather than through an SDK; requests are
// form-encoded and responses are JSON, per the provider's wire format.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client issues authenticated calls to the payment provider.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client. An empty baseURL targets the provider's
// public API host.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Customer is a payment-provider customer record.
type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Deleted  bool              `json:"deleted"`
	Metadata map[string]string `json:"metadata"`
}

// CheckoutSession is a provider checkout session.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PortalSession is a provider billing-portal session.
type PortalSession struct {
	URL string `json:"url"`
}

// Customer retrieves a customer by ID.
func (c *Client) Customer(ctx context.Context, customerID string) (Customer, error) {
	var customer Customer
	errDo := c.do(ctx, http.MethodGet, "/v1/customers/"+url.PathEscape(customerID), nil, &customer)
	if errDo != nil {
		return Customer{}, errDo
	}
	return customer, nil
}

// CreateCustomer creates a customer carrying the internal account ID in metadata.
func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (Customer, error) {
	form := url.Values{}
	if email != "" {
		form.Set("email", email)
	}
	form.Set("metadata[userId]", userID)

	var customer Customer
	if errDo := c.do(ctx, http.MethodPost, "/v1/customers", form, &customer); errDo != nil {
		return Customer{}, errDo
	}
	return customer, nil
}

// CreateCheckoutSession starts a subscription checkout for one price.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)

	var session CheckoutSession
	if errDo := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); errDo != nil {
		return CheckoutSession{}, errDo
	}
	return session, nil
}

// CreatePortalSession starts a billing-portal session for a customer.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (PortalSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var session PortalSession
	if errDo := c.do(ctx, http.MethodPost, "/v1/billing_portal/sessions", form, &session); errDo != nil {
		return PortalSession{}, errDo
	}
	return session, nil
}

// do issues one provider call and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, errReq := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if errReq != nil {
		return fmt.Errorf("payments: build request: %w", errReq)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("payments: %s %s: %w", method, path, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("payments: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if errDecode := json.NewDecoder(resp.Body).Decode(out); errDecode != nil {
		return fmt.Errorf("payments: decode response: %w", errDecode)
	}
	return nil
}
