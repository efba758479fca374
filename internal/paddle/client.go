// Package paddle implements the client for the remote billing API's
// creation endpoints: customers, addresses, businesses, subscriptions, and
// transactions.
//
// Every call is a single blocking POST carrying a Bearer API key. The caller
// controls timeouts through the request context; a timeout surfaces as an
// ordinary error on that call.
package paddle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Base URLs for the two environments. The sandbox host is selected per
// import request, not server-wide, so mixed usage is possible.
const (
	ProductionBaseURL = "https://api.paddle.com"
	SandboxBaseURL    = "https://sandbox-api.paddle.com"
)

// maxErrorBody caps how much of an error response is read and echoed back.
const maxErrorBody = 8 << 10

// APIError is a structured error returned by the billing API.
type APIError struct {
	Status int    // HTTP status code
	Code   string // machine-readable error code, empty if the body was not structured
	Detail string // human-readable detail or raw body excerpt
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("billing api error (status %d, code %s): %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("billing api error (status %d): %s", e.Status, e.Detail)
}

// Client talks to one environment of the billing API with one API key.
// A Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the environment base URL. Used by tests and by
// deployments that pin a proxy in front of the API.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a client for the production environment, or the sandbox when
// sandbox is true.
func New(apiKey string, sandbox bool, opts ...Option) *Client {
	base := ProductionBaseURL
	if sandbox {
		base = SandboxBaseURL
	}

	c := &Client{
		baseURL: base,
		apiKey:  apiKey,
		http: &http.Client{
			// Hard ceiling; per-call deadlines come from the context.
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateCustomer creates a customer and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	return c.create(ctx, "/customers", req)
}

// CreateAddress creates an address nested under the given customer.
func (c *Client) CreateAddress(ctx context.Context, customerID string, req AddressRequest) (string, error) {
	return c.create(ctx, "/customers/"+customerID+"/addresses", req)
}

// CreateBusiness creates a business nested under the given customer.
func (c *Client) CreateBusiness(ctx context.Context, customerID string, req BusinessRequest) (string, error) {
	return c.create(ctx, "/customers/"+customerID+"/businesses", req)
}

// CreateSubscription creates a zero-amount subscription.
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (string, error) {
	return c.create(ctx, "/subscriptions", req)
}

// CreateTransaction creates a transaction.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	return c.create(ctx, "/transactions", req)
}

// create POSTs the payload and decodes the opaque id from the response
// envelope. Non-2xx responses become *APIError.
func (c *Client) create(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.decodeError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode response from %s: %w", path, err)
	}
	if env.Data.ID == "" {
		return "", fmt.Errorf("response from %s missing resource id", path)
	}
	return env.Data.ID, nil
}

// decodeError parses the structured error envelope, falling back to the raw
// body when the response is not the expected shape.
func (c *Client) decodeError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Code != "" {
		return &APIError{
			Status: resp.StatusCode,
			Code:   env.Error.Code,
			Detail: env.Error.Detail,
		}
	}

	return &APIError{
		Status: resp.StatusCode,
		Detail: strings.TrimSpace(string(raw)),
	}
}
