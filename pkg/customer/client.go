// Package customer is the client for the customer-identity lookup service.
package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Details is the identity data needed to raise a contract event
type Details struct {
	IdentityNumber string `json:"identity_number"`
	PhoneNumber    string `json:"mobile_phone_number"`
}

// DetailsGetter fetches identity details for a user
type DetailsGetter interface {
	GetCustomerDetails(ctx context.Context, userID string) (Details, error)
}

// HTTPClient fetches customer details over the internal HTTP API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a customer-details client against the given base URL
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) GetCustomerDetails(ctx context.Context, userID string) (Details, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/customers/"+userID+"/details", nil)
	if err != nil {
		return Details{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Details{}, fmt.Errorf("failed to get customer details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Details{}, fmt.Errorf("failed to get customer details: unexpected status %d", resp.StatusCode)
	}

	var details Details
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return Details{}, fmt.Errorf("failed to decode customer details: %w", err)
	}
	return details, nil
}

// MockDetailsGetter serves canned details in tests
type MockDetailsGetter struct {
	mu      sync.Mutex
	Details Details
	Err     error
	Calls   int
}

func (m *MockDetailsGetter) GetCustomerDetails(ctx context.Context, userID string) (Details, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.Err != nil {
		return Details{}, m.Err
	}
	return m.Details, nil
}
