// Package contract is the client for the contract-creation workflow.
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// EventCreator raises a contract event for a customer identity
type EventCreator interface {
	CreateContractEvent(ctx context.Context, identityNumber, phoneNumber string) error
}

// HTTPClient raises contract events over the internal HTTP API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a contract-event client against the given base URL
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type createEventRequest struct {
	IdentityNumber string `json:"identity_number"`
	PhoneNumber    string `json:"phone_number"`
}

func (c *HTTPClient) CreateContractEvent(ctx context.Context, identityNumber, phoneNumber string) error {
	payload, err := json.Marshal(createEventRequest{IdentityNumber: identityNumber, PhoneNumber: phoneNumber})
	if err != nil {
		return fmt.Errorf("failed to marshal contract event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contract/events", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create contract event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to create contract event: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// MockEventCreator records contract events in tests
type MockEventCreator struct {
	mu     sync.Mutex
	Events []createEventRequest
	Err    error
}

func (m *MockEventCreator) CreateContractEvent(ctx context.Context, identityNumber, phoneNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, createEventRequest{IdentityNumber: identityNumber, PhoneNumber: phoneNumber})
	return nil
}

// EventCount returns how many contract events were recorded
func (m *MockEventCreator) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
