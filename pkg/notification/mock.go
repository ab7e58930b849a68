package notification

import (
	"context"
	"sync"
)

// MockClient is an in-memory notification client for tests
type MockClient struct {
	mu           sync.Mutex
	KnownDevices map[string]DeviceInfo
	Notices      []NewDeviceNotice
	LookupCalls  int
	LookupErr    error
	NotifyErr    error
}

// NewMockClient creates a mock client with the given known device metadata
func NewMockClient(known map[string]DeviceInfo) *MockClient {
	if known == nil {
		known = make(map[string]DeviceInfo)
	}
	return &MockClient{KnownDevices: known}
}

func (m *MockClient) GetDeviceList(ctx context.Context, userID string, udids []string) (map[string]DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LookupCalls++
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}

	devices := make(map[string]DeviceInfo)
	for _, udid := range udids {
		if info, ok := m.KnownDevices[udid]; ok {
			devices[udid] = info
		}
	}
	return devices, nil
}

func (m *MockClient) NotifyNewDeviceRegistered(ctx context.Context, notice NewDeviceNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.NotifyErr != nil {
		return m.NotifyErr
	}
	m.Notices = append(m.Notices, notice)
	return nil
}

// SentNotices returns a copy of the recorded notices
func (m *MockClient) SentNotices() []NewDeviceNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NewDeviceNotice(nil), m.Notices...)
}
