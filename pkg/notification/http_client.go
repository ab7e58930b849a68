package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tendant/device-trust/pkg/trust"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPClient talks to the notification subsystem over its internal HTTP API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a notification client against the given base URL
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

type getDeviceListRequest struct {
	UserID string   `json:"user_id"`
	UDIDs  []string `json:"udids"`
}

type getDeviceListResponse struct {
	Devices []DeviceInfo `json:"devices"`
}

// GetDeviceList returns display metadata for the devices the notification
// subsystem currently knows for this user, keyed by UDID.
func (c *HTTPClient) GetDeviceList(ctx context.Context, userID string, udids []string) (map[string]DeviceInfo, error) {
	var resp getDeviceListResponse
	if err := c.post(ctx, "/device/list", getDeviceListRequest{UserID: userID, UDIDs: udids}, &resp); err != nil {
		return nil, err
	}

	devices := make(map[string]DeviceInfo, len(resp.Devices))
	for _, device := range resp.Devices {
		devices[device.UDID] = device
	}
	return devices, nil
}

type newDeviceRegisteredRequest struct {
	UserID  string         `json:"user_id"`
	UDID    string         `json:"udid_from_request"`
	Brand   string         `json:"brand,omitempty"`
	Model   string         `json:"model,omitempty"`
	Devices []trust.Device `json:"devices"`
}

// NotifyNewDeviceRegistered asks the notification subsystem to push a
// "new device registered" message to the user's devices.
func (c *HTTPClient) NotifyNewDeviceRegistered(ctx context.Context, notice NewDeviceNotice) error {
	return c.post(ctx, "/push/new-device", newDeviceRegisteredRequest{
		UserID:  notice.UserID,
		UDID:    notice.UDID,
		Brand:   notice.Brand,
		Model:   notice.Model,
		Devices: notice.Devices,
	}, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d from %s", ErrUnavailable, resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}
