// Package notification is the client for the push-notification subsystem.
// It covers the two calls the trust core needs: looking up display metadata
// for a set of devices and announcing a newly registered device to the
// user's other devices.
package notification

import (
	"context"
	"errors"

	"github.com/tendant/device-trust/pkg/trust"
)

// ErrUnavailable is returned when the notification subsystem cannot be reached
var ErrUnavailable = errors.New("notification service unavailable")

// DeviceInfo is the display metadata the notification subsystem keeps for a
// device it delivers pushes to.
type DeviceInfo struct {
	UDID      string `json:"udid"`
	OSVersion string `json:"os_version,omitempty"`
	BrandName string `json:"brand_name,omitempty"`
	Model     string `json:"model,omitempty"`
	OS        string `json:"os,omitempty"`
}

// NewDeviceNotice describes a freshly registered device. Devices carries the
// user's full device set so the push can be fanned out to every other device.
type NewDeviceNotice struct {
	UserID  string
	UDID    string
	Brand   string
	Model   string
	Devices []trust.Device
}

// Client defines the notification subsystem operations consumed by the core.
// GetDeviceList may return metadata for a subset of the requested UDIDs;
// devices unknown to the subsystem are simply absent from the result.
type Client interface {
	GetDeviceList(ctx context.Context, userID string, udids []string) (map[string]DeviceInfo, error)
	NotifyNewDeviceRegistered(ctx context.Context, notice NewDeviceNotice) error
}
