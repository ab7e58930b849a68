package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/device-trust/pkg/contract"
	"github.com/tendant/device-trust/pkg/customer"
	"github.com/tendant/device-trust/pkg/notification"
	"github.com/tendant/device-trust/pkg/trust"
)

// RegisterDeviceParams describes an incoming device registration event
type RegisterDeviceParams struct {
	UserID string
	UDID   string
	Brand  string
	Model  string
}

// Service orchestrates what happens when a device registration event
// arrives: first-ever device, additional device, or a touch on a device the
// user already registered.
type Service struct {
	trustService *trust.TrustService
	notifier     notification.Client
	contracts    contract.EventCreator
	customers    customer.DetailsGetter
	dispatcher   *Dispatcher
}

// NewService creates a new registration workflow service
func NewService(
	trustService *trust.TrustService,
	notifier notification.Client,
	contracts contract.EventCreator,
	customers customer.DetailsGetter,
	dispatcher *Dispatcher,
) *Service {
	return &Service{
		trustService: trustService,
		notifier:     notifier,
		contracts:    contracts,
		customers:    customers,
		dispatcher:   dispatcher,
	}
}

// RegisterDevice applies a registration event to the user's trust record.
//
//   - No record yet: the device becomes the user's first, trusted and
//     self-licensed. No side effects.
//   - Unknown UDID: the device is added in progress and the user's other
//     devices are notified.
//   - Known UDID that is not trusted: a contract event and a new-device
//     push are raised. A deleted device is additionally moved back to
//     in progress.
//
// Side effects are dispatched asynchronously; their outcome never affects
// the returned error.
func (s *Service) RegisterDevice(ctx context.Context, params RegisterDeviceParams) error {
	record, err := s.trustService.GetRecord(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, trust.ErrRecordNotFound) {
			slog.Info("First device for user", "userID", params.UserID, "udid", params.UDID)
			return s.trustService.CreateUser(ctx, params.UserID, params.UDID, nil)
		}
		return fmt.Errorf("failed to load trust record: %w", err)
	}

	device := record.FindDevice(params.UDID)
	if device == nil {
		if err := s.trustService.AddDevice(ctx, params.UserID, params.UDID, nil); err != nil {
			return fmt.Errorf("failed to add device: %w", err)
		}
		updated, err := s.trustService.GetRecord(ctx, params.UserID)
		if err != nil {
			return fmt.Errorf("failed to reload trust record: %w", err)
		}
		s.scheduleNewDevicePush(params, updated.Devices)
		return nil
	}

	status := device.StatusInfo.Status

	if status != trust.StatusTrusted {
		details, err := s.customers.GetCustomerDetails(ctx, params.UserID)
		if err != nil {
			return fmt.Errorf("failed to get customer details: %w", err)
		}
		s.scheduleContractEvent(details)
		s.scheduleNewDevicePush(params, record.Devices)
	}

	if status == trust.StatusDeleted {
		if err := s.trustService.SetDeviceStatus(ctx, params.UserID, params.UDID, trust.StatusInProgress, ""); err != nil {
			return fmt.Errorf("failed to reactivate device: %w", err)
		}
	}

	return nil
}

func (s *Service) scheduleNewDevicePush(params RegisterDeviceParams, devices []trust.Device) {
	notice := notification.NewDeviceNotice{
		UserID:  params.UserID,
		UDID:    params.UDID,
		Brand:   params.Brand,
		Model:   params.Model,
		Devices: devices,
	}
	s.dispatcher.Enqueue("new-device-push", func(ctx context.Context) error {
		return s.notifier.NotifyNewDeviceRegistered(ctx, notice)
	})
}

func (s *Service) scheduleContractEvent(details customer.Details) {
	s.dispatcher.Enqueue("contract-event", func(ctx context.Context) error {
		return s.contracts.CreateContractEvent(ctx, details.IdentityNumber, details.PhoneNumber)
	})
}
