package port

import (
	"context"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/pkg/miio"
)

// PurifierControl executes hub requests against a bound device.
type PurifierControl interface {
	SetActive(ctx context.Context, dev miio.Device, state domain.Active) error
	SetTargetState(ctx context.Context, dev miio.Device, state domain.TargetAirPurifierState) error
	SetLockPhysicalControls(ctx context.Context, dev miio.Device, state domain.LockPhysicalControls) error
	SetRotationSpeed(ctx context.Context, dev miio.Device, speed int) error
	SetLED(ctx context.Context, dev miio.Device, on bool) error
	SetBuzzer(ctx context.Context, dev miio.Device, on bool) error

	GetActive(ctx context.Context, dev miio.Device) (domain.Active, error)
	GetCurrentState(ctx context.Context, dev miio.Device) (domain.CurrentAirPurifierState, error)
	GetTargetState(ctx context.Context, dev miio.Device) (domain.TargetAirPurifierState, error)
	GetLockPhysicalControls(ctx context.Context, dev miio.Device) (domain.LockPhysicalControls, error)
	GetRotationSpeed(ctx context.Context, dev miio.Device) (int, error)
	GetAirQuality(ctx context.Context, dev miio.Device) (domain.AirQuality, error)
	GetPM25(ctx context.Context, dev miio.Device) (float64, error)
	GetTemperature(ctx context.Context, dev miio.Device) (float64, error)
	GetHumidity(ctx context.Context, dev miio.Device) (int, error)
	GetLED(ctx context.Context, dev miio.Device) (bool, error)
	GetBuzzer(ctx context.Context, dev miio.Device) (bool, error)
	GetFilterLifeLevel(ctx context.Context, dev miio.Device) (int, error)
	GetFilterChangeIndication(ctx context.Context, dev miio.Device) (domain.FilterChangeIndication, error)

	Identify(ctx context.Context, dev miio.Device) error
}

// StatePublisher receives derived characteristic updates.
type StatePublisher interface {
	Publish(evt interface{})
}
