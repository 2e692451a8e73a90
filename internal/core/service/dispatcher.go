package service

import (
	"context"
	"fmt"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/core/port"
	"github.com/berfenger/purifier2mqtt/pkg/miio"

	"go.uber.org/zap"
)

// CommandDispatcher executes hub requests against a bound device. Successful
// sets update the StateCache optimistically; the cache is not reconciled
// against a later read.
type CommandDispatcher struct {
	Cache  *StateCache
	Logger *zap.Logger
}

func NewCommandDispatcher(cache *StateCache, logger *zap.Logger) *CommandDispatcher {
	return &CommandDispatcher{
		Cache:  cache,
		Logger: logger,
	}
}

func (d *CommandDispatcher) SetActive(ctx context.Context, dev miio.Device, state domain.Active) error {
	if state != domain.ACTIVE_ACTIVE && state != domain.ACTIVE_INACTIVE {
		return &domain.ValidationError{Characteristic: domain.CHAR_ACTIVE, Value: state, Reason: "must be 0 or 1"}
	}
	d.Logger.Debug(fmt.Sprintf("dispatcher: set active %d", state))
	if err := dev.SetPower(ctx, state == domain.ACTIVE_ACTIVE); err != nil {
		return &domain.DeviceCallError{Op: "setting active state", Err: err}
	}
	if state == domain.ACTIVE_INACTIVE {
		d.Cache.SetMode(miio.MODE_IDLE)
	} else if mode := d.Cache.Mode(); mode == "" || mode == miio.MODE_IDLE {
		d.Cache.SetMode(miio.MODE_AUTO)
	}
	return nil
}

func (d *CommandDispatcher) SetTargetState(ctx context.Context, dev miio.Device, state domain.TargetAirPurifierState) error {
	if state != domain.TARGET_STATE_AUTO && state != domain.TARGET_STATE_MANUAL {
		return &domain.ValidationError{Characteristic: domain.CHAR_TARGET_AIR_PURIFIER, Value: state, Reason: "must be 0 or 1"}
	}
	mode := ModeFromTargetState(state)
	d.Logger.Debug("dispatcher: set target state", zap.String("mode", mode))
	if err := dev.SetMode(ctx, mode); err != nil {
		return &domain.DeviceCallError{Op: "setting target air purifier state", Err: err}
	}
	d.Cache.SetMode(mode)
	return nil
}

// SetLockPhysicalControls goes through the raw command channel. The device
// acknowledges with the literal "ok"; anything else is a failure.
func (d *CommandDispatcher) SetLockPhysicalControls(ctx context.Context, dev miio.Device, state domain.LockPhysicalControls) error {
	if state != domain.LOCK_CONTROLS_ENABLED && state != domain.LOCK_CONTROLS_DISABLED {
		return &domain.ValidationError{Characteristic: domain.CHAR_LOCK_PHYSICAL_CONTROLS, Value: state, Reason: "must be 0 or 1"}
	}
	raw := RawFromLock(state)
	d.Logger.Debug("dispatcher: set child lock", zap.String("value", raw))
	result, err := dev.Call(ctx, miio.METHOD_SET_CHILD_LOCK, []any{raw})
	if err != nil {
		return &domain.DeviceCallError{Op: "setting physical control lock", Err: err}
	}
	if len(result) == 0 || result[0] != miio.RESULT_OK {
		return &domain.DeviceCallError{Op: "setting physical control lock", Err: domain.ErrUnexpectedResponse}
	}
	d.Cache.SetChildLock(state == domain.LOCK_CONTROLS_ENABLED)
	return nil
}

// SetRotationSpeed switches the device to favorite mode first when needed,
// since the favorite level only applies in that mode.
func (d *CommandDispatcher) SetRotationSpeed(ctx context.Context, dev miio.Device, speed int) error {
	if speed < 0 || speed > 100 {
		return &domain.ValidationError{Characteristic: domain.CHAR_ROTATION_SPEED, Value: speed, Reason: "must be within 0 and 100"}
	}
	if d.Cache.Mode() != miio.MODE_FAVORITE {
		if err := dev.SetMode(ctx, miio.MODE_FAVORITE); err != nil {
			return &domain.DeviceCallError{Op: "overriding mode", Err: err}
		}
		d.Cache.SetMode(miio.MODE_FAVORITE)
	}
	level := LevelFromSpeed(speed)
	d.Logger.Debug(fmt.Sprintf("dispatcher: set rotation speed %d (level %d)", speed, level))
	if err := dev.SetFavoriteLevel(ctx, level); err != nil {
		return &domain.DeviceCallError{Op: "setting rotation speed", Err: err}
	}
	d.Cache.SetFavoriteLevel(level)
	return nil
}

func (d *CommandDispatcher) SetLED(ctx context.Context, dev miio.Device, on bool) error {
	d.Logger.Debug(fmt.Sprintf("dispatcher: set led %t", on))
	if err := dev.SetLED(ctx, on); err != nil {
		return &domain.DeviceCallError{Op: "setting LED state", Err: err}
	}
	d.Cache.SetLED(on)
	return nil
}

func (d *CommandDispatcher) SetBuzzer(ctx context.Context, dev miio.Device, on bool) error {
	d.Logger.Debug(fmt.Sprintf("dispatcher: set buzzer %t", on))
	if err := dev.SetBuzzer(ctx, on); err != nil {
		return &domain.DeviceCallError{Op: "setting buzzer state", Err: err}
	}
	d.Cache.SetBuzzer(on)
	return nil
}

// mode derived values

func (d *CommandDispatcher) GetActive(ctx context.Context, dev miio.Device) (domain.Active, error) {
	return ActiveFromMode(d.Cache.Mode()), nil
}

func (d *CommandDispatcher) GetCurrentState(ctx context.Context, dev miio.Device) (domain.CurrentAirPurifierState, error) {
	return CurrentStateFromMode(d.Cache.Mode()), nil
}

func (d *CommandDispatcher) GetTargetState(ctx context.Context, dev miio.Device) (domain.TargetAirPurifierState, error) {
	return TargetStateFromMode(d.Cache.Mode()), nil
}

func (d *CommandDispatcher) GetLockPhysicalControls(ctx context.Context, dev miio.Device) (domain.LockPhysicalControls, error) {
	result, err := dev.Call(ctx, miio.METHOD_GET_PROP, []any{miio.RAW_PROP_CHILD_LOCK})
	if err != nil {
		return domain.LOCK_CONTROLS_DISABLED, &domain.DeviceCallError{Op: "getting physical controls state", Err: err}
	}
	if len(result) == 0 {
		return domain.LOCK_CONTROLS_DISABLED, &domain.DeviceCallError{Op: "getting physical controls state", Err: domain.ErrUnexpectedResponse}
	}
	return LockFromRaw(result[0]), nil
}

func (d *CommandDispatcher) GetRotationSpeed(ctx context.Context, dev miio.Device) (int, error) {
	level, err := dev.FavoriteLevel(ctx)
	if err != nil {
		return 0, &domain.DeviceCallError{Op: "getting rotation speed", Err: err}
	}
	return SpeedFromLevel(level), nil
}

// GetAirQuality reads UNKNOWN until the first PM2.5 value arrives.
func (d *CommandDispatcher) GetAirQuality(ctx context.Context, dev miio.Device) (domain.AirQuality, error) {
	attrs := d.Cache.Attributes()
	if attrs.PM25 == nil {
		return domain.AIR_QUALITY_UNKNOWN, nil
	}
	return AirQualityFromPM25(*attrs.PM25), nil
}

func (d *CommandDispatcher) GetPM25(ctx context.Context, dev miio.Device) (float64, error) {
	attrs := d.Cache.Attributes()
	if attrs.PM25 == nil {
		return 0, domain.ErrPropertyUnavailable
	}
	return *attrs.PM25, nil
}

func (d *CommandDispatcher) GetTemperature(ctx context.Context, dev miio.Device) (float64, error) {
	attrs := d.Cache.Attributes()
	if attrs.Temperature == nil {
		return 0, domain.ErrPropertyUnavailable
	}
	return *attrs.Temperature, nil
}

func (d *CommandDispatcher) GetHumidity(ctx context.Context, dev miio.Device) (int, error) {
	attrs := d.Cache.Attributes()
	if attrs.Humidity == nil {
		return 0, domain.ErrPropertyUnavailable
	}
	return *attrs.Humidity, nil
}

func (d *CommandDispatcher) GetLED(ctx context.Context, dev miio.Device) (bool, error) {
	on, err := dev.LED(ctx)
	if err != nil {
		return false, &domain.DeviceCallError{Op: "getting LED state", Err: err}
	}
	return on, nil
}

func (d *CommandDispatcher) GetBuzzer(ctx context.Context, dev miio.Device) (bool, error) {
	on, err := dev.Buzzer(ctx)
	if err != nil {
		return false, &domain.DeviceCallError{Op: "getting buzzer state", Err: err}
	}
	return on, nil
}

func (d *CommandDispatcher) GetFilterLifeLevel(ctx context.Context, dev miio.Device) (int, error) {
	value := dev.Property(miio.PROP_FILTER_LIFE_REMAINING)
	if value == nil {
		return 0, &domain.DeviceCallError{Op: "getting filter life level", Err: domain.ErrPropertyUnavailable}
	}
	level, err := ToInt(value)
	if err != nil {
		return 0, &domain.DeviceCallError{Op: "getting filter life level", Err: err}
	}
	return level, nil
}

func (d *CommandDispatcher) GetFilterChangeIndication(ctx context.Context, dev miio.Device) (domain.FilterChangeIndication, error) {
	level, err := d.GetFilterLifeLevel(ctx, dev)
	if err != nil {
		return domain.FILTER_OK, err
	}
	return FilterChangeFromLife(level), nil
}

// Identify beeps the device by cycling the buzzer. Failures are only logged.
func (d *CommandDispatcher) Identify(ctx context.Context, dev miio.Device) error {
	if err := d.SetBuzzer(ctx, dev, false); err != nil {
		d.Logger.Debug("dispatcher: error running identification procedure", zap.Error(err))
		return nil
	}
	if err := d.SetBuzzer(ctx, dev, true); err != nil {
		d.Logger.Debug("dispatcher: error running identification procedure", zap.Error(err))
	}
	return nil
}

// ensure interface compliance
var _ port.PurifierControl = (*CommandDispatcher)(nil)
