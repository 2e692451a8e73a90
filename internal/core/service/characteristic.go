package service

import (
	"context"

	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/core/port"
	"github.com/berfenger/purifier2mqtt/pkg/miio"
)

type GetHandler func(ctx context.Context, dev miio.Device) (any, error)
type SetHandler func(ctx context.Context, dev miio.Device, value any) error

// Characteristic is one exposed hub attribute. OnSet is nil for read only
// attributes.
type Characteristic struct {
	Id    string
	OnGet GetHandler
	OnSet SetHandler
}

// CharacteristicTable is the registry of exposed characteristics, in
// exposure order.
type CharacteristicTable struct {
	ids   []string
	chars map[string]Characteristic
}

func NewCharacteristicTable(ctrl port.PurifierControl, expose config.ExposeConfig) *CharacteristicTable {
	t := &CharacteristicTable{
		chars: map[string]Characteristic{},
	}

	t.add(domain.CHAR_ACTIVE,
		func(ctx context.Context, dev miio.Device) (any, error) {
			return ctrl.GetActive(ctx, dev)
		},
		func(ctx context.Context, dev miio.Device, value any) error {
			v, err := enumValue(domain.CHAR_ACTIVE, value, uint8(domain.ACTIVE_ACTIVE))
			if err != nil {
				return err
			}
			return ctrl.SetActive(ctx, dev, domain.Active(v))
		})
	t.add(domain.CHAR_CURRENT_AIR_PURIFIER,
		func(ctx context.Context, dev miio.Device) (any, error) {
			return ctrl.GetCurrentState(ctx, dev)
		}, nil)
	t.add(domain.CHAR_TARGET_AIR_PURIFIER,
		func(ctx context.Context, dev miio.Device) (any, error) {
			return ctrl.GetTargetState(ctx, dev)
		},
		func(ctx context.Context, dev miio.Device, value any) error {
			v, err := enumValue(domain.CHAR_TARGET_AIR_PURIFIER, value, uint8(domain.TARGET_STATE_AUTO))
			if err != nil {
				return err
			}
			return ctrl.SetTargetState(ctx, dev, domain.TargetAirPurifierState(v))
		})
	t.add(domain.CHAR_LOCK_PHYSICAL_CONTROLS,
		func(ctx context.Context, dev miio.Device) (any, error) {
			return ctrl.GetLockPhysicalControls(ctx, dev)
		},
		func(ctx context.Context, dev miio.Device, value any) error {
			v, err := enumValue(domain.CHAR_LOCK_PHYSICAL_CONTROLS, value, uint8(domain.LOCK_CONTROLS_ENABLED))
			if err != nil {
				return err
			}
			return ctrl.SetLockPhysicalControls(ctx, dev, domain.LockPhysicalControls(v))
		})
	t.add(domain.CHAR_ROTATION_SPEED,
		func(ctx context.Context, dev miio.Device) (any, error) {
			return ctrl.GetRotationSpeed(ctx, dev)
		},
		func(ctx context.Context, dev miio.Device, value any) error {
			speed, err := ToInt(value)
			if err != nil {
				return &domain.ValidationError{Characteristic: domain.CHAR_ROTATION_SPEED, Value: value, Reason: err.Error()}
			}
			return ctrl.SetRotationSpeed(ctx, dev, speed)
		})

	if expose.AirQuality {
		t.add(domain.CHAR_AIR_QUALITY,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetAirQuality(ctx, dev)
			}, nil)
		t.add(domain.CHAR_PM2_5_DENSITY,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetPM25(ctx, dev)
			}, nil)
	}
	if expose.Temperature {
		t.add(domain.CHAR_CURRENT_TEMPERATURE,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetTemperature(ctx, dev)
			}, nil)
	}
	if expose.Humidity {
		t.add(domain.CHAR_CURRENT_RELATIVE_HUMIDITY,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetHumidity(ctx, dev)
			}, nil)
	}
	if expose.LED {
		t.add(domain.CHAR_LED,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetLED(ctx, dev)
			},
			func(ctx context.Context, dev miio.Device, value any) error {
				on, err := boolValue(domain.CHAR_LED, value)
				if err != nil {
					return err
				}
				return ctrl.SetLED(ctx, dev, on)
			})
	}
	if expose.Buzzer {
		t.add(domain.CHAR_BUZZER,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetBuzzer(ctx, dev)
			},
			func(ctx context.Context, dev miio.Device, value any) error {
				on, err := boolValue(domain.CHAR_BUZZER, value)
				if err != nil {
					return err
				}
				return ctrl.SetBuzzer(ctx, dev, on)
			})
	}
	if expose.FilterLevel {
		t.add(domain.CHAR_FILTER_CHANGE_INDICATION,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetFilterChangeIndication(ctx, dev)
			}, nil)
		t.add(domain.CHAR_FILTER_LIFE_LEVEL,
			func(ctx context.Context, dev miio.Device) (any, error) {
				return ctrl.GetFilterLifeLevel(ctx, dev)
			}, nil)
	}
	return t
}

func (t *CharacteristicTable) add(id string, get GetHandler, set SetHandler) {
	t.ids = append(t.ids, id)
	t.chars[id] = Characteristic{Id: id, OnGet: get, OnSet: set}
}

func (t *CharacteristicTable) Ids() []string {
	return append([]string(nil), t.ids...)
}

func (t *CharacteristicTable) Lookup(id string) (Characteristic, error) {
	c, ok := t.chars[id]
	if !ok {
		return Characteristic{}, domain.ErrUnknownCharacteristic
	}
	return c, nil
}

func (t *CharacteristicTable) Exposed(id string) bool {
	_, ok := t.chars[id]
	return ok
}

func (t *CharacteristicTable) Get(ctx context.Context, dev miio.Device, id string) (any, error) {
	c, err := t.Lookup(id)
	if err != nil {
		return nil, err
	}
	return c.OnGet(ctx, dev)
}

func (t *CharacteristicTable) Set(ctx context.Context, dev miio.Device, id string, value any) error {
	c, err := t.Lookup(id)
	if err != nil {
		return err
	}
	if c.OnSet == nil {
		return domain.ErrReadOnly
	}
	return c.OnSet(ctx, dev, value)
}

func enumValue(id string, value any, max uint8) (uint8, error) {
	v, err := ToInt(value)
	if err != nil {
		return 0, &domain.ValidationError{Characteristic: id, Value: value, Reason: err.Error()}
	}
	if v < 0 || v > int(max) {
		return 0, &domain.ValidationError{Characteristic: id, Value: value, Reason: "out of range"}
	}
	return uint8(v), nil
}

func boolValue(id string, value any) (bool, error) {
	on, err := ToBool(value)
	if err != nil {
		return false, &domain.ValidationError{Characteristic: id, Value: value, Reason: err.Error()}
	}
	return on, nil
}

// IsExposed reports whether the characteristic is published under expose.
func IsExposed(expose config.ExposeConfig, id string) bool {
	switch id {
	case domain.CHAR_AIR_QUALITY, domain.CHAR_PM2_5_DENSITY:
		return expose.AirQuality
	case domain.CHAR_CURRENT_TEMPERATURE:
		return expose.Temperature
	case domain.CHAR_CURRENT_RELATIVE_HUMIDITY:
		return expose.Humidity
	case domain.CHAR_LED:
		return expose.LED
	case domain.CHAR_BUZZER:
		return expose.Buzzer
	case domain.CHAR_FILTER_CHANGE_INDICATION, domain.CHAR_FILTER_LIFE_LEVEL:
		return expose.FilterLevel
	}
	return true
}

// ExposedPublisher drops characteristic updates that are not exposed.
type ExposedPublisher struct {
	next   port.StatePublisher
	expose config.ExposeConfig
}

func NewExposedPublisher(next port.StatePublisher, expose config.ExposeConfig) *ExposedPublisher {
	return &ExposedPublisher{
		next:   next,
		expose: expose,
	}
}

func (p *ExposedPublisher) Publish(evt interface{}) {
	if update, ok := evt.(domain.CharacteristicUpdateEvent); ok && !IsExposed(p.expose, update.Id) {
		return
	}
	p.next.Publish(evt)
}

// ensure interface compliance
var _ port.StatePublisher = (*ExposedPublisher)(nil)
