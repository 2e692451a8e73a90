package miio

import (
	"context"
	"fmt"
)

const (
	CLASS_AIR_PURIFIER = "type:air-purifier"

	MODE_IDLE     = "idle"
	MODE_AUTO     = "auto"
	MODE_FAVORITE = "favorite"
	MODE_SILENT   = "silent"

	PROP_POWER                 = "power"
	PROP_MODE                  = "mode"
	PROP_TEMPERATURE           = "temperature"
	PROP_HUMIDITY              = "humidity"
	PROP_AQI                   = "aqi"
	PROP_LED                   = "led"
	PROP_BUZZER                = "buzzer"
	PROP_FAVORITE_LEVEL        = "favoriteLevel"
	PROP_FILTER_LIFE_REMAINING = "filterLifeRemaining"

	// raw property names understood by get_prop
	RAW_PROP_CHILD_LOCK = "child_lock"

	METHOD_GET_PROP       = "get_prop"
	METHOD_SET_CHILD_LOCK = "set_child_lock"

	RESULT_OK  = "ok"
	RESULT_ON  = "on"
	RESULT_OFF = "off"

	MIN_FAVORITE_LEVEL = 0
	MAX_FAVORITE_LEVEL = 16
)

type EventKind string

const (
	EVENT_MODE_CHANGED        EventKind = "modeChanged"
	EVENT_PM25_CHANGED        EventKind = "pm2.5Changed"
	EVENT_TEMPERATURE_CHANGED EventKind = "temperatureChanged"
	EVENT_HUMIDITY_CHANGED    EventKind = "relativeHumidityChanged"
)

// Device is a capability-typed connection to one physical appliance.
//
// Event handlers registered with Subscribe run on the device notification
// goroutine. Events of one kind are delivered in order; no ordering is
// guaranteed across kinds.
type Device interface {
	Model() string
	Matches(class string) bool

	// Property returns the last value the transport observed for name, or nil.
	Property(name string) any

	SetPower(ctx context.Context, on bool) error
	SetMode(ctx context.Context, mode string) error
	FavoriteLevel(ctx context.Context) (int, error)
	SetFavoriteLevel(ctx context.Context, level int) error
	LED(ctx context.Context) (bool, error)
	SetLED(ctx context.Context, on bool) error
	Buzzer(ctx context.Context) (bool, error)
	SetBuzzer(ctx context.Context, on bool) error

	// Call is the raw command channel for methods without a typed accessor.
	Call(ctx context.Context, method string, args []any) ([]any, error)

	Subscribe(kind EventKind, handler func(value any)) Subscription
	Close() error
}

type Subscription interface {
	Unsubscribe()
}

// Connector opens a device handle. It fails when the device is unreachable
// or rejects the token.
type Connector interface {
	Connect(ctx context.Context, address string, token string) (Device, error)
}

type ConnectorFunc func(ctx context.Context, address string, token string) (Device, error)

func (f ConnectorFunc) Connect(ctx context.Context, address string, token string) (Device, error) {
	return f(ctx, address, token)
}

type CallError struct {
	Method string
	Code   int
	Msg    string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("miio: %s failed (%d): %s", e.Method, e.Code, e.Msg)
}
