package miio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SimulatedConnector hands out SimulatedDevice handles. It can be told to
// fail the first connection attempts and to present a foreign device class.
type SimulatedConnector struct {
	Model        string
	Class        string
	FailFirst    int
	ConnectDelay time.Duration
	// Device is returned by every successful Connect when set
	Device *SimulatedDevice

	attempts atomic.Int64
}

func (c *SimulatedConnector) Connect(ctx context.Context, address string, token string) (Device, error) {
	n := c.attempts.Add(1)
	if c.ConnectDelay > 0 {
		select {
		case <-time.After(c.ConnectDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= int64(c.FailFirst) {
		return nil, fmt.Errorf("miio: no response from %s (attempt %d)", address, n)
	}
	if token == "" {
		return nil, errors.New("miio: missing token")
	}
	if c.Device != nil {
		return c.Device, nil
	}
	model := c.Model
	if model == "" {
		model = "zhimi.airpurifier.mb3"
	}
	dev := NewSimulatedDevice(model)
	if c.Class != "" {
		dev.class = c.Class
	}
	return dev, nil
}

func (c *SimulatedConnector) Attempts() int {
	return int(c.attempts.Load())
}

type simEvent struct {
	kind  EventKind
	value any
}

type simSubscription struct {
	device *SimulatedDevice
	kind   EventKind
	id     int
}

func (s simSubscription) Unsubscribe() {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	delete(s.device.handlers[s.kind], s.id)
}

// SimulatedDevice keeps the purifier state in memory. Successful mode
// changes emit EVENT_MODE_CHANGED the way the real device reports them.
type SimulatedDevice struct {
	model string
	class string

	mu       sync.Mutex
	props    map[string]any
	handlers map[EventKind]map[int]func(any)
	nextId   int
	calls    []string
	failures map[string]error
	lockResp string

	events chan simEvent
	done   chan struct{}
	once   sync.Once
}

func NewSimulatedDevice(model string) *SimulatedDevice {
	dev := &SimulatedDevice{
		model: model,
		class: CLASS_AIR_PURIFIER,
		props: map[string]any{
			PROP_POWER:                 true,
			PROP_MODE:                  MODE_AUTO,
			PROP_TEMPERATURE:           "21.5",
			PROP_HUMIDITY:              45,
			PROP_AQI:                   12.0,
			PROP_LED:                   true,
			PROP_BUZZER:                false,
			PROP_FAVORITE_LEVEL:        4,
			PROP_FILTER_LIFE_REMAINING: 80,
			RAW_PROP_CHILD_LOCK:        RESULT_OFF,
		},
		handlers: map[EventKind]map[int]func(any){},
		failures: map[string]error{},
		lockResp: RESULT_OK,
		events:   make(chan simEvent, 64),
		done:     make(chan struct{}),
	}
	go dev.notify()
	return dev
}

func (d *SimulatedDevice) notify() {
	for {
		select {
		case ev := <-d.events:
			d.mu.Lock()
			var hs []func(any)
			for _, h := range d.handlers[ev.kind] {
				hs = append(hs, h)
			}
			d.mu.Unlock()
			for _, h := range hs {
				h(ev.value)
			}
		case <-d.done:
			return
		}
	}
}

func (d *SimulatedDevice) Model() string {
	return d.model
}

func (d *SimulatedDevice) Matches(class string) bool {
	return d.class == class
}

func (d *SimulatedDevice) Property(name string) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.props[name]
}

func (d *SimulatedDevice) SetPower(ctx context.Context, on bool) error {
	if err := d.record(fmt.Sprintf("set_power:%t", on)); err != nil {
		return err
	}
	d.mu.Lock()
	d.props[PROP_POWER] = on
	mode := MODE_IDLE
	if on {
		mode = MODE_AUTO
	}
	d.props[PROP_MODE] = mode
	d.mu.Unlock()
	d.Emit(EVENT_MODE_CHANGED, mode)
	return nil
}

func (d *SimulatedDevice) SetMode(ctx context.Context, mode string) error {
	if err := d.record("set_mode:" + mode); err != nil {
		return err
	}
	d.mu.Lock()
	d.props[PROP_MODE] = mode
	d.props[PROP_POWER] = mode != MODE_IDLE
	d.mu.Unlock()
	d.Emit(EVENT_MODE_CHANGED, mode)
	return nil
}

func (d *SimulatedDevice) FavoriteLevel(ctx context.Context) (int, error) {
	if err := d.record("favorite_level"); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	level, _ := d.props[PROP_FAVORITE_LEVEL].(int)
	return level, nil
}

func (d *SimulatedDevice) SetFavoriteLevel(ctx context.Context, level int) error {
	if err := d.record(fmt.Sprintf("set_level_favorite:%d", level)); err != nil {
		return err
	}
	if level < MIN_FAVORITE_LEVEL || level > MAX_FAVORITE_LEVEL {
		return &CallError{Method: "set_level_favorite", Code: -5001, Msg: "invalid_arg"}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props[PROP_FAVORITE_LEVEL] = level
	return nil
}

func (d *SimulatedDevice) LED(ctx context.Context) (bool, error) {
	return d.boolProp("led", PROP_LED)
}

func (d *SimulatedDevice) SetLED(ctx context.Context, on bool) error {
	return d.setBoolProp(fmt.Sprintf("set_led:%t", on), PROP_LED, on)
}

func (d *SimulatedDevice) Buzzer(ctx context.Context) (bool, error) {
	return d.boolProp("buzzer", PROP_BUZZER)
}

func (d *SimulatedDevice) SetBuzzer(ctx context.Context, on bool) error {
	return d.setBoolProp(fmt.Sprintf("set_buzzer:%t", on), PROP_BUZZER, on)
}

func (d *SimulatedDevice) Call(ctx context.Context, method string, args []any) ([]any, error) {
	if err := d.record(fmt.Sprintf("%s:%v", method, args)); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch method {
	case METHOD_GET_PROP:
		result := make([]any, 0, len(args))
		for _, a := range args {
			name, _ := a.(string)
			result = append(result, d.props[name])
		}
		return result, nil
	case METHOD_SET_CHILD_LOCK:
		if len(args) != 1 {
			return nil, &CallError{Method: method, Code: -5001, Msg: "invalid_arg"}
		}
		if d.lockResp == RESULT_OK {
			d.props[RAW_PROP_CHILD_LOCK] = args[0]
		}
		return []any{d.lockResp}, nil
	}
	return nil, &CallError{Method: method, Code: -32601, Msg: "method not found"}
}

func (d *SimulatedDevice) Subscribe(kind EventKind, handler func(value any)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers[kind] == nil {
		d.handlers[kind] = map[int]func(any){}
	}
	d.nextId++
	d.handlers[kind][d.nextId] = handler
	return simSubscription{device: d, kind: kind, id: d.nextId}
}

// Subscribers returns the number of live handlers for kind.
func (d *SimulatedDevice) Subscribers(kind EventKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers[kind])
}

func (d *SimulatedDevice) Close() error {
	d.once.Do(func() {
		close(d.done)
	})
	return nil
}

func (d *SimulatedDevice) Closed() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Emit queues a device-initiated change notification.
func (d *SimulatedDevice) Emit(kind EventKind, value any) {
	select {
	case d.events <- simEvent{kind: kind, value: value}:
	case <-d.done:
	}
}

// SimulateReading updates the environment sensors and notifies subscribers.
func (d *SimulatedDevice) SimulateReading(pm25 float64, temperature float64, humidity int) {
	d.mu.Lock()
	d.props[PROP_AQI] = pm25
	d.props[PROP_TEMPERATURE] = fmt.Sprintf("%.1f", temperature)
	d.props[PROP_HUMIDITY] = humidity
	d.mu.Unlock()
	d.Emit(EVENT_PM25_CHANGED, pm25)
	d.Emit(EVENT_TEMPERATURE_CHANGED, fmt.Sprintf("%.1f", temperature))
	d.Emit(EVENT_HUMIDITY_CHANGED, humidity)
}

// FailOn makes every later call whose recorded name starts with prefix fail with err.
func (d *SimulatedDevice) FailOn(prefix string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[prefix] = err
}

// SetChildLockResponse overrides the literal set_child_lock answer.
func (d *SimulatedDevice) SetChildLockResponse(resp string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lockResp = resp
}

func (d *SimulatedDevice) SetProperty(name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props[name] = value
}

// Calls returns the commands issued so far, in order.
func (d *SimulatedDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *SimulatedDevice) record(call string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	for prefix, err := range d.failures {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			return err
		}
	}
	return nil
}

func (d *SimulatedDevice) boolProp(call string, name string) (bool, error) {
	if err := d.record(call); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, _ := d.props[name].(bool)
	return v, nil
}

func (d *SimulatedDevice) setBoolProp(call string, name string, on bool) error {
	if err := d.record(call); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props[name] = on
	return nil
}

// ensure interface compliance
var _ Device = (*SimulatedDevice)(nil)
var _ Connector = (*SimulatedConnector)(nil)
