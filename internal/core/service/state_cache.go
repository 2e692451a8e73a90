package service

import (
	"sync"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/core/port"
)

// StateCache holds the last observed device attributes. Writers replace one
// field at a time and publish the derived hub values while still holding the
// mutex, so the published order matches the write order. Publishers must not
// call back into the cache.
type StateCache struct {
	mu        sync.RWMutex
	attrs     domain.DeviceAttributes
	publisher port.StatePublisher
}

func NewStateCache(publisher port.StatePublisher) *StateCache {
	return &StateCache{
		publisher: publisher,
	}
}

func (c *StateCache) Attributes() domain.DeviceAttributes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.DeviceAttributes{
		Mode:                copyPtr(c.attrs.Mode),
		FavoriteLevel:       copyPtr(c.attrs.FavoriteLevel),
		Temperature:         copyPtr(c.attrs.Temperature),
		Humidity:            copyPtr(c.attrs.Humidity),
		PM25:                copyPtr(c.attrs.PM25),
		LEDOn:               copyPtr(c.attrs.LEDOn),
		BuzzerOn:            copyPtr(c.attrs.BuzzerOn),
		ChildLockOn:         copyPtr(c.attrs.ChildLockOn),
		FilterLifeRemaining: copyPtr(c.attrs.FilterLifeRemaining),
	}
}

// Mode returns the cached mode, or "" when unknown.
func (c *StateCache) Mode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.attrs.Mode == nil {
		return ""
	}
	return *c.attrs.Mode
}

func (c *StateCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs = domain.DeviceAttributes{}
}

// Load replaces every attribute without publishing. Callers publish the
// snapshot themselves once the device is bound.
func (c *StateCache) Load(attrs domain.DeviceAttributes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs = domain.DeviceAttributes{
		Mode:                copyPtr(attrs.Mode),
		FavoriteLevel:       copyPtr(attrs.FavoriteLevel),
		Temperature:         copyPtr(attrs.Temperature),
		Humidity:            copyPtr(attrs.Humidity),
		PM25:                copyPtr(attrs.PM25),
		LEDOn:               copyPtr(attrs.LEDOn),
		BuzzerOn:            copyPtr(attrs.BuzzerOn),
		ChildLockOn:         copyPtr(attrs.ChildLockOn),
		FilterLifeRemaining: copyPtr(attrs.FilterLifeRemaining),
	}
}

func (c *StateCache) SetMode(mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.Mode = &mode

	c.publish(domain.CHAR_ACTIVE, ActiveFromMode(mode))
	c.publish(domain.CHAR_CURRENT_AIR_PURIFIER, CurrentStateFromMode(mode))
	c.publish(domain.CHAR_TARGET_AIR_PURIFIER, TargetStateFromMode(mode))
}

func (c *StateCache) SetFavoriteLevel(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.FavoriteLevel = &level

	c.publish(domain.CHAR_ROTATION_SPEED, SpeedFromLevel(level))
}

func (c *StateCache) SetTemperature(value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.Temperature = &value

	c.publish(domain.CHAR_CURRENT_TEMPERATURE, value)
}

func (c *StateCache) SetHumidity(value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.Humidity = &value

	c.publish(domain.CHAR_CURRENT_RELATIVE_HUMIDITY, value)
}

func (c *StateCache) SetPM25(value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.PM25 = &value

	c.publish(domain.CHAR_PM2_5_DENSITY, value)
	c.publish(domain.CHAR_AIR_QUALITY, AirQualityFromPM25(value))
}

func (c *StateCache) SetLED(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.LEDOn = &on

	c.publish(domain.CHAR_LED, on)
}

func (c *StateCache) SetBuzzer(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.BuzzerOn = &on

	c.publish(domain.CHAR_BUZZER, on)
}

func (c *StateCache) SetChildLock(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.ChildLockOn = &on

	lock := domain.LOCK_CONTROLS_DISABLED
	if on {
		lock = domain.LOCK_CONTROLS_ENABLED
	}
	c.publish(domain.CHAR_LOCK_PHYSICAL_CONTROLS, lock)
}

func (c *StateCache) SetFilterLife(value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs.FilterLifeRemaining = &value

	c.publish(domain.CHAR_FILTER_LIFE_LEVEL, value)
	c.publish(domain.CHAR_FILTER_CHANGE_INDICATION, FilterChangeFromLife(value))
}

func (c *StateCache) publish(id string, value any) {
	if c.publisher != nil {
		c.publisher.Publish(domain.NewCharacteristicUpdate(id, value))
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
