package service

import (
	"context"

	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/pkg/miio"

	"go.uber.org/zap"
)

// FetchInitialState loads the properties the device reported at connection
// time into the cache. Missing or malformed properties stay unknown.
func FetchInitialState(ctx context.Context, dev miio.Device, cache *StateCache, logger *zap.Logger) {
	if mode, ok := dev.Property(miio.PROP_MODE).(string); ok {
		cache.SetMode(mode)
	}
	if v := dev.Property(miio.PROP_FAVORITE_LEVEL); v != nil {
		if level, err := ToInt(v); err == nil {
			cache.SetFavoriteLevel(level)
		}
	}
	if v := dev.Property(miio.PROP_TEMPERATURE); v != nil {
		if temp, err := ToFloat(v); err == nil {
			cache.SetTemperature(temp)
		}
	}
	if v := dev.Property(miio.PROP_HUMIDITY); v != nil {
		if hum, err := ToInt(v); err == nil {
			cache.SetHumidity(hum)
		}
	}
	if v := dev.Property(miio.PROP_AQI); v != nil {
		if pm25, err := ToFloat(v); err == nil {
			cache.SetPM25(pm25)
		}
	}
	if on, ok := deviceBool(dev.Property(miio.PROP_LED)); ok {
		cache.SetLED(on)
	}
	if on, ok := deviceBool(dev.Property(miio.PROP_BUZZER)); ok {
		cache.SetBuzzer(on)
	}
	if v := dev.Property(miio.PROP_FILTER_LIFE_REMAINING); v != nil {
		if life, err := ToInt(v); err == nil {
			cache.SetFilterLife(life)
		}
	}
	result, err := dev.Call(ctx, miio.METHOD_GET_PROP, []any{miio.RAW_PROP_CHILD_LOCK})
	if err != nil || len(result) == 0 {
		logger.Warn("device: could not read child lock state", zap.Error(err))
		return
	}
	if on, ok := deviceBool(result[0]); ok {
		cache.SetChildLock(on)
	}
}

// SubscribeEvents wires device change notifications into the cache. The mode
// subscription is always registered; the sensors follow their exposure flag.
func SubscribeEvents(dev miio.Device, cache *StateCache, expose config.ExposeConfig, logger *zap.Logger) []miio.Subscription {
	subs := []miio.Subscription{
		dev.Subscribe(miio.EVENT_MODE_CHANGED, func(value any) {
			mode, ok := value.(string)
			if !ok {
				logger.Warn("device: unexpected mode value", zap.Any("value", value))
				return
			}
			logger.Debug("device: mode changed", zap.String("mode", mode))
			cache.SetMode(mode)
		}),
	}
	if expose.AirQuality {
		subs = append(subs, dev.Subscribe(miio.EVENT_PM25_CHANGED, func(value any) {
			pm25, err := ToFloat(value)
			if err != nil {
				logger.Warn("device: unexpected pm2.5 value", zap.Any("value", value))
				return
			}
			cache.SetPM25(pm25)
		}))
	}
	if expose.Temperature {
		subs = append(subs, dev.Subscribe(miio.EVENT_TEMPERATURE_CHANGED, func(value any) {
			temp, err := ToFloat(value)
			if err != nil {
				logger.Warn("device: unexpected temperature value", zap.Any("value", value))
				return
			}
			cache.SetTemperature(temp)
		}))
	}
	if expose.Humidity {
		subs = append(subs, dev.Subscribe(miio.EVENT_HUMIDITY_CHANGED, func(value any) {
			hum, err := ToInt(value)
			if err != nil {
				logger.Warn("device: unexpected humidity value", zap.Any("value", value))
				return
			}
			cache.SetHumidity(hum)
		}))
	}
	return subs
}
