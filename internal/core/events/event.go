package events

import (
	. "github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/core/service"
)

// AttributesToUpdateEvents converts a cache snapshot into the update events
// of every exposed characteristic with a known value.
func AttributesToUpdateEvents(attrs DeviceAttributes, table *service.CharacteristicTable) []any {
	var events []any

	add := func(id string, value any) {
		if table == nil || table.Exposed(id) {
			events = append(events, NewCharacteristicUpdate(id, value))
		}
	}

	// mode derived states
	if attrs.Mode != nil {
		add(CHAR_ACTIVE, service.ActiveFromMode(*attrs.Mode))
		add(CHAR_CURRENT_AIR_PURIFIER, service.CurrentStateFromMode(*attrs.Mode))
		add(CHAR_TARGET_AIR_PURIFIER, service.TargetStateFromMode(*attrs.Mode))
	}
	if attrs.FavoriteLevel != nil {
		add(CHAR_ROTATION_SPEED, service.SpeedFromLevel(*attrs.FavoriteLevel))
	}
	if attrs.ChildLockOn != nil {
		lock := LOCK_CONTROLS_DISABLED
		if *attrs.ChildLockOn {
			lock = LOCK_CONTROLS_ENABLED
		}
		add(CHAR_LOCK_PHYSICAL_CONTROLS, lock)
	}
	// sensors
	if attrs.PM25 != nil {
		add(CHAR_PM2_5_DENSITY, *attrs.PM25)
		add(CHAR_AIR_QUALITY, service.AirQualityFromPM25(*attrs.PM25))
	}
	if attrs.Temperature != nil {
		add(CHAR_CURRENT_TEMPERATURE, *attrs.Temperature)
	}
	if attrs.Humidity != nil {
		add(CHAR_CURRENT_RELATIVE_HUMIDITY, *attrs.Humidity)
	}
	if attrs.LEDOn != nil {
		add(CHAR_LED, *attrs.LEDOn)
	}
	if attrs.BuzzerOn != nil {
		add(CHAR_BUZZER, *attrs.BuzzerOn)
	}
	if attrs.FilterLifeRemaining != nil {
		add(CHAR_FILTER_LIFE_LEVEL, *attrs.FilterLifeRemaining)
		add(CHAR_FILTER_CHANGE_INDICATION, service.FilterChangeFromLife(*attrs.FilterLifeRemaining))
	}

	return events
}

func NewConnectionStateUpdate(state ConnectionState) ConnectionStateUpdateEvent {
	return ConnectionStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CONNECTION_STATE,
		},
		State: state,
	}
}

func NewBridgeStateUpdate(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
