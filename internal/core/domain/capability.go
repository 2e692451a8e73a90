package domain

// Characteristic ids exposed on the capability boundary.
const (
	CHAR_ACTIVE                    = "active"
	CHAR_CURRENT_AIR_PURIFIER      = "current_air_purifier_state"
	CHAR_TARGET_AIR_PURIFIER       = "target_air_purifier_state"
	CHAR_LOCK_PHYSICAL_CONTROLS    = "lock_physical_controls"
	CHAR_ROTATION_SPEED            = "rotation_speed"
	CHAR_AIR_QUALITY               = "air_quality"
	CHAR_PM2_5_DENSITY             = "pm2_5_density"
	CHAR_CURRENT_TEMPERATURE       = "current_temperature"
	CHAR_CURRENT_RELATIVE_HUMIDITY = "current_relative_humidity"
	CHAR_LED                       = "led"
	CHAR_BUZZER                    = "buzzer"
	CHAR_FILTER_CHANGE_INDICATION  = "filter_change_indication"
	CHAR_FILTER_LIFE_LEVEL         = "filter_life_level"
)

// Hub values follow the HomeKit characteristic encoding.

type Active uint8

const (
	ACTIVE_INACTIVE Active = 0
	ACTIVE_ACTIVE   Active = 1
)

type CurrentAirPurifierState uint8

const (
	CURRENT_STATE_INACTIVE      CurrentAirPurifierState = 0
	CURRENT_STATE_IDLE          CurrentAirPurifierState = 1
	CURRENT_STATE_PURIFYING_AIR CurrentAirPurifierState = 2
)

func (s CurrentAirPurifierState) String() string {
	switch s {
	case CURRENT_STATE_IDLE:
		return "idle"
	case CURRENT_STATE_PURIFYING_AIR:
		return "purifying"
	default:
		return "inactive"
	}
}

type TargetAirPurifierState uint8

const (
	TARGET_STATE_MANUAL TargetAirPurifierState = 0
	TARGET_STATE_AUTO   TargetAirPurifierState = 1
)

func (s TargetAirPurifierState) String() string {
	if s == TARGET_STATE_MANUAL {
		return "manual"
	}
	return "auto"
}

type LockPhysicalControls uint8

const (
	LOCK_CONTROLS_DISABLED LockPhysicalControls = 0
	LOCK_CONTROLS_ENABLED  LockPhysicalControls = 1
)

type AirQuality uint8

const (
	AIR_QUALITY_UNKNOWN   AirQuality = 0
	AIR_QUALITY_EXCELLENT AirQuality = 1
	AIR_QUALITY_GOOD      AirQuality = 2
	AIR_QUALITY_FAIR      AirQuality = 3
	AIR_QUALITY_INFERIOR  AirQuality = 4
	AIR_QUALITY_POOR      AirQuality = 5
)

func (q AirQuality) String() string {
	switch q {
	case AIR_QUALITY_EXCELLENT:
		return "excellent"
	case AIR_QUALITY_GOOD:
		return "good"
	case AIR_QUALITY_FAIR:
		return "fair"
	case AIR_QUALITY_INFERIOR:
		return "inferior"
	case AIR_QUALITY_POOR:
		return "poor"
	default:
		return "unknown"
	}
}

type FilterChangeIndication uint8

const (
	FILTER_OK     FilterChangeIndication = 0
	CHANGE_FILTER FilterChangeIndication = 1
)
