package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, duration, total_increasing
	DeviceClass       string // temperature, humidity, pm25, problem
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

type GenericInputNumber struct {
	Device       Device
	Id           string
	Name         string
	UniqueId     string
	Icon         string
	Max          float64
	Min          float64
	Step         float64
	Mode         string
	InitialValue float64
	Unit         string
}

type GenericSelect struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
	Options  []string
}

const (
	SENSOR_ID_BRIDGE_STATE     = "bridge"
	SENSOR_ID_CONNECTION_STATE = "connection_state"
	STATE_CLASS_MEASUREMENT    = "measurement"
	DEVICE_CLASS_TEMPERATURE   = "temperature"
	DEVICE_CLASS_HUMIDITY      = "humidity"
	DEVICE_CLASS_PM25          = "pm25"
	DEVICE_CLASS_AQI           = "aqi"
	DEVICE_CLASS_PROBLEM       = "problem"
	DEVICE_CLASS_CONNECTIVITY  = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC    = "diagnostic"
	ENTITY_CLASS_CONFIG        = "config"
	SENSOR_TYPE_SENSOR         = "sensor"
	SENSOR_TYPE_BINARY         = "binary_sensor"
	COMPONENT_SWITCH           = "switch"
	COMPONENT_NUMBER           = "number"
	COMPONENT_SELECT           = "select"
	INPUT_NUMBER_MODE_BOX      = "box"
	INPUT_NUMBER_MODE_SLIDER   = "slider"
)

// ENTITY_ID_CHILD_LOCK is the MQTT entity of CHAR_LOCK_PHYSICAL_CONTROLS.
const ENTITY_ID_CHILD_LOCK = "child_lock"

func EntityIdOf(characteristicId string) string {
	if characteristicId == CHAR_LOCK_PHYSICAL_CONTROLS {
		return ENTITY_ID_CHILD_LOCK
	}
	return characteristicId
}

func CharacteristicIdOf(entityId string) string {
	if entityId == ENTITY_ID_CHILD_LOCK {
		return CHAR_LOCK_PHYSICAL_CONTROLS
	}
	return entityId
}

// ComponentOf returns the Home Assistant component a characteristic is
// published as.
func ComponentOf(id string) string {
	switch id {
	case CHAR_ACTIVE, CHAR_LOCK_PHYSICAL_CONTROLS, ENTITY_ID_CHILD_LOCK, CHAR_LED, CHAR_BUZZER:
		return COMPONENT_SWITCH
	case CHAR_ROTATION_SPEED:
		return COMPONENT_NUMBER
	case CHAR_TARGET_AIR_PURIFIER:
		return COMPONENT_SELECT
	case CHAR_FILTER_CHANGE_INDICATION, SENSOR_ID_BRIDGE_STATE:
		return SENSOR_TYPE_BINARY
	default:
		return SENSOR_TYPE_SENSOR
	}
}
