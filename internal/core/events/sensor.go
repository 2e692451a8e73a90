package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/berfenger/purifier2mqtt/internal/config"
	. "github.com/berfenger/purifier2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	PURIFIER_MANUFACTURER = "Xiaomi"
	PURIFIER_MODEL        = "Mi Air Purifier"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("purifier2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "purifier2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("purifier2mqtt %s", md5HashShort(baseTopic)),
	}
}

// PurifierDevice describes the purifier. info may be empty when the device
// was not reachable yet.
func PurifierDevice(cfg config.DeviceConfig, info DeviceInfo) Device {
	model := info.Model
	if model == "" {
		model = PURIFIER_MODEL
	}
	return Device{
		Id:           fmt.Sprintf("purifier_%s", md5HashShort(cfg.Address)),
		Manufacturer: PURIFIER_MANUFACTURER,
		Model:        model,
		Name:         cfg.Name,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

func PurifierSensors(purifierDevice Device, expose config.ExposeConfig) []GenericSensor {

	var sensors []GenericSensor

	// Current state
	sensors = append(sensors, GenericSensor{
		Device:     purifierDevice,
		Id:         CHAR_CURRENT_AIR_PURIFIER,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "State",
		UniqueId:   uniqueId(purifierDevice.Id, CHAR_CURRENT_AIR_PURIFIER),
		Icon:       "mdi:air-purifier",
	})

	// Device connection
	sensors = append(sensors, GenericSensor{
		Device:         purifierDevice,
		Id:             SENSOR_ID_CONNECTION_STATE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Device connection",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(purifierDevice.Id, SENSOR_ID_CONNECTION_STATE),
		Icon:           "mdi:lan-connect",
	})

	if expose.AirQuality {
		sensors = append(sensors, GenericSensor{
			Device:     purifierDevice,
			Id:         CHAR_AIR_QUALITY,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       expose.NameAirQuality,
			UniqueId:   uniqueId(purifierDevice.Id, CHAR_AIR_QUALITY),
			Icon:       "mdi:air-filter",
		})
		sensors = append(sensors, GenericSensor{
			Device:            purifierDevice,
			Id:                CHAR_PM2_5_DENSITY,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "PM2.5",
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_PM25,
			UnitOfMeasurement: "µg/m³",
			UniqueId:          uniqueId(purifierDevice.Id, CHAR_PM2_5_DENSITY),
		})
	}

	if expose.Temperature {
		sensors = append(sensors, GenericSensor{
			Device:            purifierDevice,
			Id:                CHAR_CURRENT_TEMPERATURE,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              expose.NameTemperature,
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_TEMPERATURE,
			UnitOfMeasurement: "°C",
			UniqueId:          uniqueId(purifierDevice.Id, CHAR_CURRENT_TEMPERATURE),
		})
	}

	if expose.Humidity {
		sensors = append(sensors, GenericSensor{
			Device:            purifierDevice,
			Id:                CHAR_CURRENT_RELATIVE_HUMIDITY,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              expose.NameHumidity,
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_HUMIDITY,
			UnitOfMeasurement: "%",
			UniqueId:          uniqueId(purifierDevice.Id, CHAR_CURRENT_RELATIVE_HUMIDITY),
		})
	}

	if expose.FilterLevel {
		sensors = append(sensors, GenericSensor{
			Device:            purifierDevice,
			Id:                CHAR_FILTER_LIFE_LEVEL,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Filter life",
			StateClass:        STATE_CLASS_MEASUREMENT,
			UnitOfMeasurement: "%",
			UniqueId:          uniqueId(purifierDevice.Id, CHAR_FILTER_LIFE_LEVEL),
			Icon:              "mdi:air-filter",
		})
		sensors = append(sensors, GenericSensor{
			Device:      purifierDevice,
			Id:          CHAR_FILTER_CHANGE_INDICATION,
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Filter change",
			DeviceClass: DEVICE_CLASS_PROBLEM,
			UniqueId:    uniqueId(purifierDevice.Id, CHAR_FILTER_CHANGE_INDICATION),
		})
	}

	return sensors
}

func PurifierSwitches(purifierDevice Device, deviceName string, expose config.ExposeConfig) []GenericSwitch {

	var switches []GenericSwitch

	// Power
	switches = append(switches, GenericSwitch{
		Device:   purifierDevice,
		Id:       CHAR_ACTIVE,
		Name:     "Power",
		UniqueId: uniqueId(purifierDevice.Id, CHAR_ACTIVE),
		Icon:     "mdi:power",
	})
	// Child lock
	switches = append(switches, GenericSwitch{
		Device:   purifierDevice,
		Id:       ENTITY_ID_CHILD_LOCK,
		Name:     "Child lock",
		UniqueId: uniqueId(purifierDevice.Id, ENTITY_ID_CHILD_LOCK),
		Icon:     "mdi:lock",
	})

	if expose.LED {
		switches = append(switches, GenericSwitch{
			Device:   purifierDevice,
			Id:       CHAR_LED,
			Name:     expose.LEDName(deviceName),
			UniqueId: uniqueId(purifierDevice.Id, CHAR_LED),
			Icon:     "mdi:led-on",
		})
	}
	if expose.Buzzer {
		switches = append(switches, GenericSwitch{
			Device:   purifierDevice,
			Id:       CHAR_BUZZER,
			Name:     expose.BuzzerName(deviceName),
			UniqueId: uniqueId(purifierDevice.Id, CHAR_BUZZER),
			Icon:     "mdi:volume-high",
		})
	}

	return switches
}

func PurifierInputNumbers(purifierDevice Device) []GenericInputNumber {
	return []GenericInputNumber{{
		Device:   purifierDevice,
		Id:       CHAR_ROTATION_SPEED,
		Name:     "Rotation speed",
		UniqueId: uniqueId(purifierDevice.Id, CHAR_ROTATION_SPEED),
		Icon:     "mdi:fan",
		Max:      100,
		Min:      0,
		Step:     1,
		Mode:     INPUT_NUMBER_MODE_SLIDER,
		Unit:     "%",
	}}
}

func PurifierSelects(purifierDevice Device) []GenericSelect {
	return []GenericSelect{{
		Device:   purifierDevice,
		Id:       CHAR_TARGET_AIR_PURIFIER,
		Name:     "Mode",
		UniqueId: uniqueId(purifierDevice.Id, CHAR_TARGET_AIR_PURIFIER),
		Icon:     "mdi:fan-auto",
		Options:  []string{TARGET_STATE_AUTO.String(), TARGET_STATE_MANUAL.String()},
	}}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
