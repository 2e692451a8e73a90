package mqtt

import (
	"fmt"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	EnabledByDefault  *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	Icon              string            `json:"icon,omitempty"`
	Min               *float64          `json:"min,omitempty"`
	Max               float64           `json:"max,omitempty"`
	Step              float64           `json:"step,omitempty"`
	Mode              string            `json:"mode,omitempty"`
	InitialValue      float64           `json:"initial,omitempty"`
	Options           []string          `json:"options,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func HADiscoverySensorTopic(client *MQTTClient, sensor domain.GenericSensor) string {
	return haDiscoveryTopic(client, sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func HADiscoverySwitchTopic(client *MQTTClient, _switch domain.GenericSwitch) string {
	return haDiscoveryTopic(client, domain.COMPONENT_SWITCH, _switch.Device.Id, _switch.Id)
}

func HADiscoveryInputNumberTopic(client *MQTTClient, inputNumber domain.GenericInputNumber) string {
	return haDiscoveryTopic(client, domain.COMPONENT_NUMBER, inputNumber.Device.Id, inputNumber.Id)
}

func HADiscoverySelectTopic(client *MQTTClient, _select domain.GenericSelect) string {
	return haDiscoveryTopic(client, domain.COMPONENT_SELECT, _select.Device.Id, _select.Id)
}

func haDiscoveryTopic(client *MQTTClient, component, deviceId, entityId string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", client.HADiscoveryTopic(), component, deviceId, entityId)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	dev := device(sensor.Device)
	var topic string
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		topic = client.BridgeStateTopic()
	} else {
		topic = client.StateTopic(sensor.SensorType, sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device:            dev,
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		AvTopic:           client.BridgeStateTopic(),
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Platform:          "mqtt",
	}
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	} else if sensor.SensorType == domain.SENSOR_TYPE_BINARY {
		disConfig.PayloadOn = MQTT_PAYLOAD_ON
		disConfig.PayloadOff = MQTT_PAYLOAD_OFF
	}
	return disConfig
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, _switch domain.GenericSwitch) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:       device(_switch.Device),
		StateTopic:   client.StateTopic(domain.COMPONENT_SWITCH, _switch.Id),
		CommandTopic: client.CommandTopic(domain.COMPONENT_SWITCH, _switch.Id),
		AvTopic:      client.BridgeStateTopic(),
		Name:         _switch.Name,
		UniqueId:     _switch.UniqueId,
		Icon:         _switch.Icon,
		Platform:     "mqtt",
		PayloadOn:    MQTT_PAYLOAD_ON,
		PayloadOff:   MQTT_PAYLOAD_OFF,
	}
}

func GenericInputNumberToHADiscoveryMessage(client *MQTTClient, inputNumber domain.GenericInputNumber) HADiscoveryConfig {
	min := inputNumber.Min
	return HADiscoveryConfig{
		Device:            device(inputNumber.Device),
		StateTopic:        client.StateTopic(domain.COMPONENT_NUMBER, inputNumber.Id),
		CommandTopic:      client.CommandTopic(domain.COMPONENT_NUMBER, inputNumber.Id),
		AvTopic:           client.BridgeStateTopic(),
		Name:              inputNumber.Name,
		UniqueId:          inputNumber.UniqueId,
		Icon:              inputNumber.Icon,
		Platform:          "mqtt",
		Min:               &min,
		Max:               inputNumber.Max,
		Step:              inputNumber.Step,
		Mode:              inputNumber.Mode,
		InitialValue:      inputNumber.InitialValue,
		UnitOfMeasurement: inputNumber.Unit,
	}
}

func GenericSelectToHADiscoveryMessage(client *MQTTClient, _select domain.GenericSelect) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:       device(_select.Device),
		StateTopic:   client.StateTopic(domain.COMPONENT_SELECT, _select.Id),
		CommandTopic: client.CommandTopic(domain.COMPONENT_SELECT, _select.Id),
		AvTopic:      client.BridgeStateTopic(),
		Name:         _select.Name,
		UniqueId:     _select.UniqueId,
		Icon:         _select.Icon,
		Platform:     "mqtt",
		Options:      _select.Options,
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
