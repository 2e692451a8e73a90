package actor

import (
	"testing"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/util"

	"github.com/stretchr/testify/assert"
)

func sensorIds(sensors []domain.GenericSensor) []string {
	var ids []string
	for _, s := range sensors {
		ids = append(ids, s.Id)
	}
	return ids
}

func switchIds(switches []domain.GenericSwitch) []string {
	var ids []string
	for _, s := range switches {
		ids = append(ids, s.Id)
	}
	return ids
}

func TestBuildDiscoveryRequestAllExposed(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	req := BuildDiscoveryRequest(&cfg, domain.DeviceInfo{Address: cfg.Device.Address, Model: "zhimi.airpurifier.mb3"})

	assert.Equal([]string{
		domain.SENSOR_ID_BRIDGE_STATE,
		domain.CHAR_CURRENT_AIR_PURIFIER,
		domain.SENSOR_ID_CONNECTION_STATE,
		domain.CHAR_AIR_QUALITY,
		domain.CHAR_PM2_5_DENSITY,
		domain.CHAR_CURRENT_TEMPERATURE,
		domain.CHAR_CURRENT_RELATIVE_HUMIDITY,
		domain.CHAR_FILTER_LIFE_LEVEL,
		domain.CHAR_FILTER_CHANGE_INDICATION,
	}, sensorIds(req.Sensors))
	assert.Equal([]string{domain.CHAR_ACTIVE, domain.ENTITY_ID_CHILD_LOCK, domain.CHAR_LED, domain.CHAR_BUZZER}, switchIds(req.Switches))
	assert.Len(req.InputNumbers, 1)
	assert.Equal(100.0, req.InputNumbers[0].Max)
	assert.Len(req.Selects, 1)
	assert.Equal([]string{"auto", "manual"}, req.Selects[0].Options)

	// full device on the first purifier entity, via the bridge
	purifier := req.Sensors[1].Device
	assert.Equal("zhimi.airpurifier.mb3", purifier.Model)
	assert.Equal(req.Sensors[0].Device.Id, purifier.ViaDevice)
	assert.Equal(purifier.Id, req.Sensors[2].Device.Id)
	assert.Empty(req.Sensors[2].Device.Model)

	// configured display names
	assert.Equal("Living Room LED", req.Switches[2].Name)
	assert.Equal("Living Room Buzzer", req.Switches[3].Name)
	assert.Equal("Air Quality", req.Sensors[3].Name)
}

func TestBuildDiscoveryRequestDefaultsOnly(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Expose.AirQuality = false
	cfg.Expose.Temperature = false
	cfg.Expose.Humidity = false
	cfg.Expose.LED = false
	cfg.Expose.Buzzer = false
	cfg.Expose.FilterLevel = false
	cfg.Expose.NameTemperature = "Temp"

	req := BuildDiscoveryRequest(&cfg, domain.DeviceInfo{})

	assert.Equal([]string{
		domain.SENSOR_ID_BRIDGE_STATE,
		domain.CHAR_CURRENT_AIR_PURIFIER,
		domain.SENSOR_ID_CONNECTION_STATE,
	}, sensorIds(req.Sensors))
	assert.Equal([]string{domain.CHAR_ACTIVE, domain.ENTITY_ID_CHILD_LOCK}, switchIds(req.Switches))
	// unknown model falls back to a generic one
	assert.NotEmpty(req.Sensors[1].Device.Model)
}
