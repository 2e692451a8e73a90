package util

import (
	"time"

	"github.com/berfenger/purifier2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	cfg := config.Config{
		LogLevel: zap.DebugLevel,
		Device: config.DeviceConfig{
			Address:        "192.168.1.50",
			Token:          "00112233445566778899aabbccddeeff",
			Name:           "Living Room",
			RetryInterval:  100 * time.Millisecond,
			ConnectTimeout: 500 * time.Millisecond,
			CallTimeout:    500 * time.Millisecond,
			Simulate:       true,
		},
		Expose: config.ExposeConfig{
			AirQuality:  true,
			Temperature: true,
			Humidity:    true,
			LED:         true,
			Buzzer:      true,
			FilterLevel: true,
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "purifier",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		Port: 8080,
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}
