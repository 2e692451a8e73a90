package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

const (
	DEFAULT_DEVICE_NAME      = "Air Purifier"
	DEFAULT_NAME_AIR_QUALITY = "Air Quality"
	DEFAULT_NAME_TEMPERATURE = "Temperature"
	DEFAULT_NAME_HUMIDITY    = "Humidity"
	DEFAULT_RETRY_INTERVAL   = 30 * time.Second
	DEFAULT_CONNECT_TIMEOUT  = 10 * time.Second
	DEFAULT_CALL_TIMEOUT     = 5 * time.Second
)

type Config struct {
	LogLevel zapcore.Level
	Device   DeviceConfig `mapstructure:"device"`
	Expose   ExposeConfig `mapstructure:"expose"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
	Port     uint         `mapstructure:"port"`
	HttpLog  bool         `mapstructure:"http_log"`
}

type DeviceConfig struct {
	Address        string
	Token          string
	Name           string
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	Simulate       bool
}

// ExposeConfig toggles the optional accessories. Active state, current and
// target state, physical lock and rotation speed are always exposed.
type ExposeConfig struct {
	AirQuality      bool   `mapstructure:"air_quality"`
	Temperature     bool   `mapstructure:"temperature"`
	Humidity        bool   `mapstructure:"humidity"`
	LED             bool   `mapstructure:"led"`
	Buzzer          bool   `mapstructure:"buzzer"`
	FilterLevel     bool   `mapstructure:"filter_level"`
	NameAirQuality  string `mapstructure:"name_air_quality"`
	NameTemperature string `mapstructure:"name_temperature"`
	NameHumidity    string `mapstructure:"name_humidity"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// Validate checks the required fields and fills display name defaults.
func (cfg *Config) Validate() error {
	if cfg.Device.Address == "" {
		return &domain.ConfigurationError{Field: "device.address", Reason: "you must provide the IP address of the Air Purifier"}
	}
	if cfg.Device.Token == "" {
		return &domain.ConfigurationError{Field: "device.token", Reason: "you must provide the token of the Air Purifier"}
	}
	if cfg.Device.Name == "" {
		cfg.Device.Name = DEFAULT_DEVICE_NAME
	}
	if cfg.Device.RetryInterval <= 0 {
		cfg.Device.RetryInterval = DEFAULT_RETRY_INTERVAL
	}
	if cfg.Device.ConnectTimeout <= 0 {
		cfg.Device.ConnectTimeout = DEFAULT_CONNECT_TIMEOUT
	}
	if cfg.Device.CallTimeout <= 0 {
		cfg.Device.CallTimeout = DEFAULT_CALL_TIMEOUT
	}
	if cfg.Expose.NameAirQuality == "" {
		cfg.Expose.NameAirQuality = DEFAULT_NAME_AIR_QUALITY
	}
	if cfg.Expose.NameTemperature == "" {
		cfg.Expose.NameTemperature = DEFAULT_NAME_TEMPERATURE
	}
	if cfg.Expose.NameHumidity == "" {
		cfg.Expose.NameHumidity = DEFAULT_NAME_HUMIDITY
	}

	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return &domain.ConfigurationError{Field: "mqtt.base_topic", Reason: err.Error()}
	}
	cfg.MQTT.BaseTopic = baseTopic

	haTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return &domain.ConfigurationError{Field: "mqtt.ha_discovery_topic", Reason: err.Error()}
	}
	cfg.MQTT.HADiscoveryTopic = haTopic
	return nil
}

func (e ExposeConfig) LEDName(deviceName string) string {
	return deviceName + " LED"
}

func (e ExposeConfig) BuzzerName(deviceName string) string {
	return deviceName + " Buzzer"
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
