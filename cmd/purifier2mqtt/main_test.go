package main

import (
	"testing"
	"time"

	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/internal/core/domain"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitConfigFromEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("PURIFIER_DEVICE_ADDRESS", "192.168.1.60")
	t.Setenv("PURIFIER_DEVICE_TOKEN", "ffeeddccbbaa99887766554433221100")
	t.Setenv("PURIFIER_DEVICE_RETRY_INTERVAL", "5s")
	t.Setenv("PURIFIER_EXPOSE_LED", "true")
	t.Setenv("PURIFIER_MQTT_BASE_TOPIC", "Bedroom")
	t.Setenv("PURIFIER_PORT", "9090")
	t.Setenv("PURIFIER_LOG_LEVEL", "debug")

	cfg, err := initConfig()
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.60", cfg.Device.Address)
	assert.Equal(t, "ffeeddccbbaa99887766554433221100", cfg.Device.Token)
	assert.Equal(t, 5*time.Second, cfg.Device.RetryInterval)
	assert.Equal(t, config.DEFAULT_CALL_TIMEOUT, cfg.Device.CallTimeout)
	assert.Equal(t, config.DEFAULT_DEVICE_NAME, cfg.Device.Name)
	assert.True(t, cfg.Expose.LED)
	assert.False(t, cfg.Expose.Buzzer)
	assert.Equal(t, "bedroom", cfg.MQTT.BaseTopic)
	assert.Equal(t, "homeassistant", cfg.MQTT.HADiscoveryTopic)
	assert.Equal(t, uint(9090), cfg.Port)
	assert.Equal(t, zap.DebugLevel, cfg.LogLevel)
}

func TestInitConfigRequiresToken(t *testing.T) {
	viper.Reset()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("PURIFIER_DEVICE_ADDRESS", "192.168.1.60")
	t.Setenv("PURIFIER_DEVICE_TOKEN", "")

	_, err := initConfig()
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "device.token", cfgErr.Field)
}
