package mqtt

import (
	"testing"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("on", FormatValue(domain.CHAR_ACTIVE, domain.ACTIVE_ACTIVE))
	assert.Equal("off", FormatValue(domain.CHAR_LOCK_PHYSICAL_CONTROLS, domain.LOCK_CONTROLS_DISABLED))
	assert.Equal("on", FormatValue(domain.CHAR_FILTER_CHANGE_INDICATION, domain.CHANGE_FILTER))
	assert.Equal("purifying", FormatValue(domain.CHAR_CURRENT_AIR_PURIFIER, domain.CURRENT_STATE_PURIFYING_AIR))
	assert.Equal("manual", FormatValue(domain.CHAR_TARGET_AIR_PURIFIER, domain.TARGET_STATE_MANUAL))
	assert.Equal("good", FormatValue(domain.CHAR_AIR_QUALITY, domain.AIR_QUALITY_GOOD))
	assert.Equal("50", FormatValue(domain.CHAR_ROTATION_SPEED, 50))
	assert.Equal("21.5", FormatValue(domain.CHAR_CURRENT_TEMPERATURE, 21.5))
	assert.Equal("12", FormatValue(domain.CHAR_PM2_5_DENSITY, 12.0))
	assert.Equal("off", FormatValue(domain.CHAR_LED, false))
	assert.Equal("bound", FormatValue(domain.SENSOR_ID_CONNECTION_STATE, domain.CONNECTION_BOUND))
}

func TestParseCommandPayload(t *testing.T) {

	assert := assert.New(t)

	v, err := ParseCommandPayload(domain.CHAR_ACTIVE, "on")
	assert.NoError(err)
	assert.Equal(1, v)

	v, err = ParseCommandPayload(domain.CHAR_LOCK_PHYSICAL_CONTROLS, "OFF")
	assert.NoError(err)
	assert.Equal(0, v)

	v, err = ParseCommandPayload(domain.CHAR_LED, "on")
	assert.NoError(err)
	assert.Equal(true, v)

	v, err = ParseCommandPayload(domain.CHAR_TARGET_AIR_PURIFIER, "manual")
	assert.NoError(err)
	assert.Equal(int(domain.TARGET_STATE_MANUAL), v)

	v, err = ParseCommandPayload(domain.CHAR_ROTATION_SPEED, " 40 ")
	assert.NoError(err)
	assert.Equal(40.0, v)
}

func TestParseCommandPayloadFail(t *testing.T) {

	assert := assert.New(t)

	var validation *domain.ValidationError

	_, err := ParseCommandPayload(domain.CHAR_ACTIVE, "maybe")
	assert.ErrorAs(err, &validation)

	_, err = ParseCommandPayload(domain.CHAR_TARGET_AIR_PURIFIER, "turbo")
	assert.ErrorAs(err, &validation)

	_, err = ParseCommandPayload(domain.CHAR_ROTATION_SPEED, "fast")
	assert.ErrorAs(err, &validation)

	_, err = ParseCommandPayload(domain.CHAR_PM2_5_DENSITY, "12")
	assert.ErrorIs(err, domain.ErrUnknownCharacteristic)
}
