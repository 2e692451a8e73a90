package service

import (
	"testing"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/pkg/miio"

	"github.com/stretchr/testify/assert"
)

func TestModeDerivedStates(t *testing.T) {
	modes := []string{miio.MODE_IDLE, miio.MODE_AUTO, miio.MODE_FAVORITE, miio.MODE_SILENT, "strong"}
	for _, mode := range modes {
		if mode == miio.MODE_IDLE {
			assert.Equal(t, domain.ACTIVE_INACTIVE, ActiveFromMode(mode))
			assert.Equal(t, domain.CURRENT_STATE_INACTIVE, CurrentStateFromMode(mode))
		} else {
			assert.Equal(t, domain.ACTIVE_ACTIVE, ActiveFromMode(mode), mode)
			assert.Equal(t, domain.CURRENT_STATE_PURIFYING_AIR, CurrentStateFromMode(mode), mode)
		}
		if mode == miio.MODE_FAVORITE {
			assert.Equal(t, domain.TARGET_STATE_MANUAL, TargetStateFromMode(mode))
		} else {
			assert.Equal(t, domain.TARGET_STATE_AUTO, TargetStateFromMode(mode), mode)
		}
	}
}

func TestTargetStateRoundTrip(t *testing.T) {
	assert.Equal(t, miio.MODE_AUTO, ModeFromTargetState(domain.TARGET_STATE_AUTO))
	assert.Equal(t, miio.MODE_FAVORITE, ModeFromTargetState(domain.TARGET_STATE_MANUAL))
	for _, s := range []domain.TargetAirPurifierState{domain.TARGET_STATE_AUTO, domain.TARGET_STATE_MANUAL} {
		assert.Equal(t, s, TargetStateFromMode(ModeFromTargetState(s)))
	}
}

func TestRotationSpeedConversion(t *testing.T) {
	assert.Equal(t, 8, LevelFromSpeed(50))
	assert.Equal(t, 50, SpeedFromLevel(8))
	assert.Equal(t, 0, LevelFromSpeed(0))
	assert.Equal(t, 16, LevelFromSpeed(100))
	assert.Equal(t, 100, SpeedFromLevel(16))
	assert.Equal(t, 1, LevelFromSpeed(1))
	assert.Equal(t, 7, SpeedFromLevel(1))

	prev := 0
	for speed := 0; speed <= 100; speed++ {
		level := LevelFromSpeed(speed)
		assert.GreaterOrEqual(t, level, prev, "level must be monotonic")
		assert.LessOrEqual(t, level, miio.MAX_FAVORITE_LEVEL)
		assert.GreaterOrEqual(t, SpeedFromLevel(level), speed, "speed %d", speed)
		prev = level
	}
}

func TestAirQualityBands(t *testing.T) {
	cases := map[float64]domain.AirQuality{
		0:     domain.AIR_QUALITY_EXCELLENT,
		49:    domain.AIR_QUALITY_EXCELLENT,
		49.9:  domain.AIR_QUALITY_EXCELLENT,
		50:    domain.AIR_QUALITY_GOOD,
		99:    domain.AIR_QUALITY_GOOD,
		100:   domain.AIR_QUALITY_FAIR,
		149:   domain.AIR_QUALITY_FAIR,
		150:   domain.AIR_QUALITY_INFERIOR,
		199:   domain.AIR_QUALITY_INFERIOR,
		200:   domain.AIR_QUALITY_POOR,
		500:   domain.AIR_QUALITY_POOR,
		-1:    domain.AIR_QUALITY_EXCELLENT,
		199.9: domain.AIR_QUALITY_INFERIOR,
	}
	for pm25, expected := range cases {
		assert.Equal(t, expected, AirQualityFromPM25(pm25), "pm2.5 %v", pm25)
	}
}

func TestFilterChangeIndication(t *testing.T) {
	assert.Equal(t, domain.FILTER_OK, FilterChangeFromLife(10))
	assert.Equal(t, domain.CHANGE_FILTER, FilterChangeFromLife(9))
	assert.Equal(t, domain.FILTER_OK, FilterChangeFromLife(100))
	assert.Equal(t, domain.CHANGE_FILTER, FilterChangeFromLife(0))
}

func TestLockRawValues(t *testing.T) {
	assert.Equal(t, domain.LOCK_CONTROLS_ENABLED, LockFromRaw("on"))
	assert.Equal(t, domain.LOCK_CONTROLS_DISABLED, LockFromRaw("off"))
	assert.Equal(t, domain.LOCK_CONTROLS_DISABLED, LockFromRaw(nil))
	assert.Equal(t, "on", RawFromLock(domain.LOCK_CONTROLS_ENABLED))
	assert.Equal(t, "off", RawFromLock(domain.LOCK_CONTROLS_DISABLED))
}
