package service

import (
	"math"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/pkg/miio"
)

const (
	SPEED_PER_LEVEL     = 6.25
	FILTER_OK_THRESHOLD = 10
)

type airQualityLevel struct {
	threshold float64
	quality   domain.AirQuality
}

// evaluated highest first
var airQualityLevels = []airQualityLevel{
	{200, domain.AIR_QUALITY_POOR},
	{150, domain.AIR_QUALITY_INFERIOR},
	{100, domain.AIR_QUALITY_FAIR},
	{50, domain.AIR_QUALITY_GOOD},
	{0, domain.AIR_QUALITY_EXCELLENT},
}

func ActiveFromMode(mode string) domain.Active {
	if mode != miio.MODE_IDLE {
		return domain.ACTIVE_ACTIVE
	}
	return domain.ACTIVE_INACTIVE
}

func CurrentStateFromMode(mode string) domain.CurrentAirPurifierState {
	if mode == miio.MODE_IDLE {
		return domain.CURRENT_STATE_INACTIVE
	}
	return domain.CURRENT_STATE_PURIFYING_AIR
}

func TargetStateFromMode(mode string) domain.TargetAirPurifierState {
	if mode == miio.MODE_FAVORITE {
		return domain.TARGET_STATE_MANUAL
	}
	return domain.TARGET_STATE_AUTO
}

func ModeFromTargetState(state domain.TargetAirPurifierState) string {
	if state == domain.TARGET_STATE_AUTO {
		return miio.MODE_AUTO
	}
	return miio.MODE_FAVORITE
}

// SpeedFromLevel maps a favorite level (0-16) to a rotation speed percentage.
func SpeedFromLevel(level int) int {
	return int(math.Ceil(float64(level) * SPEED_PER_LEVEL))
}

// LevelFromSpeed maps a rotation speed percentage to a favorite level. The
// mapping is lossy: SpeedFromLevel(LevelFromSpeed(s)) >= s.
func LevelFromSpeed(speed int) int {
	return int(math.Ceil(float64(speed) / SPEED_PER_LEVEL))
}

func AirQualityFromPM25(pm25 float64) domain.AirQuality {
	for _, level := range airQualityLevels {
		if pm25 >= level.threshold {
			return level.quality
		}
	}
	// negative readings
	return domain.AIR_QUALITY_EXCELLENT
}

func FilterChangeFromLife(filterLife int) domain.FilterChangeIndication {
	if filterLife >= FILTER_OK_THRESHOLD {
		return domain.FILTER_OK
	}
	return domain.CHANGE_FILTER
}

func LockFromRaw(value any) domain.LockPhysicalControls {
	if s, ok := value.(string); ok && s == miio.RESULT_ON {
		return domain.LOCK_CONTROLS_ENABLED
	}
	return domain.LOCK_CONTROLS_DISABLED
}

func RawFromLock(state domain.LockPhysicalControls) string {
	if state == domain.LOCK_CONTROLS_ENABLED {
		return miio.RESULT_ON
	}
	return miio.RESULT_OFF
}
