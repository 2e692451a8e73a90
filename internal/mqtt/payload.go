package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"
)

// FormatValue renders a characteristic value as the MQTT state payload of
// its entity.
func FormatValue(id string, value any) string {
	switch v := value.(type) {
	case domain.Active:
		return bool2Payload(v == domain.ACTIVE_ACTIVE)
	case domain.LockPhysicalControls:
		return bool2Payload(v == domain.LOCK_CONTROLS_ENABLED)
	case domain.FilterChangeIndication:
		return bool2Payload(v == domain.CHANGE_FILTER)
	case domain.CurrentAirPurifierState:
		return v.String()
	case domain.TargetAirPurifierState:
		return v.String()
	case domain.AirQuality:
		return v.String()
	case domain.ConnectionState:
		return v.String()
	case bool:
		return bool2Payload(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		if id == domain.CHAR_PM2_5_DENSITY {
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ParseCommandPayload converts an MQTT command payload into the hub value of
// the characteristic id.
func ParseCommandPayload(id string, payload string) (any, error) {
	payload = strings.TrimSpace(payload)
	switch id {
	case domain.CHAR_ACTIVE, domain.CHAR_LOCK_PHYSICAL_CONTROLS:
		on, err := payload2Bool(id, payload)
		if err != nil {
			return nil, err
		}
		if on {
			return 1, nil
		}
		return 0, nil
	case domain.CHAR_LED, domain.CHAR_BUZZER:
		return payload2Bool(id, payload)
	case domain.CHAR_TARGET_AIR_PURIFIER:
		switch strings.ToLower(payload) {
		case domain.TARGET_STATE_AUTO.String():
			return int(domain.TARGET_STATE_AUTO), nil
		case domain.TARGET_STATE_MANUAL.String():
			return int(domain.TARGET_STATE_MANUAL), nil
		}
		return nil, &domain.ValidationError{Characteristic: id, Value: payload, Reason: "expected auto or manual"}
	case domain.CHAR_ROTATION_SPEED:
		value, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil, &domain.ValidationError{Characteristic: id, Value: payload, Reason: "not a number"}
		}
		return value, nil
	}
	return nil, domain.ErrUnknownCharacteristic
}

func payload2Bool(id string, payload string) (bool, error) {
	switch strings.ToLower(payload) {
	case MQTT_PAYLOAD_ON:
		return true, nil
	case MQTT_PAYLOAD_OFF:
		return false, nil
	}
	return false, &domain.ValidationError{Characteristic: id, Value: payload, Reason: "expected on or off"}
}

func bool2Payload(value bool) string {
	if value {
		return MQTT_PAYLOAD_ON
	}
	return MQTT_PAYLOAD_OFF
}
