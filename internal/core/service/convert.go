package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/berfenger/purifier2mqtt/pkg/miio"
)

// Device properties and hub values arrive loosely typed (numbers from JSON
// are float64, MQTT payloads are strings, the device reports temperature as
// a string).

func ToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("cannot convert %T to number", value)
}

func ToInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	}
	f, err := ToFloat(value)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%v is not an integer", value)
	}
	return int(f), nil
}

func ToBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1":
			return true, nil
		case "false", "off", "0":
			return false, nil
		}
		return false, fmt.Errorf("cannot convert %q to bool", v)
	}
	i, err := ToInt(value)
	if err != nil {
		return false, err
	}
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("cannot convert %v to bool", value)
}

// deviceBool reads on/off style device properties.
func deviceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		return v == miio.RESULT_ON, v == miio.RESULT_ON || v == miio.RESULT_OFF
	}
	return false, false
}
