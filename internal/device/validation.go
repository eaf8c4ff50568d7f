package device

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Validation messages returned to clients.
const (
	msgValueRequired  = "Value is required"
	msgValueNotInt    = "Value must be an integer"
	msgEffectRequired = "Effect is required"
	msgModeRequired   = "Mode is required"
)

// ParseValue coerces a decoded JSON value to an int.
//
// Accepted: JSON integers, integral floats such as 5.0, and strings holding
// a base-10 integer with optional sign and surrounding whitespace.
// Rejected: fractional numbers, booleans, null, objects, arrays and any
// other string.
func ParseValue(raw any) (int, error) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(v.String(), 10, 0); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, invalidInput(msgValueNotInt)
		}
		return integralFloat(f)
	case float64:
		return integralFloat(v)
	case int:
		return v, nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, invalidInput(msgValueNotInt)
		}
		return int(v), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, invalidInput(msgValueNotInt)
		}
		return i, nil
	default:
		return 0, invalidInput(msgValueNotInt)
	}
}

// ValueFromBody reads the "value" key of a request body. A missing key is
// "Value is required"; an explicit null is parsed, and rejected, like any
// other non-integer.
func ValueFromBody(body map[string]any) (int, error) {
	raw, ok := body["value"]
	if !ok {
		return 0, invalidInput(msgValueRequired)
	}
	return ParseValue(raw)
}

func integralFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, invalidInput(msgValueNotInt)
	}
	return int(f), nil
}

// ValidateLightEffect checks effect against LightEffects.
func ValidateLightEffect(effect string) error {
	if effect == "" {
		return invalidInput(msgEffectRequired)
	}
	if !slices.Contains(LightEffects, effect) {
		return oneOf("effect", LightEffects)
	}
	return nil
}

// ValidateACMode checks mode against ACModes.
func ValidateACMode(mode string) error {
	if mode == "" {
		return invalidInput(msgModeRequired)
	}
	if !slices.Contains(ACModes, mode) {
		return oneOf("mode", ACModes)
	}
	return nil
}

// ValidateDeviceMode requires a non-empty mode. Any other string is accepted.
func ValidateDeviceMode(mode string) error {
	if strings.TrimSpace(mode) == "" {
		return invalidInput(msgModeRequired)
	}
	return nil
}
