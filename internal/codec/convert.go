package codec

import (
	"math"
	"strconv"
	"strings"
)

// The device sometimes answers a FLOAT path with an INT tag (or the reverse),
// and older firmware reports some flags as numbers. These helpers coerce a
// decoded value to the Go type a snapshot field needs.

// AsFloat coerces a decoded value to float64. Non-finite results are
// rejected.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && finite(f)
	}
	f, ok := number(v)
	return f, ok && finite(f)
}

// AsInt coerces a decoded value to int, truncating floats.
func AsInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case Int:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	f, ok := number(v)
	if !ok || !finite(f) {
		return 0, false
	}
	return int(f), true
}

// number widens any Go numeric kind to float64.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case Int:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// AsBool coerces a decoded value to bool. Numbers are true when non-zero;
// strings accept true/false, on/off, yes/no and 1/0.
func AsBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "on", "yes", "1":
			return true, true
		case "false", "off", "no", "0":
			return false, true
		}
	default:
		if f, ok := number(v); ok {
			return f != 0, true
		}
	}
	return false, false
}

// AsString coerces a decoded value to string.
func AsString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}
