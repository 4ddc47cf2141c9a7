package utils

import (
	"fmt"
	"strconv"
)

// ToInt coerces a loosely-typed RPC value to an int.
// The monitoring API returns numeric fields as JSON strings more often than
// not, so every numeric read goes through here.
func ToInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		i, _ := strconv.Atoi(v)
		return i
	default:
		return 0
	}
}

// ToString coerces a loosely-typed RPC value to a string.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		// JSON numbers decode as float64; ids must not render as "1e+06".
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool coerces a loosely-typed RPC value to a bool.
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	case string:
		return v == "1" || v == "true"
	default:
		return false
	}
}
