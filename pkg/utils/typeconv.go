package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WireTimeLayout is the only timestamp format the source API emits:
// UTC, second precision, literal Z.
const WireTimeLayout = "2006-01-02T15:04:05Z"

// ParseWireTime parses v strictly in WireTimeLayout. time.Parse accepts a
// fractional second that the layout does not mention, so the length is
// checked first.
func ParseWireTime(v string) (time.Time, error) {
	if len(v) != len(WireTimeLayout) {
		return time.Time{}, fmt.Errorf("unable to parse datetime %q: expected layout %s", v, WireTimeLayout)
	}
	t, err := time.Parse(WireTimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse datetime %q: %w", v, err)
	}
	return t, nil
}

// FormatTime renders t as an ISO-8601 (RFC 3339) string in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ConvertToFloat handles the numeric shapes a record value can take after
// JSON decoding or construction in Go code.
func ConvertToFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("cannot convert %T to number", val)
	}
}

// Stringify returns the string form used when flattening list elements.
func Stringify(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return FormatTime(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// JoinValues joins the string forms of items with sep, keeping order and duplicates.
func JoinValues(items []interface{}, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Stringify(item)
	}
	return strings.Join(parts, sep)
}

// CompareValues orders two bookmark values. Times compare chronologically,
// numbers numerically and strings lexically; mixing kinds is an error.
func CompareValues(a, b interface{}) (int, error) {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av.Compare(bv), nil
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return strings.Compare(av, bv), nil
	}

	af, err := ConvertToFloat(a)
	if err != nil {
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
	bf, err := ConvertToFloat(b)
	if err != nil {
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}
