package wire

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// SafeGet walks a chain of positional lookups. It returns nil as soon as an
// index is out of range or the current value is not a list.
func SafeGet(container any, indices ...int) any {
	value, _ := lookup(container, indices)
	return value
}

// SafeGetOr is SafeGet with a caller-supplied default for unreachable paths.
// A reachable null is returned as nil, not as the default.
func SafeGetOr(def any, container any, indices ...int) any {
	value, ok := lookup(container, indices)
	if !ok {
		return def
	}
	return value
}

func lookup(container any, indices []int) (any, bool) {
	current := container
	for _, index := range indices {
		list, ok := current.([]any)
		if !ok || index < 0 || index >= len(list) {
			return nil, false
		}
		current = list[index]
	}
	return current, true
}

func asList(value any) ([]any, bool) {
	list, ok := value.([]any)
	return list, ok
}

// asInt accepts integral JSON numbers only. Booleans and floats are rejected.
func asInt(value any) (int64, bool) {
	switch typed := value.(type) {
	case json.Number:
		parsed, err := strconv.ParseInt(typed.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case int:
		return int64(typed), true
	case int64:
		return typed, true
	default:
		return 0, false
	}
}

// asNumber accepts any JSON number, integral or not.
func asNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case []any:
		return len(typed) > 0
	case map[string]any:
		return len(typed) > 0
	case json.Number:
		number, err := typed.Float64()
		return err != nil || number != 0
	default:
		if number, ok := asNumber(value); ok {
			return number != 0
		}
		return true
	}
}

// stringify renders a non-string wire value the way it appears in JSON.
func stringify(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}

var (
	minUnixSeconds = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxUnixSeconds = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// ParseTimestamp decodes [seconds] or [seconds, nanoseconds] into a UTC time.
// Any other shape, and instants outside years 1 through 9999, yield nil.
func ParseTimestamp(raw any) *time.Time {
	list, ok := asList(raw)
	if !ok || len(list) == 0 {
		return nil
	}

	var nanosValue any = json.Number("0")
	if len(list) > 1 {
		nanosValue = list[1]
	}

	if seconds, ok := asInt(list[0]); ok {
		if nanos, ok := asInt(nanosValue); ok {
			return unixTime(seconds, nanos)
		}
	}

	seconds, ok := asNumber(list[0])
	if !ok {
		return nil
	}
	nanos, ok := asNumber(nanosValue)
	if !ok {
		return nil
	}

	total := seconds + nanos/1e9
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return nil
	}
	if total < float64(minUnixSeconds) || total > float64(maxUnixSeconds+1) {
		return nil
	}
	whole, frac := math.Modf(total)
	if frac < 0 {
		whole--
		frac++
	}
	return unixTime(int64(whole), int64(math.Round(frac*1e9)))
}

func unixTime(seconds int64, nanos int64) *time.Time {
	if seconds < minUnixSeconds-1 || seconds > maxUnixSeconds+1 {
		return nil
	}
	instant := time.Unix(seconds, nanos).UTC()
	if instant.Year() < 1 || instant.Year() > 9999 {
		return nil
	}
	return &instant
}

// ParseEmail returns the first non-empty string in a user reference.
func ParseEmail(raw any) string {
	list, ok := asList(raw)
	if !ok {
		return ""
	}
	for _, item := range list {
		if text, ok := item.(string); ok && text != "" {
			return text
		}
	}
	return ""
}

func ParseCCList(raw any) []string {
	list, ok := asList(raw)
	if !ok {
		return nil
	}
	emails := make([]string, 0, len(list))
	for _, entry := range list {
		if email := ParseEmail(entry); email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}

func ParseIntList(raw any) []int64 {
	list, ok := asList(raw)
	if !ok {
		return nil
	}
	values := make([]int64, 0, len(list))
	for _, item := range list {
		if value, ok := asInt(item); ok {
			values = append(values, value)
		}
	}
	return values
}

func optionalInt(value any) *int64 {
	parsed, ok := asInt(value)
	if !ok {
		return nil
	}
	return &parsed
}
