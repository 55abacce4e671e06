package fallback

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// FirstString returns the first field among keys holding a non-blank string.
// Present but blank values are skipped.
func FirstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		s, ok := m[k].(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		return s, true
	}
	return "", false
}

// RequireString is FirstString reporting a ShapeError when nothing matches.
func RequireString(m map[string]any, keys ...string) (string, error) {
	if s, ok := FirstString(m, keys...); ok {
		return s, nil
	}
	return "", ShapeErrorf("missing field %s", strings.Join(keys, "|"))
}

// StringOr returns the first non-blank string among keys or def.
func StringOr(m map[string]any, def string, keys ...string) string {
	if s, ok := FirstString(m, keys...); ok {
		return s
	}
	return def
}

// NumberOr returns the numeric value at key or def when absent or not a
// finite number.
func NumberOr(m map[string]any, key string, def float64) float64 {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// DecodeObject unmarshals raw into a JSON object, returning a ShapeError for
// null, non-object or malformed payloads.
func DecodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, &ShapeError{Detail: "payload is not a JSON object", Err: err}
	}
	if m == nil {
		return nil, ShapeErrorf("payload is null")
	}
	return m, nil
}
