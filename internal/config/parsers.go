// Package config loads zohobooks settings from a config file, a .env file,
// ZOHO_* environment variables and command-line flags.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// lookupSetting returns the value of the first candidate key present in
// settings. Viper lowercases keys, so the lowercase form is tried too.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		for _, k := range []string{key, strings.ToLower(key)} {
			if val, ok := settings[k]; ok {
				return val, true
			}
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(value), nil
}

// asIdentifier reads ids that may be written unquoted. JSON numbers decode
// as float64 and must not be printed in exponent form.
func asIdentifier(value interface{}) (string, error) {
	if f, ok := toFloat(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	s, err := asString(value)
	return strings.TrimSpace(s), err
}

// toFloat widens any Go numeric type. Strings are not numbers here.
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func asInt(value interface{}) (int, error) {
	if value == nil {
		return 0, nil
	}
	if f, ok := toFloat(value); ok {
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%v is not a whole number", f)
		}
		return int(f), nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func asFloat64(value interface{}) (float64, error) {
	if value == nil {
		return 0, nil
	}
	if f, ok := toFloat(value); ok {
		return f, nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return strconv.ParseBool(s)
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported boolean type %T", value)
}

// asDuration parses duration strings; bare numbers are seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if _, err := strconv.Atoi(s); s != "" && err != nil {
			return time.ParseDuration(s)
		}
	}
	secs, err := asInt(value)
	if err != nil {
		return 0, fmt.Errorf("unsupported duration %v: %w", value, err)
	}
	return time.Duration(secs) * time.Second, nil
}

// asStringSlice accepts a list or a single comma separated string.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case string:
		return splitList(v), nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			s, _ := asString(item)
			out[i] = strings.TrimSpace(s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported string slice type %T", value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// toStringKeyMap normalizes a nested section to lowercase string keys. YAML
// decoders may hand back map[interface{}]interface{}.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	norm := func(key interface{}) string {
		s, _ := asString(key)
		return strings.ToLower(strings.TrimSpace(s))
	}
	result := map[string]interface{}{}
	switch v := value.(type) {
	case map[string]interface{}:
		for key, val := range v {
			result[norm(key)] = val
		}
	case map[interface{}]interface{}:
		for key, val := range v {
			result[norm(key)] = val
		}
	default:
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	return result, nil
}
