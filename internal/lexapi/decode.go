package lexapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CloudFormation delivers every scalar in the resource properties payload as
// a string. The service model expects typed values, so well-known numeric
// and boolean keys are coerced before the payload is bound to a request
// struct. Everything else passes through untouched.
var (
	boolKeys = map[string]bool{
		"childDirected":            true,
		"detectSentiment":          true,
		"active":                   true,
		"enabled":                  true,
		"allowInterrupt":           true,
		"allowMultipleValues":      true,
		"enableCodeHookInvocation": true,
	}
	intKeys = map[string]bool{
		"idleSessionTTLInSeconds": true,
		"priority":                true,
		"maxRetries":              true,
		"maxLengthMs":             true,
		"timeoutInSeconds":        true,
		"delayInSeconds":          true,
		"frequencyInSeconds":      true,
	}
	floatKeys = map[string]bool{
		"nluIntentConfidenceThreshold": true,
	}
)

// bind proxies an attribute map into an API request struct via a JSON
// round trip. Field matching is case-insensitive, which lines up the
// camelCase wire keys with the SDK's exported field names.
func bind(attrs map[string]any, dst any) error {
	payload := coerceMap(attrs)
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request attributes: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("binding request attributes: %w", err)
	}
	return nil
}

func coerceMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = coerceValue(k, v)
	}
	return out
}

func coerceValue(key string, v any) any {
	switch val := v.(type) {
	case string:
		switch {
		case boolKeys[key]:
			return strings.EqualFold(val, "true")
		case intKeys[key]:
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				return n
			}
		case floatKeys[key]:
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
		return val
	case map[string]any:
		return coerceMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = coerceValue(key, item)
		}
		return out
	default:
		return v
	}
}
