// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
)

// StripCodeFence removes a surrounding triple-backtick fence, with or
// without a language tag, and trims whitespace. Text without a fence is
// returned trimmed.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag line ("json", "JSON", ...).
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		if tag := strings.TrimSpace(s[:i]); !strings.ContainsAny(tag, "{[") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeObject strips fences and decodes text as a JSON object. Comments
// and trailing commas are tolerated. Any failure wraps ErrMalformed.
func decodeObject(text string) (map[string]json.RawMessage, error) {
	body := StripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformed)
	}
	// Models sometimes add prose around the object; keep the outermost braces.
	if start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON([]byte(body)), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: reply is not an object", ErrMalformed)
	}
	return obj, nil
}

// stringField returns obj[key] as a string, or "" when absent or not a
// string.
func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// numberField returns obj[key] as a float. Numeric strings are accepted.
func numberField(obj map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := obj[key]
	if !ok {
		return 0, false
	}
	return asNumber(raw)
}

func asNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var g float64
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &g); err == nil {
			return g, true
		}
	}
	return 0, false
}
