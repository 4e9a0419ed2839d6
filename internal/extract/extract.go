// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls structured JSON out of free-text model responses.
// Model output is unreliable input: every function here reports failure
// with a nil value or a false flag and never returns an error.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencePattern         = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
)

// Parse decodes the JSON embedded in raw. It prefers the interior of a
// ```json fenced block and otherwise uses the whole text, then removes
// trailing commas before closing brackets.
//
// When the decoded value is an object, every name in expectedKeys must be
// present. When it is a list whose first element is an object, that element
// must carry the keys. Lists of scalars are accepted as is. Parse returns
// nil on any failure.
func Parse(raw string, expectedKeys ...string) any {
	text := raw
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	text = trailingCommaPattern.ReplaceAllString(text, "$1")

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil
	}

	switch t := v.(type) {
	case map[string]any:
		if !hasKeys(t, expectedKeys) {
			return nil
		}
	case []any:
		if len(t) > 0 {
			if first, ok := t[0].(map[string]any); ok && !hasKeys(first, expectedKeys) {
				return nil
			}
		}
	}
	return v
}

func hasKeys(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// StringList decodes a JSON list of strings. Non-string scalars are
// rendered with their JSON text; nested values fail the decode.
func StringList(raw string) ([]string, bool) {
	list, ok := Parse(raw).([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64, bool:
			b, _ := json.Marshal(v)
			out = append(out, string(b))
		default:
			return nil, false
		}
	}
	return out, true
}

// Pairs decodes a JSON list whose elements are all two-item lists of
// non-empty strings.
func Pairs(raw string) ([][2]string, bool) {
	list, ok := Parse(raw).([]any)
	if !ok {
		return nil, false
	}
	out := make([][2]string, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, false
		}
		first, ok1 := pair[0].(string)
		second, ok2 := pair[1].(string)
		if !ok1 || !ok2 || strings.TrimSpace(first) == "" || strings.TrimSpace(second) == "" {
			return nil, false
		}
		out = append(out, [2]string{strings.TrimSpace(first), strings.TrimSpace(second)})
	}
	return out, true
}

// Object decodes a JSON object carrying every name in keys.
func Object(raw string, keys ...string) (map[string]any, bool) {
	obj, ok := Parse(raw, keys...).(map[string]any)
	return obj, ok
}

// Strings converts a decoded JSON list to strings, skipping non-string
// elements. A nil or non-list value yields nil.
func Strings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
