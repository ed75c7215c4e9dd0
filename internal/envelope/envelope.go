// Package envelope probes the loosely shaped JSON envelopes returned by the API.
// It is the only place that knows about alternative response shapes; callers
// decode what it hands back into their own canonical types.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var null = []byte("null")

// Lookup walks object keys and returns the value at path. A numeric key indexes
// into an array. A missing key, a scalar along the way or a JSON null all report false.
func Lookup(raw []byte, path ...string) (json.RawMessage, bool) {
	cur := bytes.TrimSpace(raw)
	for _, key := range path {
		if IsArray(cur) {
			idx, err := strconv.Atoi(key)
			if err != nil {
				return nil, false
			}
			var arr []json.RawMessage
			if err := json.Unmarshal(cur, &arr); err != nil || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = bytes.TrimSpace(arr[idx])
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = bytes.TrimSpace(next)
	}
	if len(cur) == 0 || bytes.Equal(cur, null) {
		return nil, false
	}
	return json.RawMessage(cur), true
}

// First returns the value of the first path that resolves.
func First(raw []byte, paths ...[]string) (json.RawMessage, bool) {
	for _, p := range paths {
		if v, ok := Lookup(raw, p...); ok {
			return v, true
		}
	}
	return nil, false
}

// String returns the non-empty string found at path.
func String(raw []byte, path ...string) (string, bool) {
	v, ok := Lookup(raw, path...)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// FirstString is String over several candidate paths.
func FirstString(raw []byte, paths ...[]string) (string, bool) {
	for _, p := range paths {
		if s, ok := String(raw, p...); ok {
			return s, true
		}
	}
	return "", false
}

// IsArray reports whether raw is a JSON array.
func IsArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// IsObject reports whether raw is a JSON object.
func IsObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// List decodes a collection that the API may return as {data:{data:[...]}},
// {data:{<name>:[...]}}, {data:[...]} or a bare array. Anything else is an empty list.
func List[T any](raw []byte, name string) ([]T, error) {
	var items json.RawMessage
	switch {
	case isArrayAt(raw, "data", "data"):
		items, _ = Lookup(raw, "data", "data")
	case isArrayAt(raw, "data", name):
		items, _ = Lookup(raw, "data", name)
	case isArrayAt(raw, "data"):
		items, _ = Lookup(raw, "data")
	case IsArray(raw):
		items = raw
	default:
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(items, &out); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func isArrayAt(raw []byte, path ...string) bool {
	v, ok := Lookup(raw, path...)
	return ok && IsArray(v)
}

// Item decodes a single resource found under data.<name>, <name>, data or at the
// top level, in that order.
func Item[T any](raw []byte, names ...string) (*T, error) {
	paths := make([][]string, 0, 2*len(names)+1)
	for _, name := range names {
		paths = append(paths, []string{"data", name}, []string{name})
	}
	paths = append(paths, []string{"data"})

	item, ok := First(raw, paths...)
	if !ok || !IsObject(item) {
		item = bytes.TrimSpace(raw)
	}
	if !IsObject(item) {
		return nil, fmt.Errorf("decode item: expected a JSON object")
	}
	out := new(T)
	if err := json.Unmarshal(item, out); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return out, nil
}
