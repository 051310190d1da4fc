package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize converts a value to its JSON shape: maps, slices, strings, float64, bool or nil.
func Normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	return out, nil
}

// NormalizeMap is Normalize for values that must encode as objects.
func NormalizeMap(value any) (map[string]any, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	out, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("normalize value: %T does not encode as an object", value)
	}
	return out, nil
}

// SetPath writes value at a dotted path, creating intermediate objects.
func SetPath(doc map[string]any, path string, value any) error {
	if !ValidKey(path) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, path)
	}
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// UnsetPath removes the value at a dotted path. Missing paths are ignored.
func UnsetPath(doc map[string]any, path string) error {
	if !ValidKey(path) || path == "_id" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, path)
	}
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
	return nil
}

// LookupPath reads the value at a dotted path.
func LookupPath(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// ApplyUpdate applies update to doc in place. SetOnInsert is only honoured when inserting.
func ApplyUpdate(doc map[string]any, update Update, inserting bool) error {
	if err := applySet(doc, update.Set); err != nil {
		return err
	}
	for _, path := range update.Unset {
		if err := UnsetPath(doc, path); err != nil {
			return err
		}
	}
	if inserting {
		return applySet(doc, update.SetOnInsert)
	}
	return nil
}

// NewFromFilter seeds the document an upsert creates from the equality filter.
// Range bounds are not copied.
func NewFromFilter(filter Filter) (map[string]any, error) {
	doc := map[string]any{}
	for path, value := range filter {
		if _, ok := value.(Range); ok {
			continue
		}
		if err := applySet(doc, map[string]any{path: value}); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func applySet(doc map[string]any, values map[string]any) error {
	for path, value := range values {
		normalized, err := Normalize(value)
		if err != nil {
			return err
		}
		if err := SetPath(doc, path, normalized); err != nil {
			return err
		}
	}
	return nil
}
