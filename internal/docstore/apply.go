package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Encode converts a tagged struct (or any JSON-encodable value) into the
// plain map form stored in documents.
func Encode(value interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode fills out from a document value. Backends return numbers as
// float64 or int64 and nested values as maps, so the round trip goes through
// JSON to stay backend agnostic.
func Decode(value interface{}, out interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Normalize returns a deep copy of value made only of maps, slices,
// strings, float64, bool and nil.
func Normalize(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply executes updates against data in place. It is shared by the
// backends that cannot run transforms natively.
func Apply(data map[string]interface{}, updates []Update) error {
	for _, update := range updates {
		parts, err := splitPath(update.Path)
		if err != nil {
			return err
		}
		parent := data
		for _, key := range parts[:len(parts)-1] {
			next, ok := parent[key]
			if !ok || next == nil {
				child := map[string]interface{}{}
				parent[key] = child
				parent = child
				continue
			}
			child, ok := next.(map[string]interface{})
			if !ok {
				return fmt.Errorf("%w: %q is not a map", ErrInvalidPath, key)
			}
			parent = child
		}
		field := parts[len(parts)-1]
		value, err := transform(parent[field], update.Value)
		if err != nil {
			return err
		}
		parent[field] = value
	}
	return nil
}

func splitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

func transform(current interface{}, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case ArrayUnion:
		existing, _ := current.([]interface{})
		out := append([]interface{}{}, existing...)
		for _, elem := range v {
			normalized, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			if !containsValue(out, normalized) {
				out = append(out, normalized)
			}
		}
		return out, nil
	case ArrayRemove:
		existing, _ := current.([]interface{})
		var removals []interface{}
		for _, elem := range v {
			normalized, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			removals = append(removals, normalized)
		}
		out := []interface{}{}
		for _, item := range existing {
			if !containsValue(removals, item) {
				out = append(out, item)
			}
		}
		return out, nil
	case Increment:
		return toFloat(current) + v.By, nil
	default:
		return Normalize(value)
	}
}

func containsValue(values []interface{}, value interface{}) bool {
	for _, item := range values {
		if reflect.DeepEqual(item, value) {
			return true
		}
	}
	return false
}

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}
