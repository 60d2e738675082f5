package resource

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Fields is a partial entity: a create draft or an update patch, keyed by
// the entity's JSON field names.
type Fields map[string]any

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// Missing returns the required keys that are absent, nil or blank in f,
// in the order given.
func (f Fields) Missing(required []string) []string {
	var missing []string
	for _, key := range required {
		v, ok := f[key]
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// ParseFields turns command line assignments into Fields. "key=value"
// assigns a string; "key:=json" assigns a raw JSON value such as a number,
// boolean, array or object.
func ParseFields(args []string) (Fields, error) {
	fields := Fields{}
	for _, arg := range args {
		if key, raw, ok := strings.Cut(arg, ":="); ok && !strings.Contains(key, "=") {
			if key == "" {
				return nil, fmt.Errorf("missing field name in %q", arg)
			}
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("invalid JSON for field %s: %w", key, err)
			}
			fields[key] = v
			continue
		}

		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value or key:=json, got %q", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// merge overlays patch onto the JSON form of prior and decodes the result.
func merge[T any](prior T, patch Fields) (T, error) {
	var merged T

	data, err := json.Marshal(prior)
	if err != nil {
		return merged, fmt.Errorf("failed to encode entity: %w", err)
	}

	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return merged, fmt.Errorf("failed to decode entity: %w", err)
	}
	maps.Copy(doc, patch)

	data, err = json.Marshal(doc)
	if err != nil {
		return merged, fmt.Errorf("failed to encode merged entity: %w", err)
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		return merged, fmt.Errorf("failed to decode merged entity: %w", err)
	}
	return merged, nil
}
