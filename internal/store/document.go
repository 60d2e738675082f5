package store

import (
	"strings"
	"time"
)

// Reserved document keys, owned by the store.
const (
	KeyID        = "_id"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// Document is a JSON object.
type Document map[string]any

// ID returns the document's id, or "" when unset.
func (d Document) ID() string {
	id, _ := d[KeyID].(string)
	return id
}

// String returns the string value of key, or "".
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

// Body returns a copy without the reserved keys.
func (d Document) Body() Document {
	body := d.Clone()
	if body == nil {
		body = Document{}
	}
	delete(body, KeyID)
	delete(body, KeyCreatedAt)
	delete(body, KeyUpdatedAt)
	return body
}

// Stamp sets the reserved keys on d.
func (d Document) Stamp(id string, createdAt, updatedAt time.Time) Document {
	d[KeyID] = id
	d[KeyCreatedAt] = createdAt.UTC()
	d[KeyUpdatedAt] = updatedAt.UTC()
	return d
}

// Merge applies patch onto a copy of d, ignoring reserved keys.
func (d Document) Merge(patch Document) Document {
	merged := d.Clone()
	if merged == nil {
		merged = Document{}
	}
	for k, v := range patch.Body() {
		merged[k] = v
	}
	return merged
}

// NormalizeEmail lower cases and trims an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = cloneValue(item)
		}
		return out
	case Document:
		return Document(cloneValue(map[string]any(x)).(map[string]any))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
