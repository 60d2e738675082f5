package resource

import "strings"

// Match reports whether any of fields contains query, ignoring case.
// An empty query matches everything.
func Match(fields []string, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// matchStatus reports whether entity's workflow status equals status.
// "" and "all" match everything, as do entities without a status.
func matchStatus(entity any, status string) bool {
	if status == "" || strings.EqualFold(status, "all") {
		return true
	}
	s, ok := entity.(Stateful)
	if !ok {
		return true
	}
	return strings.EqualFold(s.EntityStatus(), status)
}
