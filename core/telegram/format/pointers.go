package format

import "time"

// DerefString safely dereferences a *string and returns a default value if nil.
func DerefString(s *string, defaultVal string) string {
	if s != nil {
		return *s
	}
	return defaultVal
}

// DerefTime formats *t with layout in UTC, or returns defaultVal if nil.
func DerefTime(t *time.Time, layout, defaultVal string) string {
	if t == nil || t.IsZero() {
		return defaultVal
	}
	return t.UTC().Format(layout)
}
