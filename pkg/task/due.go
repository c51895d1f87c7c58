package task

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidDueDate is returned by ParseDueDate for text it cannot read.
var ErrInvalidDueDate = errors.New("unrecognised due date")

var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate accepts RFC 3339, a zone-less timestamp or a date (both
// read as UTC), or "today"/"tomorrow" relative to now. The result is UTC
// at second precision.
func ParseDueDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "today", "now":
		return now.UTC().Truncate(time.Second), nil
	case "tomorrow":
		return now.UTC().AddDate(0, 0, 1).Truncate(time.Second), nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}
