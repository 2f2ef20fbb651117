package models

import (
	"strings"
	"time"
)

type Employee struct {
	ID        int     `json:"id"`
	First     string  `json:"first" validate:"required"`
	Last      string  `json:"last" validate:"required"`
	Branch    string  `json:"branch" validate:"required"`
	JobTitle  string  `json:"jobTitle" validate:"required"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate"`
	Created   string  `json:"created"`
}

// Active reports whether the employee has no end date.
func (e Employee) Active() bool {
	return e.EndDate == nil || strings.TrimSpace(*e.EndDate) == ""
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.First + " " + e.Last)
}

// EndDateValue returns the end date or "" when the employee is active.
func (e Employee) EndDateValue() string {
	if e.EndDate == nil {
		return ""
	}
	return *e.EndDate
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts the timestamp shapes the backend emits and the
// yyyy-mm-dd values posted by date inputs.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InputDate converts a backend timestamp to the yyyy-mm-dd form used by date inputs.
func InputDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// ISODate converts a date input value back to an ISO-8601 timestamp.
func ISODate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
