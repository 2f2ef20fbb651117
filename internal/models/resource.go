package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Resource struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	CategoryID    int    `json:"categoryId"`
	AccessLevelID int    `json:"accessLevelId"`
}

// Device is a network device the backend monitors by address.
type Device struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required,max=100"`
	IPv4 string `json:"ipv4" validate:"required,ipv4"`
}

// AccessLevel and ResourceCategory share the soft-delete shape.
type AccessLevel struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active int    `json:"active"`
}

type ResourceCategory struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active int    `json:"active"`
}

// ResourceAssociation is an employee's grant on a resource. A nil Revoked
// means the grant is in effect.
type ResourceAssociation struct {
	ID         int        `json:"id"`
	ResourceID int        `json:"resourceId"`
	EmployeeID int        `json:"employeeId"`
	Granted    *Timestamp `json:"granted"`
	Revoked    *Timestamp `json:"revoked"`
	Created    *Timestamp `json:"created"`
}

// InEffect reports whether the association currently grants access.
func (a ResourceAssociation) InEffect() bool {
	return a.Granted != nil && !a.Granted.IsZero() && (a.Revoked == nil || a.Revoked.IsZero())
}

// EntityMetrics is the body of GET /api/{Entity}/metrics.
type EntityMetrics struct {
	Complete int `json:"complete"`
	Partial  int `json:"partial"`
}

// Timestamp decodes RFC 3339 strings, zone-less backend timestamps and
// unix-millisecond numbers.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		parsed, ok := ParseDate(raw)
		if !ok {
			return fmt.Errorf("unrecognized timestamp %q", raw)
		}
		t.Time = parsed
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("unrecognized timestamp %s", s)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}
