package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Record is a flat Item/Vendor row as returned by the backend. Keys keep the
// order in which the backend serialized them so table columns are stable.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from alternating key/value pairs.
func NewRecord(kv ...any) Record {
	r := Record{values: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

// Set stores a value, appending the key when it is new.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the column names in backend order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Record) Len() int { return len(r.keys) }

// IDKey returns the record's identifier column ("id", any case).
func (r Record) IDKey() string {
	for _, k := range r.keys {
		if strings.EqualFold(k, "id") {
			return k
		}
	}
	return ""
}

// ID returns the primary key value formatted for URLs, or "" when absent.
func (r Record) ID() string {
	k := r.IDKey()
	if k == "" {
		return ""
	}
	return FormatValue(r.values[k])
}

// Text returns the display form of a column value.
func (r Record) Text(key string) string {
	return FormatValue(r.values[key])
}

// Complete reports whether every column carries a non-empty value.
func (r Record) Complete() bool {
	for _, k := range r.keys {
		if r.Text(k) == "" {
			return false
		}
	}
	return true
}

// FormatValue renders a decoded JSON value the way the table displays it.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// MarshalJSON writes the keys in their original order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid record JSON")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("record must be a JSON object")
	}
	*r = recordFromResult(res)
	return nil
}

// ParseRecords decodes a JSON array of flat objects preserving key order.
func ParseRecords(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid records JSON")
	}
	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		return []Record{}, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("records must be a JSON array")
	}
	out := []Record{}
	var err error
	res.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			err = fmt.Errorf("record %d is not an object", len(out))
			return false
		}
		out = append(out, recordFromResult(item))
		return true
	})
	return out, err
}

func recordFromResult(res gjson.Result) Record {
	r := Record{values: map[string]any{}}
	res.ForEach(func(k, v gjson.Result) bool {
		r.Set(k.String(), v.Value())
		return true
	})
	return r
}
