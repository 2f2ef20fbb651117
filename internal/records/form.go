// Package records builds create/update forms for the dynamic Item and Vendor
// tables and submits them to the backend.
package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"era-inventory-panel/internal/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// ParseMode accepts "create" and "update"; anything else is an error.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCreate, ModeUpdate:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown form mode %q", s)
}

// Field is one input of a record form.
type Field struct {
	Name     string
	Label    string
	Type     string
	Value    string
	Required bool
	ReadOnly bool
}

// Columns returns the column names of a record set, taken from the first
// record's key order.
func Columns(recs []models.Record) []string {
	if len(recs) == 0 {
		return nil
	}
	return recs[0].Keys()
}

// Fields returns one input per column. The identifier is omitted in create
// mode and read from current in update mode.
func Fields(columns []string, mode Mode, current models.Record, required []string) []Field {
	req := make(map[string]bool, len(required))
	for _, r := range required {
		req[strings.ToLower(r)] = true
	}

	out := make([]Field, 0, len(columns))
	for _, c := range columns {
		isID := strings.EqualFold(c, "id")
		if isID && mode == ModeCreate {
			continue
		}
		f := Field{
			Name:     c,
			Label:    Label(c),
			Type:     InputType(c),
			Required: req[strings.ToLower(c)],
			ReadOnly: isID,
		}
		if mode == ModeUpdate {
			f.Value = current.Text(c)
			if f.Type == "date" {
				f.Value = models.InputDate(f.Value)
			}
		}
		out = append(out, f)
	}
	return out
}

// InputType is "date" for columns whose name mentions a date.
func InputType(column string) string {
	if strings.Contains(strings.ToLower(column), "date") {
		return "date"
	}
	return "text"
}

// Label turns a column key such as "purchaseDate" into "Purchase Date".
func Label(column string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range column {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case unicode.IsUpper(r) && prev != 0 && unicode.IsLower(prev):
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	label := cases.Title(language.English).String(b.String())
	if strings.EqualFold(label, "id") {
		return "ID"
	}
	return label
}

// ValidationError lists the required fields that were left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "required: " + strings.Join(e.Fields, ", ")
}

var validate = validator.New()

// Validate checks the required fields of a submitted form.
func Validate(fields []Field, values map[string]string) error {
	var missing []string
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if err := validate.Var(strings.TrimSpace(values[f.Name]), "required"); err != nil {
			missing = append(missing, f.Label)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Build converts submitted form values into a record in column order.
// Values keep the JSON type of the current record where they still parse
// as that type; empty inputs become null.
func Build(fields []Field, values map[string]string, current models.Record) models.Record {
	out := models.Record{}
	for _, f := range fields {
		raw := strings.TrimSpace(values[f.Name])
		prev, _ := current.Get(f.Name)
		out.Set(f.Name, coerce(prev, raw, f.Type))
	}
	return out
}

func coerce(prev any, raw, inputType string) any {
	if raw == "" {
		return nil
	}
	if inputType == "date" {
		if iso := models.ISODate(raw); iso != "" {
			return iso
		}
		return raw
	}
	switch prev.(type) {
	case float64, int, int64:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

// Store is the part of the backend client the form needs.
type Store interface {
	Create(ctx context.Context, entity string, body any) error
	Update(ctx context.Context, entity, id string, body any) error
	Delete(ctx context.Context, entity, id string) error
}

// ErrNoSelection is returned when an update or delete has no record id.
var ErrNoSelection = errors.New("no record selected")

// Submit posts a new record or puts an existing one.
func Submit(ctx context.Context, store Store, entity string, mode Mode, id string, rec models.Record) error {
	switch mode {
	case ModeCreate:
		if err := store.Create(ctx, entity, rec); err != nil {
			return fmt.Errorf("create %s: %w", entity, err)
		}
	case ModeUpdate:
		if id == "" {
			return ErrNoSelection
		}
		if err := store.Update(ctx, entity, id, rec); err != nil {
			return fmt.Errorf("update %s %s: %w", entity, id, err)
		}
	default:
		return fmt.Errorf("unknown form mode %q", mode)
	}
	return nil
}

// Delete removes the selected record.
func Delete(ctx context.Context, store Store, entity, id string) error {
	if id == "" {
		return ErrNoSelection
	}
	if err := store.Delete(ctx, entity, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", entity, id, err)
	}
	return nil
}
