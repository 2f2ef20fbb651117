// Package export writes the visible rows of a table as CSV or XLSX.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"era-inventory-panel/internal/models"

	"github.com/tealeg/xlsx/v3"
)

// Valuer exposes raw column values so numbers and strings can be written
// differently.
type Valuer interface {
	Get(column string) (any, bool)
}

// WriteCSV writes a header row and one line per record. Strings are quoted
// with embedded quotes doubled, numbers and booleans are written raw and
// nulls as empty fields. Lines are separated by "\n" with no trailing newline.
func WriteCSV[T Valuer](w io.Writer, columns []string, rows []T) error {
	if len(columns) == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = headerField(c)
	}
	if _, err := bw.WriteString(strings.Join(header, ",")); err != nil {
		return err
	}

	fields := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			v, _ := r.Get(c)
			fields[i] = csvField(v)
		}
		if _, err := bw.WriteString("\n" + strings.Join(fields, ",")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func headerField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return quote(s)
	}
	return s
}

func csvField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return quote(t)
	case float64, int, int64, bool:
		return models.FormatValue(t)
	default:
		return quote(models.FormatValue(t))
	}
}

// WriteXLSX writes the same rows as a single-sheet workbook.
func WriteXLSX[T Valuer](w io.Writer, sheetName string, columns []string, rows []T) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetTitle(sheetName))
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, c := range columns {
		header.AddCell().SetString(c)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, c := range columns {
			v, _ := r.Get(c)
			cell := row.AddCell()
			switch t := v.(type) {
			case nil:
			case float64:
				cell.SetFloat(t)
			case int:
				cell.SetInt(t)
			case int64:
				cell.SetInt64(t)
			case bool:
				cell.SetBool(t)
			default:
				cell.SetString(models.FormatValue(t))
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// sheetTitle trims a name to the 31 characters Excel allows.
func sheetTitle(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Sheet1"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// Filename builds the download name for an entity export.
func Filename(entity, ext string) string {
	return strings.ToLower(entity) + "s." + ext
}

// Fields is a map-backed Valuer for rows assembled outside models.Record.
type Fields map[string]any

func (f Fields) Get(column string) (any, bool) {
	v, ok := f[column]
	return v, ok
}

// EmployeeRow adapts an employee for export.
func EmployeeRow(e models.Employee) Fields {
	var end any
	if !e.Active() {
		end = e.EndDateValue()
	}
	return Fields{
		"id":        e.ID,
		"first":     e.First,
		"last":      e.Last,
		"branch":    e.Branch,
		"jobTitle":  e.JobTitle,
		"startDate": e.StartDate,
		"endDate":   end,
		"created":   e.Created,
	}
}

// EmployeeColumns is the export column order for employees.
var EmployeeColumns = []string{"id", "first", "last", "branch", "jobTitle", "startDate", "endDate", "created"}
