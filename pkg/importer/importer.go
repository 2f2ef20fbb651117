package importer

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"era-inventory-panel/internal/models"

	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	// Entity receives sheets that have no mapping entry. Empty skips them.
	Entity      string
	MappingPath string
	Mapping     *MappingConfig
	DryRun      bool
	MaxErrors   int // default 50
	// Restrict skips mapped sheets whose entity is not Entity.
	Restrict bool
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Entity   string     `json:"entity"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig represents the YAML mapping configuration
type MappingConfig struct {
	Version  int                    `yaml:"version"`
	Defaults map[string]interface{} `yaml:"defaults"`
	Sheets   map[string]SheetConfig `yaml:"sheets"`
}

type SheetConfig struct {
	Entity     string                  `yaml:"entity"`
	NaturalKey []string                `yaml:"natural_key"`
	Aliases    map[string][]string     `yaml:"aliases"`
	Columns    map[string]ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// Store is the backend surface the importer writes through.
type Store interface {
	List(ctx context.Context, entity string) ([]models.Record, error)
	Create(ctx context.Context, entity string, body any) error
	Update(ctx context.Context, entity, id string, body any) error
}

// DefaultMapping maps "Items" and "Vendors" sheets onto their entities,
// keeping every header as a field and matching existing rows by name.
func DefaultMapping() *MappingConfig {
	return &MappingConfig{
		Version: 1,
		Sheets: map[string]SheetConfig{
			"Items": {
				Entity:     "Item",
				NaturalKey: []string{"serialNumber", "name"},
				Aliases: map[string][]string{
					"serialNumber": {"Serial", "Serial Number", "S/N"},
					"name":         {"Name", "Item", "Description"},
				},
			},
			"Vendors": {
				Entity:     "Vendor",
				NaturalKey: []string{"name"},
				Aliases: map[string][]string{
					"name":  {"Name", "Vendor", "Company"},
					"phone": {"Phone", "Telephone"},
					"email": {"Email", "E-mail"},
				},
			},
		},
	}
}

// LoadMapping reads a YAML mapping file.
func LoadMapping(path string) (*MappingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m MappingConfig
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.Sheets == nil {
		m.Sheets = map[string]SheetConfig{}
	}
	for name, sc := range m.Sheets {
		if sc.Entity == "" {
			return nil, fmt.Errorf("sheet %q: entity is required", name)
		}
	}
	return &m, nil
}

// ImportExcel reads a workbook and creates or updates one backend record per
// data row.
func ImportExcel(ctx context.Context, store Store, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}

	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	mapping := opts.Mapping
	if mapping == nil {
		if opts.MappingPath != "" {
			m, err := LoadMapping(opts.MappingPath)
			if err != nil {
				return summary, fmt.Errorf("failed to load mapping config: %w", err)
			}
			mapping = m
		} else {
			mapping = DefaultMapping()
		}
	}

	// xlsx.OpenBinary needs the whole file
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}

	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	for _, sheet := range xlFile.Sheets {
		sheetConfig, exists := lookupSheet(mapping, sheet.Name)
		if !exists {
			if opts.Entity == "" {
				continue
			}
			sheetConfig = SheetConfig{Entity: opts.Entity}
		}
		if opts.Restrict && !strings.EqualFold(sheetConfig.Entity, opts.Entity) {
			continue
		}

		sheetSummary := processSheet(ctx, store, sheet, sheetConfig, opts, mapping.Defaults)
		summary.Sheets = append(summary.Sheets, sheetSummary)

		summary.Inserted += sheetSummary.Inserted
		summary.Updated += sheetSummary.Updated
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors

		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	return summary, nil
}

func lookupSheet(m *MappingConfig, name string) (SheetConfig, bool) {
	for k, v := range m.Sheets {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return v, true
		}
	}
	return SheetConfig{}, false
}

// header is one spreadsheet column resolved to a record field.
type header struct {
	col   int
	field string
	typ   string
}

func resolveHeaders(row *xlsx.Row, maxCol int, config SheetConfig) []header {
	aliasMap := make(map[string]string)
	for field, aliases := range config.Aliases {
		aliasMap[strings.ToUpper(field)] = field
		for _, alias := range aliases {
			aliasMap[strings.ToUpper(alias)] = field
		}
	}

	var out []header
	for colIdx := 0; colIdx < maxCol; colIdx++ {
		name := strings.TrimSpace(row.GetCell(colIdx).String())
		if name == "" {
			continue
		}
		field := name
		if f, ok := aliasMap[strings.ToUpper(name)]; ok {
			field = f
		}

		h := header{col: colIdx, field: field}
		if len(config.Columns) > 0 {
			key, cc, ok := columnConfig(config.Columns, field)
			if !ok {
				continue
			}
			h.field = key
			if cc.Field != "" {
				h.field = cc.Field
			}
			h.typ = cc.Type
		}
		out = append(out, h)
	}
	return out
}

func columnConfig(cols map[string]ColumnConfig, field string) (string, ColumnConfig, bool) {
	for k, v := range cols {
		if strings.EqualFold(k, field) {
			return k, v, true
		}
	}
	return "", ColumnConfig{}, false
}

func processSheet(ctx context.Context, store Store, sheet *xlsx.Sheet, config SheetConfig, opts ImportOptions, defaults map[string]interface{}) SheetSummary {
	summary := SheetSummary{Name: sheet.Name, Entity: config.Entity}
	if sheet.MaxRow == 0 {
		return summary
	}

	fail := func(row int, msg string) {
		summary.Errors++
		if len(summary.Samples) < 10 {
			summary.Samples = append(summary.Samples, RowError{Sheet: sheet.Name, Row: row, Message: msg})
		}
	}

	headerRow, err := sheet.Row(0)
	if err != nil {
		fail(1, "Failed to read header row: "+err.Error())
		return summary
	}
	headers := resolveHeaders(headerRow, sheet.MaxCol, config)
	if len(headers) == 0 {
		fail(1, "header row has no usable columns")
		return summary
	}

	existing, err := store.List(ctx, config.Entity)
	if err != nil {
		fail(1, "Failed to load existing records: "+err.Error())
		return summary
	}

	for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			break
		}

		rec, err := buildRecord(row, headers, defaults)
		if err != nil {
			fail(rowIdx+1, err.Error())
			continue
		}
		if rec.Len() == 0 {
			summary.Skipped++
			continue
		}

		match, found := findExisting(existing, rec, config.NaturalKey)
		if found {
			if !opts.DryRun {
				if err := store.Update(ctx, config.Entity, match.ID(), merge(match, rec)); err != nil {
					fail(rowIdx+1, err.Error())
					continue
				}
			}
			summary.Updated++
			continue
		}

		if !opts.DryRun {
			if err := store.Create(ctx, config.Entity, rec); err != nil {
				fail(rowIdx+1, err.Error())
				continue
			}
		}
		summary.Inserted++
	}

	return summary
}

func buildRecord(row *xlsx.Row, headers []header, defaults map[string]interface{}) (models.Record, error) {
	rec := models.Record{}
	for _, h := range headers {
		value := strings.TrimSpace(row.GetCell(h.col).String())
		if value == "" {
			continue
		}
		parsed, err := parseValue(value, h.typ)
		if err != nil {
			return models.Record{}, fmt.Errorf("failed to parse %s: %v", h.field, err)
		}
		rec.Set(h.field, parsed)
	}
	if rec.Len() == 0 {
		return rec, nil
	}
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := rec.Get(k); !ok {
			rec.Set(k, defaults[k])
		}
	}
	return rec, nil
}

// findExisting tries each natural key column in order.
func findExisting(existing []models.Record, rec models.Record, naturalKey []string) (models.Record, bool) {
	for _, key := range naturalKey {
		want := rec.Text(key)
		if want == "" {
			continue
		}
		for _, e := range existing {
			if e.ID() != "" && strings.EqualFold(e.Text(key), want) {
				return e, true
			}
		}
	}
	return models.Record{}, false
}

func merge(base, patch models.Record) models.Record {
	out := models.Record{}
	for _, k := range base.Keys() {
		v, _ := base.Get(k)
		out.Set(k, v)
	}
	for _, k := range patch.Keys() {
		v, _ := patch.Get(k)
		out.Set(k, v)
	}
	return out
}

func parseValue(value, valueType string) (interface{}, error) {
	valueType = strings.TrimSuffix(valueType, "?") // Remove optional marker

	switch strings.ToUpper(valueType) {
	case "", "TEXT", "STRING":
		return value, nil
	case "INT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		return float64(n), nil
	case "FLOAT", "NUMBER":
		return strconv.ParseFloat(value, 64)
	case "BOOL":
		value = strings.ToLower(value)
		return value == "yes" || value == "y" || value == "true" || value == "1", nil
	case "INET", "IP":
		if net.ParseIP(value) == nil {
			return nil, fmt.Errorf("invalid IP address: %s", value)
		}
		return value, nil
	case "DATE", "TIMESTAMP":
		formats := []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"01/02/2006",
			"01/02/2006 15:04:05",
			"1/2/06",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, value); err == nil {
				return t.UTC().Format(time.RFC3339), nil
			}
		}
		return nil, fmt.Errorf("invalid timestamp format: %s", value)
	default:
		return value, nil
	}
}
