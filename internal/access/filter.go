package access

import (
	"sort"
	"strings"

	"era-inventory-panel/internal/models"
)

// Status filters for employee and access lists.
const (
	StatusAll      = "all"
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusGranted  = "granted"
	StatusRevoked  = "revoked"
)

// FilterEmployees applies the employment status filter and a name search
// over "first last".
func FilterEmployees(emps []models.Employee, status, query string) []models.Employee {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Employee, 0, len(emps))
	for _, e := range emps {
		switch status {
		case StatusActive:
			if !e.Active() {
				continue
			}
		case StatusInactive:
			if e.Active() {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(e.First+" "+e.Last), q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Row is one line of an employee's access table.
type Row struct {
	Resource    models.Resource
	Category    string
	AccessLevel string
	Granted     bool
	Pending     bool
	Since       string
}

// Rows joins resources with their category and access level names and the
// employee's effective grant state. Resources in inactive categories or
// access levels are left out.
func Rows(resources []models.Resource, cats []models.ResourceCategory, levels []models.AccessLevel,
	assocs []models.ResourceAssociation, pending Pending) []Row {
	catNames := map[int]string{}
	for _, c := range cats {
		if c.Active == 1 {
			catNames[c.ID] = c.Name
		}
	}
	levelNames := map[int]string{}
	for _, l := range levels {
		if l.Active == 1 {
			levelNames[l.ID] = l.Name
		}
	}

	out := make([]Row, 0, len(resources))
	for _, r := range resources {
		cat, okCat := catNames[r.CategoryID]
		lvl, okLvl := levelNames[r.AccessLevelID]
		if !okCat || !okLvl {
			continue
		}
		_, staged := pending[r.ID]
		row := Row{
			Resource:    r,
			Category:    cat,
			AccessLevel: lvl,
			Granted:     Effective(r.ID, assocs, pending),
			Pending:     staged,
		}
		if a, ok := Latest(r.ID, assocs); ok && a.InEffect() {
			row.Since = a.Granted.Format("2006-01-02")
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return strings.ToLower(out[i].Resource.Name) < strings.ToLower(out[j].Resource.Name)
	})
	return out
}

// FilterRows narrows access rows by category, access level and grant status.
// Zero ids and an empty or "all" status match everything.
func FilterRows(rows []Row, categoryID, levelID int, status string) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if categoryID != 0 && r.Resource.CategoryID != categoryID {
			continue
		}
		if levelID != 0 && r.Resource.AccessLevelID != levelID {
			continue
		}
		if status == StatusGranted && !r.Granted {
			continue
		}
		if status == StatusRevoked && r.Granted {
			continue
		}
		out = append(out, r)
	}
	return out
}
