package internal

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"era-inventory-panel/internal/access"
	"era-inventory-panel/internal/activity"
	"era-inventory-panel/internal/backend"
	"era-inventory-panel/internal/export"
	"era-inventory-panel/internal/handlers"
	"era-inventory-panel/internal/session"
	"era-inventory-panel/pkg/importer"

	"github.com/rs/zerolog/log"
)

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

// exportRecords writes the table's filtered and sorted rows, every page.
func (s *Server) exportRecords(w http.ResponseWriter, r *http.Request, ext string) {
	ent := entityFrom(r.Context())
	q, sortParam := s.tableQuery(r, ent.Name, listParams{})

	recs, cols, err := s.visibleRecords(r.Context(), ent, q, sortParam)
	if err != nil {
		s.fail(r, recordsArea(ent), "Exporting "+ent.Label, err)
		redirect(w, r, entityBase(ent))
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if ext == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, ent.Label, cols, recs)
	} else {
		err = export.WriteCSV(&buf, cols, recs)
	}
	if err != nil {
		log.Error().Err(err).Str("entity", ent.Name).Str("format", ext).Msg("export")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	attachment(w, contentType, export.Filename(ent.Name, ext), buf.Bytes())
}

func (s *Server) exportRecordsCSV(w http.ResponseWriter, r *http.Request) {
	s.exportRecords(w, r, "csv")
}

func (s *Server) exportRecordsXLSX(w http.ResponseWriter, r *http.Request) {
	s.exportRecords(w, r, "xlsx")
}

func (s *Server) exportEmployees(w http.ResponseWriter, r *http.Request) {
	var status, search string
	s.Sessions.Do(session.FromContext(r.Context()), func(ws *session.Workspace) {
		status, search = ws.Employee.Status, ws.Employee.Search
	})

	emps, err := s.Backend.Employees(r.Context())
	if err != nil {
		s.fail(r, employeesArea, "Exporting employees", err)
		redirect(w, r, employeesBase)
		return
	}
	emps = access.FilterEmployees(emps, status, search)
	rows := make([]export.Fields, 0, len(emps))
	for _, e := range emps {
		rows = append(rows, export.EmployeeRow(e))
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.EmployeeColumns, rows); err != nil {
		log.Error().Err(err).Msg("export employees")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	attachment(w, "text/csv; charset=utf-8", export.Filename(backend.EntityEmployee, "csv"), buf.Bytes())
}

// importHandler reports import outcomes as a flash message on the records
// page instead of JSON.
func (s *Server) importHandler() *handlers.ImportsHandler {
	allowed := make([]string, 0, len(s.Config.Entities))
	for _, e := range s.Config.Entities {
		allowed = append(allowed, e.Name)
	}
	h := handlers.NewImportsHandler(s.Backend, allowed...)
	h.DefaultMap = s.Config.ImportMapping
	h.Restrict = true
	h.Respond = func(w http.ResponseWriter, r *http.Request, status int, payload map[string]any) {
		ent := entityFrom(r.Context())
		area := recordsArea(ent)
		sum, _ := payload["data"].(importer.ImportSummary)

		switch {
		case status == http.StatusOK && sum.DryRun:
			s.flash(r, area, session.Info, fmt.Sprintf("Dry run: %d would be added, %d updated, %d skipped, %d errors",
				sum.Inserted, sum.Updated, sum.Skipped, sum.Errors))
		case status == http.StatusOK:
			s.record(r, activity.Import, ent.Name, "",
				fmt.Sprintf("%d added, %d updated, %d errors", sum.Inserted, sum.Updated, sum.Errors))
			kind := session.Success
			if sum.Errors > 0 {
				kind = session.Warning
			}
			s.flash(r, area, kind, fmt.Sprintf("Imported %d new and %d updated records, %d skipped, %d errors",
				sum.Inserted, sum.Updated, sum.Skipped, sum.Errors))
		default:
			msg, _ := payload["details"].(string)
			if msg == "" {
				msg, _ = payload["error"].(string)
			}
			s.flash(r, area, session.Error, "Import failed: "+msg)
		}
		redirect(w, r, entityBase(ent))
	}
	return h
}
