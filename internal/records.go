package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"era-inventory-panel/internal/activity"
	"era-inventory-panel/internal/config"
	"era-inventory-panel/internal/models"
	"era-inventory-panel/internal/records"
	"era-inventory-panel/internal/session"
	"era-inventory-panel/internal/table"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type entityKey struct{}

// requireEntity resolves {entity} against the configured tables and 404s
// for anything else.
func (s *Server) requireEntity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ent, ok := s.Config.Entity(chi.URLParam(r, "entity"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), entityKey{}, ent)))
	})
}

func entityFrom(ctx context.Context) config.EntityConfig {
	ent, _ := ctx.Value(entityKey{}).(config.EntityConfig)
	return ent
}

func entityBase(ent config.EntityConfig) string {
	return "/manage/" + ent.Name
}

func recordsArea(ent config.EntityConfig) string {
	return "records:" + ent.Name
}

type columnHeader struct {
	Label   string
	SortURL string
	Arrow   string
}

type recordRow struct {
	Cells     []string
	Selected  bool
	SelectURL string
}

type recordsView struct {
	Entity     string
	Label      string
	Tooltip    string
	Base       string
	Err        string
	Query      string
	Sort       string
	Size       int
	Sizes      []int
	Headers    []columnHeader
	Rows       []recordRow
	Window     table.PageWindow
	Page       int
	Pages      int
	Filtered   int
	Shown      int
	SelectedID string
	FormOpen   bool
	FormMode   string
	Fields     []records.Field
}

func (v recordsView) PageURL(p int) string {
	return withQuery(v.Base, "page", strconv.Itoa(p))
}

func (v recordsView) ExportURL(ext string) string {
	return v.Base + "/export." + ext
}

// loadRecords fetches a table, using the backend search when the table
// supports it and a keyword is set.
func (s *Server) loadRecords(ctx context.Context, ent config.EntityConfig, q string) ([]models.Record, error) {
	if q != "" && ent.Searchable {
		return s.Backend.Search(ctx, ent.Name, q)
	}
	return s.Backend.List(ctx, ent.Name)
}

// visibleRecords returns the filtered and sorted record set and its columns.
// A search that matches nothing still reports the listed table's columns.
func (s *Server) visibleRecords(ctx context.Context, ent config.EntityConfig, q, sortParam string) ([]models.Record, []string, error) {
	all, err := s.loadRecords(ctx, ent, q)
	if err != nil {
		return nil, nil, err
	}
	cols := records.Columns(all)
	if len(cols) == 0 && q != "" && ent.Searchable {
		listed, err := s.Backend.List(ctx, ent.Name)
		if err != nil {
			return nil, nil, err
		}
		cols = records.Columns(listed)
	}
	return table.Sort(table.Filter(all, cols, q), sortParam), cols, nil
}

func recordFingerprint(q, sortParam string, recs []models.Record) uint64 {
	parts := make([]string, 0, len(recs)+2)
	parts = append(parts, q, sortParam)
	for i, rec := range recs {
		id := rec.ID()
		if id == "" {
			id = "#" + strconv.Itoa(i)
		}
		parts = append(parts, id)
	}
	return table.Fingerprint(parts...)
}

// tableQuery merges the request's q and sort into the saved table view and
// returns the effective values.
func (s *Server) tableQuery(r *http.Request, entity string, p listParams) (q, sortParam string) {
	s.Sessions.Do(session.FromContext(r.Context()), func(ws *session.Workspace) {
		tv := ws.Table(entity)
		if p.hasQ {
			tv.Query = p.q
		}
		if p.hasSort {
			tv.Sort = p.sort
		}
		q, sortParam = tv.Query, tv.Sort
	})
	return q, sortParam
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	ent := entityFrom(r.Context())
	p := parseListParams(r)
	q, sortParam := s.tableQuery(r, ent.Name, p)

	v := recordsView{
		Entity:  ent.Name,
		Label:   ent.Label,
		Tooltip: ent.Tooltip,
		Base:    entityBase(ent),
		Query:   q,
		Sort:    sortParam,
		Sizes:   table.Sizes,
	}

	recs, cols, err := s.visibleRecords(r.Context(), ent, q, sortParam)
	if err != nil {
		log.Error().Err(err).Str("entity", ent.Name).Msg("load records")
		v.Err = errorText("Loading "+ent.Label, err)
	}

	var tv session.TableView
	s.Sessions.Do(session.FromContext(r.Context()), func(ws *session.Workspace) {
		t := ws.Table(ent.Name)
		size := p.size
		if size == 0 {
			size = t.State.Size
		}
		if !t.State.Sync(recordFingerprint(q, sortParam, recs), size) {
			page := t.State.Page
			if p.page > 0 {
				page = p.page
			}
			t.State.Goto(page, len(recs))
		}
		if t.Selection.Active() && findRecord(recs, t.Selection.ID) < 0 {
			t.Selection.Clear()
		}
		tv = *t
	})

	v.Size = tv.State.Size
	v.Page = tv.State.Page
	v.Pages = table.Pages(len(recs), v.Size)
	v.Filtered = len(recs)
	v.Window = table.Window(v.Page, v.Pages, s.Config.PageWindow)
	v.SelectedID = tv.Selection.ID
	v.FormOpen = tv.FormOpen
	v.FormMode = tv.FormMode

	for _, c := range cols {
		v.Headers = append(v.Headers, columnHeader{
			Label:   records.Label(c),
			SortURL: withQuery(v.Base, "sort", nextSort(sortParam, c)),
			Arrow:   sortArrow(sortParam, c),
		})
	}
	for i, rec := range table.Slice(recs, v.Page, v.Size) {
		row := recordRow{
			Selected:  tv.Selection.Active() && rec.ID() == tv.Selection.ID,
			SelectURL: withQuery(v.Base+"/select", "row", strconv.Itoa(i), "id", rec.ID()),
		}
		for _, c := range cols {
			row.Cells = append(row.Cells, rec.Text(c))
		}
		v.Rows = append(v.Rows, row)
	}
	v.Shown = len(v.Rows)

	if v.FormOpen {
		mode, _ := records.ParseMode(v.FormMode)
		var current models.Record
		if i := findRecord(recs, v.SelectedID); i >= 0 {
			current = recs[i]
		}
		v.Fields = records.Fields(cols, mode, current, ent.Required)
	}

	s.render(w, r, "records", ent.Name, ent.Label, recordsArea(ent), v)
}

func findRecord(recs []models.Record, id string) int {
	if id == "" {
		return -1
	}
	for i, rec := range recs {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}

// selectRecord focuses a row; without an id it is a click outside the table.
func (s *Server) selectRecord(w http.ResponseWriter, r *http.Request) {
	ent := entityFrom(r.Context())
	id := r.URL.Query().Get("id")
	row, _ := strconv.Atoi(r.URL.Query().Get("row"))

	s.Sessions.Do(session.FromContext(r.Context()), func(ws *session.Workspace) {
		t := ws.Table(ent.Name)
		if id == "" {
			t.Selection.ClickOutside(t.FormOpen)
			return
		}
		t.Selection.Select(row, id)
	})
	redirect(w, r, entityBase(ent))
}

// toggleForm opens the record form in create or update mode, or closes it.
func (s *Server) toggleForm(w http.ResponseWriter, r *http.Request) {
	ent := entityFrom(r.Context())
	sid := session.FromContext(r.Context())

	if r.URL.Query().Get("close") != "" {
		s.Sessions.Do(sid, func(ws *session.Workspace) {
			ws.Table(ent.Name).FormOpen = false
		})
		redirect(w, r, entityBase(ent))
		return
	}

	mode, err := records.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var opened bool
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		t := ws.Table(ent.Name)
		if mode == records.ModeUpdate && !t.Selection.Active() {
			return
		}
		t.FormOpen = true
		t.FormMode = string(mode)
		opened = true
	})
	if !opened {
		s.flash(r, recordsArea(ent), session.Warning, "Select a record to edit")
	}
	redirect(w, r, entityBase(ent))
}

func (s *Server) saveRecord(w http.ResponseWriter, r *http.Request) {
	ent := entityFrom(r.Context())
	sid := session.FromContext(r.Context())
	area := recordsArea(ent)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	mode, err := records.ParseMode(r.PostForm.Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var selected string
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		selected = ws.Table(ent.Name).Selection.ID
	})
	if mode == records.ModeUpdate && selected == "" {
		s.flash(r, area, session.Warning, "Select a record to edit")
		redirect(w, r, entityBase(ent))
		return
	}

	all, err := s.Backend.List(r.Context(), ent.Name)
	if err != nil {
		s.fail(r, area, "Loading "+ent.Label, err)
		redirect(w, r, entityBase(ent))
		return
	}
	cols := records.Columns(all)
	var current models.Record
	if mode == records.ModeUpdate {
		i := findRecord(all, selected)
		if i < 0 {
			s.flash(r, area, session.Warning, "The selected record no longer exists")
			redirect(w, r, entityBase(ent))
			return
		}
		current = all[i]
	}

	fields := records.Fields(cols, mode, current, ent.Required)
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Name] = r.PostForm.Get(f.Name)
	}
	if err := records.Validate(fields, values); err != nil {
		s.flash(r, area, session.Warning, err.Error())
		redirect(w, r, entityBase(ent))
		return
	}

	rec := records.Build(fields, values, current)
	if err := records.Submit(r.Context(), s.Backend, ent.Name, mode, selected, rec); err != nil {
		s.fail(r, area, "Saving the record", err)
		redirect(w, r, entityBase(ent))
		return
	}

	action, msg := activity.Create, "Record added"
	if mode == records.ModeUpdate {
		action, msg = activity.Update, "Record updated"
	}
	s.record(r, action, ent.Name, selected, "")
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		ws.Table(ent.Name).FormOpen = false
	})
	s.flash(r, area, session.Success, msg)
	redirect(w, r, entityBase(ent))
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	ent := entityFrom(r.Context())
	sid := session.FromContext(r.Context())
	area := recordsArea(ent)

	var selected string
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		selected = ws.Table(ent.Name).Selection.ID
	})

	err := records.Delete(r.Context(), s.Backend, ent.Name, selected)
	switch {
	case errors.Is(err, records.ErrNoSelection):
		s.flash(r, area, session.Warning, "Select a record to delete")
	case err != nil:
		s.fail(r, area, "Deleting the record", err)
	default:
		s.record(r, activity.Delete, ent.Name, selected, "")
		s.Sessions.Do(sid, func(ws *session.Workspace) {
			t := ws.Table(ent.Name)
			t.Selection.Clear()
			t.FormOpen = false
		})
		s.flash(r, area, session.Success, fmt.Sprintf("Record %s deleted", selected))
	}
	redirect(w, r, entityBase(ent))
}
