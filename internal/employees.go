package internal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"era-inventory-panel/internal/access"
	"era-inventory-panel/internal/activity"
	"era-inventory-panel/internal/backend"
	"era-inventory-panel/internal/models"
	"era-inventory-panel/internal/session"
	"era-inventory-panel/internal/settings"
	"era-inventory-panel/internal/table"

	"github.com/rs/zerolog/log"
)

const (
	employeesBase = "/manage/" + backend.EntityEmployee
	employeesArea = "employees"
)

var (
	employeeStatuses = []string{access.StatusActive, access.StatusInactive, access.StatusAll}
	accessStatuses   = []string{access.StatusAll, access.StatusGranted, access.StatusRevoked}
)

type employeeRow struct {
	Employee  models.Employee
	Selected  bool
	SelectURL string
}

type employeeDetail struct {
	Name           string
	Err            string
	Form           access.EmployeeForm
	Access         []access.Row
	Categories     []settings.Named
	Levels         []settings.Named
	CategoryID     int
	LevelID        int
	AccessStatus   string
	AccessStatuses []string
	PendingCount   int
	AfterSave      string
}

type employeesView struct {
	Err         string
	Status      string
	Statuses    []string
	Search      string
	Size        int
	Sizes       []int
	Rows        []employeeRow
	Window      table.PageWindow
	Page        int
	Pages       int
	Filtered    int
	Shown       int
	NewFormOpen bool
	NewForm     access.EmployeeForm
	Detail      *employeeDetail
}

func (v employeesView) PageURL(p int) string {
	return withQuery(employeesBase, "page", strconv.Itoa(p))
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// employeeForm converts an employee to the values shown in its form.
func employeeForm(e models.Employee) access.EmployeeForm {
	return access.EmployeeForm{
		First:     e.First,
		Last:      e.Last,
		Branch:    e.Branch,
		JobTitle:  e.JobTitle,
		StartDate: models.InputDate(e.StartDate),
		EndDate:   models.InputDate(e.EndDateValue()),
	}
}

func readEmployeeForm(r *http.Request) access.EmployeeForm {
	return access.EmployeeForm{
		First:     r.PostForm.Get("first"),
		Last:      r.PostForm.Get("last"),
		Branch:    r.PostForm.Get("branch"),
		JobTitle:  r.PostForm.Get("jobTitle"),
		StartDate: r.PostForm.Get("startDate"),
		EndDate:   r.PostForm.Get("endDate"),
	}
}

func employeeFingerprint(status, search string, emps []models.Employee) uint64 {
	parts := make([]string, 0, len(emps)+2)
	parts = append(parts, status, search)
	for _, e := range emps {
		parts = append(parts, strconv.Itoa(e.ID))
	}
	return table.Fingerprint(parts...)
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	p := parseListParams(r)
	query := r.URL.Query()
	sid := session.FromContext(r.Context())

	var ev session.EmployeeView
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		e := &ws.Employee
		if st := query.Get("status"); oneOf(st, employeeStatuses) {
			e.Status = st
		}
		if p.hasQ {
			e.Search = p.q
		}
		if query.Has("category") {
			e.CategoryID, _ = strconv.Atoi(query.Get("category"))
		}
		if query.Has("level") {
			e.AccessLevel, _ = strconv.Atoi(query.Get("level"))
		}
		if st := query.Get("access"); oneOf(st, accessStatuses) {
			e.AccessStatus = st
		}
		ev = *e
	})

	v := employeesView{
		Status:   ev.Status,
		Statuses: employeeStatuses,
		Search:   ev.Search,
		Sizes:    table.Sizes,
	}

	all, err := s.Backend.Employees(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("load employees")
		v.Err = errorText("Loading employees", err)
	}
	emps := access.FilterEmployees(all, ev.Status, ev.Search)

	s.Sessions.Do(sid, func(ws *session.Workspace) {
		e := &ws.Employee
		size := p.size
		if size == 0 {
			size = e.Table.Size
		}
		if !e.Table.Sync(employeeFingerprint(ev.Status, ev.Search, emps), size) {
			page := e.Table.Page
			if p.page > 0 {
				page = p.page
			}
			e.Table.Goto(page, len(emps))
		}
		if e.SelectedID != 0 && err == nil && !containsEmployee(all, e.SelectedID) {
			e.Clear()
		}
		ev = *e
		ev.Pending = make(access.Pending, len(e.Pending))
		for k, a := range e.Pending {
			ev.Pending[k] = a
		}
		if e.Draft != nil {
			d := *e.Draft
			ev.Draft = &d
		}
	})

	v.Size = ev.Table.Size
	v.Page = ev.Table.Page
	v.Pages = table.Pages(len(emps), v.Size)
	v.Filtered = len(emps)
	v.Window = table.Window(v.Page, v.Pages, s.Config.PageWindow)
	v.NewFormOpen = ev.NewFormOpen
	for _, e := range table.Slice(emps, v.Page, v.Size) {
		v.Rows = append(v.Rows, employeeRow{
			Employee:  e,
			Selected:  e.ID == ev.SelectedID,
			SelectURL: withQuery(employeesBase+"/select", "id", strconv.Itoa(e.ID)),
		})
	}
	v.Shown = len(v.Rows)

	if ev.SelectedID != 0 {
		v.Detail = s.employeeDetail(r.Context(), ev)
	}
	s.render(w, r, "employees", backend.EntityEmployee, "Employees", employeesArea, v)
}

func containsEmployee(emps []models.Employee, id int) bool {
	for _, e := range emps {
		if e.ID == id {
			return true
		}
	}
	return false
}

func activeNamed[T models.AccessLevel | models.ResourceCategory](in []T) []settings.Named {
	out := make([]settings.Named, 0, len(in))
	for _, v := range in {
		n := settings.Named(v)
		if n.Active == 1 {
			out = append(out, n)
		}
	}
	return out
}

// employeeDetail loads the access table of the selected employee.
func (s *Server) employeeDetail(ctx context.Context, ev session.EmployeeView) *employeeDetail {
	d := &employeeDetail{
		Name:           ev.Original.FullName(),
		Form:           employeeForm(ev.Original),
		CategoryID:     ev.CategoryID,
		LevelID:        ev.AccessLevel,
		AccessStatus:   ev.AccessStatus,
		AccessStatuses: accessStatuses,
		PendingCount:   len(ev.Pending),
		AfterSave:      string(ev.AfterSave),
	}
	if d.AccessStatus == "" {
		d.AccessStatus = access.StatusAll
	}
	if ev.Draft != nil {
		d.Form = *ev.Draft
	}

	resources, err := s.Backend.Resources(ctx)
	if err != nil {
		d.Err = errorText("Loading resources", err)
		return d
	}
	cats, err := s.Backend.ResourceCategories(ctx)
	if err != nil {
		d.Err = errorText("Loading resource categories", err)
		return d
	}
	levels, err := s.Backend.AccessLevels(ctx)
	if err != nil {
		d.Err = errorText("Loading access levels", err)
		return d
	}
	assocs, err := s.Backend.Associations(ctx, ev.SelectedID)
	if err != nil {
		d.Err = errorText("Loading access", err)
		return d
	}

	d.Categories = activeNamed(cats)
	d.Levels = activeNamed(levels)
	rows := access.Rows(resources, cats, levels, assocs, ev.Pending)
	d.Access = access.FilterRows(rows, ev.CategoryID, ev.AccessLevel, d.AccessStatus)
	return d
}

// selectEmployee focuses an employee. Selecting the focused employee again,
// or passing no id, closes the detail view.
func (s *Server) selectEmployee(w http.ResponseWriter, r *http.Request) {
	sid := session.FromContext(r.Context())
	id, _ := strconv.Atoi(r.URL.Query().Get("id"))

	var current int
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		current = ws.Employee.SelectedID
		if id == 0 || id == current {
			ws.Employee.Clear()
		}
	})
	if id == 0 || id == current {
		redirect(w, r, employeesBase)
		return
	}

	e, err := s.Backend.Employee(r.Context(), id)
	if err != nil {
		s.fail(r, employeesArea, "Loading the employee", err)
		redirect(w, r, employeesBase)
		return
	}
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		ws.Employee.Select(e)
	})
	redirect(w, r, employeesBase)
}

// stageAccess stages a grant or revoke and keeps any unsaved field edits.
func (s *Server) stageAccess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	rawID, rawAction, _ := strings.Cut(r.PostForm.Get("stage"), ":")
	resourceID, err := strconv.Atoi(rawID)
	if err != nil {
		http.Error(w, "invalid resource id", http.StatusBadRequest)
		return
	}
	action, err := access.ParseAction(rawAction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	form := readEmployeeForm(r)
	afterSave := access.ParseAfterSave(r.PostForm.Get("after_save"))
	s.Sessions.Do(session.FromContext(r.Context()), func(ws *session.Workspace) {
		e := &ws.Employee
		if e.SelectedID == 0 {
			return
		}
		e.Pending.Stage(resourceID, action)
		e.Draft = &form
		e.AfterSave = afterSave
	})
	redirect(w, r, employeesBase)
}

func (s *Server) saveEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sid := session.FromContext(r.Context())
	form := readEmployeeForm(r)
	afterSave := access.ParseAfterSave(r.PostForm.Get("after_save"))

	var (
		id       int
		original models.Employee
		pending  = access.Pending{}
	)
	s.Sessions.Do(sid, func(ws *session.Workspace) {
		e := &ws.Employee
		id, original = e.SelectedID, e.Original
		for k, a := range e.Pending {
			pending[k] = a
		}
		e.AfterSave = afterSave
	})
	if id == 0 {
		s.flash(r, employeesArea, session.Warning, "Select an employee first")
		redirect(w, r, employeesBase)
		return
	}

	assocs, err := s.Backend.Associations(r.Context(), id)
	if err != nil {
		s.fail(r, employeesArea, "Saving the employee", err)
		redirect(w, r, employeesBase)
		return
	}

	edited := form.Apply(original)
	changed := access.DiffEmployee(original, edited)
	changes := access.Plan(id, assocs, pending, s.now())
	res, err := access.Commit(r.Context(), s.Backend, original, edited, changes)
	if err != nil {
		log.Error().Err(err).Int("employee_id", id).Msg("save employee")
		if !res.Empty() {
			s.record(r, activity.Update, backend.EntityEmployee, strconv.Itoa(id),
				fmt.Sprintf("partial save: %d created, %d updated", res.Created, res.Updated))
		}
		s.Sessions.Do(sid, func(ws *session.Workspace) {
			ws.Employee.Draft = &form
		})
		s.flash(r, employeesArea, session.Error, "Some changes were not saved: "+err.Error())
		redirect(w, r, employeesBase)
		return
	}

	if res.Empty() {
		s.Sessions.Do(sid, func(ws *session.Workspace) {
			ws.Employee.Pending.Clear()
			ws.Employee.Draft = nil
		})
		s.flash(r, employeesArea, session.Info, "No changes to save")
		redirect(w, r, employeesBase)
		return
	}

	if res.EmployeeUpdated {
		s.record(r, activity.Update, backend.EntityEmployee, strconv.Itoa(id), strings.Join(changed, ", "))
	}
	for _, c := range changes {
		action := activity.Grant
		if c.Action == access.Revoke {
			action = activity.Revoke
		}
		s.record(r, action, backend.EntityAssociation, strconv.Itoa(c.Association.ResourceID),
			fmt.Sprintf("employee %d", id))
	}

	if afterSave == access.AfterSaveReview {
		fresh, err := s.Backend.Employee(r.Context(), id)
		if err != nil {
			log.Warn().Err(err).Int("employee_id", id).Msg("reload employee after save")
			fresh = edited
		}
		s.Sessions.Do(sid, func(ws *session.Workspace) {
			ws.Employee.Select(fresh)
		})
	} else {
		s.Sessions.Do(sid, func(ws *session.Workspace) {
			ws.Employee.Clear()
		})
	}
	s.flash(r, employeesArea, session.Success, saveSummary(res))
	redirect(w, r, employeesBase)
}

func saveSummary(res access.Result) string {
	var parts []string
	if res.EmployeeUpdated {
		parts = append(parts, "employee updated")
	}
	if n := res.Created + res.Updated; n > 0 {
		parts = append(parts, fmt.Sprintf("%d access change(s) applied", n))
	}
	return "Saved: " + strings.Join(parts, ", ")
}

func (s *Server) toggleNewEmployee(w http.ResponseWriter, r *http.Request) {
	open := r.URL.Query().Get("close") == ""
	s.Sessions.Do(session.FromContext(r.Context()), func(ws *session.Workspace) {
		ws.Employee.NewFormOpen = open
	})
	redirect(w, r, employeesBase)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	e, err := access.NewEmployee(readEmployeeForm(r), s.now())
	if err != nil {
		s.flash(r, employeesArea, session.Warning, err.Error())
		redirect(w, r, employeesBase)
		return
	}
	if err := s.Backend.CreateEmployee(r.Context(), e); err != nil {
		s.fail(r, employeesArea, "Adding the employee", err)
		redirect(w, r, employeesBase)
		return
	}

	s.record(r, activity.Create, backend.EntityEmployee, "", e.FullName())
	s.Sessions.Do(session.FromContext(r.Context()), func(ws *session.Workspace) {
		ws.Employee.NewFormOpen = false
	})
	s.flash(r, employeesArea, session.Success, fmt.Sprintf("Employee %s added", e.FullName()))
	redirect(w, r, employeesBase)
}
