// Package session keeps each browser's ephemeral UI state on the server,
// keyed by a random cookie.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"era-inventory-panel/internal/access"
	"era-inventory-panel/internal/models"
	"era-inventory-panel/internal/table"

	"github.com/google/uuid"
)

const CookieName = "panel_session"

// DefaultIdle is how long an unused workspace survives.
const DefaultIdle = 12 * time.Hour

// TableView is the UI state of one record table.
type TableView struct {
	State     table.State
	Selection table.Selection
	FormOpen  bool
	FormMode  string
	Query     string
	Sort      string
}

// EmployeeView is the UI state of the employee access manager.
type EmployeeView struct {
	Table        table.State
	SelectedID   int
	Original     models.Employee
	Pending      access.Pending
	AfterSave    access.AfterSave
	NewFormOpen  bool
	Status       string
	Search       string
	CategoryID   int
	AccessLevel  int
	AccessStatus string
	// Draft holds unsaved employee edits while access changes are staged.
	Draft *access.EmployeeForm
}

// Select focuses an employee and snapshots it for later diffing. Pending
// changes belong to the previous employee and are dropped.
func (v *EmployeeView) Select(e models.Employee) {
	v.SelectedID = e.ID
	v.Original = e
	v.Pending = access.Pending{}
	v.Draft = nil
}

func (v *EmployeeView) Clear() {
	v.SelectedID = 0
	v.Original = models.Employee{}
	v.Pending = access.Pending{}
	v.Draft = nil
}

// Workspace is everything the panel remembers about one browser.
type Workspace struct {
	ID       string
	Tables   map[string]*TableView
	Employee EmployeeView
	messages map[string]Message
	lastSeen time.Time
	pageSize int
}

// Table returns the view for an entity, creating it on first use.
func (w *Workspace) Table(entity string) *TableView {
	tv, ok := w.Tables[entity]
	if !ok {
		tv = &TableView{State: table.NewState(), Selection: table.NoSelection}
		if w.pageSize > 0 {
			tv.State.Size = w.pageSize
		}
		w.Tables[entity] = tv
	}
	return tv
}

// Store holds all workspaces.
type Store struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	msgTTL     time.Duration
	idle       time.Duration
	lastSweep  time.Time
	pageSize   int
	now        func() time.Time
}

func NewStore(messageTimeout, idle time.Duration) *Store {
	if messageTimeout <= 0 {
		messageTimeout = 5 * time.Second
	}
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Store{
		workspaces: map[string]*Workspace{},
		msgTTL:     messageTimeout,
		idle:       idle,
		now:        time.Now,
	}
}

// SetPageSize sets the initial page size of tables in new workspaces.
func (s *Store) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

func (s *Store) newWorkspaceLocked() *Workspace {
	ws := &Workspace{
		ID:       uuid.NewString(),
		Tables:   map[string]*TableView{},
		messages: map[string]Message{},
		lastSeen: s.now(),
		pageSize: s.pageSize,
	}
	ws.Employee.Pending = access.Pending{}
	ws.Employee.AfterSave = access.AfterSaveClear
	ws.Employee.Status = access.StatusActive
	ws.Employee.Table = table.NewState()
	if s.pageSize > 0 {
		ws.Employee.Table.Size = s.pageSize
	}
	s.workspaces[ws.ID] = ws
	return ws
}

// Resolve returns the workspace for id, creating a new one when id is
// unknown. The second result reports whether a new workspace was made.
func (s *Store) Resolve(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if ok {
		ws.lastSeen = s.now()
	}
	s.sweepLocked()
	if ok {
		return ws.ID, false
	}
	return s.newWorkspaceLocked().ID, true
}

// Do runs fn with exclusive access to the workspace.
func (s *Store) Do(id string, fn func(*Workspace)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[id]
	if !ok {
		ws = s.newWorkspaceLocked()
		delete(s.workspaces, ws.ID)
		ws.ID = id
		s.workspaces[id] = ws
	}
	ws.lastSeen = s.now()
	fn(ws)
}

// Len returns the number of live workspaces.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}

func (s *Store) sweepLocked() {
	now := s.now()
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for id, ws := range s.workspaces {
		if now.Sub(ws.lastSeen) > s.idle {
			delete(s.workspaces, id)
		}
	}
}

type ctxKey struct{}

// FromContext returns the workspace id set by Middleware.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithID attaches a workspace id to ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware attaches a workspace to every request, issuing a cookie for new
// browsers.
func (s *Store) Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(CookieName); err == nil {
				id = c.Value
			}
			id, created := s.Resolve(id)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}
