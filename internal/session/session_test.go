package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"era-inventory-panel/internal/access"
	"era-inventory-panel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore() (*Store, *clock) {
	c := &clock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := NewStore(5*time.Second, time.Hour)
	s.now = c.now
	return s, c
}

func TestTimedMessage(t *testing.T) {
	s, c := newTestStore()
	id, created := s.Resolve("")
	require.True(t, created)

	s.Flash(id, "items", Error, "save failed")
	msg, ok := s.Message(id, "items")
	require.True(t, ok)
	assert.Equal(t, "save failed", msg.Text)
	assert.Equal(t, Error, msg.Kind)

	c.t = c.t.Add(4 * time.Second)
	s.Flash(id, "items", Error, "save failed again")

	c.t = c.t.Add(4 * time.Second)
	msg, ok = s.Message(id, "items")
	require.True(t, ok, "setting again restarts the timer")
	assert.Equal(t, "save failed again", msg.Text)

	c.t = c.t.Add(time.Second)
	_, ok = s.Message(id, "items")
	assert.False(t, ok)

	s.Flash(id, "items", Info, "x")
	s.ClearMessage(id, "items")
	_, ok = s.Message(id, "items")
	assert.False(t, ok)
}

func TestResolveAndEviction(t *testing.T) {
	s, c := newTestStore()
	id, _ := s.Resolve("")
	same, created := s.Resolve(id)
	assert.Equal(t, id, same)
	assert.False(t, created)

	other, created := s.Resolve("unknown")
	assert.True(t, created)
	assert.NotEqual(t, "unknown", other)
	assert.Equal(t, 2, s.Len())

	c.t = c.t.Add(2 * time.Hour)
	kept, created := s.Resolve(other)
	assert.False(t, created)
	assert.Equal(t, other, kept)
	assert.Equal(t, 1, s.Len())
}

func TestWorkspaceState(t *testing.T) {
	s, _ := newTestStore()
	id, _ := s.Resolve("")

	s.Do(id, func(ws *Workspace) {
		tv := ws.Table("Item")
		assert.Equal(t, 1, tv.State.Page)
		assert.False(t, tv.Selection.Active())
		tv.Selection.Select(0, "4")

		assert.Equal(t, access.AfterSaveClear, ws.Employee.AfterSave)
		assert.Equal(t, access.StatusActive, ws.Employee.Status)
		ws.Employee.Select(models.Employee{ID: 3, First: "Ada"})
		ws.Employee.Pending.Stage(1, access.Grant)
	})

	s.Do(id, func(ws *Workspace) {
		assert.Equal(t, "4", ws.Table("Item").Selection.ID)
		assert.Equal(t, 3, ws.Employee.SelectedID)
		assert.Len(t, ws.Employee.Pending, 1)

		ws.Employee.Select(models.Employee{ID: 4})
		assert.Empty(t, ws.Employee.Pending)
		ws.Employee.Clear()
		assert.Zero(t, ws.Employee.SelectedID)
	})
}

func TestMiddleware(t *testing.T) {
	s, _ := newTestStore()
	var seen string
	h := s.Middleware(false)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, seen)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, cookies[0].Value, seen)
}

func TestPageSizeAppliesToNewTables(t *testing.T) {
	s, _ := newTestStore()
	s.SetPageSize(25)
	id, _ := s.Resolve("")

	s.Do(id, func(ws *Workspace) {
		assert.Equal(t, 25, ws.Table("Item").State.Size)
		assert.Equal(t, 25, ws.Employee.Table.Size)

		ws.Table("Item").State.Size = 50
		assert.Equal(t, 50, ws.Table("Item").State.Size)
		assert.Equal(t, 25, ws.Table("Vendor").State.Size)
	})
}
