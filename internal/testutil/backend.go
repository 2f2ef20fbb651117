package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"era-inventory-panel/internal/models"

	"github.com/go-chi/chi/v5"
)

// Request is one call observed by the fake backend.
type Request struct {
	Method  string
	Path    string
	Query   string
	Body    string
	Headers http.Header
}

// FakeBackend is an in-memory implementation of the inventory REST API.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	tables   map[string][]models.Record
	nextID   map[string]int
	requests []Request
	fail     map[string]int
}

// NewFakeBackend starts a fake backend that is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		tables: map[string][]models.Record{},
		nextID: map[string]int{},
		fail:   map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(fb.record)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/{entity}", func(r chi.Router) {
		r.Get("/", fb.list)
		r.Post("/", fb.create)
		r.Put("/", fb.update)
		r.Delete("/", fb.remove)
		r.Get("/count", fb.count)
		r.Get("/metrics", fb.metrics)
		r.Get("/search", fb.search)
		r.Get("/{id}", fb.get)
	})

	fb.Server = httptest.NewServer(r)
	t.Cleanup(fb.Close)
	return fb
}

// Seed appends rows to an entity table. Rows without an id get one.
func (fb *FakeBackend) Seed(entity string, rows ...models.Record) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, row := range rows {
		fb.insertLocked(entity, row)
	}
}

// SeedJSON seeds rows from any JSON-encodable values.
func (fb *FakeBackend) SeedJSON(t testing.TB, entity string, rows ...any) {
	t.Helper()
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			t.Fatalf("marshal seed row: %v", err)
		}
		var rec models.Record
		if err := rec.UnmarshalJSON(b); err != nil {
			t.Fatalf("decode seed row: %v", err)
		}
		fb.Seed(entity, rec)
	}
}

// Rows returns a copy of an entity table.
func (fb *FakeBackend) Rows(entity string) []models.Record {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]models.Record, len(fb.tables[entity]))
	copy(out, fb.tables[entity])
	return out
}

// Decode unmarshals an entity table into typed rows.
func (fb *FakeBackend) Decode(t testing.TB, entity string, out any) {
	t.Helper()
	b, err := json.Marshal(fb.Rows(entity))
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
}

// Requests returns the calls received so far, excluding reachability probes.
func (fb *FakeBackend) Requests() []Request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]Request, 0, len(fb.requests))
	for _, r := range fb.requests {
		if r.Path != "/" {
			out = append(out, r)
		}
	}
	return out
}

// FailWith makes every request with the given method and path prefix answer
// with status until cleared with status 0.
func (fb *FakeBackend) FailWith(method, pathPrefix string, status int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	key := method + " " + pathPrefix
	if status == 0 {
		delete(fb.fail, key)
		return
	}
	fb.fail[key] = status
}

func (fb *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		fb.mu.Lock()
		fb.requests = append(fb.requests, Request{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Body:    string(body),
			Headers: r.Header.Clone(),
		})
		status := 0
		for key, code := range fb.fail {
			method, prefix, _ := strings.Cut(key, " ")
			if method == r.Method && strings.HasPrefix(r.URL.Path, prefix) {
				status = code
			}
		}
		fb.mu.Unlock()

		if status != 0 {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fb *FakeBackend) insertLocked(entity string, row models.Record) models.Record {
	id := 0
	if v := row.ID(); v != "" {
		id, _ = strconv.Atoi(v)
	}
	if id == 0 {
		fb.nextID[entity]++
		id = fb.nextID[entity]
		withID := models.NewRecord("id", float64(id))
		for _, k := range row.Keys() {
			if strings.EqualFold(k, "id") {
				continue
			}
			v, _ := row.Get(k)
			withID.Set(k, v)
		}
		row = withID
	} else if id > fb.nextID[entity] {
		fb.nextID[entity] = id
	}
	fb.tables[entity] = append(fb.tables[entity], row)
	return row
}

func (fb *FakeBackend) indexLocked(entity, id string) int {
	for i, row := range fb.tables[entity] {
		if row.ID() == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (fb *FakeBackend) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fb.Rows(chi.URLParam(r, "entity")))
}

func (fb *FakeBackend) get(w http.ResponseWriter, r *http.Request) {
	entity, id := chi.URLParam(r, "entity"), chi.URLParam(r, "id")
	fb.mu.Lock()
	i := fb.indexLocked(entity, id)
	var row models.Record
	if i >= 0 {
		row = fb.tables[entity][i]
	}
	fb.mu.Unlock()
	if i < 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (fb *FakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var row models.Record
	body, _ := io.ReadAll(r.Body)
	if err := row.UnmarshalJSON(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fb.mu.Lock()
	row = fb.insertLocked(chi.URLParam(r, "entity"), row)
	fb.mu.Unlock()
	writeJSON(w, http.StatusCreated, row)
}

func (fb *FakeBackend) update(w http.ResponseWriter, r *http.Request) {
	entity, id := chi.URLParam(r, "entity"), r.URL.Query().Get("id")
	var patch models.Record
	body, _ := io.ReadAll(r.Body)
	if err := patch.UnmarshalJSON(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	i := fb.indexLocked(entity, id)
	if i < 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	row := fb.tables[entity][i]
	for _, k := range patch.Keys() {
		if strings.EqualFold(k, "id") {
			continue
		}
		v, _ := patch.Get(k)
		row.Set(k, v)
	}
	fb.tables[entity][i] = row
	w.WriteHeader(http.StatusNoContent)
}

func (fb *FakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	entity, id := chi.URLParam(r, "entity"), r.URL.Query().Get("id")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	i := fb.indexLocked(entity, id)
	if i < 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	rows := fb.tables[entity]
	fb.tables[entity] = append(rows[:i:i], rows[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (fb *FakeBackend) count(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, len(fb.Rows(chi.URLParam(r, "entity"))))
}

func (fb *FakeBackend) metrics(w http.ResponseWriter, r *http.Request) {
	var m models.EntityMetrics
	for _, row := range fb.Rows(chi.URLParam(r, "entity")) {
		if row.Complete() {
			m.Complete++
		} else {
			m.Partial++
		}
	}
	writeJSON(w, http.StatusOK, m)
}

func (fb *FakeBackend) search(w http.ResponseWriter, r *http.Request) {
	rows := fb.Rows(chi.URLParam(r, "entity"))
	out := []models.Record{}

	if emp := r.URL.Query().Get("employeeId"); emp != "" {
		for _, row := range rows {
			if row.Text("employeeId") == emp {
				out = append(out, row)
			}
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	kw := strings.ToLower(r.URL.Query().Get("keyword"))
	for _, row := range rows {
		for _, k := range row.Keys() {
			if strings.Contains(strings.ToLower(row.Text(k)), kw) {
				out = append(out, row)
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}
