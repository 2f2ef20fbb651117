package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"era-inventory-panel/internal/activity"
	"era-inventory-panel/internal/auth"
	"era-inventory-panel/internal/backend"
	"era-inventory-panel/internal/config"
	"era-inventory-panel/internal/health"
	"era-inventory-panel/internal/session"
	"era-inventory-panel/internal/settings"
	"era-inventory-panel/internal/templates"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// activityCapacity bounds the in-memory activity log.
const activityCapacity = 500

type Server struct {
	Router   *chi.Mux
	Config   *config.Config
	Backend  *backend.Client
	Sessions *session.Store
	Health   *health.Monitor
	Activity activity.Store
	Metrics  *Metrics
	Settings *settings.Service
	Views    *templates.Renderer

	now func() time.Time
}

// NewServer wires the backend client, session store, health monitor and
// activity store behind the panel router. The health monitor is created but
// not started; callers own its lifecycle.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	metrics := NewMetrics()

	client, err := NewBackendClient(cfg, backend.NewClientMetrics(metrics.Registry()))
	if err != nil {
		return nil, err
	}

	views, err := templates.New()
	if err != nil {
		return nil, err
	}

	store, err := activity.Open(ctx, cfg.ActivityDSN, activityCapacity)
	if err != nil {
		return nil, fmt.Errorf("open activity store: %w", err)
	}

	sessions := session.NewStore(cfg.MessageTimeout, session.DefaultIdle)
	sessions.SetPageSize(cfg.PageSize)

	s := &Server{
		Router:   chi.NewRouter(),
		Config:   cfg,
		Backend:  client,
		Sessions: sessions,
		Health:   health.NewMonitor(client, cfg.HealthInterval, metrics.Registry()),
		Activity: store,
		Metrics:  metrics,
		Settings: settings.NewService(client),
		Views:    views,
		now:      time.Now,
	}
	s.routes()
	return s, nil
}

// NewBackendClient builds the backend client from configuration, signing
// requests with a service token when a JWT secret is set.
func NewBackendClient(cfg *config.Config, metrics *backend.ClientMetrics) (*backend.Client, error) {
	var tokens backend.TokenSource
	if cfg.JWTSecret != "" {
		issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
		if err := issuer.ValidateConfig(); err != nil {
			return nil, fmt.Errorf("jwt configuration: %w", err)
		}
		tokens = issuer
	}
	return backend.New(backend.Options{
		BaseURL:     cfg.BackendURL,
		Timeout:     cfg.BackendTimeout,
		InsecureTLS: cfg.BackendInsecureTLS,
		Tokens:      tokens,
		Metrics:     metrics,
	})
}

// Close stops the health monitor and releases the activity store.
func (s *Server) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.Health.Stop()
		s.Activity.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("server close timed out"), ctx.Err())
	}
}

func (s *Server) routes() {
	r := s.Router
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(RequestLogger)
	if s.Config.EnableMetrics {
		r.Use(s.Metrics.Middleware())
		r.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}
	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(s.Sessions.Middleware(s.Config.IsProduction()))

		r.Get("/", s.dashboard)
		r.Get("/dev", s.systemLog)

		r.Route("/manage/"+backend.EntityEmployee, func(r chi.Router) {
			r.Get("/", s.listEmployees)
			r.Get("/select", s.selectEmployee)
			r.Post("/stage", s.stageAccess)
			r.Post("/save", s.saveEmployee)
			r.Get("/new", s.toggleNewEmployee)
			r.Post("/new", s.createEmployee)
			r.Get("/export.csv", s.exportEmployees)
		})

		r.Route("/manage/{entity}", func(r chi.Router) {
			r.Use(s.requireEntity)
			r.Get("/", s.listRecords)
			r.Get("/select", s.selectRecord)
			r.Get("/form", s.toggleForm)
			r.Post("/save", s.saveRecord)
			r.Post("/delete", s.deleteRecord)
			r.Get("/export.csv", s.exportRecordsCSV)
			r.Get("/export.xlsx", s.exportRecordsXLSX)
			r.Post("/import", s.importHandler().UploadExcel)
		})

		r.Get("/settings", s.settingsPage)
		r.Route("/settings/{panel}", func(r chi.Router) {
			r.Get("/", s.settingsPage)
			r.Post("/add", s.addSetting)
			r.Post("/remove", s.removeSetting)
		})
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": s.Health.Status().String(),
	})
}

// redirect answers a form post with 303 so a reload never re-submits it.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// errorText is the user-facing text for a backend failure.
func errorText(action string, err error) string {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s failed: backend returned %d %s", action, se.Status, http.StatusText(se.Status))
	}
	return fmt.Sprintf("%s failed: %v", action, err)
}

func (s *Server) flash(r *http.Request, area string, kind session.Kind, text string) {
	s.Sessions.Flash(session.FromContext(r.Context()), area, kind, text)
}

// fail logs a backend error and flashes it on the page that issued it.
func (s *Server) fail(r *http.Request, area, action string, err error) {
	log.Error().Err(err).
		Str("request_id", backend.RequestIDFromContext(r.Context())).
		Str("area", area).
		Msg(action + " failed")
	s.flash(r, area, session.Error, errorText(action, err))
}

// record appends an activity entry. Failures are logged and otherwise ignored.
func (s *Server) record(r *http.Request, action, entity, recordID, detail string) {
	e := activity.Entry{
		At:        s.now().UTC(),
		Session:   session.FromContext(r.Context()),
		RequestID: backend.RequestIDFromContext(r.Context()),
		Action:    action,
		Entity:    entity,
		RecordID:  recordID,
		Detail:    detail,
	}
	if err := s.Activity.Record(r.Context(), e); err != nil {
		log.Warn().Err(err).Str("action", action).Str("entity", entity).Msg("record activity")
	}
}
