package internal

import (
	"encoding/json"
	"net/http"

	"era-inventory-panel/internal/config"
	"era-inventory-panel/internal/session"

	"github.com/rs/zerolog/log"
)

// page is the data every page template receives; Content is the page body.
type page struct {
	Title      string
	Nav        string
	Company    string
	BackendURL string
	Health     string
	Entities   []config.EntityConfig
	Message    *session.Message
	Content    any
}

// render writes a full page, showing the live message of area if any.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name, nav, title, area string, content any) {
	p := page{
		Title:      title,
		Nav:        nav,
		Company:    s.Config.CompanyName,
		BackendURL: s.Backend.BaseURL(),
		Health:     s.Health.Status().String(),
		Entities:   s.Config.Entities,
		Content:    content,
	}
	if area != "" {
		if msg, ok := s.Sessions.Message(session.FromContext(r.Context()), area); ok {
			p.Message = &msg
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Views.Render(w, name, p); err != nil {
		log.Error().Err(err).Str("page", name).Msg("render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
