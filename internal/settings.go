package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"era-inventory-panel/internal/activity"
	"era-inventory-panel/internal/models"
	"era-inventory-panel/internal/session"
	"era-inventory-panel/internal/settings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type settingsPanel struct {
	Title     string
	Noun      string
	Href      string
	Open      bool
	Resources bool
	Devices   bool
	Entries   []settings.Named
	Message   *session.Message
	Err       string
}

type settingsView struct {
	Panels     []settingsPanel
	Groups     []settings.Group
	Categories []settings.Named
	Levels     []settings.Named
	Devices    []models.Device
}

func settingsArea(p settings.Panel) string {
	return "settings:" + string(p)
}

func settingsHref(p settings.Panel) string {
	return "/settings/" + string(p)
}

// settingsPage lists the panels; only the one named in the URL is expanded.
func (s *Server) settingsPage(w http.ResponseWriter, r *http.Request) {
	open := settings.Panel(chi.URLParam(r, "panel"))
	if open != "" {
		if _, err := settings.ParsePanel(string(open)); err != nil {
			http.NotFound(w, r)
			return
		}
	}
	sid := session.FromContext(r.Context())
	ctx := r.Context()

	var v settingsView
	for _, p := range settings.Panels {
		sp := settingsPanel{
			Title:     p.Title(),
			Noun:      p.Noun(),
			Href:      settingsHref(p),
			Open:      p == open,
			Resources: p == settings.Resources,
			Devices:   p == settings.Devices,
		}
		if !sp.Open {
			v.Panels = append(v.Panels, sp)
			continue
		}
		if msg, ok := s.Sessions.Message(sid, settingsArea(p)); ok {
			sp.Message = &msg
		}

		var err error
		switch {
		case sp.Devices:
			v.Devices, err = s.Settings.Devices(ctx)
		case sp.Resources:
			v.Groups, err = s.Settings.ResourcesByCategory(ctx)
			if err == nil {
				v.Categories = groupCategories(v.Groups)
				v.Levels, err = s.Settings.Active(ctx, settings.AccessLevels)
			}
		default:
			sp.Entries, err = s.Settings.Active(ctx, p)
		}
		if err != nil {
			log.Error().Err(err).Str("panel", string(p)).Msg("load settings")
			sp.Err = errorText("Loading "+strings.ToLower(p.Title()), err)
		}
		v.Panels = append(v.Panels, sp)
	}
	s.render(w, r, "settings", "settings", "Settings", "", v)
}

func groupCategories(groups []settings.Group) []settings.Named {
	out := make([]settings.Named, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Category)
	}
	return out
}

func panelFrom(r *http.Request) (settings.Panel, bool) {
	p, err := settings.ParsePanel(chi.URLParam(r, "panel"))
	return p, err == nil
}

// settingsFailure flashes a validation warning for sentinel errors and an
// error for everything else.
func (s *Server) settingsFailure(r *http.Request, p settings.Panel, err error) {
	area := settingsArea(p)
	for _, sentinel := range []error{
		settings.ErrNameRequired, settings.ErrAlreadyActive, settings.ErrDuplicate,
		settings.ErrCategoryRequired, settings.ErrAccessLevelRequired, settings.ErrAddressRequired,
		settings.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			s.flash(r, area, session.Warning, settings.Warning(p, err))
			return
		}
	}
	log.Error().Err(err).Str("panel", string(p)).Msg("settings change")
	s.flash(r, area, session.Error, settings.Warning(p, err))
}

func (s *Server) addSetting(w http.ResponseWriter, r *http.Request) {
	p, ok := panelFrom(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostForm.Get("name"))

	switch p {
	case settings.Devices:
		address := strings.TrimSpace(r.PostForm.Get("ipv4"))
		if err := s.Settings.AddDevice(r.Context(), name, address); err != nil {
			s.settingsFailure(r, p, err)
		} else {
			s.record(r, activity.Create, p.Entity(), "", name+" "+address)
			s.flash(r, settingsArea(p), session.Success, fmt.Sprintf("Added device %s (%s)", name, address))
		}
		redirect(w, r, settingsHref(p))
		return
	case settings.Resources:
		err := s.Settings.AddResource(r.Context(), name, formInt(r, "categoryId"), formInt(r, "accessLevelId"))
		if err != nil {
			s.settingsFailure(r, p, err)
		} else {
			s.record(r, activity.Create, p.Entity(), "", name)
			s.flash(r, settingsArea(p), session.Success, fmt.Sprintf("Added resource %s", name))
		}
		redirect(w, r, settingsHref(p))
		return
	}

	outcome, err := s.Settings.AddNamed(r.Context(), p, name)
	switch {
	case err != nil:
		s.settingsFailure(r, p, err)
	case outcome == settings.Reactivated:
		s.record(r, activity.Reactivate, p.Entity(), "", name)
		s.flash(r, settingsArea(p), session.Success, fmt.Sprintf("Reactivated %s %s", p.Noun(), name))
	default:
		s.record(r, activity.Create, p.Entity(), "", name)
		s.flash(r, settingsArea(p), session.Success, fmt.Sprintf("Added %s %s", p.Noun(), name))
	}
	redirect(w, r, settingsHref(p))
}

func (s *Server) removeSetting(w http.ResponseWriter, r *http.Request) {
	p, ok := panelFrom(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := formInt(r, "id")
	if id == 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	switch p {
	case settings.Devices:
		if err := s.Settings.RemoveDevice(r.Context(), id); err != nil {
			s.settingsFailure(r, p, err)
		} else {
			s.record(r, activity.Delete, p.Entity(), strconv.Itoa(id), "")
			s.flash(r, settingsArea(p), session.Success, "Device removed")
		}
		redirect(w, r, settingsHref(p))
		return
	case settings.Resources:
		if err := s.Settings.RemoveResource(r.Context(), id); err != nil {
			s.settingsFailure(r, p, err)
		} else {
			s.record(r, activity.Delete, p.Entity(), strconv.Itoa(id), "")
			s.flash(r, settingsArea(p), session.Success, "Resource removed")
		}
		redirect(w, r, settingsHref(p))
		return
	}

	n, err := s.Settings.RemoveNamed(r.Context(), p, id)
	if err != nil {
		s.settingsFailure(r, p, err)
	} else {
		s.record(r, activity.Deactivate, p.Entity(), strconv.Itoa(id), n.Name)
		s.flash(r, settingsArea(p), session.Success, fmt.Sprintf("Removed %s %s", p.Noun(), n.Name))
	}
	redirect(w, r, settingsHref(p))
}
