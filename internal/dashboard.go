package internal

import (
	"net/http"

	"era-inventory-panel/internal/activity"
	"era-inventory-panel/internal/models"

	"github.com/rs/zerolog/log"
)

type entityCard struct {
	Name    string
	Label   string
	Tooltip string
	Total   int
	Metrics models.EntityMetrics
	Err     string
}

type employeeSplit struct {
	Total    int
	Active   int
	Inactive int
	Err      string
}

type dashboardView struct {
	Cards     []entityCard
	Employees employeeSplit
	Recent    []activity.Entry
}

const dashboardRecent = 10

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var v dashboardView

	for _, ent := range s.Config.Entities {
		card := entityCard{Name: ent.Name, Label: ent.Label, Tooltip: ent.Tooltip}
		total, err := s.Backend.Count(ctx, ent.Name)
		if err == nil {
			card.Total = total
			card.Metrics, err = s.Backend.Metrics(ctx, ent.Name)
		}
		if err != nil {
			log.Error().Err(err).Str("entity", ent.Name).Msg("dashboard metrics")
			card.Err = errorText("Loading "+ent.Label, err)
		}
		v.Cards = append(v.Cards, card)
	}

	emps, err := s.Backend.Employees(ctx)
	if err != nil {
		log.Error().Err(err).Msg("dashboard employees")
		v.Employees.Err = errorText("Loading employees", err)
	}
	for _, e := range emps {
		v.Employees.Total++
		if e.Active() {
			v.Employees.Active++
		} else {
			v.Employees.Inactive++
		}
	}

	v.Recent, err = s.Activity.Recent(ctx, dashboardRecent)
	if err != nil {
		log.Warn().Err(err).Msg("load recent activity")
	}
	s.render(w, r, "dashboard", "dashboard", "Dashboard", "dashboard", v)
}
