package internal

import (
	"encoding/json"
	"net/http"
	"time"

	"era-inventory-panel/internal/activity"
	"era-inventory-panel/internal/backend"

	"github.com/rs/zerolog/log"
)

type devTable struct {
	Entity string
	Count  int
	JSON   string
	Err    string
}

type devView struct {
	Health      string
	LastChecked time.Time
	Activity    []activity.Entry
	Tables      []devTable
}

const systemLogActivity = 50

// devTables lists every backend table the panel reads: the configured
// record tables followed by the access management and device tables.
func (s *Server) devTables() []string {
	names := make([]string, 0, len(s.Config.Entities)+6)
	for _, e := range s.Config.Entities {
		names = append(names, e.Name)
	}
	return append(names,
		backend.EntityEmployee,
		backend.EntityResource,
		backend.EntityAccessLevel,
		backend.EntityResourceCategory,
		backend.EntityAssociation,
		backend.EntityDevice,
	)
}

// systemLog dumps every table as indented JSON for troubleshooting.
func (s *Server) systemLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := devView{
		Health:      s.Health.Status().String(),
		LastChecked: s.Health.LastChecked(),
	}

	for _, name := range s.devTables() {
		t := devTable{Entity: name}
		recs, err := s.Backend.List(ctx, name)
		if err == nil {
			var b []byte
			b, err = json.MarshalIndent(recs, "", "  ")
			t.JSON = string(b)
			t.Count = len(recs)
		}
		if err != nil {
			log.Error().Err(err).Str("entity", name).Msg("system log")
			t.Err = errorText("Loading "+name, err)
		}
		v.Tables = append(v.Tables, t)
	}

	var err error
	v.Activity, err = s.Activity.Recent(ctx, systemLogActivity)
	if err != nil {
		log.Warn().Err(err).Msg("load activity")
	}
	s.render(w, r, "dev", "dev", "System Log", "dev", v)
}
