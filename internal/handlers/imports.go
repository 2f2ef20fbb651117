package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"era-inventory-panel/pkg/importer"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Responder writes the outcome of an import. The default writes JSON.
type Responder func(w http.ResponseWriter, r *http.Request, status int, payload map[string]any)

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	Store    importer.Store
	MaxBytes int64
	// DefaultMap is a YAML mapping file; empty uses the built-in mapping.
	DefaultMap string
	// Allowed restricts the target entities. Empty allows any.
	Allowed []string
	// Restrict imports only the sheets that map to the target entity.
	Restrict bool
	Respond  Responder
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(store importer.Store, allowed ...string) *ImportsHandler {
	return &ImportsHandler{
		Store:    store,
		MaxBytes: 20 << 20, // 20 MB
		Allowed:  allowed,
		Respond: func(w http.ResponseWriter, _ *http.Request, status int, payload map[string]any) {
			writeJSON(w, status, payload)
		},
	}
}

func (h *ImportsHandler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.Respond(w, r, status, map[string]any{"error": msg})
}

// allowed returns the canonical spelling of an importable entity.
func (h *ImportsHandler) allowed(entity string) (string, bool) {
	if len(h.Allowed) == 0 {
		return entity, entity != ""
	}
	for _, a := range h.Allowed {
		if strings.EqualFold(a, entity) {
			return a, true
		}
	}
	return "", false
}

// UploadExcel imports an uploaded workbook into the {entity} table.
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.fail(w, r, http.StatusBadRequest, "content-type must be multipart/form-data")
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	entity := chi.URLParam(r, "entity")
	if entity == "" {
		entity = r.FormValue("entity")
	}
	entity, ok := h.allowed(entity)
	if !ok {
		h.fail(w, r, http.StatusBadRequest, "entity is required and must be importable")
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, "file is required: "+err.Error())
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		h.fail(w, r, http.StatusBadRequest, "only .xlsx files are accepted")
		return
	}

	sum, impErr := importer.ImportExcel(r.Context(), h.Store, file, importer.ImportOptions{
		Entity:      entity,
		MappingPath: h.DefaultMap,
		DryRun:      dryRun,
		MaxErrors:   maxErrors,
		Restrict:    h.Restrict,
	})
	if impErr != nil {
		log.Error().Err(impErr).Str("entity", entity).Str("file", header.Filename).Msg("import failed")
		h.Respond(w, r, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum,
		})
		return
	}

	log.Info().
		Str("entity", entity).
		Int("inserted", sum.Inserted).
		Int("updated", sum.Updated).
		Int("errors", sum.Errors).
		Bool("dry_run", dryRun).
		Msg("import finished")

	h.Respond(w, r, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"entity":    entity,
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	name := strings.ToLower(h.Filename)
	return strings.HasSuffix(name, ".xlsx")
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
