// Package templates renders the panel's server-side HTML pages.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"era-inventory-panel/internal/models"
)

//go:embed layout.html pages/*.html
var files embed.FS

// Renderer holds one parsed template set per page, each combined with the
// shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"date":  models.InputDate,
	"add":   func(a, b int) int { return a + b },
	"pct": func(part, total int) int {
		if total <= 0 {
			return 0
		}
		return part * 100 / total
	},
}

func New() (*Renderer, error) {
	names, err := fs.Glob(files, "pages/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, n := range names {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "layout.html", n)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", n, err)
		}
		r.pages[strings.TrimSuffix(path.Base(n), ".html")] = t
	}
	return r, nil
}

// Render executes a page into w. The page is rendered to a buffer first so a
// template error never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether a page exists.
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}
