// Package render turns refresh results into HTML strings.
//
// Rendering is a pure function over the widget context: no I/O, no shared
// state. The session handler builds a WidgetContext per refresh and sends the
// resulting HTML to exactly one connection.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/nowspinning/host/internal/web"
)

// WidgetContext is the data rendered into the now-playing widget.
// Artist, Album and ImgSrc may be empty (radio streams without directory
// matches); the template tolerates absent fields.
type WidgetContext struct {
	Transport string
	Title     string
	Artist    string
	Album     string
	ImgSrc    string
}

// Renderer renders the dashboard page and the now-playing widget from the
// embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page renders the dashboard index page.
func (r *Renderer) Page() (string, error) {
	var buf strings.Builder
	if err := r.tmpl.ExecuteTemplate(&buf, "index.html", nil); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return buf.String(), nil
}

// Widget renders the now-playing widget for one refresh.
func (r *Renderer) Widget(ctx WidgetContext) (string, error) {
	var buf strings.Builder
	if err := r.tmpl.ExecuteTemplate(&buf, "widget.html", ctx); err != nil {
		return "", fmt.Errorf("rendering widget: %w", err)
	}
	return buf.String(), nil
}
