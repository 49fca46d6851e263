// Package web holds the embedded browser-facing assets: the dashboard page
// templates and the static files served under /static/. Embedding keeps the
// binary self-contained so wall displays need no extra deployment step.
package web

import "embed"

// Templates contains the HTML templates (templates/*.html).
//
//go:embed templates
var Templates embed.FS

// Static contains the assets served under /static/.
//
//go:embed static
var Static embed.FS
