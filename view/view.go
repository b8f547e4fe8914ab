// Package view holds the HTML templates rendered by the endpoint handlers.
package view

import (
	"embed"
	"html/template"

	"github.com/ariebrainware/clinic-app/util"
)

//go:embed templates/*.html
var templateFS embed.FS

// Funcs are the helpers available inside every template.
var Funcs = template.FuncMap{
	"formatCPF": util.FormatCPF,
}

// Load parses every embedded template. Pages are addressed by file name,
// e.g. "index.html".
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.html")
}
