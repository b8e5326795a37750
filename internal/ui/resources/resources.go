// Package resources embeds the dashboard shell and its static assets.
package resources

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

//go:embed templates/index.html.tmpl
var indexSource string

// indexTemplate renders the single-page dashboard shell. All dynamic state
// is fetched from the API after load; the template only carries bootstrap
// values.
var indexTemplate = template.Must(template.New("index").Parse(indexSource))

// IndexData is the bootstrap payload for the dashboard shell.
type IndexData struct {
	Title      string
	BackendURL string
}

// RenderIndex writes the dashboard shell page.
func RenderIndex(w http.ResponseWriter, data IndexData) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return indexTemplate.Execute(w, data)
}

// Handler serves the embedded static assets under /static/.
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
