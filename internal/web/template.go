package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// parseTemplate pairs base.html with one page template defining "body".
func parseTemplate(filename string) *appTemplate {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html"))
	b, err := templateFS.ReadFile("templates/" + filename)
	if err != nil {
		panic(fmt.Errorf("could not read template: %v", err))
	}
	template.Must(tmpl.New("body").Parse(string(b)))
	return &appTemplate{t: tmpl.Lookup("base.html")}
}

type appTemplate struct {
	t *template.Template
}

type notice struct {
	Kind string
	Text string
}

type pageData struct {
	Contract string
	LoadedAt time.Time
	Notice   *notice
	Data     any
}

// Execute renders into a buffer first so a template error never leaves a
// half written page behind.
func (tmpl *appTemplate) Execute(w http.ResponseWriter, status int, page pageData) error {
	var buf bytes.Buffer
	if err := tmpl.t.Execute(&buf, page); err != nil {
		return fmt.Errorf("could not write template: %w", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
