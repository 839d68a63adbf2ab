// Package handler contains the HTTP handlers: they parse forms and query
// strings, call a service, then redirect or render a page.
//
// Every page is a base layout plus one or more content templates, parsed
// once at startup from the embedded web.FS. Requests that send
// `Accept: application/json` get the page data as JSON instead.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/model"
)

// Page template sets. The first file defines "base"; later files fill in
// the blocks it references.
var pageFiles = map[string][]string{
	"login":    {"base.html", "login.html"},
	"register": {"base.html", "register.html"},
	"list":     {"base.html", "snippets.html", "empty.html"},
	"detail":   {"base.html", "snippets.html", "detail.html"},
	"form":     {"base.html", "snippets.html", "form.html"},
	"seed":     {"base.html", "seed.html"},
	"error":    {"base.html", "error.html"},
}

// page is the data every template receives.
type page struct {
	Title  string
	UserID string
	View   any
}

// Renderer owns the parsed templates and writes pages, JSON and errors.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses every page from fsys, which must contain a
// templates/ directory.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for name, files := range pageFiles {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = "templates/" + f
		}
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, paths...)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s page: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string { return t.Local().Format("2 Jan 2006, 15:04") },
	"formatDate": func(t time.Time) string { return t.Local().Format("2 Jan 2006") },
	"isoTime":    func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"languages":  func() []model.Language { return model.Languages },
	"sortFields": func() []model.SortField { return model.SortFields },
	"runnable":   func(l model.Language) bool { return l == model.LanguageJavaScript },
}

// Page renders the named page with status. JSON clients get payload
// instead; when payload is nil they get view.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name, title string, view, payload any) {
	if wantsJSON(r) {
		if payload == nil {
			payload = view
		}
		writeJSON(w, status, payload)
		return
	}

	tmpl, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown page template", slog.String("page", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())

	// Render into a buffer first so a template error can still become a 500.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", page{Title: title, UserID: userID, View: view}); err != nil {
		rd.logger.Error("failed to render template", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// wantsJSON reports whether the client asked for JSON over HTML.
func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), "application/json") {
			return true
		}
	}
	return false
}
