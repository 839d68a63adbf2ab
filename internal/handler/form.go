package handler

import (
	"net/http"
	"net/url"

	"github.com/sakif/snippet-saver/internal/service"
)

// maxFormBytes caps request bodies. The code field alone may hold 100k
// characters, which is up to 400KB of UTF-8.
const maxFormBytes = 1 << 20

// parseForm reads an application/x-www-form-urlencoded body into r.PostForm.
// Multipart bodies are not parsed and leave r.PostForm empty.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

// formValues resolves what the snippet form shows. A field present in
// submitted overrides the default, so a failed submission never loses
// what the user typed. An empty submitted value still counts as present.
func formValues(def service.SnippetInput, submitted url.Values) service.SnippetInput {
	pick := func(key, fallback string) string {
		if vs, ok := submitted[key]; ok && len(vs) > 0 {
			return vs[0]
		}
		return fallback
	}
	return service.SnippetInput{
		Title:               pick("title", def.Title),
		Code:                pick("code", def.Code),
		ProgrammingLanguage: pick("programmingLanguage", def.ProgrammingLanguage),
		Description:         pick("description", def.Description),
	}
}
