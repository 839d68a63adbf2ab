package handler

import "net/http"

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	Icons           []manifestIcon `json:"icons"`
	ThemeColor      string         `json:"theme_color"`
	BackgroundColor string         `json:"background_color"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
}

var manifest = webManifest{
	Name:      "Snippet Saver",
	ShortName: "Snippets",
	Icons: []manifestIcon{
		{Src: "/icons/android-chrome-192x192.png", Sizes: "192x192", Type: "image/png"},
	},
	ThemeColor:      "#fafafa",
	BackgroundColor: "#fafafa",
	StartURL:        "/",
	Display:         "standalone",
}

// Manifest serves /site.webmanifest.
func Manifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=600")
	w.Header().Set("Content-Type", "application/manifest+json")
	writeJSONBody(w, http.StatusOK, manifest)
}
