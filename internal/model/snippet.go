// Package model defines the data structures used throughout the application.
// Structs here carry both `json` tags (API responses) and `db` tags (sqlx
// column mapping), so one type flows from the database to the browser.
package model

import "time"

// Language is the programming language a snippet is written in.
//
// It's a string type (not an int enum) so the stored value, the form value
// and the JSON value are all the same human-readable text: "JavaScript".
type Language string

const (
	LanguageHTML       Language = "HTML"
	LanguageCSS        Language = "CSS"
	LanguageJavaScript Language = "JavaScript"
)

// Languages lists every supported language in the order the form select shows them.
var Languages = []Language{LanguageHTML, LanguageCSS, LanguageJavaScript}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// Snippet is a saved piece of code owned by exactly one user.
//
// CreatedAt and UpdatedAt are managed by the repository. Every write,
// including a favorite toggle, moves UpdatedAt forward.
type Snippet struct {
	ID                  string    `json:"id"                  db:"id"`
	UserID              string    `json:"userId"              db:"user_id"`
	Title               string    `json:"title"               db:"title"`
	Code                string    `json:"code"                db:"code"`
	ProgrammingLanguage Language  `json:"programmingLanguage" db:"programming_language"`
	Description         string    `json:"description"         db:"description"`
	Favorite            bool      `json:"favorite"            db:"favorite"`
	CreatedAt           time.Time `json:"createdAt"           db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt"           db:"updated_at"`
}

// OwnedBy reports whether the snippet belongs to userID.
func (s *Snippet) OwnedBy(userID string) bool {
	return userID != "" && s.UserID == userID
}

// SortField is a whitelisted list ordering. The value is what appears in the
// `sort` query parameter.
type SortField string

const (
	SortTitle     SortField = "title"
	SortUpdatedAt SortField = "updatedAt"
	SortCreatedAt SortField = "createdAt"
	SortFavorite  SortField = "favorite"
)

// DefaultSort is used when the query parameter is missing or unknown.
const DefaultSort = SortUpdatedAt

// SortFields lists the orderings offered in the list header.
var SortFields = []SortField{SortTitle, SortUpdatedAt, SortCreatedAt, SortFavorite}

// ParseSortField maps a raw query value onto a known SortField.
// Anything unrecognised falls back to DefaultSort.
func ParseSortField(raw string) SortField {
	for _, f := range SortFields {
		if SortField(raw) == f {
			return f
		}
	}
	return DefaultSort
}

// Column returns the snippets table column backing this ordering.
func (f SortField) Column() string {
	switch f {
	case SortTitle:
		return "title"
	case SortCreatedAt:
		return "created_at"
	case SortFavorite:
		return "favorite"
	default:
		return "updated_at"
	}
}

// Descending reports the sort direction: titles read A→Z, everything else newest/true first.
func (f SortField) Descending() bool {
	return f != SortTitle
}

// Label is the text shown for the ordering in the list header.
func (f SortField) Label() string {
	switch f {
	case SortTitle:
		return "Title"
	case SortCreatedAt:
		return "Created"
	case SortFavorite:
		return "Favorite"
	default:
		return "Updated"
	}
}
