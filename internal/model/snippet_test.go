package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSortField(t *testing.T) {
	tests := []struct {
		raw  string
		want SortField
	}{
		{"title", SortTitle},
		{"updatedAt", SortUpdatedAt},
		{"createdAt", SortCreatedAt},
		{"favorite", SortFavorite},
		{"", SortUpdatedAt},
		{"password", SortUpdatedAt},
		{"title; DROP TABLE snippets", SortUpdatedAt},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSortField(tt.raw))
		})
	}
}

func TestSortField_Direction(t *testing.T) {
	assert.False(t, SortTitle.Descending(), "titles sort ascending")
	assert.True(t, SortUpdatedAt.Descending())
	assert.True(t, SortCreatedAt.Descending())
	assert.True(t, SortFavorite.Descending())
}

func TestSortField_Column(t *testing.T) {
	assert.Equal(t, "title", SortTitle.Column())
	assert.Equal(t, "updated_at", SortUpdatedAt.Column())
	assert.Equal(t, "created_at", SortCreatedAt.Column())
	assert.Equal(t, "favorite", SortFavorite.Column())
	assert.Equal(t, "updated_at", SortField("bogus").Column())
}

func TestLanguage_Valid(t *testing.T) {
	for _, l := range Languages {
		assert.True(t, l.Valid(), l)
	}
	assert.False(t, Language("Python").Valid())
	assert.False(t, Language("javascript").Valid(), "language names are case-sensitive")
}

func TestSnippet_OwnedBy(t *testing.T) {
	s := &Snippet{UserID: "u1"}
	assert.True(t, s.OwnedBy("u1"))
	assert.False(t, s.OwnedBy("u2"))
	assert.False(t, s.OwnedBy(""))
}
