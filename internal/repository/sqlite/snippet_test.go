package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/repository"
)

// newTestDB returns a migrated in-memory database that lives for one test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "$2a$04$hash"}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func createTestSnippet(t *testing.T, db *DB, userID, title string) *model.Snippet {
	t.Helper()
	snippet := &model.Snippet{
		UserID:              userID,
		Title:               title,
		Code:                "console.log('" + title + "')",
		ProgrammingLanguage: model.LanguageJavaScript,
	}
	require.NoError(t, db.Create(context.Background(), snippet))
	return snippet
}

func titles(snippets []model.Snippet) []string {
	out := make([]string, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, s.Title)
	}
	return out
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestCreate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	snippet := &model.Snippet{
		UserID:              user.ID,
		Title:               "Hello",
		Code:                "<p>hi</p>",
		ProgrammingLanguage: model.LanguageHTML,
		Description:         "greeting",
	}
	require.NoError(t, db.Create(context.Background(), snippet))

	assert.NotEmpty(t, snippet.ID)
	assert.False(t, snippet.CreatedAt.IsZero())
	assert.Equal(t, snippet.CreatedAt, snippet.UpdatedAt)
	assert.False(t, snippet.Favorite, "new snippets are not favorites")
}

func TestGetByID_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	original := createTestSnippet(t, db, user.ID, "round trip")

	got, err := db.GetByID(context.Background(), original.ID)
	require.NoError(t, err)

	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "round trip", got.Title)
	assert.Equal(t, model.LanguageJavaScript, got.ProgrammingLanguage)
	assert.WithinDuration(t, original.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Equal(t, "Couldn't find snippet with id nonexistent", err.Error())
}

func TestCreate_RequiresExistingUser(t *testing.T) {
	db := newTestDB(t)

	err := db.Create(context.Background(), &model.Snippet{
		UserID: "ghost", Title: "orphan", ProgrammingLanguage: model.LanguageCSS,
	})
	assert.Error(t, err, "foreign key to users must be enforced")
}

// =========================================================================
// LIST: OWNER, SEARCH, SORT
// =========================================================================

func TestList_OnlyOwnersSnippets(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestSnippet(t, db, alice.ID, "alice one")
	createTestSnippet(t, db, alice.ID, "alice two")
	createTestSnippet(t, db, bob.ID, "bob one")

	got, err := db.List(context.Background(), repository.SnippetFilter{UserID: alice.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice one", "alice two"}, titles(got))
}

func TestList_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	got, err := db.List(context.Background(), repository.SnippetFilter{UserID: alice.ID})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_Search(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	createTestSnippet(t, db, alice.ID, "Flexbox Centering")
	createTestSnippet(t, db, alice.ID, "Debounce")
	createTestSnippet(t, db, alice.ID, "100% width")
	createTestSnippet(t, db, alice.ID, "snake_case")

	tests := []struct {
		query string
		want  []string
	}{
		{"flex", []string{"Flexbox Centering"}},
		{"FLEX", []string{"Flexbox Centering"}},
		{"  debounce ", []string{"Debounce"}},
		{"%", []string{"100% width"}},
		{"_", []string{"snake_case"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := db.List(context.Background(), repository.SnippetFilter{UserID: alice.ID, Query: tt.query})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, titles(got))
		})
	}
}

func TestList_SearchFoldsNonASCII(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	createTestSnippet(t, db, alice.ID, "Éclair recipe")
	createTestSnippet(t, db, alice.ID, "Über helper")
	createTestSnippet(t, db, alice.ID, "straße map")

	tests := []struct {
		query string
		want  []string
	}{
		{"éclair", []string{"Éclair recipe"}},
		{"ÉCLAIR", []string{"Éclair recipe"}},
		{"über", []string{"Über helper"}},
		{"ÜBER", []string{"Über helper"}},
		{"STRASSE", []string{}},
		{"STRAßE", []string{"straße map"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := db.List(context.Background(), repository.SnippetFilter{UserID: alice.ID, Query: tt.query})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, titles(got))
		})
	}
}

func TestList_SortTitleIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	createTestSnippet(t, db, alice.ID, "Zeta")
	createTestSnippet(t, db, alice.ID, "alpha")
	createTestSnippet(t, db, alice.ID, "Émile")
	createTestSnippet(t, db, alice.ID, "émigré")
	createTestSnippet(t, db, alice.ID, "Beta")

	got, err := db.List(context.Background(), repository.SnippetFilter{UserID: alice.ID, Sort: model.SortTitle})
	require.NoError(t, err)
	// folded titles compare by bytes, so accented initials come after z
	assert.Equal(t, []string{"alpha", "Beta", "Zeta", "émigré", "Émile"}, titles(got))
}

func TestList_Sort(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	ctx := context.Background()

	b := createTestSnippet(t, db, alice.ID, "beta")
	time.Sleep(2 * time.Millisecond)
	createTestSnippet(t, db, alice.ID, "Alpha")
	time.Sleep(2 * time.Millisecond)
	createTestSnippet(t, db, alice.ID, "gamma")
	time.Sleep(2 * time.Millisecond)

	// touching beta makes it the most recently updated
	b.Favorite = true
	require.NoError(t, db.Update(ctx, b))

	list := func(sort model.SortField) []string {
		got, err := db.List(ctx, repository.SnippetFilter{UserID: alice.ID, Sort: sort})
		require.NoError(t, err)
		return titles(got)
	}

	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, list(model.SortTitle), "title ascending, case-insensitive")
	assert.Equal(t, []string{"beta", "gamma", "Alpha"}, list(model.SortUpdatedAt))
	assert.Equal(t, []string{"gamma", "Alpha", "beta"}, list(model.SortCreatedAt))
	assert.Equal(t, "beta", list(model.SortFavorite)[0], "favorites first")
	assert.Equal(t, list(model.SortUpdatedAt), list(""), "default is updatedAt")
	assert.Equal(t, list(model.SortUpdatedAt), list("bogus"), "unknown falls back to default")
}

// =========================================================================
// UPDATE / DELETE
// =========================================================================

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	snippet := createTestSnippet(t, db, alice.ID, "before")
	createdAt := snippet.CreatedAt
	time.Sleep(2 * time.Millisecond)

	snippet.Title = "after"
	snippet.ProgrammingLanguage = model.LanguageCSS
	snippet.Favorite = true
	require.NoError(t, db.Update(context.Background(), snippet))

	got, err := db.GetByID(context.Background(), snippet.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, model.LanguageCSS, got.ProgrammingLanguage)
	assert.True(t, got.Favorite)
	assert.True(t, got.UpdatedAt.After(createdAt), "updatedAt must move forward")
	assert.WithinDuration(t, createdAt, got.CreatedAt, time.Millisecond, "createdAt never changes")
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.Snippet{ID: "missing", Title: "x"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	snippet := createTestSnippet(t, db, alice.ID, "doomed")

	require.NoError(t, db.Delete(context.Background(), snippet.ID))

	_, err := db.GetByID(context.Background(), snippet.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	err = db.Delete(context.Background(), snippet.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "deleting twice is not found")
}

// =========================================================================
// COUNT / REPLACE ALL
// =========================================================================

func TestReplaceAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestSnippet(t, db, alice.ID, "old one")
	createTestSnippet(t, db, bob.ID, "old two")

	fixtures := []model.Snippet{
		{UserID: alice.ID, Title: "seed a", Code: "a", ProgrammingLanguage: model.LanguageHTML},
		{UserID: alice.ID, Title: "seed b", Code: "b", ProgrammingLanguage: model.LanguageCSS, Favorite: true},
		{UserID: alice.ID, Title: "seed c", Code: "c", ProgrammingLanguage: model.LanguageJavaScript},
	}
	require.NoError(t, db.ReplaceAll(ctx, fixtures))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := db.List(ctx, repository.SnippetFilter{UserID: alice.ID, Sort: model.SortTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"seed a", "seed b", "seed c"}, titles(got))
	assert.True(t, got[1].Favorite)
	for _, s := range got {
		assert.NotEmpty(t, s.ID)
	}
}

func TestReplaceAll_Empty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	createTestSnippet(t, db, alice.ID, "old")

	require.NoError(t, db.ReplaceAll(ctx, nil))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplaceAll_RollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	createTestSnippet(t, db, alice.ID, "survivor")

	err := db.ReplaceAll(ctx, []model.Snippet{
		{UserID: "no-such-user", Title: "bad", ProgrammingLanguage: model.LanguageCSS},
	})
	require.Error(t, err)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the delete must be rolled back with the failed insert")
}

func TestDeleteUser_CascadesToSnippets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	createTestSnippet(t, db, alice.ID, "mine")

	_, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, alice.ID)
	require.NoError(t, err)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
