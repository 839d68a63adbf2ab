package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/model"
)

func newTestSeedService(t *testing.T, opts SeedOptions) (*SeedService, *fakeSnippetRepo, *fakeUserRepo) {
	t.Helper()
	snippets := newFakeSnippetRepo()
	users := newFakeUserRepo()
	svc, err := NewSeedService(snippets, users, auth.NewPasswordService(4), opts, testLogger())
	require.NoError(t, err)
	return svc, snippets, users
}

func TestParseFixture_Embedded(t *testing.T) {
	fixture, err := parseFixture(defaultFixture)
	require.NoError(t, err)
	require.NotEmpty(t, fixture)

	for _, f := range fixture {
		assert.True(t, model.Language(f.ProgrammingLanguage).Valid(), f.Title)
	}
}

func TestParseFixture_Invalid(t *testing.T) {
	_, err := parseFixture([]byte(`{"snippets":[{"title":"","code":"x","programmingLanguage":"HTML"}]}`))
	assert.ErrorContains(t, err, "Title is required")

	_, err = parseFixture([]byte(`{"snippets":[{"title":"t","code":"x","programmingLanguage":"Rust"}]}`))
	assert.Error(t, err)

	_, err = parseFixture([]byte(`not json`))
	assert.Error(t, err)
}

func TestSeedService_Status(t *testing.T) {
	svc, repo, _ := newTestSeedService(t, SeedOptions{})
	repo.put(model.Snippet{ID: "a", UserID: alice})

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Current)
	assert.Equal(t, len(svc.fixture), status.Fixture)
}

func TestSeedService_Reset_ForUser(t *testing.T) {
	svc, repo, users := newTestSeedService(t, SeedOptions{})
	ctx := context.Background()
	repo.put(model.Snippet{ID: "old-alice", UserID: alice})
	repo.put(model.Snippet{ID: "old-bob", UserID: bob})

	owner, err := svc.Reset(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	assert.Empty(t, users.users, "no demo user when someone is logged in")

	n, _ := repo.Count(ctx)
	assert.Equal(t, len(svc.fixture), n, "every previous snippet is gone")

	listed, err := repo.List(ctx, snippetFilterFor(alice))
	require.NoError(t, err)
	require.Len(t, listed, len(svc.fixture))
	assert.Equal(t, svc.fixture[0].Title, listed[0].Title, "newest first follows fixture order")

	favorites := 0
	for _, s := range listed {
		if s.Favorite {
			favorites++
		}
	}
	assert.Positive(t, favorites)
}

func TestSeedService_Reset_DemoUser(t *testing.T) {
	svc, repo, users := newTestSeedService(t, SeedOptions{DemoUsername: "demo", DemoPassword: "demo-password"})
	ctx := context.Background()

	owner, err := svc.Reset(ctx, "")
	require.NoError(t, err)

	demo, err := users.GetUserByUsername(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, demo.ID, owner)
	assert.True(t, demo.HasPassword())

	again, err := svc.Reset(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, owner, again, "the demo user is reused")
	assert.Len(t, users.users, 1)

	n, _ := repo.Count(ctx)
	assert.Equal(t, len(svc.fixture), n)
}

func TestSeedService_Reset_NoOwner(t *testing.T) {
	svc, _, _ := newTestSeedService(t, SeedOptions{})

	_, err := svc.Reset(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSeedService_Reset_RepoError(t *testing.T) {
	svc, repo, _ := newTestSeedService(t, SeedOptions{})
	repo.put(model.Snippet{ID: "keep", UserID: alice})
	repo.replaceErr = errDatabaseDown

	_, err := svc.Reset(context.Background(), alice)
	assert.ErrorIs(t, err, errDatabaseDown)

	n, _ := repo.Count(context.Background())
	assert.Equal(t, 1, n)
}
