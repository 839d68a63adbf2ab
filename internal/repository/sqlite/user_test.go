package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/model"
)

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "alice", PasswordHash: "$2a$04$hash"}
	require.NoError(t, db.CreateUser(context.Background(), user))

	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := db.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "$2a$04$hash", got.PasswordHash)
	assert.Nil(t, got.GitHubID)
}

func TestCreateUser_DuplicateUsernameIsConflict(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	err := db.CreateUser(context.Background(), &model.User{Username: "alice", PasswordHash: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestCreateUser_GitHubID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ghID := int64(4242)

	user := &model.User{Username: "octocat", GitHubID: &ghID}
	require.NoError(t, db.CreateUser(ctx, user))

	got, err := db.GetUserByGitHubID(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotNil(t, got.GitHubID)
	assert.Equal(t, int64(4242), *got.GitHubID)
	assert.False(t, got.HasPassword())

	// same GitHub account under another name is still a conflict
	err = db.CreateUser(ctx, &model.User{Username: "octocat-2", GitHubID: &ghID})
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestCreateUser_ManyWithoutGitHubID(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")
	createTestUser(t, db, "carol")
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	got, err := db.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = db.GetUserByUsername(context.Background(), "nobody")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = db.GetUserByGitHubID(context.Background(), 1)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
