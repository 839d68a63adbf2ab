// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage implements them.
package repository

import (
	"context"

	"github.com/sakif/snippet-saver/internal/model"
)

// SnippetFilter narrows and orders a snippet listing.
type SnippetFilter struct {
	UserID string          // required: listings are always per owner
	Query  string          // optional case-insensitive title substring
	Sort   model.SortField // unknown values fall back to model.DefaultSort
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, filter SnippetFilter) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error

	// Count returns the number of snippets across all users.
	Count(ctx context.Context) (int, error)
	// ReplaceAll deletes every snippet and inserts the given ones atomically.
	ReplaceAll(ctx context.Context, snippets []model.Snippet) error
}

type UserRepository interface {
	// CreateUser returns an apperror.ErrConflict error when the username
	// (or GitHub ID) is already taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
}
