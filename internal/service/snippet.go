// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms, renders pages, redirects
//	Service (business layer) → validates, checks ownership, orchestrates
//	Repository (data layer)  → reads/writes SQLite
//
// Services take repository interfaces, not *sqlite.DB, so tests inject
// in-memory fakes (see snippet_test.go) and never touch a database.
//
// OWNERSHIP:
// Every snippet operation takes the caller's userID and checks it here,
// per request. Handlers never compare IDs themselves.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/executor"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/repository"
	"github.com/sakif/snippet-saver/internal/validate"
)

const (
	MaxTitleLength       = 100
	MaxCodeLength        = 100000 // ~100KB of code
	MaxDescriptionLength = 5000

	notYourSnippet = "That's not your snippet"
	loginRequired  = "You need to log in to see this snippet"
)

// SnippetInput is what the create/edit form submits.
// The tags are read by the validate package.
type SnippetInput struct {
	Title               string `form:"title"               label:"Title"                validate:"required,max=100"`
	Code                string `form:"code"                label:"Code"                 validate:"required,max=100000"`
	ProgrammingLanguage string `form:"programmingLanguage" label:"Programming language" validate:"required,oneof=HTML CSS JavaScript"`
	Description         string `form:"description"         label:"Description"          validate:"max=5000"`
}

// InputFromSnippet pre-fills the edit form.
func InputFromSnippet(s *model.Snippet) SnippetInput {
	return SnippetInput{
		Title:               s.Title,
		Code:                s.Code,
		ProgrammingLanguage: string(s.ProgrammingLanguage),
		Description:         s.Description,
	}
}

// normalize trims the single-line fields. Code is kept byte-for-byte:
// leading whitespace is meaningful in a snippet.
func (in SnippetInput) normalize() SnippetInput {
	in.Title = strings.TrimSpace(in.Title)
	in.ProgrammingLanguage = strings.TrimSpace(in.ProgrammingLanguage)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// SnippetService handles business logic for code snippets.
type SnippetService struct {
	repo   repository.SnippetRepository
	runner executor.Executor
	logger *slog.Logger
}

// NewSnippetService creates a SnippetService. runner may be nil, in which
// case Run reports the runner as unavailable.
func NewSnippetService(repo repository.SnippetRepository, runner executor.Executor, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		runner: runner,
		logger: logger,
	}
}

// List returns the user's snippets whose title contains query, in the given order.
func (s *SnippetService) List(ctx context.Context, userID, query string, sort model.SortField) ([]model.Snippet, error) {
	if userID == "" {
		return nil, apperror.Unauthorized(loginRequired)
	}

	snippets, err := s.repo.List(ctx, repository.SnippetFilter{
		UserID: userID,
		Query:  strings.TrimSpace(query),
		Sort:   model.ParseSortField(string(sort)),
	})
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("userID", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Get loads a snippet for userID.
//
// The checks run in a fixed order: existence (404), then a session (401),
// then ownership (403). An anonymous request for a missing id therefore
// gets a 404 rather than a login redirect.
func (s *SnippetService) Get(ctx context.Context, userID, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		return nil, apperror.Unauthorized(loginRequired)
	}
	if !snippet.OwnedBy(userID) {
		s.logger.Warn("snippet access denied",
			slog.String("snippetID", id),
			slog.String("userID", userID),
		)
		return nil, apperror.Forbidden(notYourSnippet)
	}
	return snippet, nil
}

// Create validates in and saves a new snippet owned by userID.
func (s *SnippetService) Create(ctx context.Context, userID string, in SnippetInput) (*model.Snippet, error) {
	if userID == "" {
		return nil, apperror.Unauthorized(loginRequired)
	}

	in = in.normalize()
	if err := validate.Error(in); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		UserID:              userID,
		Title:               in.Title,
		Code:                in.Code,
		ProgrammingLanguage: model.Language(in.ProgrammingLanguage),
		Description:         in.Description,
	}
	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet", slog.String("title", in.Title), slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created", slog.String("id", snippet.ID), slog.String("userID", userID))
	return snippet, nil
}

// Update replaces the editable fields of a snippet. Last writer wins.
func (s *SnippetService) Update(ctx context.Context, userID, id string, in SnippetInput) (*model.Snippet, error) {
	snippet, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	in = in.normalize()
	if err := validate.Error(in); err != nil {
		return nil, err
	}

	snippet.Title = in.Title
	snippet.Code = in.Code
	snippet.ProgrammingLanguage = model.Language(in.ProgrammingLanguage)
	snippet.Description = in.Description

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet", slog.String("id", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.String("id", snippet.ID))
	return snippet, nil
}

// Delete removes a snippet after the same checks as Get.
func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting snippet: %w", err)
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// ToggleFavorite flips the favorite flag. The write bumps updatedAt.
func (s *SnippetService) ToggleFavorite(ctx context.Context, userID, id string) (*model.Snippet, error) {
	snippet, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	snippet.Favorite = !snippet.Favorite
	if err := s.repo.Update(ctx, snippet); err != nil {
		return nil, fmt.Errorf("toggling favorite: %w", err)
	}

	s.logger.Info("snippet favorite toggled", slog.String("id", id), slog.Bool("favorite", snippet.Favorite))
	return snippet, nil
}

// Apply performs the mutation selected by intent. The returned snippet is
// nil after a delete.
func (s *SnippetService) Apply(ctx context.Context, userID, id string, intent Intent) (*model.Snippet, error) {
	switch intent {
	case IntentDelete:
		return nil, s.Delete(ctx, userID, id)
	case IntentFavorite:
		return s.ToggleFavorite(ctx, userID, id)
	default:
		return nil, apperror.ValidationFailed("intent", fmt.Sprintf("unknown intent %s", intent))
	}
}

// Run executes a JavaScript snippet in the sandboxed runner.
func (s *SnippetService) Run(ctx context.Context, userID, id string) (*executor.ExecutionResult, error) {
	snippet, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.runner == nil {
		return nil, apperror.Unavailable("The code runner is not available")
	}
	if snippet.ProgrammingLanguage != model.LanguageJavaScript {
		return nil, apperror.ValidationFailed("programmingLanguage", "Only JavaScript snippets can be run")
	}

	result, err := s.runner.Execute(ctx, executor.ExecutionRequest{
		Language: string(snippet.ProgrammingLanguage),
		Code:     snippet.Code,
	})
	if err != nil {
		s.logger.Error("snippet run failed", slog.String("id", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("running snippet: %w", err)
	}

	s.logger.Info("snippet run",
		slog.String("id", id),
		slog.Int("exitCode", result.ExitCode),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}
