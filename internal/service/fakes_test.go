package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/executor"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/repository"
)

// fakeSnippetRepo is an in-memory repository.SnippetRepository. It copies on
// the way in and out so a test can't accidentally mutate stored state.
type fakeSnippetRepo struct {
	mu       sync.Mutex
	snippets map[string]model.Snippet
	nextID   int

	createErr  error
	updateErr  error
	replaceErr error
}

func newFakeSnippetRepo() *fakeSnippetRepo {
	return &fakeSnippetRepo{snippets: make(map[string]model.Snippet)}
}

func (f *fakeSnippetRepo) Create(ctx context.Context, s *model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	s.ID = fmt.Sprintf("snip-%d", f.nextID)
	s.CreatedAt = time.Now().UTC().Add(time.Duration(f.nextID) * time.Millisecond)
	s.UpdatedAt = s.CreatedAt
	f.snippets[s.ID] = *s
	return nil
}

func (f *fakeSnippetRepo) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	return &s, nil
}

func (f *fakeSnippetRepo) List(ctx context.Context, filter repository.SnippetFilter) ([]model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Snippet
	for _, s := range f.snippets {
		if s.UserID != filter.UserID {
			continue
		}
		if !strings.Contains(strings.ToLower(s.Title), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Sort == model.SortTitle {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (f *fakeSnippetRepo) Update(ctx context.Context, s *model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.snippets[s.ID]; !ok {
		return apperror.NotFound("snippet", s.ID)
	}
	s.UpdatedAt = time.Now().UTC()
	f.snippets[s.ID] = *s
	return nil
}

func (f *fakeSnippetRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(f.snippets, id)
	return nil
}

func (f *fakeSnippetRepo) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snippets), nil
}

func (f *fakeSnippetRepo) ReplaceAll(ctx context.Context, snippets []model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.snippets = make(map[string]model.Snippet, len(snippets))
	for i, s := range snippets {
		if s.ID == "" {
			s.ID = fmt.Sprintf("seed-%d", i+1)
		}
		f.snippets[s.ID] = s
	}
	return nil
}

// put stores s as-is, bypassing Create's ID and timestamp assignment.
func (f *fakeSnippetRepo) put(s model.Snippet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snippets[s.ID] = s
}

// fakeUserRepo is an in-memory repository.UserRepository with the same
// uniqueness rules as the users table.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]model.User
	nextID int

	createErr error
	// beforeCreate runs once, ahead of the next CreateUser.
	beforeCreate func()
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	hook := f.beforeCreate
	f.beforeCreate = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", u.Username)
		}
		if u.GitHubID != nil && existing.GitHubID != nil && *existing.GitHubID == *u.GitHubID {
			return apperror.Conflict("user", u.Username)
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

// fakeExecutor records the last request and returns a canned result.
type fakeExecutor struct {
	last   executor.ExecutionRequest
	calls  int
	result *executor.ExecutionResult
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

var errDatabaseDown = errors.New("database is down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func snippetFilterFor(userID string) repository.SnippetFilter {
	return repository.SnippetFilter{UserID: userID, Sort: model.DefaultSort}
}
