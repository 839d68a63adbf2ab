package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/repository"
	"github.com/sakif/snippet-saver/internal/validate"
)

//go:embed fixtures/seed.json
var defaultFixture []byte

type fixtureFile struct {
	Snippets []fixtureSnippet `json:"snippets"`
}

type fixtureSnippet struct {
	Title               string `json:"title"               validate:"required,max=100"`
	Code                string `json:"code"                validate:"required,max=100000"`
	ProgrammingLanguage string `json:"programmingLanguage" validate:"required,oneof=HTML CSS JavaScript"`
	Description         string `json:"description"         validate:"max=5000"`
	Favorite            bool   `json:"favorite"`
}

// SeedStatus is what the /seed page shows before asking for confirmation.
type SeedStatus struct {
	Current int `json:"snippetsCount"`
	Fixture int `json:"defaultSnippetsCount"`
}

// SeedOptions names the demo account that owns the fixtures when nobody is
// logged in.
type SeedOptions struct {
	DemoUsername string
	DemoPassword string
}

// SeedService wipes the snippets table and reloads the bundled fixture.
type SeedService struct {
	snippets repository.SnippetRepository
	users    repository.UserRepository
	auth     *AuthService
	opts     SeedOptions
	fixture  []fixtureSnippet
	logger   *slog.Logger
}

// NewSeedService parses and validates the embedded fixture up front so a
// broken fixture fails at startup, not on the first reset.
func NewSeedService(
	snippets repository.SnippetRepository,
	users repository.UserRepository,
	passwords *auth.PasswordService,
	opts SeedOptions,
	logger *slog.Logger,
) (*SeedService, error) {
	fixture, err := parseFixture(defaultFixture)
	if err != nil {
		return nil, err
	}
	return &SeedService{
		snippets: snippets,
		users:    users,
		auth:     NewAuthService(users, passwords, logger),
		opts:     opts,
		fixture:  fixture,
		logger:   logger,
	}, nil
}

func parseFixture(raw []byte) ([]fixtureSnippet, error) {
	var f fixtureFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("service/seed: decoding fixture: %w", err)
	}
	for i, s := range f.Snippets {
		if fields := validate.Struct(s); len(fields) > 0 {
			return nil, fmt.Errorf("service/seed: fixture snippet %d (%q): %s", i, s.Title, apperror.InvalidFields(fields).Message)
		}
	}
	return f.Snippets, nil
}

// Status reports the current snippet count against the fixture size.
func (s *SeedService) Status(ctx context.Context) (SeedStatus, error) {
	n, err := s.snippets.Count(ctx)
	if err != nil {
		return SeedStatus{}, fmt.Errorf("service/seed: counting snippets: %w", err)
	}
	return SeedStatus{Current: n, Fixture: len(s.fixture)}, nil
}

// Reset deletes every snippet (all users) and inserts the fixture in one
// transaction. The fixture is owned by userID, or by the demo account when
// userID is empty. It returns the owner's ID.
func (s *SeedService) Reset(ctx context.Context, userID string) (string, error) {
	owner := userID
	if owner == "" {
		demo, err := s.demoUser(ctx)
		if err != nil {
			return "", err
		}
		owner = demo.ID
	}

	// Stagger timestamps so the default "updatedAt" order matches fixture order.
	now := time.Now().UTC()
	rows := make([]model.Snippet, 0, len(s.fixture))
	for i, f := range s.fixture {
		ts := now.Add(-time.Duration(i) * time.Minute)
		rows = append(rows, model.Snippet{
			UserID:              owner,
			Title:               f.Title,
			Code:                f.Code,
			ProgrammingLanguage: model.Language(f.ProgrammingLanguage),
			Description:         f.Description,
			Favorite:            f.Favorite,
			CreatedAt:           ts,
			UpdatedAt:           ts,
		})
	}

	if err := s.snippets.ReplaceAll(ctx, rows); err != nil {
		return "", fmt.Errorf("service/seed: replacing snippets: %w", err)
	}

	s.logger.Info("database seeded", slog.Int("snippets", len(rows)), slog.String("ownerID", owner))
	return owner, nil
}

// demoUser returns the configured demo account, registering it on first use.
func (s *SeedService) demoUser(ctx context.Context) (*model.User, error) {
	if s.opts.DemoUsername == "" {
		return nil, apperror.ValidationFailed("user", "Log in first, or configure a demo user to own the seed data")
	}

	user, err := s.users.GetUserByUsername(ctx, s.opts.DemoUsername)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/seed: looking up demo user: %w", err)
	}

	user, err = s.auth.Register(ctx, RegisterInput{
		Username:       s.opts.DemoUsername,
		Password:       s.opts.DemoPassword,
		RepeatPassword: s.opts.DemoPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("service/seed: creating demo user: %w", err)
	}
	return user, nil
}
