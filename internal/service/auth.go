// Authentication business logic.
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (DB)
//	                                          ↘ PasswordService (bcrypt)
//
// The service never touches cookies; handlers turn a returned *model.User
// into a session.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/repository"
	"github.com/sakif/snippet-saver/internal/validate"
)

const (
	MinPasswordLength = 8

	msgPasswordsDiffer = "The entered passwords are not equal"
	msgPasswordShort   = "Password must be at least 8 characters"
	msgBadCredentials  = "User not found or password didn't match"
	msgUsernameTaken   = "Username is already taken"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username       string `form:"username"       label:"Username" validate:"required,max=50"`
	Password       string `form:"password"       label:"Password" validate:"required,max=72"`
	RepeatPassword string `form:"repeatPassword" label:"Repeated password" validate:"-"`
}

// AuthService handles registration and login.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a password account. Checks run in this order, and the
// first failure wins:
//
//  1. password and repeat differ        → "The entered passwords are not equal"
//  2. password shorter than 8 chars     → "Password must be at least 8 characters"
//  3. schema (username required, ≤ 50; password ≤ 72)
//  4. username already taken            → unique index violation, reported as validation
//
// All failures are validation errors (HTTP 400). Username and passwords are trimmed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Password = strings.TrimSpace(in.Password)
	in.RepeatPassword = strings.TrimSpace(in.RepeatPassword)

	if in.Password != in.RepeatPassword {
		return nil, apperror.ValidationFailed("repeatPassword", msgPasswordsDiffer)
	}
	if len([]rune(in.Password)) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", msgPasswordShort)
	}
	if err := validate.Error(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "Password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: in.Username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("username", msgUsernameTaken)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Login checks a username/password pair. Unknown users, GitHub-only users
// and wrong passwords all fail with the same 401 message.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up user: %w", err)
		}
		s.passwords.VerifyNothing(password)
		s.logger.Info("login failed", slog.String("username", username), slog.String("reason", "unknown user"))
		return nil, apperror.Unauthorized(msgBadCredentials)
	}

	if !user.HasPassword() {
		s.passwords.VerifyNothing(password)
		return nil, apperror.Unauthorized(msgBadCredentials)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("stored password hash unreadable", slog.String("userID", user.ID), slog.String("error", err.Error()))
		}
		s.logger.Info("login failed", slog.String("username", username), slog.String("reason", "password mismatch"))
		return nil, apperror.Unauthorized(msgBadCredentials)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return user, nil
}

// LoginOrRegisterGitHub finds the account linked to a GitHub profile, or
// creates one. The GitHub login becomes the username; on a clash a numeric
// suffix is added ("octocat-2", "octocat-3", ...).
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	existing, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		s.logger.Info("user authenticated via GitHub", slog.String("userID", existing.ID))
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
	}

	const maxAttempts = 20
	ghID := gh.ID
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		username := gh.Login
		if attempt > 1 {
			username = fmt.Sprintf("%s-%d", gh.Login, attempt)
		}

		user := &model.User{Username: username, GitHubID: &ghID}
		err := s.users.CreateUser(ctx, user)
		if err == nil {
			s.logger.Info("user registered via GitHub",
				slog.String("userID", user.ID),
				slog.String("username", user.Username),
			)
			return user, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: creating GitHub user: %w", err)
		}

		// A concurrent callback for the same account may have won the insert.
		linked, err := s.users.GetUserByGitHubID(ctx, gh.ID)
		if err == nil {
			s.logger.Info("user authenticated via GitHub", slog.String("userID", linked.ID))
			return linked, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
		}
	}
	return nil, apperror.Conflict("user", gh.Login)
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("not logged in")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}
