// Package config loads application settings from the environment.
//
// A `.env` file in the working directory is read first (if present) via
// godotenv. Variables already set in the real environment always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// devSessionSecret is only used outside production when SESSION_SECRET is unset.
	devSessionSecret = "snippet-saver-development-secret"
)

type Config struct {
	Env        string
	Port       int
	DBPath     string
	LogLevel   string
	BcryptCost int

	Session  SessionConfig
	Seed     SeedConfig
	GitHub   GitHubConfig
	Executor ExecutorConfig
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// SeedConfig controls the /seed route and the demo account that owns
// fixture snippets when nobody is logged in.
type SeedConfig struct {
	Enabled  bool
	Username string
	Password string
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type ExecutorConfig struct {
	Enabled  bool
	Image    string
	Timeout  time.Duration
	PoolSize int
}

// Load reads the configuration. It returns an error for values that are
// present but malformed, and for a missing SESSION_SECRET in production.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("config: loading .env: %w", err)
		}
	}

	var errs []error
	env := getEnv("APP_ENV", EnvDevelopment)
	production := env == EnvProduction

	cfg := Config{
		Env:        env,
		Port:       getEnvInt("PORT", 8080, &errs),
		DBPath:     getEnv("DB_PATH", "data/snippets.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		BcryptCost: getEnvInt("BCRYPT_COST", 10, &errs),
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			TTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour, &errs),
			Secure: getEnvBool("SESSION_SECURE", production, &errs),
		},
		Seed: SeedConfig{
			Enabled:  getEnvBool("SEED_ENABLED", !production, &errs),
			Username: getEnv("SEED_USERNAME", "demo"),
			Password: getEnv("SEED_PASSWORD", "demo-password"),
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", "http://localhost:8080/auth/github/callback"),
		},
		Executor: ExecutorConfig{
			Enabled:  getEnvBool("EXECUTOR_ENABLED", false, &errs),
			Image:    getEnv("EXECUTOR_IMAGE", "node:22-alpine"),
			Timeout:  getEnvDuration("EXECUTOR_TIMEOUT", 5*time.Second, &errs),
			PoolSize: getEnvInt("EXECUTOR_POOL_SIZE", 2, &errs),
		},
	}

	if cfg.Session.Secret == "" {
		if production {
			errs = append(errs, errors.New("SESSION_SECRET is required in production"))
		} else {
			cfg.Session.Secret = devSessionSecret
		}
	}
	if cfg.Session.Secret != "" && len(cfg.Session.Secret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", cfg.Port))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d must be between 4 and 31", cfg.BcryptCost))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GitHubEnabled reports whether both OAuth credentials are set.
func (c Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return defaultValue
	}
	return value
}
