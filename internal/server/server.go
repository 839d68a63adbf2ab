// Package server is the composition root: it builds the database,
// services, handlers and router, and runs the HTTP server until a signal
// arrives.
//
//	config → sqlite.DB → services → handlers → chi router
//
// Handlers only see services; services only see repository interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/config"
	"github.com/sakif/snippet-saver/internal/executor"
	"github.com/sakif/snippet-saver/internal/executor/docker"
	"github.com/sakif/snippet-saver/internal/handler"
	"github.com/sakif/snippet-saver/internal/middleware"
	sqliteRepo "github.com/sakif/snippet-saver/internal/repository/sqlite"
	"github.com/sakif/snippet-saver/internal/service"
	"github.com/sakif/snippet-saver/web"
)

// Server owns the router and the resources closed on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	runner executor.Executor // nil when running snippets is disabled
	github handler.GitHubAuthenticator
}

// Option customises a Server built by NewWithDB.
type Option func(*Server)

// WithGitHub replaces the GitHub OAuth client, which is otherwise built
// from config when GitHub sign-in is configured.
func WithGitHub(gh handler.GitHubAuthenticator) Option {
	return func(s *Server) { s.github = gh }
}

// New opens (and migrates) the database, starts the Docker runner when
// enabled, and wires every route. A runner that fails to start is logged
// and left out; the server still comes up.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	var runner executor.Executor
	if cfg.Executor.Enabled {
		dockerCfg := docker.DefaultConfig()
		dockerCfg.Image = cfg.Executor.Image
		dockerCfg.Timeout = cfg.Executor.Timeout
		dockerCfg.PoolSize = cfg.Executor.PoolSize

		exec, err := docker.New(ctx, dockerCfg, logger)
		if err != nil {
			logger.Warn("snippet runner unavailable, /snippets/{id}/run will answer 503",
				slog.String("error", err.Error()),
			)
		} else {
			runner = exec
		}
	}

	s, err := NewWithDB(cfg, db, runner, logger)
	if err != nil {
		_ = closeAll(db, runner)
		return nil, err
	}
	return s, nil
}

// NewWithDB wires a server around an already open database. runner may be nil.
func NewWithDB(cfg config.Config, db *sqliteRepo.DB, runner executor.Executor, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		runner: runner,
	}
	if cfg.GitHubEnabled() {
		s.github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
//	GET  /                        → 302 /snippets
//	GET  /site.webmanifest        → PWA manifest
//	GET  /static/*, /icons/*      → embedded assets
//	GET  /login   POST /login
//	GET  /register POST /register
//	POST /logout
//	GET  /auth/github/login, /auth/github/callback   (when configured)
//	GET  /snippets                → list (login required)
//	GET  /snippets/new POST /snippets/new            (login required)
//	GET  /snippets/{id} POST /snippets/{id}          → detail, intent=delete|favorite
//	GET  /snippets/{id}/edit POST /snippets/{id}/edit
//	POST /snippets/{id}/run
//	GET  /seed POST /seed         (when enabled)
//
// Detail, edit and run routes skip RequireUser: the service checks
// existence before the session, so a missing snippet is a 404 even for
// anonymous visitors.
func (s *Server) setupRoutes() error {
	sessions, err := auth.NewSessionStore(s.config.Session.Secret, auth.SessionOptions{
		TTL:    s.config.Session.TTL,
		Secure: s.config.Session.Secure,
	})
	if err != nil {
		return err
	}

	renderer, err := handler.NewRenderer(web.FS, s.logger)
	if err != nil {
		return err
	}

	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	passwords := auth.NewPasswordService(s.config.BcryptCost)
	authService := service.NewAuthService(s.db, passwords, s.logger)
	snippetService := service.NewSnippetService(s.db, s.runner, s.logger)

	authHandler := handler.NewAuthHandler(authService, sessions, s.github, renderer, s.config.Session.Secure, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, renderer, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(auth.LoadSession(sessions))
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(renderer.NotFound)
	r.MethodNotAllowed(renderer.MethodNotAllowed)

	assets := http.FileServerFS(staticFS)
	r.Handle("/static/*", http.StripPrefix("/static", assets))
	r.Handle("/icons/*", assets)
	r.Get("/site.webmanifest", handler.Manifest)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/snippets", http.StatusFound)
	})

	r.Get("/login", authHandler.HandleLoginPage)
	r.Post("/login", authHandler.HandleLogin)
	r.Get("/register", authHandler.HandleRegisterPage)
	r.Post("/register", authHandler.HandleRegister)
	r.Post("/logout", authHandler.HandleLogout)

	if s.github != nil {
		r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	r.Route("/snippets", func(r chi.Router) {
		r.With(auth.RequireUser).Get("/", snippetHandler.HandleList)
		r.With(auth.RequireUser).Get("/new", snippetHandler.HandleNewForm)
		r.With(auth.RequireUser).Post("/new", snippetHandler.HandleCreate)

		r.Get("/{id}", snippetHandler.HandleDetail)
		r.Post("/{id}", snippetHandler.HandleAction)
		r.Get("/{id}/edit", snippetHandler.HandleEditForm)
		r.Post("/{id}/edit", snippetHandler.HandleUpdate)
		r.Post("/{id}/run", snippetHandler.HandleRun)
	})

	if s.config.Seed.Enabled {
		seedService, err := service.NewSeedService(s.db, s.db, passwords, service.SeedOptions{
			DemoUsername: s.config.Seed.Username,
			DemoPassword: s.config.Seed.Password,
		}, s.logger)
		if err != nil {
			return err
		}
		seedHandler := handler.NewSeedHandler(seedService, renderer, s.logger)
		r.Get("/seed", seedHandler.HandleStatus)
		r.Post("/seed", seedHandler.HandleSeed)
	}

	return nil
}

// Start serves HTTP until SIGINT/SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the database and runner.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.Bool("runner", s.runner != nil),
			slog.Bool("seed", s.config.Seed.Enabled),
			slog.Bool("github", s.github != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// Close releases the database and the runner.
func (s *Server) Close() error {
	return closeAll(s.db, s.runner)
}

func closeAll(db *sqliteRepo.DB, runner executor.Executor) error {
	var errs []error
	if c, ok := runner.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if db != nil {
		errs = append(errs, db.Close())
	}
	return errors.Join(errs...)
}
