package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/service"
)

const oauthStateCookie = "oauth_state"

// GitHubAuthenticator is the OAuth client the sign-in routes need.
// *auth.GitHubProvider implements it.
type GitHubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves /login, /register, /logout and the GitHub flow.
type AuthHandler struct {
	users    *service.AuthService
	sessions *auth.SessionStore
	github   GitHubAuthenticator // nil when GitHub sign-in is not configured
	render   *Renderer
	secure   bool
	logger   *slog.Logger
}

func NewAuthHandler(
	users *service.AuthService,
	sessions *auth.SessionStore,
	github GitHubAuthenticator,
	render *Renderer,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		github:   github,
		render:   render,
		secure:   secure,
		logger:   logger,
	}
}

type loginView struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"-"`
	Error    string `json:"errorMessage,omitempty"`
	GitHub   bool   `json:"-"`
}

type registerView struct {
	Username string            `json:"-"`
	Message  string            `json:"message,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// HandleLoginPage shows the login form, or who is logged in.
//
// HTTP: GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	h.render.Page(w, r, http.StatusOK, "login", "Log in", loginView{
		UserID: userID,
		GitHub: h.github != nil,
	}, nil)
}

// HandleLogin checks the credentials and starts a session.
//
// HTTP: POST /login
// Success: 302 → /snippets with the session cookie set.
// Failure: 401 and the form again, with one message for every failure.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "Could not read the submitted form"))
		return
	}
	username := r.PostFormValue("username")

	user, err := h.users.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			h.render.Error(w, r, err)
			return
		}
		h.render.Page(w, r, http.StatusUnauthorized, "login", "Log in", loginView{
			Username: username,
			Error:    err.Error(),
			GitHub:   h.github != nil,
		}, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	h.startSession(w, r, user)
}

// HandleRegisterPage shows the registration form. Logged-in users are sent
// straight to their snippets.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/snippets", http.StatusFound)
		return
	}
	h.render.Page(w, r, http.StatusOK, "register", "Register", registerView{}, nil)
}

// HandleRegister creates a password account and logs it in.
//
// HTTP: POST /register
// Failure: 400 with the messages joined by ", " and per-field errors.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "Could not read the submitted form"))
		return
	}
	in := service.RegisterInput{
		Username:       r.PostFormValue("username"),
		Password:       r.PostFormValue("password"),
		RepeatPassword: r.PostFormValue("repeatPassword"),
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		var appErr *apperror.AppError
		if !errors.Is(err, apperror.ErrValidation) || !errors.As(err, &appErr) {
			h.render.Error(w, r, err)
			return
		}
		view := registerView{
			Username: in.Username,
			Message:  appErr.Message,
			Errors:   appErr.FieldMap(),
		}
		h.render.Page(w, r, http.StatusBadRequest, "register", "Register", view, ErrorResponse{
			Error:   "validation_error",
			Message: appErr.Message,
			Fields:  view.Errors,
		})
		return
	}

	h.startSession(w, r, user)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Set-Cookie", h.sessions.Destroy())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleGitHubLogin redirects to GitHub's consent page. A random state is
// kept in a short-lived cookie and checked on the way back.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the OAuth flow: state check, code
// exchange, then find-or-create the linked user.
//
// HTTP: GET /auth/github/callback?code=…&state=…
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		h.render.Error(w, r, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := r.URL.Query().Get("error"); denied != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", denied))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.render.Error(w, r, apperror.ValidationFailed("code", "Missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		h.render.Error(w, r, apperror.Unavailable("GitHub sign-in failed, please try again"))
		return
	}

	user, err := h.users.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.startSession(w, r, user)
}

// startSession stores the user ID in the session cookie and redirects to
// the snippet list.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	sess := auth.SessionFromContext(r.Context())
	sess.Set(auth.KeyUserID, user.ID)

	cookie, err := h.sessions.Commit(sess)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	w.Header().Add("Set-Cookie", cookie)
	http.Redirect(w, r, "/snippets", http.StatusFound)
}
