package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/executor"
	"github.com/sakif/snippet-saver/internal/model"
	"github.com/sakif/snippet-saver/internal/service"
)

// SnippetHandler serves everything under /snippets. Pages share a sidebar
// listing the user's snippets, filtered and sorted by the q and sort query
// parameters, which links carry along.
type SnippetHandler struct {
	snippets *service.SnippetService
	render   *Renderer
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, render *Renderer, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		snippets: snippets,
		render:   render,
		logger:   logger,
	}
}

// listView is the sidebar.
type listView struct {
	Snippets   []model.Snippet `json:"snippets"`
	Query      string          `json:"q"`
	Sort       model.SortField `json:"sort"`
	Action     string          `json:"-"` // GET target of the search form
	SelectedID string          `json:"-"`
	Search     string          `json:"-"` // "?q=…&sort=…" or ""
}

type listPage struct {
	List listView
}

type detailPage struct {
	List    listView
	Snippet *model.Snippet
	Run     *executor.ExecutionResult
}

type formPage struct {
	List      listView
	Heading   string
	Action    string
	Values    service.SnippetInput
	Errors    map[string]string
	ErrorList []apperror.FieldError
}

// sidebar loads the current user's list for the layout.
func (h *SnippetHandler) sidebar(r *http.Request, userID, selectedID string) (listView, error) {
	query := r.URL.Query().Get("q")
	sort := model.ParseSortField(r.URL.Query().Get("sort"))

	snippets, err := h.snippets.List(r.Context(), userID, query, sort)
	if err != nil {
		return listView{}, err
	}
	if snippets == nil {
		snippets = []model.Snippet{}
	}

	action := "/snippets"
	if selectedID != "" {
		action += "/" + url.PathEscape(selectedID)
	}
	return listView{
		Snippets:   snippets,
		Query:      query,
		Sort:       sort,
		Action:     action,
		SelectedID: selectedID,
		Search:     searchSuffix(r.URL.Query()),
	}, nil
}

// searchSuffix keeps only the list parameters, so links don't drag other
// query values along.
func searchSuffix(q url.Values) string {
	keep := url.Values{}
	for _, key := range []string{"q", "sort"} {
		if v := q.Get(key); v != "" {
			keep.Set(key, v)
		}
	}
	if len(keep) == 0 {
		return ""
	}
	return "?" + keep.Encode()
}

func currentUser(r *http.Request) string {
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}

// HandleList shows the sidebar with an empty main pane.
//
// HTTP: GET /snippets?q=…&sort=title|updatedAt|createdAt|favorite
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.sidebar(r, currentUser(r), "")
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Page(w, r, http.StatusOK, "list", "My code snippets", listPage{List: list}, list)
}

// HandleDetail shows one snippet.
//
// HTTP: GET /snippets/{id}
// 404 if it doesn't exist, then /login without a session, then 403 if it
// belongs to someone else.
func (h *SnippetHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	h.showDetail(w, r, nil)
}

func (h *SnippetHandler) showDetail(w http.ResponseWriter, r *http.Request, run *executor.ExecutionResult) {
	userID := currentUser(r)
	snippet, err := h.snippets.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	list, err := h.sidebar(r, userID, snippet.ID)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	var payload any = snippet
	if run != nil {
		payload = run
	}
	h.render.Page(w, r, http.StatusOK, "detail", snippet.Title, detailPage{
		List:    list,
		Snippet: snippet,
		Run:     run,
	}, payload)
}

// HandleAction runs the mutation named by the intent form field.
//
// HTTP: POST /snippets/{id}   intent=delete|favorite
// delete   → 303 /snippets
// favorite → 303 back to the snippet (204 for JSON clients)
func (h *SnippetHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "Could not read the submitted form"))
		return
	}

	intent, err := service.ParseIntent(r.PostFormValue("intent"))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.snippets.Apply(r.Context(), currentUser(r), id, intent); err != nil {
		h.render.Error(w, r, err)
		return
	}

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch intent {
	case service.IntentDelete:
		http.Redirect(w, r, "/snippets", http.StatusSeeOther)
	case service.IntentFavorite:
		http.Redirect(w, r, "/snippets/"+url.PathEscape(id)+searchSuffix(r.URL.Query()), http.StatusSeeOther)
	}
}

// HandleNewForm shows an empty snippet form.
//
// HTTP: GET /snippets/new
func (h *SnippetHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, http.StatusOK, "New snippet", "/snippets/new", service.SnippetInput{}, nil)
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /snippets/new
// Success: 302 → /snippets/{id}. Invalid input: 400 with the form again.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "Could not read the submitted form"))
		return
	}
	in := formValues(service.SnippetInput{}, r.PostForm)

	snippet, err := h.snippets.Create(r.Context(), currentUser(r), in)
	if err != nil {
		h.formError(w, r, err, "New snippet", "/snippets/new", in)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, snippet)
		return
	}
	http.Redirect(w, r, "/snippets/"+url.PathEscape(snippet.ID), http.StatusFound)
}

// HandleEditForm shows the form filled with the stored snippet.
//
// HTTP: GET /snippets/{id}/edit
func (h *SnippetHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	action := "/snippets/" + url.PathEscape(snippet.ID) + "/edit" + searchSuffix(r.URL.Query())
	h.showForm(w, r, http.StatusOK, "Edit snippet", action, service.InputFromSnippet(snippet), nil)
}

// HandleUpdate saves the edited snippet.
//
// HTTP: POST /snippets/{id}/edit
// Success: 302 → /snippets/{id}. Invalid input: 400 showing the submitted
// values, not the stored ones.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "Could not read the submitted form"))
		return
	}

	userID := currentUser(r)
	existing, err := h.snippets.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	in := formValues(service.InputFromSnippet(existing), r.PostForm)
	action := "/snippets/" + url.PathEscape(existing.ID) + "/edit" + searchSuffix(r.URL.Query())

	snippet, err := h.snippets.Update(r.Context(), userID, existing.ID, in)
	if err != nil {
		h.formError(w, r, err, "Edit snippet", action, in)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, snippet)
		return
	}
	http.Redirect(w, r, "/snippets/"+url.PathEscape(snippet.ID)+searchSuffix(r.URL.Query()), http.StatusFound)
}

// HandleRun executes a JavaScript snippet and shows its output under the code.
//
// HTTP: POST /snippets/{id}/run
func (h *SnippetHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.snippets.Run(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.showDetail(w, r, result)
}

// formError re-renders the form on validation failure and falls through
// to the error page for anything else.
func (h *SnippetHandler) formError(w http.ResponseWriter, r *http.Request, err error, heading, action string, in service.SnippetInput) {
	var appErr *apperror.AppError
	if !errors.Is(err, apperror.ErrValidation) || !errors.As(err, &appErr) || wantsJSON(r) {
		h.render.Error(w, r, err)
		return
	}
	h.showForm(w, r, http.StatusBadRequest, heading, action, in, appErr)
}

func (h *SnippetHandler) showForm(w http.ResponseWriter, r *http.Request, status int, heading, action string, values service.SnippetInput, appErr *apperror.AppError) {
	list, err := h.sidebar(r, currentUser(r), "")
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	view := formPage{
		List:    list,
		Heading: heading,
		Action:  action,
		Values:  values,
	}
	if appErr != nil {
		view.Errors = appErr.FieldMap()
		view.ErrorList = appErr.Fields
	}
	h.render.Page(w, r, status, "form", heading, view, values)
}
