package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-saver/internal/apperror"
	"github.com/sakif/snippet-saver/internal/service"
)

// SeedHandler serves /seed. It is only mounted when seeding is enabled.
type SeedHandler struct {
	seeds  *service.SeedService
	render *Renderer
	logger *slog.Logger
}

func NewSeedHandler(seeds *service.SeedService, render *Renderer, logger *slog.Logger) *SeedHandler {
	return &SeedHandler{seeds: seeds, render: render, logger: logger}
}

type seedView struct {
	Status service.SeedStatus
}

// HandleStatus asks for confirmation, showing both counts.
//
// HTTP: GET /seed
func (h *SeedHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.seeds.Status(r.Context())
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Page(w, r, http.StatusOK, "seed", "Seed", seedView{Status: status}, status)
}

// HandleSeed wipes every snippet and loads the fixture.
//
// HTTP: POST /seed   _action=seed
func (h *SeedHandler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "Could not read the submitted form"))
		return
	}
	if action := r.PostFormValue("_action"); action != "seed" {
		h.render.Error(w, r, apperror.ValidationFailed("_action", fmt.Sprintf("unknown action %q", action)))
		return
	}

	if _, err := h.seeds.Reset(r.Context(), currentUser(r)); err != nil {
		h.render.Error(w, r, err)
		return
	}

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/snippets", http.StatusSeeOther)
}
