package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/maxldruck/printcalc/internal/services"
)

// DraftHandler exposes the unsaved project of the current account.
type DraftHandler struct {
	projects *services.ProjectService
}

func NewDraftHandler(projects *services.ProjectService) *DraftHandler {
	return &DraftHandler{projects: projects}
}

// DraftRouter registers draft routes on the given router.
func DraftRouter(r chi.Router, projects *services.ProjectService) {
	handler := NewDraftHandler(projects)

	r.Get("/", handler.Get)
	r.Patch("/", handler.Update)
	r.Delete("/", handler.Discard)
	r.Post("/items", handler.AddItem)
	r.Put("/items/{index}", handler.ReplaceItem)
	r.Delete("/items/{index}", handler.RemoveItem)
	r.Post("/save", handler.Save)
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	view, err := h.projects.Draft(r.Context(), account)
	if err != nil {
		writeServiceError(w, err, "failed to load draft")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Update sets project-level fields; omitted fields are kept.
func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var fields services.DraftFields
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	view, err := h.projects.UpdateDraft(r.Context(), account, fields)
	if err != nil {
		writeServiceError(w, err, "failed to update draft")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.projects.Discard(r.Context(), account); err != nil {
		writeServiceError(w, err, "failed to discard draft")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DraftHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in services.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	view, err := h.projects.AddItem(r.Context(), account, in)
	if err != nil {
		writeServiceError(w, err, "failed to add item")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *DraftHandler) ReplaceItem(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in services.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	view, err := h.projects.ReplaceItem(r.Context(), account, index, in)
	if err != nil {
		writeServiceError(w, err, "failed to replace item")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DraftHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.projects.RemoveItem(r.Context(), account, index)
	if err != nil {
		writeServiceError(w, err, "failed to remove item")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Save writes the draft to the account's ledger.
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	project, err := h.projects.Save(r.Context(), account)
	if err != nil {
		writeServiceError(w, err, "failed to save project")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func parseIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, errors.New("invalid item index")
	}
	return index, nil
}
