package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/maxldruck/printcalc/internal/services"
)

// ProjectHandler serves the saved projects of the current account.
type ProjectHandler struct {
	projects *services.ProjectService
	quotes   *services.QuoteService
}

func NewProjectHandler(projects *services.ProjectService, quotes *services.QuoteService) *ProjectHandler {
	return &ProjectHandler{projects: projects, quotes: quotes}
}

// ProjectRouter registers project routes on the given router.
func ProjectRouter(r chi.Router, projects *services.ProjectService, quotes *services.QuoteService) {
	handler := NewProjectHandler(projects, quotes)

	r.Get("/", handler.List)
	r.Route("/{projectID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Delete("/", handler.Delete)
		r.Post("/edit", handler.Edit)
		r.Get("/quote.pdf", handler.quote(services.FormatPDF))
		r.Get("/quote.xlsx", handler.quote(services.FormatXLSX))
	})
}

// List returns the archive, newest project first.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projects, err := h.projects.List(r.Context(), account)
	if err != nil {
		writeServiceError(w, err, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseProjectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	project, err := h.projects.Get(r.Context(), account, id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseProjectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.projects.Delete(r.Context(), account, id); err != nil {
		writeServiceError(w, err, "failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Edit loads the project into the draft; the next save replaces it.
func (h *ProjectHandler) Edit(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseProjectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.projects.LoadForEdit(r.Context(), account, id)
	if err != nil {
		writeServiceError(w, err, "failed to load project")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ProjectHandler) quote(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := accountFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := parseProjectID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := h.quotes.Export(r.Context(), account, id, format)
		if err != nil {
			writeServiceError(w, err, "failed to render quote")
			return
		}

		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc.Data)
	}
}

func parseProjectID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid project id")
	}
	return id, nil
}
