package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/maxldruck/printcalc/internal/services"
)

// CatalogHandler serves the shared material and printer prices.
type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CatalogRouter registers catalog routes on the given router.
func CatalogRouter(r chi.Router, catalog *services.CatalogService) {
	handler := NewCatalogHandler(catalog)

	r.Get("/materials", handler.ListMaterials)
	r.Put("/materials/{name}", handler.UpsertMaterial)
	r.Delete("/materials/{name}", handler.DeleteMaterial)
	r.Get("/printers", handler.ListPrinters)
	r.Put("/printers/{name}", handler.UpsertPrinter)
	r.Delete("/printers/{name}", handler.DeletePrinter)
}

func (h *CatalogHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.catalog.ListMaterials(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list materials")
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (h *CatalogHandler) ListPrinters(w http.ResponseWriter, r *http.Request) {
	printers, err := h.catalog.ListPrinters(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list printers")
		return
	}
	writeJSON(w, http.StatusOK, printers)
}

// UpsertMaterial creates or overwrites the material named in the path.
func (h *CatalogHandler) UpsertMaterial(w http.ResponseWriter, r *http.Request) {
	var req MaterialRequest
	if err := decodeJSON(r, &req); err != nil || req.PricePerKg == nil {
		writeError(w, http.StatusBadRequest, "price_per_kg is required")
		return
	}
	material, err := h.catalog.UpsertMaterial(r.Context(), pathName(r), *req.PricePerKg)
	if err != nil {
		writeServiceError(w, err, "failed to save material")
		return
	}
	writeJSON(w, http.StatusOK, material)
}

// UpsertPrinter creates or overwrites the printer named in the path.
func (h *CatalogHandler) UpsertPrinter(w http.ResponseWriter, r *http.Request) {
	var req PrinterRequest
	if err := decodeJSON(r, &req); err != nil || req.CostPerHour == nil {
		writeError(w, http.StatusBadRequest, "cost_per_hour is required")
		return
	}
	printer, err := h.catalog.UpsertPrinter(r.Context(), pathName(r), *req.CostPerHour)
	if err != nil {
		writeServiceError(w, err, "failed to save printer")
		return
	}
	writeJSON(w, http.StatusOK, printer)
}

func (h *CatalogHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteMaterial(r.Context(), pathName(r)); err != nil {
		writeServiceError(w, err, "failed to delete material")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) DeletePrinter(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeletePrinter(r.Context(), pathName(r)); err != nil {
		writeServiceError(w, err, "failed to delete printer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type MaterialRequest struct {
	PricePerKg *float64 `json:"price_per_kg"`
}

type PrinterRequest struct {
	CostPerHour *float64 `json:"cost_per_hour"`
}

// pathName returns the unescaped {name} parameter; names may contain spaces.
func pathName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		raw = name
	}
	return strings.TrimSpace(raw)
}
