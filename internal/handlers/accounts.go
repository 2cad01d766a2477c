package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maxldruck/printcalc/internal/services"
	"github.com/maxldruck/printcalc/types"
)

// AccountHandler manages accounts. Listing and role changes are admin
// only; an account may delete itself.
type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// AccountRouter registers account routes on the given router.
func AccountRouter(r chi.Router, accounts *services.AccountService) {
	handler := NewAccountHandler(accounts)

	r.With(requireAdmin).Get("/", handler.List)
	r.Delete("/{username}", handler.Delete)
	r.With(requireAdmin).Put("/{username}/role", handler.SetRole)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Delete removes the account together with its ledger and archived quotes.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	current, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.accounts.DeleteAs(r.Context(), current, chi.URLParam(r, "username")); err != nil {
		writeServiceError(w, err, "failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	account, err := h.accounts.SetRole(r.Context(), chi.URLParam(r, "username"), req.Role)
	if err != nil {
		writeServiceError(w, err, "failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type RoleRequest struct {
	Role string `json:"role"`
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := accountFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if account.Role != types.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
