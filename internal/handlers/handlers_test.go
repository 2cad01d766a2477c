package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maxldruck/printcalc/config"
	"github.com/maxldruck/printcalc/internal/auth"
	"github.com/maxldruck/printcalc/internal/db"
	"github.com/maxldruck/printcalc/internal/draft"
	"github.com/maxldruck/printcalc/internal/ledger"
	"github.com/maxldruck/printcalc/internal/services"
	"github.com/maxldruck/printcalc/internal/store"
	"github.com/maxldruck/printcalc/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testAPI struct {
	t        *testing.T
	router   chi.Router
	accounts *services.AccountService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.Config{Database: config.DatabaseConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(dir, "global.db"),
	}}
	_, err := db.Migrate(cfg.Database)
	require.NoError(t, err)
	conn, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ledgers, err := ledger.NewRegistry(filepath.Join(dir, "user_dbs"), nil)
	require.NoError(t, err)
	hasher, err := auth.NewHasher(auth.SchemePBKDF2SHA256)
	require.NoError(t, err)
	drafts := draft.NewMemoryStore()
	catalogRepo := store.NewCatalogRepository(conn)

	accounts := services.NewAccountService(store.NewAccountRepository(conn), ledgers, hasher, drafts, nil, nil, nil)
	catalog := services.NewCatalogService(catalogRepo, nil)
	projects := services.NewProjectService(catalogRepo, ledgers, drafts, nil, nil, nil)
	quotes := services.NewQuoteService(projects, catalogRepo, nil, nil, "", nil)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, accounts, testSecret, time.Hour)
	})
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(testSecret, accounts))
		r.Route("/catalog", func(r chi.Router) { CatalogRouter(r, catalog) })
		r.Route("/draft", func(r chi.Router) { DraftRouter(r, projects) })
		r.Route("/projects", func(r chi.Router) { ProjectRouter(r, projects, quotes) })
		r.Route("/accounts", func(r chi.Router) { AccountRouter(r, accounts) })
		r.Get("/stats", Stats(projects))
	})
	return &testAPI{t: t, router: r, accounts: accounts}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", RegisterRequest{Username: username, Password: "secret"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("anna")

	rec := api.do(http.MethodPost, "/auth/register", "", RegisterRequest{Username: "anna", Password: "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/auth/login", "", LoginRequest{Username: "anna", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/auth/login", "", LoginRequest{Username: "anna", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[AuthResponse](t, rec)
	assert.Equal(t, "anna", login.Account.Username)
	assert.NotContains(t, rec.Body.String(), "pbkdf2")

	rec = api.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anna", decode[types.Account](t, rec).Username)

	rec = api.do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(http.MethodGet, "/draft", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPut, "/auth/password", token, PasswordRequest{Password: "new"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodPost, "/auth/login", "", LoginRequest{Username: "anna", Password: "new"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredToken(t *testing.T) {
	api := newTestAPI(t)
	api.register("anna")
	token, err := issueToken(1, []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	rec := api.do(http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCatalogAndDraft(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("anna")

	rec := api.do(http.MethodGet, "/draft", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[services.DraftView](t, rec).PrintedPartsEnabled)

	rec = api.do(http.MethodPost, "/draft/items", token, services.ItemInput{Type: types.ItemPrintedPart, Name: "Vase", WeightGrams: 100})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPut, "/catalog/materials/PLA%20Basic", token, map[string]float64{"price_per_kg": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PLA Basic", decode[types.Material](t, rec).Name)
	rec = api.do(http.MethodPut, "/catalog/printers/MK4", token, map[string]float64{"cost_per_hour": 0.5})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPut, "/catalog/printers/MK4", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/catalog/materials", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]types.Material](t, rec), 1)

	rec = api.do(http.MethodPost, "/draft/items", token, services.ItemInput{Type: types.ItemPrintedPart, Name: "Vase", WeightGrams: 150, PrintHours: 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[services.DraftView](t, rec)
	assert.True(t, view.PrintedPartsEnabled)
	assert.Equal(t, 4.5, view.Total)

	rec = api.do(http.MethodPut, "/draft/items/5", token, services.ItemInput{Type: types.ItemAccessory, UnitPrice: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodDelete, "/draft/items/x", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPatch, "/draft", token, map[string]any{"project_name": "Vase", "customer_name": "Huber"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Huber", decode[services.DraftView](t, rec).CustomerName)
	rec = api.do(http.MethodPatch, "/draft", token, map[string]any{"colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/draft/save", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[types.Project](t, rec)
	assert.Equal(t, 4.5, project.Total)

	rec = api.do(http.MethodPost, "/draft/save", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, "/catalog/materials/PLA%20Basic", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, "/catalog/materials/PLA%20Basic", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectsAndQuotes(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("anna")
	other := api.register("bert")

	rec := api.do(http.MethodPatch, "/draft", token, map[string]any{"project_name": "Müller Regal"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPost, "/draft/items", token, services.ItemInput{Type: types.ItemAccessory, Name: "Schraube", UnitPrice: 0.1, Quantity: 8})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, "/draft/save", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[types.Project](t, rec)

	rec = api.do(http.MethodGet, "/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]types.Project](t, rec), 1)

	// Ledgers are per account.
	rec = api.do(http.MethodGet, fmt.Sprintf("/projects/%d", saved.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, fmt.Sprintf("/projects/%d/quote.pdf", saved.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "Müller Regal.pdf", params["filename"])
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = api.do(http.MethodGet, fmt.Sprintf("/projects/%d/quote.xlsx", saved.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = api.do(http.MethodPost, fmt.Sprintf("/projects/%d/edit", saved.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[services.DraftView](t, rec)
	require.NotNil(t, view.EditingProjectID)
	assert.Equal(t, saved.ID, *view.EditingProjectID)

	rec = api.do(http.MethodGet, "/projects/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, fmt.Sprintf("/projects/%d", saved.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, fmt.Sprintf("/projects/%d/quote.pdf", saved.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[types.Stats](t, rec).Ledgers)
}

func TestAccountAdministration(t *testing.T) {
	api := newTestAPI(t)
	anna := api.register("anna")
	bert := api.register("bert")

	rec := api.do(http.MethodGet, "/accounts", anna, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodDelete, "/accounts/bert", anna, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode[ErrorResponse](t, rec).Error)

	_, err := api.accounts.SetRole(context.Background(), "anna", types.RoleAdmin)
	require.NoError(t, err)

	rec = api.do(http.MethodGet, "/accounts", anna, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]types.Account](t, rec), 2)

	rec = api.do(http.MethodPut, "/accounts/bert/role", anna, RoleRequest{Role: "root"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Self delete is allowed; the token stops working afterwards.
	rec = api.do(http.MethodDelete, "/accounts/bert", bert, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/auth/me", bert, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodDelete, "/accounts/bert", anna, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidInput, http.StatusBadRequest},
		{services.ErrIndexOutOfRange, http.StatusBadRequest},
		{services.ErrEmptyDraft, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
		{services.ErrDuplicateName, http.StatusConflict},
		{services.ErrMissingReferenceData, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tt.err, "failed")
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}
