package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/maxldruck/printcalc/config"
	"github.com/maxldruck/printcalc/internal/auth"
	"github.com/maxldruck/printcalc/internal/db"
	"github.com/maxldruck/printcalc/internal/draft"
	"github.com/maxldruck/printcalc/internal/ledger"
	"github.com/maxldruck/printcalc/internal/mq"
	"github.com/maxldruck/printcalc/internal/storage"
	"github.com/maxldruck/printcalc/internal/store"
	"github.com/maxldruck/printcalc/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	accounts *AccountService
	catalog  *CatalogService
	projects *ProjectService
	quotes   *QuoteService
	ledgers  *ledger.Registry
	drafts   *draft.MemoryStore
	archive  *storage.MemoryBackend
	events   *mq.Recorder
	repo     *store.AccountRepository
}

func newFixture(t *testing.T) *fixture {
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

	logger := zap.NewNop()
	ledgers, err := ledger.NewRegistry(filepath.Join(dir, "user_dbs"), logger)
	require.NoError(t, err)
	hasher, err := auth.NewHasher(auth.SchemePBKDF2SHA256)
	require.NoError(t, err)

	f := &fixture{
		ledgers: ledgers,
		drafts:  draft.NewMemoryStore(),
		archive: storage.NewMemoryBackend("quotes"),
		events:  mq.NewRecorder(),
		repo:    store.NewAccountRepository(conn),
	}
	archive := storage.NewStorage(f.archive)
	publisher := mq.NewPublisher(mq.New(f.events), "printcalc.events", logger)
	catalogRepo := store.NewCatalogRepository(conn)

	f.accounts = NewAccountService(f.repo, ledgers, hasher, f.drafts, archive, publisher, logger)
	f.catalog = NewCatalogService(catalogRepo, logger)
	f.projects = NewProjectService(catalogRepo, ledgers, f.drafts, archive, publisher, logger)
	f.quotes = NewQuoteService(f.projects, catalogRepo, archive, publisher, "MaxlDruck", logger)
	return f
}

func (f *fixture) seedCatalog(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.catalog.UpsertMaterial(ctx, "PLA", 20)
	require.NoError(t, err)
	_, err = f.catalog.UpsertMaterial(ctx, "PETG", 25)
	require.NoError(t, err)
	_, err = f.catalog.UpsertPrinter(ctx, "Prusa MK4", 0.5)
	require.NoError(t, err)
}

func (f *fixture) register(t *testing.T, username string) types.Account {
	t.Helper()
	account, err := f.accounts.Register(context.Background(), username, "secret")
	require.NoError(t, err)
	return account
}

func part(name string, grams, hours float64) ItemInput {
	return ItemInput{Type: types.ItemPrintedPart, Name: name, WeightGrams: grams, PrintHours: hours}
}

func accessory(name string, unit float64, qty int) ItemInput {
	return ItemInput{Type: types.ItemAccessory, Name: name, UnitPrice: unit, Quantity: qty}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	account := f.register(t, "  Anna ")
	assert.Equal(t, "Anna", account.Username)
	assert.Equal(t, types.RoleUser, account.Role)
	assert.NotContains(t, account.PasswordHash, "secret")

	exists, err := f.ledgers.Exists(ledger.Key("anna"))
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := f.accounts.Authenticate(ctx, "Anna", "secret")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = f.accounts.Authenticate(ctx, "Anna", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.accounts.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, []string{mq.EventAccountRegistered}, f.events.Types())
}

func TestRegisterDuplicateKeepsVerifier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	original := f.register(t, "anna")

	_, err := f.accounts.Register(ctx, "anna", "other")
	assert.ErrorIs(t, err, ErrDuplicateName)

	// Different username, same ledger key.
	_, err = f.accounts.Register(ctx, "ANNA", "other")
	assert.ErrorIs(t, err, ErrDuplicateName)

	stored, err := f.repo.GetByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, original.PasswordHash, stored.PasswordHash)

	_, err = f.accounts.Authenticate(ctx, "anna", "secret")
	assert.NoError(t, err)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.accounts.Register(ctx, "", "secret")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.accounts.Register(ctx, "anna", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.accounts.Register(ctx, "!!!", "secret")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterAdoptsUnownedLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ledgers.Provision(ctx, ledger.Key("anna")))

	_, err := f.accounts.Register(ctx, "anna", "secret")
	assert.NoError(t, err)
}

func TestDeleteAccountIsolatesLedgers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog(t)
	anna := f.register(t, "anna")
	bert := f.register(t, "bert")

	for _, account := range []types.Account{anna, bert} {
		_, err := f.projects.AddItem(ctx, account, accessory("Schraube", 0.1, 10))
		require.NoError(t, err)
		p, err := f.projects.Save(ctx, account)
		require.NoError(t, err)
		_, err = f.quotes.Export(ctx, account, p.ID, FormatPDF)
		require.NoError(t, err)
	}
	_, err := f.projects.AddItem(ctx, anna, accessory("Mutter", 0.05, 4))
	require.NoError(t, err)

	require.NoError(t, f.accounts.Delete(ctx, "anna"))

	_, err = f.repo.GetByUsername(ctx, "anna")
	assert.ErrorIs(t, err, store.ErrNotFound)
	exists, err := f.ledgers.Exists(ledger.Key("anna"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, []string{"quotes/bert/1.pdf"}, f.archive.Keys())

	d, err := f.drafts.Get(ctx, draftOwner(anna))
	require.NoError(t, err)
	assert.True(t, d.Empty())

	projects, err := f.projects.List(ctx, bert)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	assert.ErrorIs(t, f.accounts.Delete(ctx, "anna"), store.ErrNotFound)
	assert.Contains(t, f.events.Types(), mq.EventAccountDeleted)
}

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "anna")

	account, err := f.accounts.SetRole(ctx, "anna", types.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, account.IsAdmin())

	_, err = f.accounts.SetRole(ctx, "anna", "owner")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.accounts.SetRole(ctx, "nobody", types.RoleAdmin)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.register(t, "anna")

	require.NoError(t, f.accounts.ChangePassword(ctx, account.ID, "new-secret"))
	_, err := f.accounts.Authenticate(ctx, "anna", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.accounts.Authenticate(ctx, "anna", "new-secret")
	assert.NoError(t, err)
}

func TestCatalogImportYAML(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := `
materials:
  - name: PLA
    price_per_kg: 20
  - name: PETG
    price_per_kg: 24.5
printers:
  - name: Prusa MK4
    cost_per_hour: 0.5
`
	result, err := f.catalog.ImportYAML(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Materials: 2, Printers: 1}, result)

	// Upsert overwrites by name.
	_, err = f.catalog.ImportYAML(ctx, strings.NewReader("materials:\n  - name: PLA\n    price_per_kg: 22\n"))
	require.NoError(t, err)
	materials, err := f.catalog.ListMaterials(ctx)
	require.NoError(t, err)
	require.Len(t, materials, 2)
	assert.Equal(t, 22.0, materials[0].PricePerKg)

	_, err = f.catalog.ImportYAML(ctx, strings.NewReader("materials: [name"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.catalog.ImportYAML(ctx, strings.NewReader("materials:\n  - price_per_kg: 1\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	result, err = f.catalog.ImportYAML(ctx, strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, result)
}

func TestCatalogAcceptsNegativePrices(t *testing.T) {
	f := newFixture(t)
	m, err := f.catalog.UpsertMaterial(context.Background(), "Rabatt", -5)
	require.NoError(t, err)
	assert.Equal(t, -5.0, m.PricePerKg)
}

func TestPrintedPartNeedsReferenceData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")

	view, err := f.projects.Draft(ctx, anna)
	require.NoError(t, err)
	assert.False(t, view.PrintedPartsEnabled)
	assert.Empty(t, view.Items)

	_, err = f.projects.AddItem(ctx, anna, part("Vase", 100, 1))
	assert.ErrorIs(t, err, ErrMissingReferenceData)

	view, err = f.projects.Draft(ctx, anna)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	// Accessories do not depend on the catalog.
	view, err = f.projects.AddItem(ctx, anna, accessory("Magnet", 0.5, 2))
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestAddItemPricing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog(t)
	anna := f.register(t, "anna")

	view, err := f.projects.AddItem(ctx, anna, part("Vase", 150, 3))
	require.NoError(t, err)
	assert.True(t, view.PrintedPartsEnabled)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4.5, view.Items[0].Cost)
	assert.Equal(t, "PLA", view.Items[0].Details)
	assert.Equal(t, 150.0, view.Items[0].WeightGrams)

	in := part("Deckel", 100, 0)
	in.Material = "PETG"
	view, err = f.projects.AddItem(ctx, anna, in)
	require.NoError(t, err)
	assert.Equal(t, 2.5, view.Items[1].Cost)
	assert.Equal(t, "PETG", view.Items[1].Details)

	view, err = f.projects.AddItem(ctx, anna, accessory("Magnet", 2.49, 3))
	require.NoError(t, err)
	assert.Equal(t, 7.47, view.Items[2].Cost)
	assert.Equal(t, "3 Stk", view.Items[2].Details)
	assert.Zero(t, view.Items[2].WeightGrams)
	assert.Equal(t, 14.47, view.Total)

	view, err = f.projects.AddItem(ctx, anna, accessory("Kleber", 4, 0))
	require.NoError(t, err)
	assert.Equal(t, "1 Stk", view.Items[3].Details)

	in = part("Halter", 10, 1)
	in.Printer = "Bambu"
	_, err = f.projects.AddItem(ctx, anna, in)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.projects.AddItem(ctx, anna, accessory("Magnet", 1, -1))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.projects.AddItem(ctx, anna, ItemInput{Type: "Druck", Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPriceChangeDoesNotRepriceItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog(t)
	anna := f.register(t, "anna")

	_, err := f.projects.AddItem(ctx, anna, part("Vase", 1000, 0))
	require.NoError(t, err)
	saved, err := f.projects.Save(ctx, anna)
	require.NoError(t, err)

	_, err = f.catalog.UpsertMaterial(ctx, "PLA", 99)
	require.NoError(t, err)

	got, err := f.projects.Get(ctx, anna, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Items[0].Cost)
}

func TestDraftEditing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")

	_, err := f.projects.AddItem(ctx, anna, accessory("A", 1, 1))
	require.NoError(t, err)
	_, err = f.projects.AddItem(ctx, anna, accessory("B", 2, 1))
	require.NoError(t, err)

	view, err := f.projects.ReplaceItem(ctx, anna, 0, accessory("C", 3, 2))
	require.NoError(t, err)
	assert.Equal(t, "C", view.Items[0].Name)
	assert.Equal(t, 8.0, view.Total)

	_, err = f.projects.ReplaceItem(ctx, anna, 2, accessory("D", 1, 1))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = f.projects.RemoveItem(ctx, anna, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	view, err = f.projects.RemoveItem(ctx, anna, 0)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "B", view.Items[0].Name)

	name, customer, hours, rate := " Regal ", "Huber", 2.0, 15.0
	view, err = f.projects.UpdateDraft(ctx, anna, DraftFields{
		ProjectName:  &name,
		CustomerName: &customer,
		WorkHours:    &hours,
		WorkRate:     &rate,
	})
	require.NoError(t, err)
	assert.Equal(t, "Regal", view.ProjectName)
	assert.Equal(t, "Huber", view.CustomerName)
	assert.Equal(t, 2.0, view.Total)

	negative := -1.0
	_, err = f.projects.UpdateDraft(ctx, anna, DraftFields{WorkHours: &negative})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, f.projects.Discard(ctx, anna))
	view, err = f.projects.Draft(ctx, anna)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, view.ProjectName)
}

func TestSaveAndReplaceOnEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog(t)
	anna := f.register(t, "anna")

	_, err := f.projects.Save(ctx, anna)
	assert.ErrorIs(t, err, ErrEmptyDraft)

	name := "Regal"
	_, err = f.projects.UpdateDraft(ctx, anna, DraftFields{ProjectName: &name})
	require.NoError(t, err)
	_, err = f.projects.AddItem(ctx, anna, part("Boden", 150, 3))
	require.NoError(t, err)
	_, err = f.projects.AddItem(ctx, anna, accessory("Schraube", 0.1, 8))
	require.NoError(t, err)

	first, err := f.projects.Save(ctx, anna)
	require.NoError(t, err)
	assert.Equal(t, "Regal", first.Name)
	assert.Equal(t, 5.3, first.Total)
	assert.NotEmpty(t, first.CreatedAt)

	view, err := f.projects.Draft(ctx, anna)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Nil(t, view.EditingProjectID)

	view, err = f.projects.LoadForEdit(ctx, anna, first.ID)
	require.NoError(t, err)
	require.NotNil(t, view.EditingProjectID)
	assert.Equal(t, first.ID, *view.EditingProjectID)
	assert.Equal(t, "Regal", view.ProjectName)
	assert.Len(t, view.Items, 2)

	_, err = f.projects.RemoveItem(ctx, anna, 1)
	require.NoError(t, err)
	second, err := f.projects.Save(ctx, anna)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 4.5, second.Total)

	projects, err := f.projects.List(ctx, anna)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, second.ID, projects[0].ID)

	_, err = f.projects.Get(ctx, anna, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.projects.LoadForEdit(ctx, anna, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, []string{
		mq.EventAccountRegistered,
		mq.EventProjectSaved,
		mq.EventProjectSaved,
	}, f.events.Types())
}

func TestDeleteProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")

	_, err := f.projects.AddItem(ctx, anna, accessory("A", 1, 1))
	require.NoError(t, err)
	saved, err := f.projects.Save(ctx, anna)
	require.NoError(t, err)

	for _, format := range []string{FormatPDF, FormatXLSX} {
		_, err = f.quotes.Export(ctx, anna, saved.ID, format)
		require.NoError(t, err)
	}
	require.Len(t, f.archive.Keys(), 2)

	require.NoError(t, f.projects.Delete(ctx, anna, saved.ID))
	assert.ErrorIs(t, f.projects.Delete(ctx, anna, saved.ID), store.ErrNotFound)
	assert.Empty(t, f.archive.Keys())

	projects, err := f.projects.List(ctx, anna)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestReplaceOnEditDropsArchivedQuotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")
	bert := f.register(t, "bert")

	for _, account := range []types.Account{anna, bert} {
		_, err := f.projects.AddItem(ctx, account, accessory("A", 1, 1))
		require.NoError(t, err)
		saved, err := f.projects.Save(ctx, account)
		require.NoError(t, err)
		_, err = f.quotes.Export(ctx, account, saved.ID, FormatPDF)
		require.NoError(t, err)
	}

	_, err := f.projects.LoadForEdit(ctx, anna, 1)
	require.NoError(t, err)
	_, err = f.projects.AddItem(ctx, anna, accessory("B", 2, 1))
	require.NoError(t, err)
	replaced, err := f.projects.Save(ctx, anna)
	require.NoError(t, err)
	assert.NotEqual(t, int64(1), replaced.ID)

	assert.Equal(t, []string{"quotes/bert/1.pdf"}, f.archive.Keys())
}

func TestConcurrentDraftChangesKeepEveryItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.projects.AddItem(ctx, anna, accessory(fmt.Sprintf("Teil %d", i), 1, 1))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := f.projects.Draft(ctx, anna)
	require.NoError(t, err)
	assert.Len(t, view.Items, n)
	assert.Equal(t, float64(n), view.Total)
}

func TestSaveAfterAccountDeletionKeepsLedgerGone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")
	require.NoError(t, f.accounts.Delete(ctx, "anna"))

	// A request authenticated before the deletion is still running.
	_, err := f.projects.AddItem(ctx, anna, accessory("A", 1, 1))
	require.NoError(t, err)
	_, err = f.projects.Save(ctx, anna)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.projects.List(ctx, anna)
	assert.ErrorIs(t, err, store.ErrNotFound)

	exists, err := f.ledgers.Exists(ledger.Key("anna"))
	require.NoError(t, err)
	assert.False(t, exists)

	stats, err := f.projects.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Stats{}, stats)

	again, err := f.accounts.Register(ctx, "anna", "other")
	require.NoError(t, err)
	projects, err := f.projects.List(ctx, again)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestDeleteAs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")
	f.register(t, "bert")

	assert.ErrorIs(t, f.accounts.DeleteAs(ctx, anna, "bert"), ErrForbidden)
	_, err := f.repo.GetByUsername(ctx, "bert")
	require.NoError(t, err)

	require.NoError(t, f.accounts.DeleteAs(ctx, anna, "anna"))

	admin := types.Account{Username: "root", Role: types.RoleAdmin}
	require.NoError(t, f.accounts.DeleteAs(ctx, admin, "bert"))
	_, err = f.repo.GetByUsername(ctx, "bert")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna := f.register(t, "anna")
	bert := f.register(t, "bert")
	f.register(t, "carl")

	_, err := f.projects.AddItem(ctx, anna, accessory("A", 0.1, 1))
	require.NoError(t, err)
	_, err = f.projects.AddItem(ctx, anna, accessory("B", 0.2, 1))
	require.NoError(t, err)
	_, err = f.projects.Save(ctx, anna)
	require.NoError(t, err)
	_, err = f.projects.AddItem(ctx, bert, accessory("C", 10, 1))
	require.NoError(t, err)
	_, err = f.projects.Save(ctx, bert)
	require.NoError(t, err)

	stats, err := f.projects.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Stats{Revenue: 10.3, Projects: 2, Items: 3, Ledgers: 3}, stats)
}

func TestExportQuote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog(t)
	anna := f.register(t, "anna")

	name, grams, material := "Vase/Blau", 50.0, "PETG"
	_, err := f.projects.UpdateDraft(ctx, anna, DraftFields{
		ProjectName:         &name,
		FailedFilamentGrams: &grams,
		FailedMaterialName:  &material,
	})
	require.NoError(t, err)
	_, err = f.projects.AddItem(ctx, anna, part("Vase", 150, 3))
	require.NoError(t, err)
	saved, err := f.projects.Save(ctx, anna)
	require.NoError(t, err)

	doc, err := f.quotes.Export(ctx, anna, saved.ID, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "Vase_Blau.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Data), "%PDF"))

	doc, err = f.quotes.Export(ctx, anna, saved.ID, "XLSX")
	require.NoError(t, err)
	assert.Equal(t, "Vase_Blau.xlsx", doc.Filename)
	assert.True(t, strings.HasPrefix(string(doc.Data), "PK"))

	assert.Equal(t, []string{"quotes/anna/1.pdf", "quotes/anna/1.xlsx"}, f.archive.Keys())
	assert.Equal(t, "application/pdf", f.archive.ContentType("quotes/anna/1.pdf"))

	// The failed filament material may disappear from the catalog.
	require.NoError(t, f.catalog.DeleteMaterial(ctx, "PETG"))
	_, err = f.quotes.Export(ctx, anna, saved.ID, FormatPDF)
	require.NoError(t, err)

	_, err = f.quotes.Export(ctx, anna, saved.ID, "docx")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.quotes.Export(ctx, anna, 99, FormatPDF)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Contains(t, f.events.Types(), mq.EventQuoteExported)
}

func TestQuoteFilename(t *testing.T) {
	assert.Equal(t, "Regal.pdf", QuoteFilename(types.Project{ID: 1, Name: " Regal "}, FormatPDF))
	assert.Equal(t, "angebot-1005.xlsx", QuoteFilename(types.Project{ID: 5}, FormatXLSX))
	assert.Equal(t, "a_b_c.pdf", QuoteFilename(types.Project{Name: `a/b\c`}, FormatPDF))
}
