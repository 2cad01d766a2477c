package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maxldruck/printcalc/internal/draft"
	"github.com/maxldruck/printcalc/internal/ledger"
	"github.com/maxldruck/printcalc/internal/mq"
	"github.com/maxldruck/printcalc/internal/pricing"
	"github.com/maxldruck/printcalc/internal/storage"
	"github.com/maxldruck/printcalc/internal/store"
	"github.com/maxldruck/printcalc/types"
	"go.uber.org/zap"
)

// DraftView is the draft as presented to clients.
type DraftView struct {
	draft.Draft
	Total float64 `json:"total"`

	// PrintedPartsEnabled is false while the catalog lacks materials or
	// printers; printed parts cannot be priced until both exist.
	PrintedPartsEnabled bool `json:"printed_parts_enabled"`
}

// DraftFields updates project-level draft fields. Nil fields are left as is.
type DraftFields struct {
	ProjectName         *string  `json:"project_name"`
	CustomerName        *string  `json:"customer_name"`
	WorkHours           *float64 `json:"work_hours"`
	WorkRate            *float64 `json:"work_rate"`
	FailedFilamentGrams *float64 `json:"failed_filament_grams"`
	FailedMaterialName  *string  `json:"failed_material_name"`
}

// ItemInput describes a line item to price. Material and Printer default to
// the first catalog entry when empty.
type ItemInput struct {
	Type        types.ItemType `json:"type"`
	Name        string         `json:"name"`
	Material    string         `json:"material"`
	Printer     string         `json:"printer"`
	WeightGrams float64        `json:"weight_grams"`
	PrintHours  float64        `json:"print_hours"`
	UnitPrice   float64        `json:"unit_price"`
	Quantity    int            `json:"quantity"`
}

// ProjectService drives the draft/ledger state machine of one account at a
// time: items are priced into the draft, and saving writes the draft to the
// account's ledger. Draft changes of one account are serialized within the
// process.
type ProjectService struct {
	catalog CatalogRepository
	ledgers *ledger.Registry
	drafts  draft.Store
	archive *storage.Storage
	events  *mq.Publisher
	logger  *zap.Logger
	now     func() time.Time

	// owner -> *sync.Mutex
	draftLocks sync.Map
}

func NewProjectService(
	catalog CatalogRepository,
	ledgers *ledger.Registry,
	drafts draft.Store,
	archive *storage.Storage,
	events *mq.Publisher,
	logger *zap.Logger,
) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		catalog: catalog,
		ledgers: ledgers,
		drafts:  drafts,
		archive: archive,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// Draft returns the account's current draft.
func (s *ProjectService) Draft(ctx context.Context, account types.Account) (DraftView, error) {
	d, err := s.drafts.Get(ctx, draftOwner(account))
	if err != nil {
		return DraftView{}, err
	}
	return s.view(ctx, d)
}

// UpdateDraft sets project-level fields on the draft.
func (s *ProjectService) UpdateDraft(ctx context.Context, account types.Account, fields DraftFields) (DraftView, error) {
	return s.mutate(ctx, account, func(d *draft.Draft) error {
		if fields.ProjectName != nil {
			d.ProjectName = strings.TrimSpace(*fields.ProjectName)
		}
		if fields.CustomerName != nil {
			d.CustomerName = strings.TrimSpace(*fields.CustomerName)
		}
		if fields.WorkHours != nil {
			if *fields.WorkHours < 0 {
				return fmt.Errorf("%w: work hours must not be negative", ErrInvalidInput)
			}
			d.WorkHours = *fields.WorkHours
		}
		if fields.WorkRate != nil {
			if *fields.WorkRate < 0 {
				return fmt.Errorf("%w: work rate must not be negative", ErrInvalidInput)
			}
			d.WorkRate = *fields.WorkRate
		}
		if fields.FailedFilamentGrams != nil {
			if *fields.FailedFilamentGrams < 0 {
				return fmt.Errorf("%w: failed filament must not be negative", ErrInvalidInput)
			}
			d.FailedFilamentGrams = *fields.FailedFilamentGrams
		}
		if fields.FailedMaterialName != nil {
			d.FailedMaterialName = strings.TrimSpace(*fields.FailedMaterialName)
		}
		return nil
	})
}

// AddItem prices in and appends it to the draft. The cost is fixed now and
// never recalculated from later catalog changes.
func (s *ProjectService) AddItem(ctx context.Context, account types.Account, in ItemInput) (DraftView, error) {
	item, err := s.priceItem(ctx, in)
	if err != nil {
		return DraftView{}, err
	}
	return s.mutate(ctx, account, func(d *draft.Draft) error {
		d.Add(item)
		return nil
	})
}

// ReplaceItem prices in and puts it at index.
func (s *ProjectService) ReplaceItem(ctx context.Context, account types.Account, index int, in ItemInput) (DraftView, error) {
	item, err := s.priceItem(ctx, in)
	if err != nil {
		return DraftView{}, err
	}
	return s.mutate(ctx, account, func(d *draft.Draft) error {
		return d.Replace(index, item)
	})
}

func (s *ProjectService) RemoveItem(ctx context.Context, account types.Account, index int) (DraftView, error) {
	return s.mutate(ctx, account, func(d *draft.Draft) error {
		_, err := d.Remove(index)
		return err
	})
}

// Discard drops the draft, including any pending edit of a saved project.
func (s *ProjectService) Discard(ctx context.Context, account types.Account) error {
	owner := draftOwner(account)
	defer s.lockDraft(owner)()
	return s.drafts.Delete(ctx, owner)
}

// LoadForEdit replaces the draft with a copy of a saved project. The next
// save replaces that project.
func (s *ProjectService) LoadForEdit(ctx context.Context, account types.Account, id int64) (DraftView, error) {
	p, err := s.Get(ctx, account, id)
	if err != nil {
		return DraftView{}, err
	}
	d := draft.Load(p)
	owner := draftOwner(account)
	unlock := s.lockDraft(owner)
	err = s.drafts.Put(ctx, owner, d)
	unlock()
	if err != nil {
		return DraftView{}, err
	}
	return s.view(ctx, d)
}

// Save writes the draft to the account's ledger and resets the draft. A
// draft loaded from a saved project replaces it; the new project gets a
// fresh id.
func (s *ProjectService) Save(ctx context.Context, account types.Account) (types.Project, error) {
	owner := draftOwner(account)
	defer s.lockDraft(owner)()

	d, err := s.drafts.Get(ctx, owner)
	if err != nil {
		return types.Project{}, err
	}
	if d.Empty() {
		return types.Project{}, ErrEmptyDraft
	}

	var saved types.Project
	err = s.withLedger(ctx, account, func(l *ledger.Ledger) error {
		p := d.Project(s.now().Format(ledger.DateLayout))
		saved, err = l.SaveProject(ctx, p, d.EditingProjectID)
		return err
	})
	if err != nil {
		return types.Project{}, err
	}

	if err := s.drafts.Delete(ctx, owner); err != nil {
		s.logger.Warn("reset draft after save", zap.String("account", account.Username), zap.Error(err))
	}

	data := map[string]any{"items": len(saved.Items), "total": saved.Total}
	if d.EditingProjectID != nil {
		data["replaced_id"] = *d.EditingProjectID
		s.dropQuotes(ctx, account, *d.EditingProjectID)
	}
	s.events.Emit(ctx, mq.Event{
		Type:      mq.EventProjectSaved,
		Account:   account.Username,
		ProjectID: saved.ID,
		Data:      data,
	})
	return saved, nil
}

// List returns the account's projects, newest first.
func (s *ProjectService) List(ctx context.Context, account types.Account) ([]types.Project, error) {
	var projects []types.Project
	err := s.withLedger(ctx, account, func(l *ledger.Ledger) error {
		var err error
		projects, err = l.ListProjects(ctx)
		return err
	})
	return projects, err
}

func (s *ProjectService) Get(ctx context.Context, account types.Account, id int64) (types.Project, error) {
	var p types.Project
	err := s.withLedger(ctx, account, func(l *ledger.Ledger) error {
		var err error
		p, err = l.GetProject(ctx, id)
		return err
	})
	return p, err
}

// Delete permanently removes a project and its items.
func (s *ProjectService) Delete(ctx context.Context, account types.Account, id int64) error {
	err := s.withLedger(ctx, account, func(l *ledger.Ledger) error {
		return l.DeleteProject(ctx, id)
	})
	if err != nil {
		return err
	}
	s.dropQuotes(ctx, account, id)
	s.events.Emit(ctx, mq.Event{Type: mq.EventProjectDeleted, Account: account.Username, ProjectID: id})
	return nil
}

// dropQuotes removes the archived quotes of a project that no longer exists.
func (s *ProjectService) dropQuotes(ctx context.Context, account types.Account, id int64) {
	if s.archive == nil {
		return
	}
	key, err := LedgerKey(account)
	if err != nil {
		return
	}
	for _, format := range []string{FormatPDF, FormatXLSX} {
		objectKey := storage.QuoteKey(key.String(), id, format)
		if err := s.archive.Delete(ctx, objectKey); err != nil {
			s.logger.Warn("remove archived quote failed",
				zap.String("account", account.Username),
				zap.String("key", objectKey),
				zap.Error(err),
			)
		}
	}
}

// Stats aggregates every ledger. A ledger that cannot be read is logged and
// counted as empty.
func (s *ProjectService) Stats(ctx context.Context) (types.Stats, error) {
	keys, err := s.ledgers.Keys()
	if err != nil {
		return types.Stats{}, err
	}

	stats := types.Stats{Ledgers: len(keys)}
	revenues := make([]float64, 0, len(keys))
	for _, key := range keys {
		totals, err := s.ledgerTotals(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("skip unreadable ledger in stats", zap.String("ledger", key.String()), zap.Error(err))
			continue
		}
		stats.Projects += totals.Projects
		stats.Items += totals.Items
		revenues = append(revenues, totals.Revenue)
	}
	stats.Revenue = pricing.Sum(revenues...)
	return stats, nil
}

func (s *ProjectService) ledgerTotals(ctx context.Context, key ledger.Key) (ledger.Totals, error) {
	l, err := s.ledgers.OpenExisting(ctx, key)
	if err != nil {
		return ledger.Totals{}, err
	}
	defer l.Close()
	return l.Totals(ctx)
}

// lockDraft locks the draft of owner and returns the unlock function.
func (s *ProjectService) lockDraft(owner string) func() {
	mu, _ := s.draftLocks.LoadOrStore(owner, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *ProjectService) mutate(ctx context.Context, account types.Account, fn func(*draft.Draft) error) (DraftView, error) {
	owner := draftOwner(account)
	unlock := s.lockDraft(owner)
	defer unlock()

	d, err := s.drafts.Get(ctx, owner)
	if err != nil {
		return DraftView{}, err
	}
	if err := fn(&d); err != nil {
		return DraftView{}, err
	}
	if err := s.drafts.Put(ctx, owner, d); err != nil {
		return DraftView{}, err
	}
	return s.view(ctx, d)
}

func (s *ProjectService) view(ctx context.Context, d draft.Draft) (DraftView, error) {
	enabled, err := s.printedPartsEnabled(ctx)
	if err != nil {
		return DraftView{}, err
	}
	if d.Items == nil {
		d.Items = []types.ProjectItem{}
	}
	return DraftView{
		Draft:               d,
		Total:               pricing.ProjectTotal(d.Items),
		PrintedPartsEnabled: enabled,
	}, nil
}

func (s *ProjectService) printedPartsEnabled(ctx context.Context) (bool, error) {
	materials, err := s.catalog.ListMaterials(ctx)
	if err != nil {
		return false, err
	}
	printers, err := s.catalog.ListPrinters(ctx)
	if err != nil {
		return false, err
	}
	return len(materials) > 0 && len(printers) > 0, nil
}

func (s *ProjectService) withLedger(ctx context.Context, account types.Account, fn func(*ledger.Ledger) error) error {
	key, err := LedgerKey(account)
	if err != nil {
		return err
	}
	l, err := s.ledgers.OpenExisting(ctx, key)
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(l)
}

func (s *ProjectService) priceItem(ctx context.Context, in ItemInput) (types.ProjectItem, error) {
	item := types.ProjectItem{
		Type: in.Type,
		Name: strings.TrimSpace(in.Name),
	}

	switch in.Type {
	case types.ItemPrintedPart:
		if in.WeightGrams < 0 || in.PrintHours < 0 {
			return types.ProjectItem{}, fmt.Errorf("%w: weight and print time must not be negative", ErrInvalidInput)
		}
		material, printer, err := s.pickReferenceData(ctx, in.Material, in.Printer)
		if err != nil {
			return types.ProjectItem{}, err
		}
		item.WeightGrams = in.WeightGrams
		item.Cost = pricing.PrintedPartCost(pricing.PartInput{
			PricePerKg:  material.PricePerKg,
			CostPerHour: printer.CostPerHour,
			WeightGrams: in.WeightGrams,
			PrintHours:  in.PrintHours,
		})
		item.Details = material.Name

	case types.ItemAccessory:
		if in.UnitPrice < 0 {
			return types.ProjectItem{}, fmt.Errorf("%w: unit price must not be negative", ErrInvalidInput)
		}
		qty := in.Quantity
		if qty == 0 {
			qty = 1
		}
		cost, err := pricing.AccessoryCost(in.UnitPrice, qty)
		if err != nil {
			if errors.Is(err, pricing.ErrInvalidQuantity) {
				return types.ProjectItem{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			return types.ProjectItem{}, err
		}
		item.Cost = cost
		item.Details = fmt.Sprintf("%d Stk", qty)

	default:
		return types.ProjectItem{}, fmt.Errorf("%w: unknown item type %q", ErrInvalidInput, in.Type)
	}
	return item, nil
}

func (s *ProjectService) pickReferenceData(ctx context.Context, materialName, printerName string) (types.Material, types.Printer, error) {
	materials, err := s.catalog.ListMaterials(ctx)
	if err != nil {
		return types.Material{}, types.Printer{}, err
	}
	printers, err := s.catalog.ListPrinters(ctx)
	if err != nil {
		return types.Material{}, types.Printer{}, err
	}
	if len(materials) == 0 || len(printers) == 0 {
		return types.Material{}, types.Printer{}, ErrMissingReferenceData
	}

	material := materials[0]
	if name := strings.TrimSpace(materialName); name != "" {
		found := false
		for _, m := range materials {
			if m.Name == name {
				material, found = m, true
				break
			}
		}
		if !found {
			return types.Material{}, types.Printer{}, fmt.Errorf("%w: unknown material %q", ErrInvalidInput, name)
		}
	}

	printer := printers[0]
	if name := strings.TrimSpace(printerName); name != "" {
		found := false
		for _, p := range printers {
			if p.Name == name {
				printer, found = p, true
				break
			}
		}
		if !found {
			return types.Material{}, types.Printer{}, fmt.Errorf("%w: unknown printer %q", ErrInvalidInput, name)
		}
	}
	return material, printer, nil
}
