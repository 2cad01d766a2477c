package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/maxldruck/printcalc/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CatalogRepository defines persistence operations for materials and printers.
type CatalogRepository interface {
	UpsertMaterial(ctx context.Context, name string, pricePerKg float64) (types.Material, error)
	ListMaterials(ctx context.Context) ([]types.Material, error)
	FindMaterialByName(ctx context.Context, name string) (types.Material, error)
	DeleteMaterial(ctx context.Context, name string) error
	UpsertPrinter(ctx context.Context, name string, costPerHour float64) (types.Printer, error)
	ListPrinters(ctx context.Context) ([]types.Printer, error)
	FindPrinterByName(ctx context.Context, name string) (types.Printer, error)
	DeletePrinter(ctx context.Context, name string) error
}

// CatalogService manages the reference prices shared by all accounts.
// Changing a price never touches items that were already priced.
type CatalogService struct {
	repo   CatalogRepository
	logger *zap.Logger
}

func NewCatalogService(repo CatalogRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

func (s *CatalogService) UpsertMaterial(ctx context.Context, name string, pricePerKg float64) (types.Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Material{}, fmt.Errorf("%w: material name is required", ErrInvalidInput)
	}
	return s.repo.UpsertMaterial(ctx, name, pricePerKg)
}

func (s *CatalogService) UpsertPrinter(ctx context.Context, name string, costPerHour float64) (types.Printer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Printer{}, fmt.Errorf("%w: printer name is required", ErrInvalidInput)
	}
	return s.repo.UpsertPrinter(ctx, name, costPerHour)
}

func (s *CatalogService) ListMaterials(ctx context.Context) ([]types.Material, error) {
	return s.repo.ListMaterials(ctx)
}

func (s *CatalogService) ListPrinters(ctx context.Context) ([]types.Printer, error) {
	return s.repo.ListPrinters(ctx)
}

func (s *CatalogService) FindMaterialByName(ctx context.Context, name string) (types.Material, error) {
	return s.repo.FindMaterialByName(ctx, name)
}

func (s *CatalogService) FindPrinterByName(ctx context.Context, name string) (types.Printer, error) {
	return s.repo.FindPrinterByName(ctx, name)
}

func (s *CatalogService) DeleteMaterial(ctx context.Context, name string) error {
	return s.repo.DeleteMaterial(ctx, name)
}

func (s *CatalogService) DeletePrinter(ctx context.Context, name string) error {
	return s.repo.DeletePrinter(ctx, name)
}

// ImportResult counts the entries written by an import.
type ImportResult struct {
	Materials int `json:"materials"`
	Printers  int `json:"printers"`
}

// Import upserts every entry of seed. It stops at the first failure;
// entries written before it are kept.
func (s *CatalogService) Import(ctx context.Context, seed types.CatalogSeed) (ImportResult, error) {
	var result ImportResult
	for _, m := range seed.Materials {
		if _, err := s.UpsertMaterial(ctx, m.Name, m.PricePerKg); err != nil {
			return result, fmt.Errorf("material %q: %w", m.Name, err)
		}
		result.Materials++
	}
	for _, p := range seed.Printers {
		if _, err := s.UpsertPrinter(ctx, p.Name, p.CostPerHour); err != nil {
			return result, fmt.Errorf("printer %q: %w", p.Name, err)
		}
		result.Printers++
	}
	s.logger.Info("catalog imported",
		zap.Int("materials", result.Materials),
		zap.Int("printers", result.Printers),
	)
	return result, nil
}

// ImportYAML decodes a catalog seed document and imports it.
//
//	materials:
//	  - name: PLA
//	    price_per_kg: 20
//	printers:
//	  - name: Prusa MK4
//	    cost_per_hour: 0.5
func (s *CatalogService) ImportYAML(ctx context.Context, r io.Reader) (ImportResult, error) {
	var seed types.CatalogSeed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		if err == io.EOF {
			return ImportResult{}, nil
		}
		return ImportResult{}, fmt.Errorf("%w: decode catalog: %v", ErrInvalidInput, err)
	}
	return s.Import(ctx, seed)
}
