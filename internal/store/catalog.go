package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/maxldruck/printcalc/types"
)

// CatalogRepository handles persistence for materials and printers.
// Writes are upserts keyed by name; the last write wins.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) UpsertMaterial(ctx context.Context, name string, pricePerKg float64) (types.Material, error) {
	const query = `
		INSERT INTO materials (name, price_per_kg)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET price_per_kg = excluded.price_per_kg
		RETURNING id, name, price_per_kg`
	var material types.Material
	if err := r.db.GetContext(ctx, &material, r.db.Rebind(query), name, pricePerKg); err != nil {
		return types.Material{}, err
	}
	return material, nil
}

func (r *CatalogRepository) ListMaterials(ctx context.Context) ([]types.Material, error) {
	const query = `SELECT id, name, price_per_kg FROM materials ORDER BY id`
	materials := []types.Material{}
	if err := r.db.SelectContext(ctx, &materials, query); err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *CatalogRepository) FindMaterialByName(ctx context.Context, name string) (types.Material, error) {
	const query = `SELECT id, name, price_per_kg FROM materials WHERE name = ?`
	var material types.Material
	if err := r.db.GetContext(ctx, &material, r.db.Rebind(query), name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Material{}, ErrNotFound
		}
		return types.Material{}, err
	}
	return material, nil
}

func (r *CatalogRepository) DeleteMaterial(ctx context.Context, name string) error {
	return r.deleteByName(ctx, `DELETE FROM materials WHERE name = ?`, name)
}

func (r *CatalogRepository) UpsertPrinter(ctx context.Context, name string, costPerHour float64) (types.Printer, error) {
	const query = `
		INSERT INTO printers (name, cost_per_hour)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET cost_per_hour = excluded.cost_per_hour
		RETURNING id, name, cost_per_hour`
	var printer types.Printer
	if err := r.db.GetContext(ctx, &printer, r.db.Rebind(query), name, costPerHour); err != nil {
		return types.Printer{}, err
	}
	return printer, nil
}

func (r *CatalogRepository) ListPrinters(ctx context.Context) ([]types.Printer, error) {
	const query = `SELECT id, name, cost_per_hour FROM printers ORDER BY id`
	printers := []types.Printer{}
	if err := r.db.SelectContext(ctx, &printers, query); err != nil {
		return nil, err
	}
	return printers, nil
}

func (r *CatalogRepository) FindPrinterByName(ctx context.Context, name string) (types.Printer, error) {
	const query = `SELECT id, name, cost_per_hour FROM printers WHERE name = ?`
	var printer types.Printer
	if err := r.db.GetContext(ctx, &printer, r.db.Rebind(query), name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Printer{}, ErrNotFound
		}
		return types.Printer{}, err
	}
	return printer, nil
}

func (r *CatalogRepository) DeletePrinter(ctx context.Context, name string) error {
	return r.deleteByName(ctx, `DELETE FROM printers WHERE name = ?`, name)
}

func (r *CatalogRepository) deleteByName(ctx context.Context, query, name string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), name)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
