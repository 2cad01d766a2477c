// Package ledger stores one account's projects in a dedicated sqlite file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/maxldruck/printcalc/internal/pricing"
	"github.com/maxldruck/printcalc/internal/store"
	"github.com/maxldruck/printcalc/types"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DateLayout renders project creation dates, e.g. "05. March 2024".
const DateLayout = "02. January 2006"

// Item type spellings written by older versions of the app.
var legacyItemTypes = map[string]types.ItemType{
	"Druck":     types.ItemPrintedPart,
	"Druckteil": types.ItemPrintedPart,
	"Zubehör":   types.ItemAccessory,
}

// optionalProjectColumns are added by later migrations. Reads substitute
// the default when a column is absent.
var optionalProjectColumns = []struct {
	name string
	def  string
}{
	{"customer_name", "''"},
	{"work_hours", "0.0"},
	{"work_rate", "0.0"},
	{"failed_filament_grams", "0.0"},
	{"failed_material_name", "''"},
}

// Ledger is an open handle on one account's project store.
type Ledger struct {
	db      *sqlx.DB
	key     Key
	logger  *zap.Logger
	version int
	columns map[string]bool
}

type projectRow struct {
	ID                  int64   `db:"id"`
	Name                string  `db:"name"`
	CustomerName        string  `db:"customer_name"`
	CreatedAt           string  `db:"created_at"`
	WorkHours           float64 `db:"work_hours"`
	WorkRate            float64 `db:"work_rate"`
	FailedFilamentGrams float64 `db:"failed_filament_grams"`
	FailedMaterialName  string  `db:"failed_material_name"`
}

type itemRow struct {
	ID        int64   `db:"id"`
	ProjectID int64   `db:"project_id"`
	ItemType  string  `db:"item_type"`
	Name      string  `db:"name"`
	Weight    float64 `db:"weight"`
	Cost      float64 `db:"cost"`
	Details   string  `db:"details"`
}

// open connects to the ledger file at path. mode is the sqlite URI open
// mode: "rwc" creates a missing file, "rw" fails instead.
func open(ctx context.Context, path, mode string, key Key, logger *zap.Logger) (*Ledger, error) {
	dsn := "file:" + path + "?mode=" + mode + "&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &Ledger{db: db, key: key, logger: logger}
	l.version = l.migrate(ctx)

	cols, err := columnSet(ctx, db, "projects")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspect ledger %s: %w", key, err)
	}
	l.columns = cols
	return l, nil
}

// Key returns the ledger's key.
func (l *Ledger) Key() Key {
	return l.key
}

// SchemaVersion returns the schema version reached when the ledger was opened.
func (l *Ledger) SchemaVersion() int {
	return l.version
}

// Close releases the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// SaveProject persists p and its items as one unit and returns the stored
// project. When replaceID is set, that project and its items are removed in
// the same transaction; the saved project always gets a new identity.
func (l *Ledger) SaveProject(ctx context.Context, p types.Project, replaceID *int64) (types.Project, error) {
	if strings.TrimSpace(p.CreatedAt) == "" {
		p.CreatedAt = time.Now().Format(DateLayout)
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.Project{}, err
	}
	defer tx.Rollback()

	columns := []string{"name", "created_at"}
	values := []any{p.Name, p.CreatedAt}
	optional := map[string]any{
		"customer_name":         nullString(p.CustomerName),
		"work_hours":            p.WorkHours,
		"work_rate":             p.WorkRate,
		"failed_filament_grams": p.FailedFilamentGrams,
		"failed_material_name":  nullString(p.FailedMaterialName),
	}
	for _, col := range optionalProjectColumns {
		if l.columns[col.name] {
			columns = append(columns, col.name)
			values = append(values, optional[col.name])
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO projects (%s) VALUES (%s)",
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
	result, err := tx.ExecContext(ctx, query, values...)
	if err != nil {
		return types.Project{}, fmt.Errorf("insert project: %w", err)
	}
	projectID, err := result.LastInsertId()
	if err != nil {
		return types.Project{}, err
	}

	const insertItem = `
		INSERT INTO items (project_id, item_type, name, weight, cost, details)
		VALUES (?, ?, ?, ?, ?, ?)`
	for _, item := range p.Items {
		if _, err := tx.ExecContext(ctx, insertItem,
			projectID,
			string(item.Type),
			item.Name,
			item.WeightGrams,
			item.Cost,
			item.Details,
		); err != nil {
			return types.Project{}, fmt.Errorf("insert item: %w", err)
		}
	}

	// The replaced project goes after the insert so the new row can never
	// reuse its id, even on tables without AUTOINCREMENT.
	if replaceID != nil {
		if _, err := deleteProject(ctx, tx, *replaceID); err != nil {
			return types.Project{}, fmt.Errorf("replace project %d: %w", *replaceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Project{}, err
	}
	return l.GetProject(ctx, projectID)
}

// GetProject loads one project with its items.
func (l *Ledger) GetProject(ctx context.Context, id int64) (types.Project, error) {
	var row projectRow
	query := l.projectSelect() + " WHERE id = ?"
	if err := l.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Project{}, store.ErrNotFound
		}
		return types.Project{}, err
	}

	var items []itemRow
	if err := l.db.SelectContext(ctx, &items, itemSelect+" WHERE project_id = ? ORDER BY id", id); err != nil {
		return types.Project{}, err
	}
	return toProject(row, items), nil
}

// ListProjects returns all projects, newest first, with their items.
func (l *Ledger) ListProjects(ctx context.Context) ([]types.Project, error) {
	var rows []projectRow
	if err := l.db.SelectContext(ctx, &rows, l.projectSelect()+" ORDER BY id DESC"); err != nil {
		return nil, err
	}

	var items []itemRow
	if err := l.db.SelectContext(ctx, &items, itemSelect+" ORDER BY project_id, id"); err != nil {
		return nil, err
	}
	byProject := make(map[int64][]itemRow, len(rows))
	for _, item := range items {
		byProject[item.ProjectID] = append(byProject[item.ProjectID], item)
	}

	projects := make([]types.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, toProject(row, byProject[row.ID]))
	}
	return projects, nil
}

// DeleteProject removes a project and all of its items.
func (l *Ledger) DeleteProject(ctx context.Context, id int64) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	affected, err := deleteProject(ctx, tx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

// Totals summarises the ledger for global statistics. Items whose project
// no longer exists are not counted.
type Totals struct {
	Projects int
	Items    int
	Revenue  float64
}

// Totals counts projects and items and sums item costs.
func (l *Ledger) Totals(ctx context.Context) (Totals, error) {
	var totals Totals
	if err := l.db.GetContext(ctx, &totals.Projects, `SELECT COUNT(*) FROM projects`); err != nil {
		return Totals{}, err
	}

	var costs []float64
	const query = `
		SELECT COALESCE(i.cost, 0)
		FROM items i
		JOIN projects p ON p.id = i.project_id`
	if err := l.db.SelectContext(ctx, &costs, query); err != nil {
		return Totals{}, err
	}
	totals.Items = len(costs)
	totals.Revenue = pricing.Sum(costs...)
	return totals, nil
}

func deleteProject(ctx context.Context, tx *sqlx.Tx, id int64) (int64, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE project_id = ?`, id); err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const itemSelect = `
	SELECT id,
		COALESCE(project_id, 0) AS project_id,
		COALESCE(item_type, '') AS item_type,
		COALESCE(name, '') AS name,
		COALESCE(weight, 0.0) AS weight,
		COALESCE(cost, 0.0) AS cost,
		COALESCE(details, '') AS details
	FROM items`

func (l *Ledger) projectSelect() string {
	fields := []string{
		"id",
		"COALESCE(name, '') AS name",
		"COALESCE(created_at, '') AS created_at",
	}
	for _, col := range optionalProjectColumns {
		if l.columns[col.name] {
			fields = append(fields, fmt.Sprintf("COALESCE(%s, %s) AS %s", col.name, col.def, col.name))
		} else {
			fields = append(fields, fmt.Sprintf("%s AS %s", col.def, col.name))
		}
	}
	return "SELECT " + strings.Join(fields, ", ") + " FROM projects"
}

func toProject(row projectRow, items []itemRow) types.Project {
	p := types.Project{
		ID:                  row.ID,
		Name:                row.Name,
		CustomerName:        row.CustomerName,
		CreatedAt:           row.CreatedAt,
		WorkHours:           row.WorkHours,
		WorkRate:            row.WorkRate,
		FailedFilamentGrams: row.FailedFilamentGrams,
		FailedMaterialName:  row.FailedMaterialName,
		Items:               make([]types.ProjectItem, 0, len(items)),
	}
	for _, item := range items {
		p.Items = append(p.Items, types.ProjectItem{
			ID:          item.ID,
			ProjectID:   item.ProjectID,
			Type:        itemType(item.ItemType),
			Name:        item.Name,
			WeightGrams: item.Weight,
			Cost:        item.Cost,
			Details:     item.Details,
		})
	}
	p.Total = pricing.ProjectTotal(p.Items)
	return p
}

func itemType(raw string) types.ItemType {
	if t, ok := legacyItemTypes[raw]; ok {
		return t
	}
	return types.ItemType(raw)
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
