package ledger

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Schema versions, tracked in PRAGMA user_version:
// v1: projects and items tables
// v2: projects.customer_name
// v3: work and failed filament columns on projects
const CurrentSchemaVersion = 3

// Column is an additive column change.
type Column struct {
	Table string
	Name  string
	Def   string
}

// Migration is one additive schema step. Statements must be idempotent;
// columns are only added when missing.
type Migration struct {
	Version    int
	Name       string
	Statements []string
	Columns    []Column
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create projects and items",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS projects (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name VARCHAR NOT NULL,
				created_at VARCHAR
			)`,
			`CREATE TABLE IF NOT EXISTS items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER REFERENCES projects(id),
				item_type VARCHAR,
				name VARCHAR,
				weight FLOAT,
				cost FLOAT,
				details VARCHAR
			)`,
			`CREATE INDEX IF NOT EXISTS idx_items_project_id ON items(project_id)`,
		},
	},
	{
		Version: 2,
		Name:    "add customer name",
		Columns: []Column{
			{"projects", "customer_name", "TEXT"},
		},
	},
	{
		Version: 3,
		Name:    "add work and failed filament",
		Columns: []Column{
			{"projects", "work_hours", "REAL DEFAULT 0"},
			{"projects", "work_rate", "REAL DEFAULT 0"},
			{"projects", "failed_filament_grams", "REAL DEFAULT 0"},
			{"projects", "failed_material_name", "TEXT"},
		},
	},
}

// migrate brings the ledger up to the newest schema it can reach.
// A failing step is logged and leaves the ledger at the previous version;
// reads then fall back to default values for the missing columns.
func (l *Ledger) migrate(ctx context.Context) int {
	var version int
	if err := l.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		l.logger.Warn("read ledger schema version", zap.String("ledger", l.key.String()), zap.Error(err))
		version = 0
	}

	for _, m := range migrations {
		if m.Version <= version {
			continue
		}
		if err := l.apply(ctx, m); err != nil {
			l.logger.Warn("ledger migration failed",
				zap.String("ledger", l.key.String()),
				zap.Int("version", m.Version),
				zap.String("migration", m.Name),
				zap.Error(err),
			)
			break
		}
		l.logger.Debug("ledger migration applied",
			zap.String("ledger", l.key.String()),
			zap.Int("version", m.Version),
		)
		version = m.Version
	}
	return version
}

func (l *Ledger) apply(ctx context.Context, m Migration) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, c := range m.Columns {
		exists, err := tableExists(ctx, tx, c.Table)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("table %s is missing", c.Table)
		}
		cols, err := columnSet(ctx, tx, c.Table)
		if err != nil {
			return err
		}
		if cols[c.Name] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.Table, c.Name, c.Def)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return err
	}
	return tx.Commit()
}

func tableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	var count int
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if err := sqlx.GetContext(ctx, q, &count, query, table); err != nil {
		return false, err
	}
	return count > 0, nil
}

// columnSet lists the columns of a table using PRAGMA table_info.
func columnSet(ctx context.Context, q sqlx.QueryerContext, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
