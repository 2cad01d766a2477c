package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/maxldruck/printcalc/internal/store"
	"go.uber.org/zap"
)

// sqlite side files that belong to a ledger.
var sideFileSuffixes = []string{"-wal", "-shm", "-journal"}

// Registry maps ledger keys to their files inside one directory.
type Registry struct {
	dir    string
	logger *zap.Logger
}

// NewRegistry constructs a Registry rooted at dir, creating it if needed.
func NewRegistry(dir string, logger *zap.Logger) (*Registry, error) {
	if dir == "" {
		return nil, errors.New("ledger directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{dir: dir, logger: logger}, nil
}

// Dir returns the directory holding the ledgers.
func (r *Registry) Dir() string {
	return r.dir
}

func (r *Registry) path(key Key) string {
	return filepath.Join(r.dir, key.fileName())
}

// Exists reports whether a ledger file exists for key.
func (r *Registry) Exists(key Key) (bool, error) {
	_, err := os.Stat(r.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Provision creates an empty ledger for key, or upgrades an existing one.
func (r *Registry) Provision(ctx context.Context, key Key) error {
	l, err := r.Open(ctx, key)
	if err != nil {
		return err
	}
	return l.Close()
}

// Open opens the ledger for key, creating it if absent, and applies any
// pending schema migrations.
func (r *Registry) Open(ctx context.Context, key Key) (*Ledger, error) {
	if _, err := ParseKey(string(key)); err != nil {
		return nil, err
	}
	l, err := open(ctx, r.path(key), "rwc", key, r.logger)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", key, err)
	}
	return l, nil
}

// OpenExisting is Open for a ledger that must already exist. A missing
// ledger yields store.ErrNotFound and is never recreated.
func (r *Registry) OpenExisting(ctx context.Context, key Key) (*Ledger, error) {
	if _, err := ParseKey(string(key)); err != nil {
		return nil, err
	}
	exists, err := r.Exists(key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("ledger %s: %w", key, store.ErrNotFound)
	}
	l, err := open(ctx, r.path(key), "rw", key, r.logger)
	if err != nil {
		if exists, _ := r.Exists(key); !exists {
			return nil, fmt.Errorf("ledger %s: %w", key, store.ErrNotFound)
		}
		return nil, fmt.Errorf("open ledger %s: %w", key, err)
	}
	return l, nil
}

// Destroy irreversibly removes the ledger for key. A missing ledger is not
// an error.
func (r *Registry) Destroy(key Key) error {
	if _, err := ParseKey(string(key)); err != nil {
		return err
	}
	base := r.path(key)
	for _, name := range append([]string{base}, sideFiles(base)...) {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(name), err)
		}
	}
	r.logger.Info("ledger destroyed", zap.String("ledger", key.String()))
	return nil
}

// Keys lists the keys of all ledgers in the directory, sorted.
func (r *Registry) Keys() ([]Key, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var keys []Key
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := keyFromFileName(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func sideFiles(base string) []string {
	files := make([]string, 0, len(sideFileSuffixes))
	for _, suffix := range sideFileSuffixes {
		files = append(files, base+suffix)
	}
	return files
}
