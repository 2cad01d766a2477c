package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/maxldruck/printcalc/config"
	"github.com/maxldruck/printcalc/internal/auth"
	"github.com/maxldruck/printcalc/internal/db"
	"github.com/maxldruck/printcalc/internal/draft"
	"github.com/maxldruck/printcalc/internal/ledger"
	"github.com/maxldruck/printcalc/internal/mq"
	"github.com/maxldruck/printcalc/internal/services"
	"github.com/maxldruck/printcalc/internal/storage"
	"github.com/maxldruck/printcalc/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the services shared by the HTTP server and the CLI.
type App struct {
	Accounts *services.AccountService
	Catalog  *services.CatalogService
	Projects *services.ProjectService
	Quotes   *services.QuoteService

	db     *sqlx.DB
	broker *mq.MQ
	redis  *redis.Client
	logger *zap.Logger
}

// NewApp opens the shared database and the optional backends configured in
// cfg and wires the services. Close releases everything it opened.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{logger: logger}

	if cfg.Database.AutoMigrate {
		changed, err := db.Migrate(cfg.Database)
		if err != nil {
			return nil, err
		}
		if changed {
			logger.Info("shared database migrated", zap.String("driver", cfg.Database.Driver))
		}
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.db = conn

	ledgers, err := ledger.NewRegistry(cfg.Ledger.Dir, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	hasher, err := auth.NewHasher(cfg.PasswordScheme)
	if err != nil {
		app.Close()
		return nil, err
	}

	drafts, err := app.openDrafts(ctx, cfg.Draft)
	if err != nil {
		app.Close()
		return nil, err
	}

	archive, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open quote archive: %w", err)
	}
	if archive != nil {
		logger.Info("quote archive enabled", zap.String("backend", cfg.Storage.Backend), zap.String("bucket", archive.Bucket()))
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open event broker: %w", err)
	}
	app.broker = broker
	if broker != nil {
		logger.Info("event publishing enabled", zap.String("backend", cfg.MQ.Backend), zap.String("channel", cfg.MQ.Channel))
	}
	events := mq.NewPublisher(broker, cfg.MQ.Channel, logger)

	accountRepo := store.NewAccountRepository(conn)
	catalogRepo := store.NewCatalogRepository(conn)

	app.Accounts = services.NewAccountService(accountRepo, ledgers, hasher, drafts, archive, events, logger)
	app.Catalog = services.NewCatalogService(catalogRepo, logger)
	app.Projects = services.NewProjectService(catalogRepo, ledgers, drafts, archive, events, logger)
	app.Quotes = services.NewQuoteService(app.Projects, catalogRepo, archive, events, cfg.QuoteBrand, logger)
	return app, nil
}

func (a *App) openDrafts(ctx context.Context, cfg config.DraftConfig) (draft.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return draft.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		a.redis = client
		return draft.NewRedisStore(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported draft backend %q", cfg.Backend)
	}
}

// Close releases the database, broker and redis connections.
func (a *App) Close() error {
	var errs []error
	if a.broker != nil {
		errs = append(errs, a.broker.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
