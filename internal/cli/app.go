package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/zkfactor/internal/cache"
	"github.com/R3E-Network/zkfactor/internal/config"
	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/internal/metrics"
	"github.com/R3E-Network/zkfactor/internal/storage"
	"github.com/R3E-Network/zkfactor/internal/storage/migrations"
	"github.com/R3E-Network/zkfactor/internal/storage/postgres"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

// App holds the wired components one command runs against.
type App struct {
	Config      config.Config
	Log         *logger.Logger
	Wallet      ledger.Wallet
	Mappings    ledger.MappingReader
	// Chain is nil when no explorer is wired.
	Chain       ledger.ChainReader
	Coordinator *txlifecycle.Coordinator
	Service     *factoring.Service
	History     storage.HistoryStore

	closers []func() error
}

// AppFactory builds an App from configuration.
type AppFactory func(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error)

// NewApp connects to the wallet bridge and the explorer named in cfg.
func NewApp(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	wallet, err := ledger.NewWalletClient(ledger.WalletConfig{
		RPCURL:          cfg.WalletURL,
		AllowedPrograms: cfg.WhitelistedPrograms(),
	})
	if err != nil {
		return nil, fmt.Errorf("wallet client: %w", err)
	}
	explorer, err := ledger.NewExplorerClient(ledger.ExplorerConfig{
		Endpoint:          cfg.APIEndpoint,
		Network:           cfg.Network,
		RequestsPerSecond: cfg.Explorer.RequestsPerSecond,
		Burst:             cfg.Explorer.Burst,
		Timeout:           cfg.Explorer.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("explorer client: %w", err)
	}
	app, err := Assemble(ctx, cfg, log, wallet, explorer)
	if err != nil {
		return nil, err
	}
	app.Chain = explorer
	return app, nil
}

// Assemble wires the coordinator, caches, history store and service around
// the given ledger endpoints. Redis and Postgres are used when configured;
// otherwise both fall back to process memory.
func Assemble(ctx context.Context, cfg config.Config, log *logger.Logger, wallet ledger.Wallet, mappings ledger.MappingReader) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	app := &App{Config: cfg, Log: log, Wallet: wallet, Mappings: mappings}

	app.Coordinator = txlifecycle.New(wallet,
		txlifecycle.Config{
			PollInterval:  cfg.Poll.Interval,
			MaxAttempts:   cfg.Poll.MaxAttempts,
			SubmitTimeout: cfg.Poll.SubmitTimeout,
		},
		txlifecycle.WithLogger(log),
		txlifecycle.WithRecorder(metrics.Lifecycle{}),
	)
	app.closers = append(app.closers, func() error { app.Coordinator.Close(); return nil })

	var store cache.Store = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		r, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.Close()
			return nil, err
		}
		store = r
		app.closers = append(app.closers, r.Close)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis record cache")
	}

	app.History = storage.NewMemory()
	if cfg.Database.DSN != "" {
		db, err := openHistory(ctx, cfg.Database.DSN)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.History = postgres.New(db)
		app.closers = append(app.closers, db.Close)
		log.Info("using postgres transaction history")
	}

	svc, err := factoring.NewService(factoring.Config{
		ProgramID: cfg.ProgramID,
		CacheTTL:  cfg.Cache.TTL,
		Fee:       cfg.TransactionFee(),
	}, factoring.Deps{
		Wallet:      wallet,
		Mappings:    mappings,
		Coordinator: app.Coordinator,
		Cache:       store,
		History:     app.History,
		Logger:      log,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Service = svc
	return app, nil
}

func openHistory(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}

// Close releases everything the App opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
