// Package app wires configuration, storage, repositories and the
// coordinator into one handle for a host to hold.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/repository"
	"expensetracker/internal/services"
	"expensetracker/internal/settings"
)

type App struct {
	Config      *config.Config
	Logger      *log.Logger
	Coordinator *services.Coordinator

	backend   *backend.BackendResult
	caches    *cache.Manager
	totals    map[string]*cache.LRUCache[core.Money]
	closeOnce sync.Once
	closeErr  error
}

// Option adjusts how New builds the app.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for month selection and grand totals.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// LoadEnvFile loads .env files for local development. A missing file is
// not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logConfig := log.DefaultConfig()
	logConfig.Level = level
	return log.New(logConfig), nil
}

// FromEnv loads .env, reads and validates the configuration, then calls New.
func FromEnv(ctx context.Context, envFiles ...string) (*App, error) {
	if err := LoadEnvFile(envFiles...); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)

	return New(ctx, cfg, logger)
}

// New opens the configured backend and loads the current month. A storage
// open failure comes back wrapped in a fatal *core.StorageFailure and the
// host must not start.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := cfg.Validate(); err != nil {
		logger.ErrorContext(ctx, "Invalid configuration", log.NewFields().
			WithOperation(log.OpValidate).WithError(err).ToSlice()...)
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	// Validate has already parsed these.
	loc, _ := cfg.Location()
	epoch, _ := cfg.Epoch()
	budget, _ := cfg.MonthlyBudget()
	goal, _ := cfg.SavingGoal()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		backend: result,
		caches:  cache.NewManager(logger),
	}

	expenseOpts := repository.Options{Logger: logger}
	incomeOpts := repository.Options{Logger: logger}
	if cfg.TotalsCacheSize > 0 {
		expenseTotals := cache.NewLRUCache[core.Money](cfg.TotalsCacheSize, cfg.TotalsCacheTTL)
		incomeTotals := cache.NewLRUCache[core.Money](cfg.TotalsCacheSize, cfg.TotalsCacheTTL)
		a.totals = map[string]*cache.LRUCache[core.Money]{
			log.ComponentExpense: expenseTotals,
			log.ComponentIncome:  incomeTotals,
		}
		a.caches.Register(expenseTotals)
		a.caches.Register(incomeTotals)
		a.caches.StartCleanup(cfg.CacheCleanupInterval)
		expenseOpts.Totals = expenseTotals
		incomeOpts.Totals = incomeTotals
	}

	a.Coordinator = services.NewCoordinator(
		repository.NewExpenseRepository(result.Backend.Expenses, expenseOpts),
		repository.NewIncomeRepository(result.Backend.Incomes, incomeOpts),
		settings.NewService(result.Backend.Settings, settings.Defaults{MonthlyBudget: budget, SavingGoal: goal}, logger),
		services.CoordinatorConfig{
			Location: loc,
			Epoch:    epoch,
			Now:      o.now,
			Logger:   logger,
		},
	)

	if err := a.Coordinator.Refresh(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("initial load: %w", err), a.Close())
	}

	logger.InfoContext(ctx, "Expense tracker ready", log.NewFields().
		WithOperation(log.OpStartup).
		WithMonth(a.Coordinator.Month()).
		With("backend", cfg.DataBackend).
		With("totals_cache", cfg.TotalsCacheSize > 0).ToSlice()...)

	return a, nil
}

// Close stops cache cleanup and releases the backend. It is safe to call
// more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.caches.Stop()
		for kind, c := range a.totals {
			stats := c.Stats()
			a.Logger.Debug("Totals cache stats", log.FieldKind, kind,
				"hits", stats.Hits, "misses", stats.Misses, "evictions", stats.Evictions)
		}
		a.closeErr = a.backend.Close()
		a.Logger.Info("Expense tracker closed", log.FieldOperation, log.OpShutdown)
	})
	return a.closeErr
}
