package backend

import (
	"context"
	"fmt"

	"expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend. A sqlite open failure is
// returned as is so callers can tell it is fatal.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to open SQLite storage", log.NewFields().
			WithOperation(log.OpStartup).WithError(err).With("db_path", config.SQLiteDBPath).ToSlice()...)
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: Backend{
			Expenses: sqliteRepo.Expenses(),
			Incomes:  sqliteRepo.Incomes(),
			Settings: sqliteRepo.Settings(),
		},
		Cleanup: sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	store := memory.New()

	f.logger.InfoContext(ctx, "Initialized memory backend")

	return &BackendResult{
		Backend: Backend{
			Expenses: store.Expenses(),
			Incomes:  store.Incomes(),
			Settings: store.Settings(),
		},
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
