package backend

import (
	"context"

	"expensetracker/internal/ports"
)

// Backend is a storage engine: one table per record kind plus the settings store.
type Backend struct {
	Expenses ports.ExpenseTable
	Incomes  ports.IncomeTable
	Settings ports.SettingsStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
