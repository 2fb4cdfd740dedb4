// Package ports declares the storage engine boundary the repositories and
// the settings service depend on.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks . SettingsStore

// Ports for storage adapters.
type (
	// Table is a key-ordered table of one record kind.
	Table[R core.Record] interface {
		// Insert persists a new record. Inserting an existing identifier fails.
		Insert(ctx context.Context, r R) error

		// Update overwrites the record with the same identifier and returns the
		// number of rows affected. Zero rows is not an error.
		Update(ctx context.Context, r R) (int64, error)

		// Delete removes the record with the given identifier and returns the
		// number of rows affected. Zero rows is not an error.
		Delete(ctx context.Context, id string) (int64, error)

		// ListRange returns the records in [iv.Start, iv.End), most recent
		// first, ties broken by identifier ascending.
		ListRange(ctx context.Context, iv core.Interval) ([]R, error)

		// SumRange returns the summed amount over [iv.Start, iv.End), zero
		// when nothing falls in the interval.
		SumRange(ctx context.Context, iv core.Interval) (core.Money, error)
	}

	ExpenseTable interface {
		Table[core.Expense]

		// SumByCategory returns one total per category present in the
		// interval, largest first, ties broken by category ascending.
		SumByCategory(ctx context.Context, iv core.Interval) ([]core.CategoryTotal, error)
	}

	IncomeTable interface {
		Table[core.Income]
	}

	// SettingsStore is a flat store of named decimal values.
	SettingsStore interface {
		Get(ctx context.Context, key string) (value decimal.Decimal, ok bool, err error)
		Set(ctx context.Context, key string, value decimal.Decimal) error
	}
)
