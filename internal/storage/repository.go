package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository owns the database handle. The tables it hands out share it.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

// NewSQLiteRepository opens (or creates) the database at dbPath and applies
// the schema. Every error it returns is an open failure. A nil logger
// discards output.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, core.NewOpenFailure("create db directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, core.NewOpenFailure("open sqlite database", err)
	}

	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.NewOpenFailure("ping database", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, core.NewOpenFailure("run migrations", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}

	logger.Info("SQLite storage ready", "path", dbPath, "schema_version", SchemaVersion)

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Expenses returns the expenses table.
func (r *SQLiteRepository) Expenses() *ExpenseTable {
	return &ExpenseTable{queries: r.queries, logger: r.logger}
}

// Incomes returns the income table.
func (r *SQLiteRepository) Incomes() *IncomeTable {
	return &IncomeTable{queries: r.queries, logger: r.logger}
}

// Settings returns the key-value settings table.
func (r *SQLiteRepository) Settings() *SettingsTable {
	return &SettingsTable{queries: r.queries, logger: r.logger}
}

func rangeParams(iv core.Interval) RangeParams {
	return RangeParams{StartMs: iv.Start, EndMs: iv.End}
}

// ExpenseTable implements ports.ExpenseTable
type ExpenseTable struct {
	queries *Queries
	logger  *log.Logger
}

func (t *ExpenseTable) Insert(ctx context.Context, e core.Expense) error {
	err := t.queries.CreateExpense(ctx, Expense{
		ID:           e.ID,
		Title:        e.Title,
		AmountCents:  e.Amount.Cents,
		Category:     string(e.Category),
		OccurredAtMs: e.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return core.NewOperationFailure("insert expense", err)
	}

	t.logger.DebugContext(ctx, "Expense saved to SQLite", log.NewFields().
		WithRecord(log.ComponentExpense, e.ID).WithAmount(e.Amount).
		With(log.FieldCategory, string(e.Category)).ToSlice()...)

	return nil
}

func (t *ExpenseTable) Update(ctx context.Context, e core.Expense) (int64, error) {
	n, err := t.queries.UpdateExpense(ctx, Expense{
		ID:           e.ID,
		Title:        e.Title,
		AmountCents:  e.Amount.Cents,
		Category:     string(e.Category),
		OccurredAtMs: e.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return 0, core.NewOperationFailure("update expense", err)
	}
	return n, nil
}

func (t *ExpenseTable) Delete(ctx context.Context, id string) (int64, error) {
	n, err := t.queries.DeleteExpense(ctx, id)
	if err != nil {
		return 0, core.NewOperationFailure("delete expense", err)
	}
	return n, nil
}

func (t *ExpenseTable) ListRange(ctx context.Context, iv core.Interval) ([]core.Expense, error) {
	rows, err := t.queries.ListExpensesByRange(ctx, rangeParams(iv))
	if err != nil {
		return nil, core.NewOperationFailure("list expenses", err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, e := range rows {
		expenses[i] = core.Expense{
			ID:         e.ID,
			Title:      e.Title,
			Amount:     core.Money{Cents: e.AmountCents},
			Category:   core.Category(e.Category),
			OccurredAt: time.UnixMilli(e.OccurredAtMs),
		}
	}

	return expenses, nil
}

func (t *ExpenseTable) SumRange(ctx context.Context, iv core.Interval) (core.Money, error) {
	total, err := t.queries.SumExpensesByRange(ctx, rangeParams(iv))
	if err != nil {
		return core.Money{}, core.NewOperationFailure("sum expenses", err)
	}
	return core.Money{Cents: total}, nil
}

func (t *ExpenseTable) SumByCategory(ctx context.Context, iv core.Interval) ([]core.CategoryTotal, error) {
	sums, err := t.queries.SumExpensesByCategory(ctx, rangeParams(iv))
	if err != nil {
		return nil, core.NewOperationFailure("sum expenses by category", err)
	}

	totals := make([]core.CategoryTotal, 0, len(sums))
	for _, cs := range sums {
		totals = append(totals, core.CategoryTotal{
			Category: core.Category(cs.Category),
			Total:    core.Money{Cents: cs.TotalCents},
		})
	}

	return totals, nil
}

// IncomeTable implements ports.IncomeTable
type IncomeTable struct {
	queries *Queries
	logger  *log.Logger
}

func (t *IncomeTable) Insert(ctx context.Context, i core.Income) error {
	err := t.queries.CreateIncome(ctx, Income{
		ID:           i.ID,
		Source:       i.Source,
		AmountCents:  i.Amount.Cents,
		OccurredAtMs: i.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return core.NewOperationFailure("insert income", err)
	}

	t.logger.DebugContext(ctx, "Income saved to SQLite", log.NewFields().
		WithRecord(log.ComponentIncome, i.ID).WithAmount(i.Amount).ToSlice()...)

	return nil
}

func (t *IncomeTable) Update(ctx context.Context, i core.Income) (int64, error) {
	n, err := t.queries.UpdateIncome(ctx, Income{
		ID:           i.ID,
		Source:       i.Source,
		AmountCents:  i.Amount.Cents,
		OccurredAtMs: i.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return 0, core.NewOperationFailure("update income", err)
	}
	return n, nil
}

func (t *IncomeTable) Delete(ctx context.Context, id string) (int64, error) {
	n, err := t.queries.DeleteIncome(ctx, id)
	if err != nil {
		return 0, core.NewOperationFailure("delete income", err)
	}
	return n, nil
}

func (t *IncomeTable) ListRange(ctx context.Context, iv core.Interval) ([]core.Income, error) {
	rows, err := t.queries.ListIncomeByRange(ctx, rangeParams(iv))
	if err != nil {
		return nil, core.NewOperationFailure("list income", err)
	}

	incomes := make([]core.Income, len(rows))
	for i, row := range rows {
		incomes[i] = core.Income{
			ID:         row.ID,
			Source:     row.Source,
			Amount:     core.Money{Cents: row.AmountCents},
			OccurredAt: time.UnixMilli(row.OccurredAtMs),
		}
	}

	return incomes, nil
}

func (t *IncomeTable) SumRange(ctx context.Context, iv core.Interval) (core.Money, error) {
	total, err := t.queries.SumIncomeByRange(ctx, rangeParams(iv))
	if err != nil {
		return core.Money{}, core.NewOperationFailure("sum income", err)
	}
	return core.Money{Cents: total}, nil
}

// SettingsTable implements ports.SettingsStore
type SettingsTable struct {
	queries *Queries
	logger  *log.Logger
}

func (t *SettingsTable) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	raw, err := t.queries.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, core.NewOperationFailure("get setting", err)
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false, core.NewOperationFailure("parse setting",
			fmt.Errorf("%s=%q: %w", key, raw, err))
	}
	return value, true, nil
}

func (t *SettingsTable) Set(ctx context.Context, key string, value decimal.Decimal) error {
	if err := t.queries.UpsertSetting(ctx, key, value.String()); err != nil {
		return core.NewOperationFailure("set setting", err)
	}

	t.logger.InfoContext(ctx, "Setting saved", "key", key, "value", value.String())
	return nil
}
