// Package memory is a storage engine that keeps everything in process memory.
// It follows the same ordering and aggregation rules as the SQLite engine.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

type Store struct {
	mu       sync.RWMutex
	expenses map[string]core.Expense
	incomes  map[string]core.Income
	settings map[string]decimal.Decimal
}

func New() *Store {
	return &Store{
		expenses: make(map[string]core.Expense),
		incomes:  make(map[string]core.Income),
		settings: make(map[string]decimal.Decimal),
	}
}

func (s *Store) Expenses() *ExpenseTable { return &ExpenseTable{s: s} }
func (s *Store) Incomes() *IncomeTable   { return &IncomeTable{s: s} }
func (s *Store) Settings() *SettingsTable {
	return &SettingsTable{s: s}
}

func insert[R core.Record](m map[string]R, r R, kind string) error {
	if _, exists := m[r.RecordID()]; exists {
		return core.NewOperationFailure("insert "+kind, fmt.Errorf("duplicate id %q", r.RecordID()))
	}
	m[r.RecordID()] = r
	return nil
}

func update[R core.Record](m map[string]R, r R) int64 {
	if _, exists := m[r.RecordID()]; !exists {
		return 0
	}
	m[r.RecordID()] = r
	return 1
}

func remove[R core.Record](m map[string]R, id string) int64 {
	if _, exists := m[id]; !exists {
		return 0
	}
	delete(m, id)
	return 1
}

// inRange returns the records in iv, most recent first, ties by id ascending.
func inRange[R core.Record](m map[string]R, iv core.Interval) []R {
	var out []R
	for _, r := range m {
		if iv.ContainsTime(r.Occurred()) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b R) int {
		if c := cmp.Compare(b.Occurred().UnixMilli(), a.Occurred().UnixMilli()); c != 0 {
			return c
		}
		return cmp.Compare(a.RecordID(), b.RecordID())
	})
	return out
}

// ExpenseTable implements ports.ExpenseTable
type ExpenseTable struct {
	s *Store
}

func (t *ExpenseTable) Insert(_ context.Context, e core.Expense) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return insert(t.s.expenses, e, "expense")
}

func (t *ExpenseTable) Update(_ context.Context, e core.Expense) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return update(t.s.expenses, e), nil
}

func (t *ExpenseTable) Delete(_ context.Context, id string) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return remove(t.s.expenses, id), nil
}

func (t *ExpenseTable) ListRange(_ context.Context, iv core.Interval) ([]core.Expense, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return inRange(t.s.expenses, iv), nil
}

func (t *ExpenseTable) SumRange(_ context.Context, iv core.Interval) (core.Money, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var total core.Money
	for _, e := range inRange(t.s.expenses, iv) {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (t *ExpenseTable) SumByCategory(_ context.Context, iv core.Interval) ([]core.CategoryTotal, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	sums := make(map[core.Category]core.Money)
	for _, e := range inRange(t.s.expenses, iv) {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}

	totals := make([]core.CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		totals = append(totals, core.CategoryTotal{Category: cat, Total: total})
	}
	slices.SortFunc(totals, func(a, b core.CategoryTotal) int {
		if c := cmp.Compare(b.Total.Cents, a.Total.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return totals, nil
}

// IncomeTable implements ports.IncomeTable
type IncomeTable struct {
	s *Store
}

func (t *IncomeTable) Insert(_ context.Context, i core.Income) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return insert(t.s.incomes, i, "income")
}

func (t *IncomeTable) Update(_ context.Context, i core.Income) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return update(t.s.incomes, i), nil
}

func (t *IncomeTable) Delete(_ context.Context, id string) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return remove(t.s.incomes, id), nil
}

func (t *IncomeTable) ListRange(_ context.Context, iv core.Interval) ([]core.Income, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return inRange(t.s.incomes, iv), nil
}

func (t *IncomeTable) SumRange(_ context.Context, iv core.Interval) (core.Money, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var total core.Money
	for _, i := range inRange(t.s.incomes, iv) {
		total = total.Add(i.Amount)
	}
	return total, nil
}

// SettingsTable implements ports.SettingsStore
type SettingsTable struct {
	s *Store
}

func (t *SettingsTable) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := t.s.settings[key]
	return v, ok, nil
}

func (t *SettingsTable) Set(_ context.Context, key string, value decimal.Decimal) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.settings[key] = value
	return nil
}
