// Package mobile is the surface a gomobile host binds to. Arguments and
// results are primitives: amounts are decimal text, instants are epoch
// milliseconds, months are "YYYY-MM" and lists are JSON arrays.
//
// Input is validated here. The core below assumes well-formed records.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"expensetracker/internal/app"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/repository"
	"expensetracker/internal/services"
)

// Listener receives mirror changes. kind is "expense" or "income"; event is
// one of "loaded", "added", "updated", "deleted" or "reconcile". message is
// empty except for "reconcile". Calls may arrive on any goroutine.
//
// OnEvent runs after the Tracker call that caused it has released its
// locks, so it may call back into the Tracker.
type Listener interface {
	OnEvent(kind, event, id string, version int64, message string)
}

type Tracker struct {
	app   *app.App
	coord *services.Coordinator

	mu          sync.Mutex
	unsubscribe func()
}

// Open starts a tracker backed by SQLite in dataDir. An optional .env in
// dataDir is honored. timeZone may be empty for the device zone.
func Open(dataDir, timeZone string) (*Tracker, error) {
	if err := app.LoadEnvFile(filepath.Join(dataDir, ".env")); err != nil {
		return nil, err
	}
	cfg := config.Load()
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = filepath.Join(dataDir, "expenses.db")
	return open(cfg, timeZone)
}

// OpenInMemory starts a tracker that keeps nothing after Close.
func OpenInMemory(timeZone string) (*Tracker, error) {
	cfg := config.Load()
	cfg.DataBackend = "memory"
	return open(cfg, timeZone)
}

func open(cfg *config.Config, timeZone string) (*Tracker, error) {
	if timeZone != "" {
		cfg.TimeZone = timeZone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(context.Background(), cfg, logger.WithComponent(log.ComponentMobile))
	if err != nil {
		return nil, err
	}
	return &Tracker{app: a, coord: a.Coordinator}, nil
}

func (t *Tracker) Close() error {
	t.SetListener(nil)
	return t.app.Close()
}

// SetListener replaces the current listener. Nil removes it.
func (t *Tracker) SetListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	if l == nil {
		return
	}
	t.unsubscribe = t.coord.Subscribe(func(kind string, ev repository.Event) {
		var message string
		if ev.Err != nil {
			message = ev.Err.Error()
		}
		l.OnEvent(kind, ev.Kind.String(), ev.ID, int64(ev.Version), message)
	})
}

// Categories returns the category labels as a JSON array in display order.
func (t *Tracker) Categories() string {
	b, _ := json.Marshal(core.Categories())
	return string(b)
}

func (t *Tracker) SelectedMonth() string { return t.coord.Month().String() }

func (t *Tracker) SetMonth(month string) error {
	m, err := core.ParseMonth(month)
	if err != nil {
		return err
	}
	return t.coord.SetMonth(context.Background(), m)
}

func (t *Tracker) PrevMonth() error { return t.coord.PrevMonth(context.Background()) }
func (t *Tracker) NextMonth() error { return t.coord.NextMonth(context.Background()) }
func (t *Tracker) Refresh() error   { return t.coord.Refresh(context.Background()) }

// AddExpense validates the input, stores a new expense and returns its ID.
func (t *Tracker) AddExpense(title, amount, category string, occurredAtMs int64) (string, error) {
	e, err := t.expense("", title, amount, category, occurredAtMs)
	if err != nil {
		return "", err
	}
	if err := t.coord.AddExpense(context.Background(), e); err != nil {
		return "", err
	}
	return e.ID, nil
}

func (t *Tracker) UpdateExpense(id, title, amount, category string, occurredAtMs int64) error {
	if id == "" {
		return fmt.Errorf("invalid expense: %w", core.ErrEmptyID)
	}
	e, err := t.expense(id, title, amount, category, occurredAtMs)
	if err != nil {
		return err
	}
	return t.coord.UpdateExpense(context.Background(), e)
}

func (t *Tracker) DeleteExpense(id string) error {
	if id == "" {
		return fmt.Errorf("invalid expense: %w", core.ErrEmptyID)
	}
	return t.coord.DeleteExpense(context.Background(), id)
}

// AddIncome validates the input, stores a new income entry and returns its ID.
func (t *Tracker) AddIncome(source, amount string, occurredAtMs int64) (string, error) {
	in, err := t.income("", source, amount, occurredAtMs)
	if err != nil {
		return "", err
	}
	if err := t.coord.AddIncome(context.Background(), in); err != nil {
		return "", err
	}
	return in.ID, nil
}

func (t *Tracker) UpdateIncome(id, source, amount string, occurredAtMs int64) error {
	if id == "" {
		return fmt.Errorf("invalid income: %w", core.ErrEmptyID)
	}
	in, err := t.income(id, source, amount, occurredAtMs)
	if err != nil {
		return err
	}
	return t.coord.UpdateIncome(context.Background(), in)
}

func (t *Tracker) DeleteIncome(id string) error {
	if id == "" {
		return fmt.Errorf("invalid income: %w", core.ErrEmptyID)
	}
	return t.coord.DeleteIncome(context.Background(), id)
}

// ExpensesJSON returns the loaded month's expenses, most recent first.
func (t *Tracker) ExpensesJSON() (string, error) {
	return marshal(expenseViews(t.coord.Expenses()))
}

func (t *Tracker) ExpensesInCategoryJSON(category string) (string, error) {
	c := core.Category(category)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidCategory, category)
	}
	return marshal(expenseViews(t.coord.ExpensesInCategory(c)))
}

// IncomesJSON returns the loaded month's income entries, most recent first.
func (t *Tracker) IncomesJSON() (string, error) {
	return marshal(incomeViews(t.coord.Incomes()))
}

func (t *Tracker) MonthlyExpenseTotal(month string) (string, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return "", err
	}
	total, err := t.coord.MonthlyExpenseTotal(context.Background(), m)
	if err != nil {
		return "", err
	}
	return total.String(), nil
}

func (t *Tracker) MonthlyIncomeTotal(month string) (string, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return "", err
	}
	total, err := t.coord.MonthlyIncomeTotal(context.Background(), m)
	if err != nil {
		return "", err
	}
	return total.String(), nil
}

func (t *Tracker) TotalsByCategoryJSON(month string) (string, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return "", err
	}
	totals, err := t.coord.TotalsByCategory(context.Background(), m)
	if err != nil {
		return "", err
	}
	views := make([]categoryTotalView, len(totals))
	for i, ct := range totals {
		views[i] = categoryTotalView{Category: string(ct.Category), Total: ct.Total.String()}
	}
	return marshal(views)
}

// MonthlyExpenseTotalsJSON returns n monthly totals ending at through,
// oldest first. At most services.MaxSeriesMonths are returned.
func (t *Tracker) MonthlyExpenseTotalsJSON(through string, n int) (string, error) {
	m, err := core.ParseMonth(through)
	if err != nil {
		return "", err
	}
	series, err := t.coord.MonthlyExpenseTotals(context.Background(), m, n)
	if err != nil {
		return "", err
	}
	views := make([]monthTotalView, len(series))
	for i, mt := range series {
		views[i] = monthTotalView{Month: mt.Month.String(), Total: mt.Total.String()}
	}
	return marshal(views)
}

func (t *Tracker) GrandTotalExpense() (string, error) {
	total, err := t.coord.GrandTotalExpense(context.Background())
	if err != nil {
		return "", err
	}
	return total.String(), nil
}

func (t *Tracker) GrandTotalIncome() (string, error) {
	total, err := t.coord.GrandTotalIncome(context.Background())
	if err != nil {
		return "", err
	}
	return total.String(), nil
}

func (t *Tracker) SummaryJSON(month string) (string, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return "", err
	}
	s, err := t.coord.Summary(context.Background(), m)
	if err != nil {
		return "", err
	}
	return marshal(summaryView{
		Month:          s.Month.String(),
		Expenses:       s.Expenses.String(),
		Income:         s.Income.String(),
		Balance:        s.Balance.String(),
		Budget:         s.Budget.String(),
		Remaining:      s.Remaining.String(),
		BudgetExceeded: s.BudgetExceeded,
	})
}

func (t *Tracker) SavingsProgressJSON() (string, error) {
	p, err := t.coord.SavingsProgress(context.Background())
	if err != nil {
		return "", err
	}
	return marshal(savingsView{
		Income:   p.Income.String(),
		Expenses: p.Expenses.String(),
		Saved:    p.Saved.String(),
		Goal:     p.Goal.String(),
		Fraction: p.Fraction,
		Defined:  p.Defined,
	})
}

func (t *Tracker) Budget() (string, error) {
	m, err := t.coord.Budget(context.Background())
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

func (t *Tracker) SetBudget(amount string) error {
	m, err := core.ParseMoney(amount)
	if err != nil {
		return fmt.Errorf("invalid budget %q: %w", amount, err)
	}
	return t.coord.SetBudget(context.Background(), m)
}

func (t *Tracker) SavingGoal() (string, error) {
	m, err := t.coord.SavingGoal(context.Background())
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

func (t *Tracker) SetSavingGoal(amount string) error {
	m, err := core.ParseMoney(amount)
	if err != nil {
		return fmt.Errorf("invalid saving goal %q: %w", amount, err)
	}
	return t.coord.SetSavingGoal(context.Background(), m)
}

func (t *Tracker) expense(id, title, amount, category string, occurredAtMs int64) (core.Expense, error) {
	money, err := core.ParseMoney(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("invalid expense amount %q: %w", amount, err)
	}
	at := time.UnixMilli(occurredAtMs).In(t.coord.Location())

	e := core.NewExpense(title, money, core.Category(category), at)
	if id != "" {
		e.ID = id
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("invalid expense: %w", err)
	}
	return e, nil
}

func (t *Tracker) income(id, source, amount string, occurredAtMs int64) (core.Income, error) {
	money, err := core.ParseMoney(amount)
	if err != nil {
		return core.Income{}, fmt.Errorf("invalid income amount %q: %w", amount, err)
	}
	at := time.UnixMilli(occurredAtMs).In(t.coord.Location())

	in := core.NewIncome(source, money, at)
	if id != "" {
		in.ID = id
	}
	if err := in.Validate(); err != nil {
		return core.Income{}, fmt.Errorf("invalid income: %w", err)
	}
	return in, nil
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}
