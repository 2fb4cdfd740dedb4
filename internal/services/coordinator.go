package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/repository"
	"expensetracker/internal/settings"
)

// CoordinatorConfig holds configuration for the coordinator
type CoordinatorConfig struct {
	// Location is the zone months are bucketed in (default: UTC)
	Location *time.Location

	// Epoch is the first month counted by the grand totals (default: 2023-01)
	Epoch core.Month

	// Now reports the current instant (default: time.Now)
	Now func() time.Time

	Logger *log.Logger
}

// DefaultCoordinatorConfig returns sensible defaults
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Location: time.UTC,
		Epoch:    core.NewMonth(2023, time.January),
		Now:      time.Now,
	}
}

// Coordinator holds the selected month and sequences every user action
// against the two repositories.
//
// A mutation and the reload of the selected month that follows it run under
// the same per-repository lock, so a reload can never land after a newer
// mutation's reload. Expense and income work may proceed in parallel.
type Coordinator struct {
	expenses *repository.ExpenseRepository
	incomes  *repository.IncomeRepository
	settings *settings.Service
	config   CoordinatorConfig
	logger   *log.Logger

	monthMu sync.RWMutex
	month   core.Month

	expenseSeq sync.Mutex
	incomeSeq  sync.Mutex

	events repository.Dispatcher
}

// NewCoordinator selects the current month. Call Refresh to load it.
func NewCoordinator(
	expenses *repository.ExpenseRepository,
	incomes *repository.IncomeRepository,
	settingsSvc *settings.Service,
	config CoordinatorConfig,
) *Coordinator {
	defaults := DefaultCoordinatorConfig()
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.Epoch == (core.Month{}) {
		config.Epoch = defaults.Epoch
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &Coordinator{
		expenses: expenses,
		incomes:  incomes,
		settings: settingsSvc,
		config:   config,
		logger:   logger.WithComponent(log.ComponentCoordinator),
		month:    core.MonthOf(config.Now(), config.Location),
	}
}

func (c *Coordinator) Location() *time.Location { return c.config.Location }

// CurrentMonth is the calendar month of the clock, regardless of selection.
func (c *Coordinator) CurrentMonth() core.Month {
	return core.MonthOf(c.config.Now(), c.config.Location)
}

// Month returns the selected month.
func (c *Coordinator) Month() core.Month {
	c.monthMu.RLock()
	defer c.monthMu.RUnlock()
	return c.month
}

// SetMonth selects m and reloads both repositories.
func (c *Coordinator) SetMonth(ctx context.Context, m core.Month) error {
	c.monthMu.Lock()
	c.month = m
	c.monthMu.Unlock()

	c.logger.DebugContext(ctx, "Month selected", log.NewFields().WithMonth(m).ToSlice()...)
	return c.Refresh(ctx)
}

func (c *Coordinator) PrevMonth(ctx context.Context) error {
	return c.shiftMonth(ctx, -1)
}

func (c *Coordinator) NextMonth(ctx context.Context) error {
	return c.shiftMonth(ctx, 1)
}

func (c *Coordinator) shiftMonth(ctx context.Context, n int) error {
	c.monthMu.Lock()
	c.month = c.month.AddMonths(n)
	m := c.month
	c.monthMu.Unlock()

	c.logger.DebugContext(ctx, "Month selected", log.NewFields().WithMonth(m).ToSlice()...)
	return c.Refresh(ctx)
}

// Refresh reloads the selected month into both repositories concurrently.
func (c *Coordinator) Refresh(ctx context.Context) error {
	defer c.events.Flush()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.expenseSeq.Lock()
		defer c.expenseSeq.Unlock()
		return c.reloadExpenses(ctx)
	})
	g.Go(func() error {
		c.incomeSeq.Lock()
		defer c.incomeSeq.Unlock()
		return c.reloadIncomes(ctx)
	})
	return g.Wait()
}

// The selected month is read under the sequence lock so the last reload
// always targets the latest selection.
func (c *Coordinator) reloadExpenses(ctx context.Context) error {
	return c.expenses.LoadMonth(ctx, c.Month(), c.config.Location)
}

func (c *Coordinator) reloadIncomes(ctx context.Context) error {
	return c.incomes.LoadMonth(ctx, c.Month(), c.config.Location)
}

// sequenced runs mutate then reload while holding mu. The reload runs even
// when mutate failed so the mirror goes back to what storage holds.
func (c *Coordinator) sequenced(ctx context.Context, mu *sync.Mutex, op string, mutate func() error, reload func(context.Context) error) error {
	defer c.events.Flush()
	mu.Lock()
	defer mu.Unlock()

	err := mutate()
	if err != nil {
		c.logger.WarnContext(ctx, "Mutation failed", log.NewFields().
			WithOperation(op).WithError(err).ToSlice()...)
	}
	if loadErr := reload(ctx); loadErr != nil {
		err = errors.Join(err, loadErr)
	}
	return err
}

func (c *Coordinator) AddExpense(ctx context.Context, e core.Expense) error {
	return c.sequenced(ctx, &c.expenseSeq, log.OpCreate,
		func() error { return c.expenses.Add(ctx, e) }, c.reloadExpenses)
}

func (c *Coordinator) UpdateExpense(ctx context.Context, e core.Expense) error {
	return c.sequenced(ctx, &c.expenseSeq, log.OpUpdate,
		func() error { return c.expenses.Update(ctx, e) }, c.reloadExpenses)
}

func (c *Coordinator) DeleteExpense(ctx context.Context, id string) error {
	return c.sequenced(ctx, &c.expenseSeq, log.OpDelete,
		func() error { return c.expenses.Delete(ctx, id) }, c.reloadExpenses)
}

func (c *Coordinator) AddIncome(ctx context.Context, i core.Income) error {
	return c.sequenced(ctx, &c.incomeSeq, log.OpCreate,
		func() error { return c.incomes.Add(ctx, i) }, c.reloadIncomes)
}

func (c *Coordinator) UpdateIncome(ctx context.Context, i core.Income) error {
	return c.sequenced(ctx, &c.incomeSeq, log.OpUpdate,
		func() error { return c.incomes.Update(ctx, i) }, c.reloadIncomes)
}

func (c *Coordinator) DeleteIncome(ctx context.Context, id string) error {
	return c.sequenced(ctx, &c.incomeSeq, log.OpDelete,
		func() error { return c.incomes.Delete(ctx, id) }, c.reloadIncomes)
}

// Expenses returns the loaded expenses, most recent first.
func (c *Coordinator) Expenses() []core.Expense { return c.expenses.Items() }

// Incomes returns the loaded income entries, most recent first.
func (c *Coordinator) Incomes() []core.Income { return c.incomes.Items() }

func (c *Coordinator) ExpensesInCategory(cat core.Category) []core.Expense {
	return c.expenses.InCategory(cat)
}

// FindExpense looks id up among the loaded expenses.
func (c *Coordinator) FindExpense(id string) (core.Expense, bool) { return c.expenses.Find(id) }

// FindIncome looks id up among the loaded income entries.
func (c *Coordinator) FindIncome(id string) (core.Income, bool) { return c.incomes.Find(id) }

// Subscribe forwards events from both repositories. kind is
// log.ComponentExpense or log.ComponentIncome.
//
// Events reach fn in order once the call that caused them has released its
// locks, so fn may call back into the coordinator. Events raised by such a
// nested call are delivered after fn returns.
func (c *Coordinator) Subscribe(fn func(kind string, ev repository.Event)) func() {
	var stopped atomic.Bool
	forward := func(kind string) func(repository.Event) {
		return func(ev repository.Event) {
			c.events.Push(func() {
				if !stopped.Load() {
					fn(kind, ev)
				}
			})
		}
	}

	stopExpenses := c.expenses.Subscribe(forward(log.ComponentExpense))
	stopIncomes := c.incomes.Subscribe(forward(log.ComponentIncome))
	return func() {
		stopped.Store(true)
		stopExpenses()
		stopIncomes()
	}
}

func (c *Coordinator) MonthlyExpenseTotal(ctx context.Context, m core.Month) (core.Money, error) {
	return c.expenses.MonthlyTotal(ctx, m, c.config.Location)
}

func (c *Coordinator) MonthlyIncomeTotal(ctx context.Context, m core.Month) (core.Money, error) {
	return c.incomes.MonthlyTotal(ctx, m, c.config.Location)
}

func (c *Coordinator) TotalsByCategory(ctx context.Context, m core.Month) ([]core.CategoryTotal, error) {
	return c.expenses.TotalsByCategory(ctx, m, c.config.Location)
}

type monthlyTotalFunc func(context.Context, core.Month, *time.Location) (core.Money, error)

// grandTotal sums monthly one month at a time from the epoch through the
// current month inclusive. It is zero when the epoch lies in the future.
func (c *Coordinator) grandTotal(ctx context.Context, monthly monthlyTotalFunc) (core.Money, error) {
	current := c.CurrentMonth()
	start := time.Now()
	var total core.Money
	for m := c.config.Epoch; !m.After(current); m = m.Next() {
		t, err := monthly(ctx, m, c.config.Location)
		if err != nil {
			return core.Money{}, fmt.Errorf("grand total at %s: %w", m, err)
		}
		total = total.Add(t)
	}

	c.logger.DebugContext(ctx, "Grand total computed", log.NewFields().
		WithOperation(log.OpTotal).WithMonth(current).WithAmount(total).
		With(log.FieldCount, c.config.Epoch.MonthsUntil(current)).
		With(log.FieldDuration, time.Since(start).Milliseconds()).ToSlice()...)
	return total, nil
}

func (c *Coordinator) GrandTotalExpense(ctx context.Context) (core.Money, error) {
	return c.grandTotal(ctx, c.expenses.MonthlyTotal)
}

func (c *Coordinator) GrandTotalIncome(ctx context.Context) (core.Money, error) {
	return c.grandTotal(ctx, c.incomes.MonthlyTotal)
}

// GrandTotals computes both grand totals concurrently.
func (c *Coordinator) GrandTotals(ctx context.Context) (expenses, income core.Money, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = c.GrandTotalExpense(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		income, err = c.GrandTotalIncome(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Money{}, core.Money{}, err
	}
	return expenses, income, nil
}

// MaxSeriesMonths bounds the length of MonthlyExpenseTotals.
const MaxSeriesMonths = 120

// MonthlyExpenseTotals returns the n months ending at through, oldest first.
// n is capped at MaxSeriesMonths.
func (c *Coordinator) MonthlyExpenseTotals(ctx context.Context, through core.Month, n int) ([]core.MonthTotal, error) {
	if n <= 0 {
		return nil, nil
	}
	n = min(n, MaxSeriesMonths)
	series := make([]core.MonthTotal, 0, n)
	for m := through.AddMonths(1 - n); !m.After(through); m = m.Next() {
		total, err := c.expenses.MonthlyTotal(ctx, m, c.config.Location)
		if err != nil {
			return nil, fmt.Errorf("monthly series at %s: %w", m, err)
		}
		series = append(series, core.MonthTotal{Month: m, Total: total})
	}
	return series, nil
}

// Summary compares month m with the monthly budget.
func (c *Coordinator) Summary(ctx context.Context, m core.Month) (core.MonthSummary, error) {
	expenses, err := c.MonthlyExpenseTotal(ctx, m)
	if err != nil {
		return core.MonthSummary{}, err
	}
	income, err := c.MonthlyIncomeTotal(ctx, m)
	if err != nil {
		return core.MonthSummary{}, err
	}
	budget, err := c.settings.Budget(ctx)
	if err != nil {
		return core.MonthSummary{}, err
	}

	return core.MonthSummary{
		Month:          m,
		Expenses:       expenses,
		Income:         income,
		Balance:        income.Sub(expenses),
		Budget:         budget,
		Remaining:      budget.Sub(expenses),
		BudgetExceeded: expenses.Cents > budget.Cents,
	}, nil
}

// SavingsProgress compares everything saved since the epoch with the goal.
func (c *Coordinator) SavingsProgress(ctx context.Context) (core.SavingsProgress, error) {
	expenses, income, err := c.GrandTotals(ctx)
	if err != nil {
		return core.SavingsProgress{}, err
	}
	goal, err := c.settings.SavingGoal(ctx)
	if err != nil {
		return core.SavingsProgress{}, err
	}

	p := core.SavingsProgress{
		Income:   income,
		Expenses: expenses,
		Saved:    income.Sub(expenses),
		Goal:     goal,
	}
	if goal.IsZero() {
		return p, nil
	}

	p.Defined = true
	fraction := p.Saved.Decimal().Div(goal.Decimal()).InexactFloat64()
	p.Fraction = min(max(fraction, 0), 1)
	return p, nil
}

func (c *Coordinator) Budget(ctx context.Context) (core.Money, error) {
	return c.settings.Budget(ctx)
}

func (c *Coordinator) SetBudget(ctx context.Context, m core.Money) error {
	return c.settings.SetBudget(ctx, m)
}

func (c *Coordinator) SavingGoal(ctx context.Context) (core.Money, error) {
	return c.settings.SavingGoal(ctx)
}

func (c *Coordinator) SetSavingGoal(ctx context.Context, m core.Money) error {
	return c.settings.SetSavingGoal(ctx, m)
}
