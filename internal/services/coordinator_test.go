package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/repository"
	"expensetracker/internal/settings"
	"expensetracker/internal/storage/memory"
)

type fixture struct {
	store *memory.Store
	coord *Coordinator
}

// newFixture pins the clock to 2024-06-15 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	config := DefaultCoordinatorConfig()
	config.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	coord := NewCoordinator(
		repository.NewExpenseRepository(store.Expenses(), repository.Options{}),
		repository.NewIncomeRepository(store.Incomes(), repository.Options{}),
		settings.NewService(store.Settings(), settings.DefaultValues(), nil),
		config,
	)
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return &fixture{store: store, coord: coord}
}

func expense(id string, cents int64, cat core.Category, at time.Time) core.Expense {
	return core.Expense{ID: id, Title: id, Amount: core.Money{Cents: cents}, Category: cat, OccurredAt: at}
}

func income(id string, cents int64, at time.Time) core.Income {
	return core.Income{ID: id, Source: id, Amount: core.Money{Cents: cents}, OccurredAt: at}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestCoordinator_GrandTotalSumsEveryMonthSinceEpoch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Non-zero in three non-adjacent months, zero elsewhere.
	seed := []core.Expense{
		expense("feb23", 10000, core.Groceries, day(2023, time.February, 3)),
		expense("sep23a", 2550, core.Shopping, day(2023, time.September, 1)),
		expense("sep23b", 450, core.DiningOut, day(2023, time.September, 30)),
		expense("apr24", 99999, core.Housing, day(2024, time.April, 15)),
		// Before the epoch and after the current month: not counted.
		expense("dec22", 777, core.Others, day(2022, time.December, 31)),
		expense("jul24", 888, core.Others, day(2024, time.July, 1)),
	}
	for _, e := range seed {
		if err := f.coord.AddExpense(ctx, e); err != nil {
			t.Fatalf("AddExpense(%s): %v", e.ID, err)
		}
	}

	got, err := f.coord.GrandTotalExpense(ctx)
	if err != nil {
		t.Fatalf("GrandTotalExpense: %v", err)
	}

	var want core.Money
	epoch := core.NewMonth(2023, time.January)
	for m := epoch; !m.After(core.NewMonth(2024, time.June)); m = m.Next() {
		total, err := f.coord.MonthlyExpenseTotal(ctx, m)
		if err != nil {
			t.Fatalf("MonthlyExpenseTotal(%s): %v", m, err)
		}
		want = want.Add(total)
	}

	if got != want || got.Cents != 10000+2550+450+99999 {
		t.Fatalf("GrandTotalExpense = %s, want %s", got, want)
	}

	income, err := f.coord.GrandTotalIncome(ctx)
	if err != nil || !income.IsZero() {
		t.Fatalf("GrandTotalIncome = %s, %v; want 0", income, err)
	}
}

func TestCoordinator_GrandTotalZeroWhenEpochInFuture(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	config := DefaultCoordinatorConfig()
	config.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	config.Epoch = core.NewMonth(2024, time.July)

	coord := NewCoordinator(
		repository.NewExpenseRepository(store.Expenses(), repository.Options{}),
		repository.NewIncomeRepository(store.Incomes(), repository.Options{}),
		settings.NewService(store.Settings(), settings.DefaultValues(), nil),
		config,
	)
	if err := coord.AddExpense(ctx, expense("x", 100, core.Others, day(2024, time.June, 10))); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	expenses, income, err := coord.GrandTotals(ctx)
	if err != nil || !expenses.IsZero() || !income.IsZero() {
		t.Fatalf("GrandTotals = %s, %s, %v; want zeros", expenses, income, err)
	}
}

func TestCoordinator_GrandTotalLogsMonthCount(t *testing.T) {
	store := memory.New()
	var buf bytes.Buffer
	config := DefaultCoordinatorConfig()
	config.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	config.Logger = log.New(log.Config{Level: slog.LevelDebug, Output: &buf})

	coord := NewCoordinator(
		repository.NewExpenseRepository(store.Expenses(), repository.Options{}),
		repository.NewIncomeRepository(store.Incomes(), repository.Options{}),
		settings.NewService(store.Settings(), settings.DefaultValues(), nil),
		config,
	)
	if _, err := coord.GrandTotalExpense(context.Background()); err != nil {
		t.Fatalf("GrandTotalExpense: %v", err)
	}

	// 2023-01 through 2024-06.
	out := buf.String()
	if !strings.Contains(out, "count=18") || !strings.Contains(out, "operation=total") {
		t.Fatalf("grand total log = %q", out)
	}
}

func TestCoordinator_MonthSelectionReloads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if got := f.coord.Month(); got != core.NewMonth(2024, time.June) {
		t.Fatalf("initial month = %s, want 2024-06", got)
	}

	for _, e := range []core.Expense{
		expense("feb", 100, core.Others, day(2024, time.February, 10)),
		expense("mar", 200, core.Others, day(2024, time.March, 10)),
		expense("jun", 300, core.Others, day(2024, time.June, 10)),
	} {
		if err := f.coord.AddExpense(ctx, e); err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
	}
	if err := f.coord.AddIncome(ctx, income("salary", 300000, day(2024, time.March, 25))); err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	// Mutations reload the selected month, so only June is visible.
	if got := ids(f.coord.Expenses()); !slices.Equal(got, []string{"jun"}) {
		t.Fatalf("June mirror = %v", got)
	}
	if n := len(f.coord.Incomes()); n != 0 {
		t.Fatalf("June income mirror has %d items", n)
	}

	if err := f.coord.SetMonth(ctx, core.NewMonth(2024, time.March)); err != nil {
		t.Fatalf("SetMonth: %v", err)
	}
	if got := ids(f.coord.Expenses()); !slices.Equal(got, []string{"mar"}) {
		t.Fatalf("March mirror = %v", got)
	}
	if n := len(f.coord.Incomes()); n != 1 {
		t.Fatalf("March income mirror has %d items, want 1", n)
	}

	if err := f.coord.PrevMonth(ctx); err != nil {
		t.Fatalf("PrevMonth: %v", err)
	}
	if got := ids(f.coord.Expenses()); f.coord.Month() != core.NewMonth(2024, time.February) || !slices.Equal(got, []string{"feb"}) {
		t.Fatalf("after PrevMonth: month %s, mirror %v", f.coord.Month(), got)
	}

	if err := f.coord.NextMonth(ctx); err != nil {
		t.Fatalf("NextMonth: %v", err)
	}
	if f.coord.Month() != core.NewMonth(2024, time.March) {
		t.Fatalf("after NextMonth: month %s", f.coord.Month())
	}
}

func TestCoordinator_FailedMutationIsReconciled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e := expense("dup", 500, core.Groceries, day(2024, time.June, 1))
	if err := f.coord.AddExpense(ctx, e); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	err := f.coord.AddExpense(ctx, e)
	if err == nil {
		t.Fatalf("duplicate AddExpense succeeded")
	}
	if !core.IsStorageFailure(err) || core.IsFatal(err) {
		t.Fatalf("expected recoverable storage failure, got %v", err)
	}

	stored, _ := f.store.Expenses().ListRange(ctx, core.Bounds(f.coord.Month(), time.UTC))
	if got := ids(f.coord.Expenses()); !slices.Equal(got, ids(stored)) {
		t.Fatalf("mirror %v != storage %v", got, ids(stored))
	}
}

func TestCoordinator_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e := expense("lunch", 1200, core.DiningOut, day(2024, time.June, 3))
	in := income("gift", 5000, day(2024, time.June, 4))
	if err := f.coord.AddExpense(ctx, e); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if err := f.coord.AddIncome(ctx, in); err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	// Moving an expense out of the selected month drops it from the mirror.
	e.OccurredAt = day(2024, time.May, 3)
	if err := f.coord.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if n := len(f.coord.Expenses()); n != 0 {
		t.Fatalf("mirror still holds the moved expense")
	}

	in.Amount = core.Money{Cents: 7500}
	if err := f.coord.UpdateIncome(ctx, in); err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}
	if got, ok := f.coord.FindIncome("gift"); !ok || got.Amount.Cents != 7500 {
		t.Fatalf("FindIncome = %+v, %v", got, ok)
	}

	if err := f.coord.DeleteIncome(ctx, "gift"); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	if err := f.coord.DeleteExpense(ctx, "lunch"); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := f.coord.DeleteExpense(ctx, "never-existed"); err != nil {
		t.Fatalf("DeleteExpense missing: %v", err)
	}

	may, _ := f.coord.MonthlyExpenseTotal(ctx, core.NewMonth(2024, time.May))
	june, _ := f.coord.MonthlyIncomeTotal(ctx, core.NewMonth(2024, time.June))
	if !may.IsZero() || !june.IsZero() {
		t.Fatalf("totals after delete: may=%s june=%s", may, june)
	}
}

func TestCoordinator_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- f.coord.AddExpense(ctx, expense(fmt.Sprintf("e%02d", i), 100, core.Groceries,
				day(2024, time.June, 1+i%28)))
		}()
		go func() {
			defer wg.Done()
			errs <- f.coord.AddIncome(ctx, income(fmt.Sprintf("i%02d", i), 100, day(2024, time.June, 1+i%28)))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("mutation: %v", err)
		}
	}

	stored, _ := f.store.Expenses().ListRange(ctx, core.Bounds(f.coord.Month(), time.UTC))
	if got := ids(f.coord.Expenses()); len(got) != n || !slices.Equal(got, ids(stored)) {
		t.Fatalf("expense mirror (%d) does not match storage (%d)", len(got), len(stored))
	}
	if got := len(f.coord.Incomes()); got != n {
		t.Fatalf("income mirror has %d items, want %d", got, n)
	}
	if total, _ := f.coord.MonthlyExpenseTotal(ctx, f.coord.Month()); total.Cents != 100*n {
		t.Fatalf("MonthlyExpenseTotal = %s", total)
	}
}

func TestCoordinator_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	june := core.NewMonth(2024, time.June)

	if err := f.coord.AddExpense(ctx, expense("rent", 210000, core.Housing, day(2024, time.June, 1))); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if err := f.coord.AddIncome(ctx, income("salary", 300000, day(2024, time.June, 25))); err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	s, err := f.coord.Summary(ctx, june)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !s.BudgetExceeded || s.Remaining.Cents != -10000 || s.Balance.Cents != 90000 || s.Budget.Cents != 200000 {
		t.Fatalf("unexpected summary %+v", s)
	}

	if err := f.coord.SetBudget(ctx, core.Money{Cents: 210000}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	s, _ = f.coord.Summary(ctx, june)
	if s.BudgetExceeded || !s.Remaining.IsZero() {
		t.Fatalf("spending exactly the budget should not exceed it: %+v", s)
	}
}

func TestCoordinator_SavingsProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		goal        int64
		income      int64
		spent       int64
		wantDefined bool
		wantFrac    float64
	}{
		{"zero goal", 0, 300000, 100000, false, 0},
		{"half way", 100000, 300000, 250000, true, 0.5},
		{"overspent", 100000, 100000, 250000, true, 0},
		{"goal reached", 100000, 500000, 100000, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.coord.SetSavingGoal(ctx, core.Money{Cents: tt.goal}); err != nil {
				t.Fatalf("SetSavingGoal: %v", err)
			}
			if err := f.coord.AddIncome(ctx, income("in", tt.income, day(2023, time.May, 1))); err != nil {
				t.Fatalf("AddIncome: %v", err)
			}
			if err := f.coord.AddExpense(ctx, expense("out", tt.spent, core.Others, day(2024, time.January, 1))); err != nil {
				t.Fatalf("AddExpense: %v", err)
			}

			p, err := f.coord.SavingsProgress(ctx)
			if err != nil {
				t.Fatalf("SavingsProgress: %v", err)
			}
			if p.Defined != tt.wantDefined || p.Fraction != tt.wantFrac {
				t.Fatalf("progress = %+v, want defined=%v fraction=%v", p, tt.wantDefined, tt.wantFrac)
			}
			if p.Saved.Cents != tt.income-tt.spent {
				t.Fatalf("Saved = %s", p.Saved)
			}
		})
	}
}

func TestCoordinator_MonthlyExpenseTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.coord.AddExpense(ctx, expense("may", 500, core.Others, day(2024, time.May, 5))); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	series, err := f.coord.MonthlyExpenseTotals(ctx, core.NewMonth(2024, time.June), 3)
	if err != nil {
		t.Fatalf("MonthlyExpenseTotals: %v", err)
	}
	want := []core.MonthTotal{
		{Month: core.NewMonth(2024, time.April)},
		{Month: core.NewMonth(2024, time.May), Total: core.Money{Cents: 500}},
		{Month: core.NewMonth(2024, time.June)},
	}
	if !slices.Equal(series, want) {
		t.Fatalf("series = %+v, want %+v", series, want)
	}

	if series, _ := f.coord.MonthlyExpenseTotals(ctx, core.NewMonth(2024, time.June), 0); series != nil {
		t.Fatalf("n=0 should yield nil, got %v", series)
	}

	series, err = f.coord.MonthlyExpenseTotals(ctx, core.NewMonth(2024, time.June), 1_000_000)
	if err != nil {
		t.Fatalf("MonthlyExpenseTotals(huge n): %v", err)
	}
	if len(series) != MaxSeriesMonths {
		t.Fatalf("len = %d, want %d", len(series), MaxSeriesMonths)
	}
	if first := series[0].Month; first != core.NewMonth(2014, time.July) {
		t.Fatalf("first month = %s, want 2014-07", first)
	}
	if last := series[len(series)-1]; last.Month != core.NewMonth(2024, time.June) {
		t.Fatalf("last month = %s, want 2024-06", last.Month)
	}
}

func TestCoordinator_SubscribeForwardsBothKinds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var mu sync.Mutex
	seen := map[string]int{}
	stop := f.coord.Subscribe(func(kind string, ev repository.Event) {
		mu.Lock()
		seen[kind]++
		mu.Unlock()
	})
	defer stop()

	if err := f.coord.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen["expense"] != 1 || seen["income"] != 1 {
		t.Fatalf("events per kind = %v", seen)
	}
}

func TestCoordinator_SubscriberMayCallBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		mu     sync.Mutex
		events []string
		nested error
	)
	stop := f.coord.Subscribe(func(kind string, ev repository.Event) {
		mu.Lock()
		events = append(events, kind+":"+ev.Kind.String())
		mu.Unlock()
		if ev.Kind == repository.EventAdded {
			nested = f.coord.Refresh(ctx)
		}
	})
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- f.coord.AddExpense(ctx, expense("lunch", 1200, core.DiningOut, day(2024, time.June, 3)))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AddExpense blocked by a subscriber calling Refresh")
	}
	if nested != nil {
		t.Fatalf("nested Refresh: %v", nested)
	}

	mu.Lock()
	defer mu.Unlock()
	// added and the mutation's own reload come first, then the nested
	// Refresh's two loads in either order.
	if len(events) != 4 || events[0] != "expense:added" || events[1] != "expense:loaded" {
		t.Fatalf("events = %v", events)
	}
	if !slices.Contains(events[2:], "expense:loaded") || !slices.Contains(events[2:], "income:loaded") {
		t.Fatalf("nested refresh events = %v", events[2:])
	}
}

func ids[R core.Record](items []R) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.RecordID()
	}
	return out
}
