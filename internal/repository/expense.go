package repository

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

type ExpenseRepository struct {
	*Repository[core.Expense]
	expenses ports.ExpenseTable
}

func NewExpenseRepository(table ports.ExpenseTable, opts Options) *ExpenseRepository {
	return &ExpenseRepository{
		Repository: newRepository[core.Expense](log.ComponentExpense, table, opts),
		expenses:   table,
	}
}

// TotalsByCategory returns one total per category with at least one expense
// in month, largest first, ties by category label ascending.
func (r *ExpenseRepository) TotalsByCategory(ctx context.Context, month core.Month, loc *time.Location) ([]core.CategoryTotal, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	iv := core.Bounds(month, loc)
	totals, err := r.expenses.SumByCategory(ctx, iv)
	if err != nil {
		return nil, fmt.Errorf("category totals %s: %w", month, err)
	}
	r.logger.DebugContext(ctx, "Category totals computed", log.NewFields().
		WithOperation(log.OpAggregate).WithMonth(month).WithInterval(iv).
		With(log.FieldCount, len(totals)).ToSlice()...)
	return totals, nil
}

// InCategory filters the mirror by category, keeping its order.
func (r *ExpenseRepository) InCategory(c core.Category) []core.Expense {
	var out []core.Expense
	for _, e := range r.Items() {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}
