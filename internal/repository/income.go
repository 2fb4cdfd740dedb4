package repository

import (
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

type IncomeRepository struct {
	*Repository[core.Income]
}

func NewIncomeRepository(table ports.IncomeTable, opts Options) *IncomeRepository {
	return &IncomeRepository{
		Repository: newRepository[core.Income](log.ComponentIncome, table, opts),
	}
}
