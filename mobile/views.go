package mobile

import "expensetracker/internal/core"

type expenseView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Amount       string `json:"amount"`
	Category     string `json:"category"`
	OccurredAtMs int64  `json:"occurred_at_ms"`
}

type incomeView struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Amount       string `json:"amount"`
	OccurredAtMs int64  `json:"occurred_at_ms"`
}

type categoryTotalView struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type monthTotalView struct {
	Month string `json:"month"`
	Total string `json:"total"`
}

type summaryView struct {
	Month          string `json:"month"`
	Expenses       string `json:"expenses"`
	Income         string `json:"income"`
	Balance        string `json:"balance"`
	Budget         string `json:"budget"`
	Remaining      string `json:"remaining"`
	BudgetExceeded bool   `json:"budget_exceeded"`
}

type savingsView struct {
	Income   string  `json:"income"`
	Expenses string  `json:"expenses"`
	Saved    string  `json:"saved"`
	Goal     string  `json:"goal"`
	Fraction float64 `json:"fraction"`
	Defined  bool    `json:"defined"`
}

func expenseViews(expenses []core.Expense) []expenseView {
	views := make([]expenseView, len(expenses))
	for i, e := range expenses {
		views[i] = expenseView{
			ID:           e.ID,
			Title:        e.Title,
			Amount:       e.Amount.String(),
			Category:     string(e.Category),
			OccurredAtMs: e.OccurredAt.UnixMilli(),
		}
	}
	return views
}

func incomeViews(incomes []core.Income) []incomeView {
	views := make([]incomeView, len(incomes))
	for i, in := range incomes {
		views[i] = incomeView{
			ID:           in.ID,
			Source:       in.Source,
			Amount:       in.Amount.String(),
			OccurredAtMs: in.OccurredAt.UnixMilli(),
		}
	}
	return views
}
