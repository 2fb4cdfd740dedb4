package core

// CategoryTotal is the summed amount of one category over an interval.
type CategoryTotal struct {
	Category Category
	Total    Money
}

// MonthTotal is one bar of a monthly series.
type MonthTotal struct {
	Month Month
	Total Money
}

// MonthSummary is a compact overview of a month against the budget.
type MonthSummary struct {
	Month          Month
	Expenses       Money
	Income         Money
	Balance        Money // Income - Expenses
	Budget         Money
	Remaining      Money // Budget - Expenses, may be negative
	BudgetExceeded bool
}

// SavingsProgress compares cumulative savings with the saving goal.
type SavingsProgress struct {
	Income   Money
	Expenses Money
	Saved    Money
	Goal     Money
	// Fraction is Saved/Goal clamped to [0, 1]. It is 0 when Defined is false.
	Fraction float64
	// Defined is false when the goal is zero.
	Defined bool
}

// SumCategoryTotals adds up a category breakdown.
func SumCategoryTotals(totals []CategoryTotal) Money {
	var sum Money
	for _, t := range totals {
		sum = sum.Add(t.Total)
	}
	return sum
}
