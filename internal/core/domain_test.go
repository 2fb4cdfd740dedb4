package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 12 {
		t.Fatalf("expected 12 categories, got %d", len(cats))
	}
	if cats[0] != Housing || cats[11] != Others {
		t.Fatalf("unexpected order: %v", cats)
	}
	cats[0] = "mutated"
	if Categories()[0] != Housing {
		t.Fatalf("Categories must return a copy")
	}
	if Category("Rent").IsValid() {
		t.Fatalf("unknown category reported valid")
	}
}

func TestNewExpenseAssignsUniqueIDs(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := NewExpense("Rent", Money{Cents: 120000}, Housing, at)
	b := NewExpense("Rent", Money{Cents: 120000}, Housing, at)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
}

func TestExpenseValidate(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := Expense{ID: "e1", Title: "ok", Amount: Money{Cents: 100}, Category: Groceries, OccurredAt: at}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zeroAmount := good
	zeroAmount.Amount = Money{}
	if err := zeroAmount.Validate(); err != nil {
		t.Fatalf("zero amount should be valid, got %v", err)
	}

	tests := []struct {
		name string
		mut  func(e *Expense)
		want error
	}{
		{"empty id", func(e *Expense) { e.ID = "" }, ErrEmptyID},
		{"blank title", func(e *Expense) { e.Title = "   " }, ErrEmptyTitle},
		{"long title", func(e *Expense) { e.Title = strings.Repeat("x", 201) }, ErrTextTooLong},
		{"negative amount", func(e *Expense) { e.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"unknown category", func(e *Expense) { e.Category = "Rent" }, ErrInvalidCategory},
		{"zero date", func(e *Expense) { e.OccurredAt = time.Time{} }, ErrZeroDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := good
			tt.mut(&e)
			if err := e.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIncomeValidate(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := NewIncome("Salary", Money{Cents: 300000}, at)
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Source = ""
	if err := bad.Validate(); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("Validate() = %v, want %v", err, ErrEmptySource)
	}
}
