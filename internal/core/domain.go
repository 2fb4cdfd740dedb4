package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Expense categories. The list is fixed; the order is the one shown to the user.
const (
	Housing              Category = "Housing"
	Utilities            Category = "Utilities"
	Groceries            Category = "Groceries"
	Transportation       Category = "Transportation"
	DiningOut            Category = "Dining Out"
	Shopping             Category = "Shopping"
	HealthAndInsurance   Category = "Health & Insurance"
	Entertainment        Category = "Entertainment"
	Education            Category = "Education"
	Subscriptions        Category = "Subscriptions"
	SavingsAndInvestment Category = "Savings & Investments"
	Others               Category = "Others"
)

type (
	Category string

	Expense struct {
		ID         string    `validate:"required"`
		Title      string    `validate:"notblank,max=200"`
		Amount     Money     `validate:"-"`
		Category   Category  `validate:"category"`
		OccurredAt time.Time `validate:"required"`
	}

	Income struct {
		ID         string    `validate:"required"`
		Source     string    `validate:"notblank,max=200"`
		Amount     Money     `validate:"-"`
		OccurredAt time.Time `validate:"required"`
	}

	// Record is what a repository mirror holds.
	Record interface {
		Expense | Income
		RecordID() string
		Occurred() time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyID         = errors.New("empty identifier")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptySource     = errors.New("empty source")
	ErrTextTooLong     = errors.New("text too long (max 200 characters)")
	ErrInvalidCategory = errors.New("invalid category")
	ErrZeroDate        = errors.New("date cannot be zero")
)

var categories = []Category{
	Housing, Utilities, Groceries, Transportation, DiningOut, Shopping,
	HealthAndInsurance, Entertainment, Education, Subscriptions, SavingsAndInvestment, Others,
}

// Categories returns the fixed category list in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// IsValid reports whether c is one of the fixed categories.
func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// NewExpense builds an expense with a freshly assigned identifier.
func NewExpense(title string, amount Money, category Category, occurredAt time.Time) Expense {
	return Expense{
		ID:         uuid.NewString(),
		Title:      title,
		Amount:     amount,
		Category:   category,
		OccurredAt: occurredAt,
	}
}

// NewIncome builds an income entry with a freshly assigned identifier.
func NewIncome(source string, amount Money, occurredAt time.Time) Income {
	return Income{
		ID:         uuid.NewString(),
		Source:     source,
		Amount:     amount,
		OccurredAt: occurredAt,
	}
}

func (e Expense) RecordID() string    { return e.ID }
func (e Expense) Occurred() time.Time { return e.OccurredAt }

func (i Income) RecordID() string    { return i.ID }
func (i Income) Occurred() time.Time { return i.OccurredAt }

// InZone returns r with its occurrence instant expressed in loc.
// The instant itself does not change.
func InZone[R Record](r R, loc *time.Location) R {
	loc = zoneOrUTC(loc)
	switch v := any(&r).(type) {
	case *Expense:
		v.OccurredAt = v.OccurredAt.In(loc)
	case *Income:
		v.OccurredAt = v.OccurredAt.In(loc)
	}
	return r
}

func (e Expense) Validate() error {
	if err := validateStruct(e); err != nil {
		return err
	}
	return e.Amount.Validate()
}

func (i Income) Validate() error {
	if err := validateStruct(i); err != nil {
		return err
	}
	return i.Amount.Validate()
}
