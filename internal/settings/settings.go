// Package settings reads and writes the user's monthly budget and saving goal.
package settings

import (
	"context"
	"fmt"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// Keys in the settings store.
const (
	KeyMonthlyBudget = "monthly_budget"
	KeySavingGoal    = "saving_goal"
)

// Defaults apply when a key has never been written.
type Defaults struct {
	MonthlyBudget core.Money
	SavingGoal    core.Money
}

func DefaultValues() Defaults {
	return Defaults{
		MonthlyBudget: core.Money{Cents: 200000},
	}
}

type Service struct {
	store    ports.SettingsStore
	defaults Defaults
	logger   *log.Logger
}

func NewService(store ports.SettingsStore, defaults Defaults, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		store:    store,
		defaults: defaults,
		logger:   logger.WithComponent(log.ComponentSettings),
	}
}

func (s *Service) Budget(ctx context.Context) (core.Money, error) {
	return s.get(ctx, KeyMonthlyBudget, s.defaults.MonthlyBudget)
}

func (s *Service) SetBudget(ctx context.Context, m core.Money) error {
	return s.set(ctx, KeyMonthlyBudget, m)
}

func (s *Service) SavingGoal(ctx context.Context) (core.Money, error) {
	return s.get(ctx, KeySavingGoal, s.defaults.SavingGoal)
}

func (s *Service) SetSavingGoal(ctx context.Context, m core.Money) error {
	return s.set(ctx, KeySavingGoal, m)
}

func (s *Service) get(ctx context.Context, key string, fallback core.Money) (core.Money, error) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return core.Money{}, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return fallback, nil
	}
	m := core.MoneyFromDecimal(value)
	if err := m.Validate(); err != nil {
		return core.Money{}, fmt.Errorf("read %s=%s: %w", key, value, err)
	}
	return m, nil
}

func (s *Service) set(ctx context.Context, key string, m core.Money) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, m.Decimal()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save setting", "key", key, log.FieldError, err)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
