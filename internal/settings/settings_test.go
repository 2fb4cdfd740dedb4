package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"expensetracker/internal/core"
	"expensetracker/internal/ports/mocks"
	"expensetracker/internal/storage/memory"
)

func TestService_DefaultsWhenUnset(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New().Settings(), DefaultValues(), nil)

	budget, err := svc.Budget(ctx)
	if err != nil || budget.String() != "2000.00" {
		t.Fatalf("Budget = %s, %v; want 2000.00", budget, err)
	}
	goal, err := svc.SavingGoal(ctx)
	if err != nil || !goal.IsZero() {
		t.Fatalf("SavingGoal = %s, %v; want 0", goal, err)
	}
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New().Settings(), DefaultValues(), nil)

	if err := svc.SetBudget(ctx, core.Money{Cents: 150050}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if err := svc.SetSavingGoal(ctx, core.Money{Cents: 1000000}); err != nil {
		t.Fatalf("SetSavingGoal: %v", err)
	}

	if budget, _ := svc.Budget(ctx); budget.Cents != 150050 {
		t.Fatalf("Budget = %s, want 1500.50", budget)
	}
	if goal, _ := svc.SavingGoal(ctx); goal.Cents != 1000000 {
		t.Fatalf("SavingGoal = %s, want 10000.00", goal)
	}
}

func TestService_WithMockStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(store *mocks.MockSettingsStore)
		call    func(svc *Service) (core.Money, error)
		want    int64
		wantErr bool
	}{
		{
			name: "stored budget",
			setup: func(store *mocks.MockSettingsStore) {
				store.EXPECT().Get(gomock.Any(), KeyMonthlyBudget).
					Return(decimal.RequireFromString("1750.25"), true, nil)
			},
			call: func(svc *Service) (core.Money, error) { return svc.Budget(ctx) },
			want: 175025,
		},
		{
			name: "missing goal falls back",
			setup: func(store *mocks.MockSettingsStore) {
				store.EXPECT().Get(gomock.Any(), KeySavingGoal).Return(decimal.Decimal{}, false, nil)
			},
			call: func(svc *Service) (core.Money, error) { return svc.SavingGoal(ctx) },
			want: 0,
		},
		{
			name: "store error",
			setup: func(store *mocks.MockSettingsStore) {
				store.EXPECT().Get(gomock.Any(), KeyMonthlyBudget).
					Return(decimal.Decimal{}, false, core.NewOperationFailure("get setting", errors.New("locked")))
			},
			call:    func(svc *Service) (core.Money, error) { return svc.Budget(ctx) },
			wantErr: true,
		},
		{
			name: "negative stored value",
			setup: func(store *mocks.MockSettingsStore) {
				store.EXPECT().Get(gomock.Any(), KeyMonthlyBudget).
					Return(decimal.NewFromInt(-5), true, nil)
			},
			call:    func(svc *Service) (core.Money, error) { return svc.Budget(ctx) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockSettingsStore(ctrl)
			tt.setup(store)

			got, err := tt.call(NewService(store, DefaultValues(), nil))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Cents != tt.want {
				t.Fatalf("got %s, want %d cents", got, tt.want)
			}
		})
	}
}

func TestService_SetWritesDecimal(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSettingsStore(ctrl)

	var written decimal.Decimal
	store.EXPECT().
		Set(gomock.Any(), KeySavingGoal, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v decimal.Decimal) error {
			written = v
			return nil
		})

	svc := NewService(store, DefaultValues(), nil)
	if err := svc.SetSavingGoal(ctx, core.Money{Cents: 1234}); err != nil {
		t.Fatalf("SetSavingGoal: %v", err)
	}
	if !written.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("stored %s, want 12.34", written)
	}

	// Rejected before reaching the store.
	if err := svc.SetBudget(ctx, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("SetBudget(-0.01) = %v, want ErrInvalidAmount", err)
	}
}
