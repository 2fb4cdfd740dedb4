package log

import "expensetracker/internal/core"

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldError           = "error"
	FieldOperation       = "operation"
	FieldKind            = "kind"
	FieldRecordID        = "id"
	FieldAmountCents     = "amount_cents"
	FieldCategory        = "category"
	FieldMonth           = "month"
	FieldIntervalStart   = "interval_start_ms"
	FieldIntervalEnd     = "interval_end_ms"
	FieldCount           = "count"
	FieldRowsAffected    = "rows_affected"
	FieldVersion         = "version"
	FieldDuration        = "duration_ms"
	FieldFailedOperation = "failed_operation"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentExpense     = "expense"
	ComponentIncome      = "income"
	ComponentStorage     = "storage"
	ComponentSettings    = "settings"
	ComponentCoordinator = "coordinator"
	ComponentCache       = "cache"
	ComponentBackend     = "backend"
	ComponentMobile      = "mobile"
)

// Operations defines standard operation names
const (
	OpLoad      = "load"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpTotal     = "total"
	OpAggregate = "aggregate"
	OpReconcile = "reconcile"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecord adds the record kind and identifier
func (f LogFields) WithRecord(kind, id string) LogFields {
	f[FieldKind] = kind
	f[FieldRecordID] = id
	return f
}

// WithAmount adds the amount in cents
func (f LogFields) WithAmount(m core.Money) LogFields {
	f[FieldAmountCents] = m.Cents
	return f
}

// WithMonth adds the month in "2006-01" form
func (f LogFields) WithMonth(m core.Month) LogFields {
	f[FieldMonth] = m.String()
	return f
}

// WithInterval adds the interval bounds
func (f LogFields) WithInterval(iv core.Interval) LogFields {
	f[FieldIntervalStart] = iv.Start
	f[FieldIntervalEnd] = iv.End
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
