package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Expense struct {
	ID           string
	Title        string
	AmountCents  int64
	Category     string
	OccurredAtMs int64
}

type Income struct {
	ID           string
	Source       string
	AmountCents  int64
	OccurredAtMs int64
}

type CategorySum struct {
	Category   string
	TotalCents int64
}

type RangeParams struct {
	StartMs int64
	EndMs   int64
}

const createExpense = `
INSERT INTO expenses (id, title, amount_cents, category, occurred_at_ms)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateExpense(ctx context.Context, arg Expense) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID,
		arg.Title,
		arg.AmountCents,
		arg.Category,
		arg.OccurredAtMs,
	)
	return err
}

const updateExpense = `
UPDATE expenses
SET title = ?, amount_cents = ?, category = ?, occurred_at_ms = ?
WHERE id = ?
`

func (q *Queries) UpdateExpense(ctx context.Context, arg Expense) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense,
		arg.Title,
		arg.AmountCents,
		arg.Category,
		arg.OccurredAtMs,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `
DELETE FROM expenses WHERE id = ?
`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listExpensesByRange = `
SELECT id, title, amount_cents, category, occurred_at_ms
FROM expenses
WHERE occurred_at_ms >= ? AND occurred_at_ms < ?
ORDER BY occurred_at_ms DESC, id ASC
`

func (q *Queries) ListExpensesByRange(ctx context.Context, arg RangeParams) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByRange, arg.StartMs, arg.EndMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.AmountCents,
			&i.Category,
			&i.OccurredAtMs,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumExpensesByRange = `
SELECT COALESCE(SUM(amount_cents), 0)
FROM expenses
WHERE occurred_at_ms >= ? AND occurred_at_ms < ?
`

func (q *Queries) SumExpensesByRange(ctx context.Context, arg RangeParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumExpensesByRange, arg.StartMs, arg.EndMs)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const sumExpensesByCategory = `
SELECT category, SUM(amount_cents) AS total_cents
FROM expenses
WHERE occurred_at_ms >= ? AND occurred_at_ms < ?
GROUP BY category
ORDER BY total_cents DESC, category ASC
`

func (q *Queries) SumExpensesByCategory(ctx context.Context, arg RangeParams) ([]CategorySum, error) {
	rows, err := q.db.QueryContext(ctx, sumExpensesByCategory, arg.StartMs, arg.EndMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySum
	for rows.Next() {
		var i CategorySum
		if err := rows.Scan(&i.Category, &i.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createIncome = `
INSERT INTO income (id, source, amount_cents, occurred_at_ms)
VALUES (?, ?, ?, ?)
`

func (q *Queries) CreateIncome(ctx context.Context, arg Income) error {
	_, err := q.db.ExecContext(ctx, createIncome,
		arg.ID,
		arg.Source,
		arg.AmountCents,
		arg.OccurredAtMs,
	)
	return err
}

const updateIncome = `
UPDATE income
SET source = ?, amount_cents = ?, occurred_at_ms = ?
WHERE id = ?
`

func (q *Queries) UpdateIncome(ctx context.Context, arg Income) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateIncome,
		arg.Source,
		arg.AmountCents,
		arg.OccurredAtMs,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteIncome = `
DELETE FROM income WHERE id = ?
`

func (q *Queries) DeleteIncome(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteIncome, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listIncomeByRange = `
SELECT id, source, amount_cents, occurred_at_ms
FROM income
WHERE occurred_at_ms >= ? AND occurred_at_ms < ?
ORDER BY occurred_at_ms DESC, id ASC
`

func (q *Queries) ListIncomeByRange(ctx context.Context, arg RangeParams) ([]Income, error) {
	rows, err := q.db.QueryContext(ctx, listIncomeByRange, arg.StartMs, arg.EndMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Income
	for rows.Next() {
		var i Income
		if err := rows.Scan(
			&i.ID,
			&i.Source,
			&i.AmountCents,
			&i.OccurredAtMs,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumIncomeByRange = `
SELECT COALESCE(SUM(amount_cents), 0)
FROM income
WHERE occurred_at_ms >= ? AND occurred_at_ms < ?
`

func (q *Queries) SumIncomeByRange(ctx context.Context, arg RangeParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumIncomeByRange, arg.StartMs, arg.EndMs)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const getSetting = `
SELECT value FROM settings WHERE key = ?
`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getSetting, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const upsertSetting = `
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}
