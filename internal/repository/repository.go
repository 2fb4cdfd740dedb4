// Package repository keeps an in-memory mirror of one month of records in
// step with the storage engine.
package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// Options configures a repository. The zero value is usable.
type Options struct {
	Logger *log.Logger
	// Totals memoizes MonthlyTotal per interval. Nil disables it.
	Totals cache.Cache[core.Money]
}

// Repository mediates reads and writes of one record kind.
//
// Operations are serialized: a second call waits until the first has
// finished its storage round-trip. Readers of the mirror (Items, Version,
// Loaded) never wait on storage. Observers are called after the operation
// lock is released, so they may call back into the repository.
type Repository[R core.Record] struct {
	kind   string
	table  ports.Table[R]
	logger *log.Logger
	totals cache.Cache[core.Money]

	opMu sync.Mutex

	mu      sync.RWMutex
	items   []R
	loaded  core.Interval
	isSet   bool
	version uint64

	obs observers
}

func newRepository[R core.Record](kind string, table ports.Table[R], opts Options) *Repository[R] {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Repository[R]{
		kind:   kind,
		table:  table,
		logger: logger.WithComponent(kind),
		totals: opts.Totals,
	}
}

// Items returns a copy of the mirror, most recent first after a load.
func (r *Repository[R]) Items() []R {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

// Find looks an identifier up in the mirror.
func (r *Repository[R]) Find(id string) (R, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero R
	return zero, false
}

// Version is bumped on every mirror change.
func (r *Repository[R]) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Loaded returns the interval of the last successful LoadMonth.
func (r *Repository[R]) Loaded() (core.Interval, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded, r.isSet
}

// Subscribe registers fn for mirror events. The returned func unregisters it.
func (r *Repository[R]) Subscribe(fn func(Event)) func() {
	return r.obs.subscribe(fn)
}

// LoadMonth replaces the mirror with the records stored for month in loc.
// On failure the previous mirror is kept.
func (r *Repository[R]) LoadMonth(ctx context.Context, month core.Month, loc *time.Location) error {
	defer r.obs.flush()
	r.opMu.Lock()
	defer r.opMu.Unlock()

	iv := core.Bounds(month, loc)
	rows, err := r.table.ListRange(ctx, iv)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load month", log.NewFields().
			WithOperation(log.OpLoad).WithMonth(month).WithError(err).ToSlice()...)
		return fmt.Errorf("load %s %s: %w", r.kind, month, err)
	}
	for i := range rows {
		rows[i] = core.InZone(rows[i], loc)
	}

	r.mu.Lock()
	r.items = rows
	r.loaded = iv
	r.isSet = true
	r.version++
	version := r.version
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "Month loaded", log.NewFields().
		WithOperation(log.OpLoad).WithMonth(month).
		With(log.FieldCount, len(rows)).With(log.FieldVersion, version).ToSlice()...)

	r.obs.queue(Event{Kind: EventLoaded, Version: version})
	return nil
}

// Add appends rec to the mirror, then inserts it durably. The mirror may
// hold a record outside the loaded interval until the next LoadMonth.
func (r *Repository[R]) Add(ctx context.Context, rec R) error {
	defer r.obs.flush()
	r.opMu.Lock()
	defer r.opMu.Unlock()

	snapshot, changed := r.apply(EventAdded, rec.RecordID(), func(items []R) ([]R, bool) {
		return append(items, rec), true
	})

	if err := r.table.Insert(ctx, rec); err != nil {
		r.reconcile(ctx, snapshot, changed, rec.RecordID(), log.OpCreate, err)
		return fmt.Errorf("add %s %s: %w", r.kind, rec.RecordID(), err)
	}

	r.purgeTotals()
	return nil
}

// Update replaces the mirror entry with the same identifier in place, then
// writes durably. An identifier missing from the mirror or from storage is
// not an error.
func (r *Repository[R]) Update(ctx context.Context, rec R) error {
	defer r.obs.flush()
	r.opMu.Lock()
	defer r.opMu.Unlock()

	id := rec.RecordID()
	snapshot, changed := r.apply(EventUpdated, id, func(items []R) ([]R, bool) {
		i := slices.IndexFunc(items, func(item R) bool { return item.RecordID() == id })
		if i < 0 {
			return items, false
		}
		items[i] = rec
		return items, true
	})

	n, err := r.table.Update(ctx, rec)
	if err != nil {
		r.reconcile(ctx, snapshot, changed, id, log.OpUpdate, err)
		return fmt.Errorf("update %s %s: %w", r.kind, id, err)
	}

	r.logger.DebugContext(ctx, "Record updated", log.NewFields().
		WithOperation(log.OpUpdate).WithRecord(r.kind, id).
		With(log.FieldRowsAffected, n).ToSlice()...)

	r.purgeTotals()
	return nil
}

// Delete removes every mirror entry with id, then deletes durably. A missing
// identifier is not an error.
func (r *Repository[R]) Delete(ctx context.Context, id string) error {
	defer r.obs.flush()
	r.opMu.Lock()
	defer r.opMu.Unlock()

	snapshot, changed := r.apply(EventDeleted, id, func(items []R) ([]R, bool) {
		before := len(items)
		items = slices.DeleteFunc(items, func(item R) bool { return item.RecordID() == id })
		return items, len(items) != before
	})

	n, err := r.table.Delete(ctx, id)
	if err != nil {
		r.reconcile(ctx, snapshot, changed, id, log.OpDelete, err)
		return fmt.Errorf("delete %s %s: %w", r.kind, id, err)
	}

	r.logger.DebugContext(ctx, "Record deleted", log.NewFields().
		WithOperation(log.OpDelete).WithRecord(r.kind, id).
		With(log.FieldRowsAffected, n).ToSlice()...)

	r.purgeTotals()
	return nil
}

// MonthlyTotal sums the stored amounts for month in loc. Storage is the
// source of truth, not the mirror.
func (r *Repository[R]) MonthlyTotal(ctx context.Context, month core.Month, loc *time.Location) (core.Money, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	iv := core.Bounds(month, loc)
	key := r.kind + ":" + iv.String()
	if r.totals != nil {
		if total, ok := r.totals.Get(key); ok {
			return total, nil
		}
	}

	total, err := r.table.SumRange(ctx, iv)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s total %s: %w", r.kind, month, err)
	}
	r.logger.DebugContext(ctx, "Monthly total computed", log.NewFields().
		WithOperation(log.OpTotal).WithMonth(month).WithInterval(iv).
		WithAmount(total).ToSlice()...)

	if r.totals != nil {
		r.totals.Set(key, total)
	}
	return total, nil
}

// apply runs fn on a working copy of the mirror. When fn reports a change,
// the copy becomes the mirror and observers are told. It returns the
// previous mirror so a failed write can restore it.
func (r *Repository[R]) apply(kind EventKind, id string, fn func([]R) ([]R, bool)) ([]R, bool) {
	r.mu.Lock()
	snapshot := r.items
	next, changed := fn(slices.Clone(r.items))
	if !changed {
		r.mu.Unlock()
		return snapshot, false
	}
	r.items = next
	r.version++
	version := r.version
	r.mu.Unlock()

	r.obs.queue(Event{Kind: kind, ID: id, Version: version})
	return snapshot, true
}

func (r *Repository[R]) reconcile(ctx context.Context, snapshot []R, changed bool, id, op string, cause error) {
	r.mu.Lock()
	if changed {
		r.items = snapshot
	}
	r.version++
	version := r.version
	r.mu.Unlock()

	r.logger.WarnContext(ctx, "Durable write failed, mirror restored", log.NewFields().
		WithOperation(log.OpReconcile).WithRecord(r.kind, id).WithError(cause).
		With(log.FieldFailedOperation, op).With(log.FieldVersion, version).ToSlice()...)

	r.obs.queue(Event{Kind: EventReconcile, ID: id, Version: version, Err: cause})
}

func (r *Repository[R]) purgeTotals() {
	if r.totals != nil {
		r.totals.Purge()
	}
}
