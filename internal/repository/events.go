package repository

import "sync"

// EventKind says what happened to a mirror.
type EventKind int

const (
	EventLoaded EventKind = iota + 1
	EventAdded
	EventUpdated
	EventDeleted
	// EventReconcile follows a durable write that failed after the mirror
	// had already been changed. The mirror has been restored.
	EventReconcile
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	case EventReconcile:
		return "reconcile"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after the mirror changes.
type Event struct {
	Kind    EventKind
	ID      string // empty for EventLoaded
	Version uint64
	Err     error // set for EventReconcile
}

// Dispatcher runs callbacks one at a time in the order they were pushed.
// Flush is called once the pusher has released its locks, so a callback
// may call back into whoever pushed it. A Flush that finds another Flush
// in progress returns at once and leaves the work to it.
type Dispatcher struct {
	mu      sync.Mutex
	pending []func()
	running bool
}

func (d *Dispatcher) Push(fn func()) {
	d.mu.Lock()
	d.pending = append(d.pending, fn)
	d.mu.Unlock()
}

func (d *Dispatcher) Flush() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	for len(d.pending) > 0 {
		batch := d.pending
		d.pending = nil
		d.mu.Unlock()
		for _, fn := range batch {
			fn()
		}
		d.mu.Lock()
	}
	d.running = false
	d.mu.Unlock()
}

type observer struct {
	id uint64
	fn func(Event)
}

// observers is an ordered observer list. Events are queued while the
// repository operation lock is held and delivered by flush.
type observers struct {
	mu     sync.Mutex
	next   uint64
	active []observer

	dispatch Dispatcher
}

func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	o.next++
	id := o.next
	o.active = append(o.active, observer{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, obs := range o.active {
				if obs.id == id {
					o.active = append(o.active[:i:i], o.active[i+1:]...)
					return
				}
			}
		})
	}
}

// queue schedules ev for whoever is subscribed when it is delivered.
func (o *observers) queue(ev Event) {
	o.dispatch.Push(func() {
		o.mu.Lock()
		snapshot := append([]observer(nil), o.active...)
		o.mu.Unlock()

		for _, obs := range snapshot {
			obs.fn(ev)
		}
	})
}

func (o *observers) flush() { o.dispatch.Flush() }
