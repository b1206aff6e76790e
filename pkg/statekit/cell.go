package statekit

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/statekit/statekit/pkg/statekit/observability"
)

// Callback observes a cell's notifications. It receives the value as of
// the previous batch close and the value as of the current one. A
// returned error (or a panic, which is recovered) is collected into the
// batch's *NotificationError without stopping the fan-out.
type Callback[T any] func(prev, cur T) error

// Cell holds one versioned value owned by a Scheduler. Reads, mutations,
// and disposal are serialized through the scheduler's mutex; subscribers
// hold only a non-owning Handle.
type Cell[T any] struct {
	id    string
	sched *Scheduler

	// All fields below are guarded by sched.mu.
	value       T
	version     uint64
	disposed    bool
	updating    bool
	pending     bool
	pendingPrev T
	pendingFrom uint64
	subs        []*subscription[T]
	frozen      []*subscription[T] // delivery set for the current drain round
}

// New creates a cell with the given initial value. Version starts at 0.
func New[T any](s *Scheduler, initial T) *Cell[T] {
	if s == nil {
		panic("statekit: scheduler cannot be nil")
	}
	return &Cell[T]{
		id:    fmt.Sprintf("cell-%s", uuid.New().String()[:8]),
		sched: s,
		value: initial,
	}
}

// ID returns the cell's unique identifier.
func (c *Cell[T]) ID() string {
	return c.id
}

// Value returns the current value. It has no side effects and fails with
// *DisposedError after Dispose.
func (c *Cell[T]) Value() (T, error) {
	c.sched.mu.Lock()
	defer c.sched.mu.Unlock()
	if c.disposed {
		var zero T
		return zero, &DisposedError{CellID: c.id, Op: "read"}
	}
	return c.value, nil
}

// MustValue returns the current value, panicking if the cell is disposed.
func (c *Cell[T]) MustValue() T {
	v, err := c.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// Version returns the mutation counter. It increases by one on every
// successful mutation and never resets while the cell is live.
func (c *Cell[T]) Version() uint64 {
	c.sched.mu.Lock()
	defer c.sched.mu.Unlock()
	return c.version
}

// Disposed reports whether Dispose has been called.
func (c *Cell[T]) Disposed() bool {
	c.sched.mu.Lock()
	defer c.sched.mu.Unlock()
	return c.disposed
}

// Update applies fn to the current value, stores the result, increments
// the version, and marks the cell dirty with the current batch. fn must
// be a pure function of its argument: mutating this cell from inside fn
// fails with *ReentrancyError.
//
// Outside an explicit batch, Update wraps the mutation in an implicit
// single-mutation batch, so subscribers are notified synchronously
// before it returns; a *NotificationError from that fan-out is returned
// alongside the new value.
func (c *Cell[T]) Update(fn func(T) T) (T, error) {
	var zero T
	if fn == nil {
		return zero, ErrNilUpdater
	}
	s := c.sched

	s.mu.Lock()
	if c.disposed {
		s.mu.Unlock()
		return zero, &DisposedError{CellID: c.id, Op: "mutate"}
	}
	if c.updating {
		s.mu.Unlock()
		return zero, &ReentrancyError{CellID: c.id}
	}
	c.updating = true
	cur := c.value
	s.mu.Unlock()

	// The updater runs outside the lock so it can read other cells; a
	// re-entrant Update on this cell sees the updating flag instead of
	// deadlocking. The flag is cleared even when fn panics, so a
	// panicking updater cannot wedge the cell.
	var next T
	func() {
		defer func() {
			s.mu.Lock()
			c.updating = false
			s.mu.Unlock()
		}()
		next = fn(cur)
	}()

	s.mu.Lock()
	if c.disposed {
		s.mu.Unlock()
		return zero, &DisposedError{CellID: c.id, Op: "mutate"}
	}
	c.commitLocked(next)
	version := c.version
	implicit := s.depth == 0 && s.state != stateClosing
	s.mu.Unlock()

	s.metrics.RecordMutation(context.Background(), c.id)
	observability.LogMutation(s.logger, c.id, version)

	if implicit {
		if err := s.drain(); err != nil {
			return next, err
		}
	}
	return next, nil
}

// Set replaces the value unconditionally. It is Update with a constant
// function.
func (c *Cell[T]) Set(v T) (T, error) {
	return c.Update(func(T) T { return v })
}

// ReplaceIf stores v only when the cell's version still equals the given
// one: a compare-and-swap keyed on the version counter. It reports
// whether the swap happened. Like Update, a swap outside an explicit
// batch notifies synchronously before returning.
func (c *Cell[T]) ReplaceIf(version uint64, v T) (bool, error) {
	s := c.sched

	s.mu.Lock()
	if c.disposed {
		s.mu.Unlock()
		return false, &DisposedError{CellID: c.id, Op: "mutate"}
	}
	if c.updating {
		s.mu.Unlock()
		return false, &ReentrancyError{CellID: c.id}
	}
	if c.version != version {
		s.mu.Unlock()
		return false, nil
	}
	c.commitLocked(v)
	newVersion := c.version
	implicit := s.depth == 0 && s.state != stateClosing
	s.mu.Unlock()

	s.metrics.RecordMutation(context.Background(), c.id)
	observability.LogMutation(s.logger, c.id, newVersion)

	if implicit {
		if err := s.drain(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Dispose marks the cell disposed, drops any pending notification for it
// from the current batch, and detaches every subscriber. It is
// idempotent. Further Value, Update, and Subscribe calls fail with
// *DisposedError.
func (c *Cell[T]) Dispose() {
	s := c.sched
	s.mu.Lock()
	if c.disposed {
		s.mu.Unlock()
		return
	}
	c.disposed = true
	c.pending = false
	c.frozen = nil
	s.removeDirtyLocked(c.id)
	for _, sub := range c.subs {
		sub.active = false
		delete(s.handles, sub.handle)
	}
	c.subs = nil
	s.mu.Unlock()
	observability.LogDispose(s.logger, c.id)
}

// commitLocked stores the mutated value and records the cell dirty.
// Coalescing keeps the oldest previous value and version; the newest
// value is whatever the cell holds at batch close. Caller holds sched.mu.
func (c *Cell[T]) commitLocked(next T) {
	if !c.pending {
		c.pending = true
		c.pendingPrev = c.value
		c.pendingFrom = c.version
		c.sched.markDirtyLocked(c)
	}
	c.value = next
	c.version++
}

// cellID implements dirtyCell.
func (c *Cell[T]) cellID() string {
	return c.id
}

// freezeSubsLocked implements dirtyCell: it captures the subscriber set
// the coming delivery targets. Caller holds sched.mu.
func (c *Cell[T]) freezeSubsLocked() {
	c.frozen = make([]*subscription[T], len(c.subs))
	copy(c.frozen, c.subs)
}

// dropPendingLocked implements dirtyCell. Caller holds sched.mu.
func (c *Cell[T]) dropPendingLocked() {
	c.pending = false
	c.frozen = nil
}

// deliver implements dirtyCell: one notification to each subscriber
// that was registered when the round was snapshotted and is still
// active at its delivery slot. Each record's active flag is re-checked
// under the lock immediately before its callback runs, so a mid-fan-out
// Unsubscribe or Dispose takes effect for the remainder of the batch.
func (c *Cell[T]) deliver(ctx context.Context, s *Scheduler, col *collector) {
	s.mu.Lock()
	if c.disposed || !c.pending {
		c.pending = false
		c.frozen = nil
		s.mu.Unlock()
		return
	}
	prev := c.pendingPrev
	from := c.pendingFrom
	cur := c.value
	to := c.version
	c.pending = false
	subs := c.frozen
	c.frozen = nil
	s.mu.Unlock()

	col.cells++
	for _, sub := range subs {
		s.mu.Lock()
		skip := !sub.active || c.disposed
		s.mu.Unlock()
		if skip {
			continue
		}

		start := time.Now()
		err := invoke(sub.fn, prev, cur)
		s.metrics.RecordDelivery(ctx, c.id, time.Since(start), err)
		if err != nil {
			col.add(&SubscriberError{CellID: c.id, Handle: sub.handle, Err: err})
			observability.LogSubscriberError(s.logger, c.id, string(sub.handle), err)
		}
	}
	observability.LogNotification(s.logger, c.id, from, to)
}

// Compile-time interface check.
var _ dirtyCell = (*Cell[any])(nil)

// invoke runs a callback, converting a panic into a *PanicError.
func invoke[T any](fn Callback[T], prev, cur T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(prev, cur)
}
