package statekit

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Handle is the opaque identifier returned by Subscribe. Its only use is
// Scheduler.Unsubscribe.
type Handle string

// subscription is one entry in a cell's ordered subscriber list. A
// removed subscription is deactivated, never mutated in place: the
// record survives so an in-flight fan-out holding it sees active=false.
type subscription[T any] struct {
	handle Handle
	cell   *Cell[T]
	fn     Callback[T]
	active bool // guarded by the scheduler mutex
}

// Compile-time interface check.
var _ subscriberRecord = (*subscription[any])(nil)

// deactivateLocked implements subscriberRecord. Caller holds the
// scheduler mutex.
func (s *subscription[T]) deactivateLocked() {
	s.active = false
	c := s.cell
	for i, sub := range c.subs {
		if sub == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Subscribe registers a callback on the cell. Callbacks are delivered in
// exact registration order, unaffected by subscribe/unsubscribe churn on
// other cells. Fails with *DisposedError on a disposed cell.
func Subscribe[T any](c *Cell[T], fn Callback[T]) (Handle, error) {
	if fn == nil {
		return "", ErrNilCallback
	}
	s := c.sched

	s.mu.Lock()
	if c.disposed {
		s.mu.Unlock()
		return "", &DisposedError{CellID: c.id, Op: "subscribe"}
	}
	sub := &subscription[T]{
		handle: Handle(fmt.Sprintf("sub-%s", uuid.New().String()[:8])),
		cell:   c,
		fn:     fn,
		active: true,
	}
	c.subs = append(c.subs, sub)
	s.handles[sub.handle] = sub
	s.mu.Unlock()

	s.logger.Debug("subscriber added",
		slog.String("cell_id", c.id),
		slog.String("handle", string(sub.handle)),
	)
	return sub.handle, nil
}
