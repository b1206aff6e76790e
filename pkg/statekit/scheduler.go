package statekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/statekit/statekit/pkg/statekit/observability"
)

// batchState tracks where the scheduler is in the batch lifecycle.
type batchState int

const (
	// stateReady means no batch is open; the next Begin or implicit
	// mutation starts one.
	stateReady batchState = iota

	// stateOpen means at least one explicit batch is open.
	stateOpen

	// stateClosing means the outermost batch has closed and the dirty
	// set is being drained.
	stateClosing
)

// String returns the state name.
func (s batchState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// dirtyCell is the untyped view the scheduler keeps of a dirty Cell[T].
type dirtyCell interface {
	cellID() string
	freezeSubsLocked()
	deliver(ctx context.Context, s *Scheduler, col *collector)
	dropPendingLocked()
}

// subscriberRecord is the untyped view the scheduler keeps of a
// subscription, so Unsubscribe works across cells of different types.
type subscriberRecord interface {
	deactivateLocked()
}

// collector accumulates per-subscriber failures during a drain.
type collector struct {
	failures []*SubscriberError
	cells    int
}

func (c *collector) add(err *SubscriberError) {
	c.failures = append(c.failures, err)
}

// Scheduler owns the batch lifecycle for a set of cells. All cells
// created against one scheduler share its mutex: mutations, dirty-set
// snapshots, and subscriber-list edits are serialized, while updaters
// and callbacks run outside the lock.
//
// The zero value is not usable; create one with NewScheduler.
type Scheduler struct {
	mu       sync.Mutex
	state    batchState
	depth    int
	dirty    []dirtyCell // first-dirty order
	dirtySet map[string]struct{}
	handles  map[Handle]subscriberRecord

	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	maxRounds int
}

// NewScheduler creates a scheduler with the given options.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		dirtySet:  make(map[string]struct{}),
		handles:   make(map[Handle]subscriberRecord),
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		maxRounds: DefaultMaxDrainRounds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin opens a batch. Nested Begin calls only increase the nesting
// depth; fan-out happens at the outermost End.
func (s *Scheduler) Begin() {
	s.mu.Lock()
	s.depth++
	if s.state == stateReady {
		s.state = stateOpen
	}
	s.mu.Unlock()
}

// End closes the innermost batch. The outermost End snapshots the dirty
// set and delivers exactly one notification per dirty cell to every
// still-active subscriber, in subscription order. Subscriber failures
// are aggregated into a *NotificationError; they never stop the drain.
//
// Returns ErrNoOpenBatch when no batch is open.
func (s *Scheduler) End() error {
	s.mu.Lock()
	if s.depth == 0 {
		s.mu.Unlock()
		return ErrNoOpenBatch
	}
	s.depth--
	if s.depth > 0 {
		s.mu.Unlock()
		return nil
	}
	closing := s.state == stateClosing
	s.mu.Unlock()
	if closing {
		// End reached from inside a callback; the running drain picks up
		// anything still dirty on its next round.
		return nil
	}
	return s.drain()
}

// Batch runs fn inside a Begin/End pair. The error from fn and the
// fan-out error from End are both reported.
func (s *Scheduler) Batch(fn func() error) error {
	s.Begin()
	err := fn()
	return errors.Join(err, s.End())
}

// InBatch reports whether an explicit batch is currently open.
func (s *Scheduler) InBatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth > 0
}

// Unsubscribe removes a subscriber. It is idempotent: unknown or
// already-removed handles are a no-op. Removal takes effect immediately,
// even while a fan-out is in progress.
func (s *Scheduler) Unsubscribe(h Handle) {
	s.mu.Lock()
	rec, ok := s.handles[h]
	if ok {
		rec.deactivateLocked()
		delete(s.handles, h)
	}
	s.mu.Unlock()
	if ok {
		s.logger.Debug("subscriber removed", slog.String("handle", string(h)))
	}
}

// markDirtyLocked records a cell in the dirty set, preserving
// first-dirty order. Caller holds s.mu.
func (s *Scheduler) markDirtyLocked(c dirtyCell) {
	id := c.cellID()
	if _, ok := s.dirtySet[id]; ok {
		return
	}
	s.dirtySet[id] = struct{}{}
	s.dirty = append(s.dirty, c)
}

// removeDirtyLocked drops a cell's pending entry. Caller holds s.mu.
func (s *Scheduler) removeDirtyLocked(id string) {
	if _, ok := s.dirtySet[id]; !ok {
		return
	}
	delete(s.dirtySet, id)
	for i, c := range s.dirty {
		if c.cellID() == id {
			s.dirty = append(s.dirty[:i], s.dirty[i+1:]...)
			return
		}
	}
}

// drain snapshots and delivers the dirty set until it is empty.
// Mutations performed by callbacks land in the next round; the round
// count is bounded by maxRounds to stop runaway cascades.
func (s *Scheduler) drain() error {
	s.mu.Lock()
	if s.state == stateClosing {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosing
	s.mu.Unlock()

	start := time.Now()
	ctx, span := s.spans.StartDrainSpan(context.Background())
	observability.LogDrainStart(s.logger)

	col := &collector{}
	rounds := 0
	var limitErr error
	for {
		s.mu.Lock()
		if len(s.dirty) == 0 {
			s.state = stateReady
			s.mu.Unlock()
			break
		}
		if rounds >= s.maxRounds {
			// Drop what is left; delivering it would only feed the cascade.
			for _, c := range s.dirty {
				c.dropPendingLocked()
			}
			s.dirty = nil
			s.dirtySet = make(map[string]struct{})
			s.state = stateReady
			s.mu.Unlock()
			limitErr = fmt.Errorf("%w (limit %d)", ErrMaxDrainRounds, s.maxRounds)
			break
		}
		rounds++
		snapshot := s.dirty
		s.dirty = nil
		s.dirtySet = make(map[string]struct{})
		// Delivery targets the subscriber set as of this round's
		// snapshot; a subscriber added by a callback later in the round
		// only sees subsequent rounds.
		for _, c := range snapshot {
			c.freezeSubsLocked()
		}
		s.mu.Unlock()

		for _, c := range snapshot {
			c.deliver(ctx, s, col)
		}
	}

	duration := time.Since(start)
	err := drainError(limitErr, col)
	s.metrics.RecordDrain(ctx, rounds, col.cells, duration, err)
	s.spans.EndSpanWithError(span, err)
	observability.LogDrainComplete(s.logger, rounds, col.cells,
		float64(duration.Milliseconds()), len(col.failures))
	return err
}

// drainError combines the round-limit error and collected subscriber
// failures into the value End returns.
func drainError(limitErr error, col *collector) error {
	var notifErr error
	if len(col.failures) > 0 {
		notifErr = &NotificationError{Failures: col.failures}
	}
	if limitErr != nil {
		return errors.Join(limitErr, notifErr)
	}
	return notifErr
}
