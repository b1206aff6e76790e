package statekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for scheduler and cell misuse.
var (
	// ErrNilUpdater indicates Update was called with a nil function.
	ErrNilUpdater = errors.New("updater cannot be nil")

	// ErrNilCallback indicates Subscribe was called with a nil callback.
	ErrNilCallback = errors.New("callback cannot be nil")

	// ErrNoOpenBatch indicates End was called without a matching Begin.
	ErrNoOpenBatch = errors.New("no open batch")

	// ErrMaxDrainRounds indicates subscriber callbacks kept mutating cells
	// until the drain round limit was hit.
	ErrMaxDrainRounds = errors.New("exceeded maximum drain rounds")
)

// DisposedError indicates an operation on a disposed cell.
// It is a programmer error and is never retried.
type DisposedError struct {
	// CellID identifies the disposed cell.
	CellID string
	// Op is the operation that was attempted ("read", "mutate", "subscribe").
	Op string
}

// Error implements the error interface.
func (e *DisposedError) Error() string {
	return fmt.Sprintf("cell %s: %s on disposed cell", e.CellID, e.Op)
}

// ReentrancyError indicates a mutation was attempted while the cell's
// own updater was still running.
type ReentrancyError struct {
	// CellID identifies the cell being re-entered.
	CellID string
}

// Error implements the error interface.
func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("cell %s: re-entrant mutation", e.CellID)
}

// SubscriberError records a single failed notification delivery.
type SubscriberError struct {
	// CellID is the cell whose notification failed.
	CellID string
	// Handle identifies the failing subscriber.
	Handle Handle
	// Err is the error returned (or panic recovered) from the callback.
	Err error
}

// Error implements the error interface.
func (e *SubscriberError) Error() string {
	return fmt.Sprintf("cell %s: subscriber %s: %v", e.CellID, e.Handle, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SubscriberError) Unwrap() error {
	return e.Err
}

// NotificationError aggregates every subscriber failure collected during
// one batch drain. It is surfaced once, after all deliveries have been
// attempted; a failing subscriber never prevents the others from being
// notified.
type NotificationError struct {
	// Failures holds one entry per failed delivery, in delivery order.
	Failures []*SubscriberError
}

// Error implements the error interface.
func (e *NotificationError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("notification failed: %v", e.Failures[0])
	}
	return fmt.Sprintf("notification failed: %d subscriber errors (first: %v)",
		len(e.Failures), e.Failures[0])
}

// Unwrap returns the individual failures for errors.Is/As support.
func (e *NotificationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// PanicError captures panic information from a subscriber callback.
// It includes the stack trace for debugging.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("subscriber panicked: %v", e.Value)
}
