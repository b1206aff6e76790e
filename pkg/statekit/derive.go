package statekit

// Derived is a read-only view computed from a source cell. It recomputes
// once per batch in which the source was notified, so a burst of source
// mutations inside one batch produces a single derived update.
type Derived[U any] struct {
	cell *Cell[U]
	src  Handle
}

// Derive creates a derived view of src. The derived value is seeded from
// the source's current value and recomputed on every source
// notification, participating in the same batch discipline as any other
// mutation. Fails with *DisposedError if src is already disposed.
func Derive[T, U any](src *Cell[T], fn func(T) U) (*Derived[U], error) {
	if fn == nil {
		return nil, ErrNilUpdater
	}
	seed, err := src.Value()
	if err != nil {
		return nil, err
	}
	out := New(src.sched, fn(seed))
	h, err := Subscribe(src, func(_ T, cur T) error {
		_, setErr := out.Set(fn(cur))
		return setErr
	})
	if err != nil {
		out.Dispose()
		return nil, err
	}
	return &Derived[U]{cell: out, src: h}, nil
}

// ID returns the identifier of the backing cell.
func (d *Derived[U]) ID() string {
	return d.cell.ID()
}

// Value returns the current derived value.
func (d *Derived[U]) Value() (U, error) {
	return d.cell.Value()
}

// MustValue returns the current derived value, panicking if the view is
// disposed.
func (d *Derived[U]) MustValue() U {
	return d.cell.MustValue()
}

// Version returns the backing cell's version counter.
func (d *Derived[U]) Version() uint64 {
	return d.cell.Version()
}

// Subscribe registers a callback on the derived view.
func (d *Derived[U]) Subscribe(fn Callback[U]) (Handle, error) {
	return Subscribe(d.cell, fn)
}

// Dispose detaches the view from its source and disposes the backing
// cell. Idempotent.
func (d *Derived[U]) Dispose() {
	d.cell.sched.Unsubscribe(d.src)
	d.cell.Dispose()
}

// Disposed reports whether Dispose has been called.
func (d *Derived[U]) Disposed() bool {
	return d.cell.Disposed()
}
