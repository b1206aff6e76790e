// Package statekit provides an observable state container: versioned
// state cells whose mutations are coalesced into batches and fanned out
// to subscribers in registration order.
//
// The three collaborators are:
//   - Cell: a single versioned value with read, mutate, and CAS operations
//   - Scheduler: owns the batch lifecycle and drives notification fan-out
//   - subscriptions: ordered per-cell observer lists with opaque handles
//
// A mutation marks its cell dirty with the scheduler's current batch.
// When the outermost batch closes, each dirty cell delivers exactly one
// (previous, current) notification per live subscriber, no matter how
// many times it was mutated inside the batch. A mutation outside any
// explicit batch is wrapped in an implicit single-mutation batch, so it
// notifies synchronously before returning.
//
// Subscriber failures never abort a fan-out: they are collected and
// surfaced once per batch as a *NotificationError.
//
// Design influences: observer lists with explicit ownership and opaque
// handles, and reactive signal graphs (dirty marking with coalesced
// recomputation).
package statekit
