package models

import "time"

// OpKind classifies a pending operation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// PendingOperation is a durable queue entry describing one outstanding
// remote mutation for a record. It is created when a record becomes dirty
// or tombstoned, removed on confirmed remote success, and retained with an
// incremented retry count on failure.
type PendingOperation struct {
	LocalID    string
	Kind       OpKind
	EnqueuedAt time.Time

	// RetryCount counts consecutive failed attempts.
	RetryCount int

	// LastError holds the reason of the most recent failure, if any.
	LastError string

	// NotBefore gates retries of operations on a backoff (used for deletes
	// that failed with a permanent error).
	NotBefore time.Time
}

// Due reports whether the operation may be attempted at the given time.
func (op *PendingOperation) Due(now time.Time) bool {
	return op.NotBefore.IsZero() || !now.Before(op.NotBefore)
}
