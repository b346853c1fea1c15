// Package session defines the capability a connection pool consumes: a
// single live, authenticated connection to a relational database backend.
// The pool core never imports a concrete driver — it only depends on this
// interface, so the wire protocol and SQL dialect stay swappable.
package session

import "context"

// Result is the outcome of a statement execution, trimmed to the fields
// callers most often need without forcing them through database/sql types.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Session is one live connection to the database backend. Implementations
// are not expected to be safe for concurrent use — the pool guarantees a
// Session is owned by exactly one party (the idle queue, a Handle, or the
// producer/reaper while opening/closing it) at any instant.
type Session interface {
	// Open establishes the underlying connection. Called once, before the
	// Session is ever placed in the idle queue.
	Open(ctx context.Context) error

	// Close tears down the underlying connection. Idempotent.
	Close() error

	// Ping verifies the connection is still usable without mutating state.
	Ping(ctx context.Context) error

	// Execute runs a statement and returns its outcome.
	Execute(ctx context.Context, statement string, args ...any) (Result, error)
}

// Opener constructs and opens a new Session. The pool calls it from the
// producer and from warm-up, never while holding its own mutex.
type Opener func(ctx context.Context) (Session, error)
