package poolcore

import "errors"

// ErrAcquireTimeout is returned by Acquire when no session became available
// within the pool's configured acquire timeout. Ordinary and recoverable —
// callers may retry or fall back.
var ErrAcquireTimeout = errors.New("poolcore: acquire timed out waiting for a session")

// ErrShuttingDown is returned by Acquire once the pool has entered teardown.
// Callers must not retry against this pool.
var ErrShuttingDown = errors.New("poolcore: pool is shutting down")

// ErrPoolClosed reports that a pool has finished shutting down. No function
// in this package returns it: Handle operations after shutdown run against
// the borrowed session directly, and Acquire reports ErrShuttingDown.
var ErrPoolClosed = errors.New("poolcore: pool is closed")
