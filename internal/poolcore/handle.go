package poolcore

import (
	"context"
	"sync"

	"github.com/polaris-dbpool/dbpool/pkg/session"
)

// noCopy makes `go vet`'s copylocks check flag accidental copies of Handle,
// the same trick sync.WaitGroup uses. A Handle is a scoped, exclusive
// borrow; copying it would let two callers believe they each own the
// underlying session.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Handle is a scoped, exclusive borrow of a Session. Its Close method is
// the sole release path back to the pool — there is no finalizer and no
// shared-ownership fallback, so a leaked Handle leaks its session until the
// process exits (callers are expected to defer Close immediately after a
// successful Acquire).
type Handle struct {
	_    noCopy
	once sync.Once

	pool *Pool
	sess session.Session
}

// Execute runs a statement against the borrowed session.
func (h *Handle) Execute(ctx context.Context, statement string, args ...any) (session.Result, error) {
	return h.sess.Execute(ctx, statement, args...)
}

// Ping verifies the borrowed session is still reachable.
func (h *Handle) Ping(ctx context.Context) error {
	return h.sess.Ping(ctx)
}

// Close returns the session to the pool (or closes it, if the pool has
// shut down). Idempotent — calling it more than once is a no-op after the
// first call.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.pool.release(h.sess)
	})
	return nil
}
