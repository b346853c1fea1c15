package poolcore

import (
	"sync"

	"github.com/polaris-dbpool/dbpool/pkg/session"
)

var (
	instanceOnce sync.Once
	instance     *Pool
	instanceErr  error
)

// Instance returns the process-wide singleton Pool, performing first-call
// construction with cfg and opener. Concurrent first calls are serialized
// by sync.Once so exactly one initialization occurs; every call (including
// the first) returns whatever the one construction attempt produced.
// The only way Instance fails is if cfg/opener are invalid — a fatal
// condition the caller should treat as unrecoverable, not retry.
//
// Arguments passed on calls after the first are ignored, matching the
// "first call wins" semantics of a lazily-initialized singleton.
func Instance(cfg Config, opener session.Opener, opts ...Option) (*Pool, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = New(cfg, opener, opts...)
	})
	return instance, instanceErr
}

// resetInstanceForTest clears the singleton state. Test-only: production
// code has no legitimate reason to re-initialize the process-wide pool.
func resetInstanceForTest() {
	instanceOnce = sync.Once{}
	instance = nil
	instanceErr = nil
}
