// Package poolcore implements the bounded connection pool: the idle queue,
// the mutex/condition-variable protocol coordinating consumers, the
// on-demand producer, and the idle-timeout reaper.
package poolcore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/polaris-dbpool/dbpool/pkg/session"
)

// Pool is a bounded, multi-producer/multi-consumer pool of database
// sessions. The zero Pool is not usable; construct one with New.
type Pool struct {
	name string

	opener         session.Opener
	initSize       int
	maxSize        int
	maxIdleTime    time.Duration
	acquireTimeout time.Duration
	openTimeout    time.Duration

	recorder Recorder

	mu           sync.Mutex
	cond         *sync.Cond
	idle         *idleQueue
	liveCount    int
	shuttingDown bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option customizes Pool construction.
type Option func(*Pool)

// WithRecorder attaches a Recorder for metrics/telemetry observation.
func WithRecorder(r Recorder) Option {
	return func(p *Pool) { p.recorder = r }
}

// WithOpenTimeout bounds how long a single session open (by the producer or
// during warm-up) is allowed to take. Defaults to 10s.
func WithOpenTimeout(d time.Duration) Option {
	return func(p *Pool) { p.openTimeout = d }
}

// Config is the subset of pool sizing parameters poolcore needs. Callers
// typically build this from config.PoolConfig; poolcore itself has no
// dependency on the config package to keep it embeddable.
type Config struct {
	Name           string
	InitSize       int
	MaxSize        int
	MaxIdleTime    time.Duration
	AcquireTimeout time.Duration
}

// New constructs a Pool, eagerly opening InitSize sessions (warm-up), and
// starts the background producer and reaper goroutines. New only fails if
// its arguments are invalid — transient connect failures during warm-up
// are logged and left for the producer to compensate for at runtime,
// never surfaced as a construction error.
func New(cfg Config, opener session.Opener, opts ...Option) (*Pool, error) {
	if opener == nil {
		return nil, fmt.Errorf("poolcore: opener must not be nil")
	}
	if cfg.InitSize < 1 {
		return nil, fmt.Errorf("poolcore: InitSize must be >= 1, got %d", cfg.InitSize)
	}
	if cfg.MaxSize < cfg.InitSize {
		return nil, fmt.Errorf("poolcore: MaxSize (%d) must be >= InitSize (%d)", cfg.MaxSize, cfg.InitSize)
	}
	if cfg.MaxIdleTime <= 0 {
		cfg.MaxIdleTime = 60 * time.Second
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 5 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}

	p := &Pool{
		name:           name,
		opener:         opener,
		initSize:       cfg.InitSize,
		maxSize:        cfg.MaxSize,
		maxIdleTime:    cfg.MaxIdleTime,
		acquireTimeout: cfg.AcquireTimeout,
		openTimeout:    10 * time.Second,
		recorder:       noopRecorder{},
		idle:           newIdleQueue(cfg.MaxSize),
		stopCh:         make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	for _, opt := range opts {
		opt(p)
	}

	now := time.Now()
	for i := 0; i < p.initSize; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), p.openTimeout)
		sess, err := p.opener(ctx)
		cancel()
		if err != nil {
			log.Printf("[poolcore] pool %s: warm-up connection %d/%d failed: %v", p.name, i+1, p.initSize, err)
			continue
		}
		p.liveCount++
		p.idle.pushBack(sess, now)
	}
	p.recorder.SetCounts(p.liveCount, p.idle.len())
	log.Printf("[poolcore] pool %s: initialized, live=%d idle=%d max=%d", p.name, p.liveCount, p.idle.len(), p.maxSize)

	p.wg.Add(2)
	go p.producerLoop()
	go p.reaperLoop()

	return p, nil
}

// Acquire returns a Handle exclusively owning one live session, blocking up
// to the configured acquire timeout (or until ctx is cancelled, whichever
// comes first) while none is available.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	p.mu.Lock()
	for p.idle.len() == 0 && !p.shuttingDown {
		// Our emptiness is the producer's cue to consider growing.
		p.cond.Broadcast()

		if !p.waitOrDeadline(cctx) {
			p.mu.Unlock()
			if ctx.Err() != nil {
				p.recorder.ObserveAcquire("cancelled", time.Since(start))
				return nil, ctx.Err()
			}
			p.recorder.ObserveAcquire("timeout", time.Since(start))
			return nil, ErrAcquireTimeout
		}
	}

	if p.shuttingDown {
		p.mu.Unlock()
		p.recorder.ObserveAcquire("shutting_down", time.Since(start))
		return nil, ErrShuttingDown
	}

	entry, ok := p.idle.popFront()
	if !ok {
		// Woken with an empty queue and not shutting down shouldn't happen
		// given the loop guard above, but stay defensive rather than panic.
		p.mu.Unlock()
		p.recorder.ObserveAcquire("timeout", time.Since(start))
		return nil, ErrAcquireTimeout
	}
	live, idleLen := p.liveCount, p.idle.len()

	// The queue just shrank — wake the producer so it re-evaluates whether
	// to grow.
	p.cond.Broadcast()
	p.mu.Unlock()

	p.recorder.SetCounts(live, idleLen)
	p.recorder.ObserveAcquire("acquired", time.Since(start))

	return &Handle{pool: p, sess: entry.sess}, nil
}

// waitOrDeadline blocks on the condition variable until either it is
// broadcast or cctx is done, whichever happens first. Must be called with
// p.mu held; it re-acquires p.mu before returning, as sync.Cond.Wait
// requires. Returns false if cctx ended the wait.
func (p *Pool) waitOrDeadline(cctx context.Context) bool {
	stop := context.AfterFunc(cctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.cond.Wait()
	return cctx.Err() == nil
}

// release returns sess to the idle queue, or closes it outright if the pool
// has shut down in the meantime. This is the Handle's sole release path.
func (p *Pool) release(sess session.Session) {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		sess.Close()
		return
	}

	p.idle.pushBack(sess, time.Now())
	live, idleLen := p.liveCount, p.idle.len()
	p.mu.Unlock()

	p.cond.Broadcast()
	p.recorder.SetCounts(live, idleLen)
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	Name    string
	Live    int
	Idle    int
	Max     int
	InitMin int
}

// Stats returns the current pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:    p.name,
		Live:    p.liveCount,
		Idle:    p.idle.len(),
		Max:     p.maxSize,
		InitMin: p.initSize,
	}
}

// Shutdown sets the shutting-down flag, drains and closes every idle
// session, wakes all waiters (consumers get ErrShuttingDown, the producer
// and reaper exit their loops), and joins the background goroutines.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return nil
	}
	p.shuttingDown = true
	close(p.stopCh)

	var toClose []session.Session
	for {
		entry, ok := p.idle.popFront()
		if !ok {
			break
		}
		toClose = append(toClose, entry.sess)
	}
	p.liveCount -= len(toClose)
	p.mu.Unlock()

	p.cond.Broadcast()

	for _, s := range toClose {
		if err := s.Close(); err != nil {
			log.Printf("[poolcore] pool %s: error closing idle session during shutdown: %v", p.name, err)
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Printf("[poolcore] pool %s: shut down", p.name)
	return nil
}

// Name returns the pool's configured name, used to label metrics/telemetry.
func (p *Pool) Name() string { return p.name }
