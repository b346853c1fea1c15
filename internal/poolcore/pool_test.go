package poolcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polaris-dbpool/dbpool/pkg/session"
)

// fakeSession is an in-memory session.Session used throughout poolcore's
// tests so none of them need a real MySQL server.
type fakeSession struct {
	id string

	mu     sync.Mutex
	closed bool
}

func (s *fakeSession) Open(ctx context.Context) error { return nil }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) Ping(ctx context.Context) error { return nil }

func (s *fakeSession) Execute(ctx context.Context, statement string, args ...any) (session.Result, error) {
	return session.Result{}, nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeOpenerWithFailures builds a session.Opener producing uniquely-named
// fakeSessions. If failNext is non-nil, it's consulted (and decremented) on
// each call to decide whether that call should return an error instead.
func fakeOpenerWithFailures(failNext *atomic.Int32) session.Opener {
	var counter atomic.Int64
	return func(ctx context.Context) (session.Session, error) {
		if failNext != nil && failNext.Load() > 0 {
			failNext.Add(-1)
			return nil, fmt.Errorf("fake open failure")
		}
		id := counter.Add(1)
		return &fakeSession{id: fmt.Sprintf("sess-%d", id)}, nil
	}
}

func fakeOpener() session.Opener {
	return fakeOpenerWithFailures(nil)
}

func mustNewPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p, err := New(cfg, fakeOpener())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

// Scenario 1 — warm-up and basic acquire.
func TestScenario1_WarmUpAndBasicAcquire(t *testing.T) {
	p := mustNewPool(t, Config{
		InitSize:       3,
		MaxSize:        5,
		AcquireTimeout: time.Second,
		MaxIdleTime:    time.Minute,
	})

	if s := p.Stats(); s.Live != 3 || s.Idle != 3 {
		t.Fatalf("after construction: Stats = %+v, want Live=3 Idle=3", s)
	}

	h, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if s := p.Stats(); s.Idle != 2 || s.Live != 3 {
		t.Fatalf("after acquire: Stats = %+v, want Live=3 Idle=2", s)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s := p.Stats(); s.Idle != 3 || s.Live != 3 {
		t.Fatalf("after release: Stats = %+v, want Live=3 Idle=3", s)
	}
}

// Scenario 2 — growth under pressure.
func TestScenario2_GrowthUnderPressure(t *testing.T) {
	p := mustNewPool(t, Config{
		InitSize:       3,
		MaxSize:        5,
		AcquireTimeout: 200 * time.Millisecond,
		MaxIdleTime:    time.Minute,
	})

	var handles []*Handle
	for i := 0; i < 3; i++ {
		h, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
		handles = append(handles, h)
	}

	for want := 4; want <= 5; want++ {
		h, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() growing to %d: error = %v", want, err)
		}
		handles = append(handles, h)
		if s := p.Stats(); s.Live != want {
			t.Fatalf("after growing acquire %d: Live = %d, want %d", want, s.Live, want)
		}
	}

	start := time.Now()
	_, err := p.Acquire(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("6th Acquire() error = %v, want ErrAcquireTimeout", err)
	}
	if elapsed < 200*time.Millisecond {
		t.Fatalf("6th Acquire() returned after %v, want >= acquire timeout", elapsed)
	}
	if s := p.Stats(); s.Live != 5 {
		t.Fatalf("after timed-out acquire: Live = %d, want 5", s.Live)
	}

	for _, h := range handles {
		h.Close()
	}
}

// Scenario 3 — release unblocks a waiting acquire.
func TestScenario3_ReleaseUnblocksWaiter(t *testing.T) {
	p := mustNewPool(t, Config{
		InitSize:       5,
		MaxSize:        5,
		AcquireTimeout: 2 * time.Second,
		MaxIdleTime:    time.Minute,
	})

	var handles []*Handle
	for i := 0; i < 5; i++ {
		h, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
		handles = append(handles, h)
	}

	resultCh := make(chan error, 1)
	start := time.Now()
	go func() {
		_, err := p.Acquire(context.Background())
		resultCh <- err
	}()

	time.Sleep(200 * time.Millisecond)
	handles[0].Close()
	handles = handles[1:]

	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("blocked Acquire() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed >= 2*time.Second {
			t.Fatalf("blocked Acquire() took %v, want well under the 2s timeout", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Acquire() never returned")
	}

	if s := p.Stats(); s.Live != 5 || s.Idle != 0 {
		t.Fatalf("after unblock: Stats = %+v, want Live=5 Idle=0", s)
	}

	for _, h := range handles {
		h.Close()
	}
}

// Scenario 4 — reaper shrinks to the init_size floor.
func TestScenario4_ReaperShrinksToFloor(t *testing.T) {
	maxIdle := 150 * time.Millisecond
	p, err := New(Config{
		InitSize:       2,
		MaxSize:        5,
		AcquireTimeout: time.Second,
		MaxIdleTime:    maxIdle,
	}, fakeOpener())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p.Shutdown(ctx)
	}()

	var handles []*Handle
	for i := 0; i < 5; i++ {
		h, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		h.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := p.Stats(); s.Live == 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	s := p.Stats()
	if s.Live != 2 || s.Idle != 2 {
		t.Fatalf("after reaping: Stats = %+v, want Live=2 Idle=2", s)
	}
}

// Scenario 5 — a freshly-returned session is not reaped even though its
// siblings are.
func TestScenario5_FreshReturnsSurviveReaping(t *testing.T) {
	maxIdle := 200 * time.Millisecond
	p, err := New(Config{
		InitSize:       2,
		MaxSize:        5,
		AcquireTimeout: time.Second,
		MaxIdleTime:    maxIdle,
	}, fakeOpener())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p.Shutdown(ctx)
	}()

	var handles []*Handle
	for i := 0; i < 5; i++ {
		h, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		h.Close()
	}

	// Refresh one session's timestamp partway through the idle window.
	time.Sleep(maxIdle / 2)
	refreshed, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("refresh Acquire() error = %v", err)
	}
	refreshedID := refreshed.sess.(*fakeSession).id
	refreshed.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s := p.Stats(); s.Live == 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if s := p.Stats(); s.Live != 2 {
		t.Fatalf("after reaping: Live = %d, want 2", s.Live)
	}

	// The refreshed session must be one of the two survivors, not a closed one.
	p.mu.Lock()
	survived := false
	for _, e := range p.idle.entries {
		if e.sess.(*fakeSession).id == refreshedID {
			survived = true
		}
	}
	p.mu.Unlock()
	if !survived {
		t.Fatalf("session %s was refreshed just before reaping but did not survive", refreshedID)
	}
}

// TestAcquireAfterShutdown verifies that Acquire surfaces ErrShuttingDown
// instead of blocking once the pool has entered teardown.
func TestAcquireAfterShutdown(t *testing.T) {
	p, err := New(Config{InitSize: 1, MaxSize: 2, AcquireTimeout: time.Second, MaxIdleTime: time.Minute}, fakeOpener())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("Acquire() after shutdown: error = %v, want ErrShuttingDown", err)
	}
}

// TestProducerCompensatesForOpenFailure exercises both open-failure paths:
// the single warm-up open fails, leaving live_count at 0, and a second
// injected failure hits a producer growth attempt, which must give back its
// reserved slot (decrement live_count) and let a later attempt try again.
func TestProducerCompensatesForOpenFailure(t *testing.T) {
	var failNext atomic.Int32
	failNext.Store(1)

	p, err := New(Config{
		InitSize:       1,
		MaxSize:        2,
		AcquireTimeout: 2 * time.Second,
		MaxIdleTime:    time.Minute,
	}, fakeOpenerWithFailures(&failNext))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p.Shutdown(ctx)
	}()

	// Warm-up consumed the first failure; arm a second one so that the
	// producer's next open attempt fails as well.
	failNext.Store(1)

	h1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() #1 error = %v", err)
	}

	// One producer attempt has failed by now; the producer must have retried
	// rather than getting stuck with live_count permanently inflated.
	h2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() #2 error = %v", err)
	}

	if s := p.Stats(); s.Live != 2 {
		t.Fatalf("after producer retry: Live = %d, want 2", s.Live)
	}

	h1.Close()
	h2.Close()
}

// TestConcurrentAcquireReleaseInvariants hammers the pool from many
// goroutines and checks the bound invariants (Idle <= Live <= MaxSize)
// mid-run and afterwards, with Live still at or above InitSize at the end.
// Run with -race.
func TestConcurrentAcquireReleaseInvariants(t *testing.T) {
	p, err := New(Config{
		InitSize:       4,
		MaxSize:        8,
		AcquireTimeout: 500 * time.Millisecond,
		MaxIdleTime:    time.Minute,
	}, fakeOpener())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p.Shutdown(ctx)
	}()

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h, err := p.Acquire(context.Background())
				if err != nil {
					continue // timeouts are expected under contention
				}
				if s := p.Stats(); s.Idle > s.Live || s.Live > 8 {
					t.Errorf("invariant violated mid-run: %+v", s)
				}
				h.Close()
			}
		}()
	}
	wg.Wait()

	if s := p.Stats(); s.Live < 4 || s.Live > 8 || s.Idle > s.Live {
		t.Fatalf("final Stats = %+v, invariants violated", s)
	}
}
