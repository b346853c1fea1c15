// Command dbpoolbench drives concurrent Acquire/Execute/Release traffic
// against a pool and reports throughput and acquire latency, to characterize
// a given pool configuration against a real database before it's deployed.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/polaris-dbpool/dbpool/internal/config"
	"github.com/polaris-dbpool/dbpool/internal/mysqlconn"
	"github.com/polaris-dbpool/dbpool/internal/poolcore"
)

var (
	poolConfigPath = flag.String("pool-config", "configs/pool.conf", "Path to pool configuration file")
	workers        = flag.Int("workers", 20, "Number of concurrent worker goroutines")
	duration       = flag.Duration("duration", 30*time.Second, "How long to run the benchmark")
	query          = flag.String("query", "SELECT 1", "Statement executed on every borrowed session")
)

type counters struct {
	acquired   atomic.Int64
	timedOut   atomic.Int64
	execErrors atomic.Int64
	totalWait  atomic.Int64 // nanoseconds, summed
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	poolCfg, err := config.LoadPoolConfig(*poolConfigPath)
	if err != nil {
		log.Fatalf("[bench] failed to load pool config: %v", err)
	}

	opener := mysqlconn.Opener(poolCfg.Endpoint, poolCfg.Credentials, 5*time.Second)
	pool, err := poolcore.New(poolcore.Config{
		Name:           poolCfg.Name,
		InitSize:       poolCfg.InitSize,
		MaxSize:        poolCfg.MaxSize,
		MaxIdleTime:    poolCfg.MaxIdleTime,
		AcquireTimeout: poolCfg.AcquireTimeout,
	}, opener)
	if err != nil {
		log.Fatalf("[bench] failed to construct pool: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	log.Printf("[bench] pool %q: init=%d max=%d, running %d workers for %s",
		poolCfg.Name, poolCfg.InitSize, poolCfg.MaxSize, *workers, *duration)

	var c counters
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go worker(runCtx, &wg, pool, &c)
	}
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Printf("[bench] pool shutdown error: %v", err)
	}

	acquired := c.acquired.Load()
	report(acquired, c.timedOut.Load(), c.execErrors.Load(), c.totalWait.Load())
}

func worker(ctx context.Context, wg *sync.WaitGroup, pool *poolcore.Pool, c *counters) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		h, err := pool.Acquire(ctx)
		wait := time.Since(start)
		if err != nil {
			if errors.Is(err, poolcore.ErrAcquireTimeout) {
				c.timedOut.Add(1)
			}
			continue
		}
		c.acquired.Add(1)
		c.totalWait.Add(wait.Nanoseconds())

		if _, err := h.Execute(ctx, *query); err != nil {
			c.execErrors.Add(1)
		}
		h.Close()
	}
}

func report(acquired, timedOut, execErrors, totalWaitNanos int64) {
	log.Printf("[bench] acquired=%d timed_out=%d exec_errors=%d", acquired, timedOut, execErrors)
	if acquired > 0 {
		avgWait := time.Duration(totalWaitNanos / acquired)
		log.Printf("[bench] average acquire wait: %s", avgWait)
	}
}
