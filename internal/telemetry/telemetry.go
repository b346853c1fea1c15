// Package telemetry periodically publishes a pool's occupancy and a
// process heartbeat to Redis for observability — dashboards and
// cross-instance visibility only. It never reads these keys back to make
// pooling decisions; the pool's correctness is entirely local and does not
// depend on cross-host load balancing.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polaris-dbpool/dbpool/internal/poolcore"
)

const (
	keyPoolStats  = "dbpool:%s:stats"   // hash: field -> value
	keyInstanceHB = "dbpool:instance:%s:heartbeat"
	channelStats  = "dbpool:%s:stats:changed"
)

// Publisher periodically writes a Pool's Stats and a liveness heartbeat to
// Redis. If Redis is unreachable at construction or goes unreachable at
// runtime, the publisher logs each failed publish and retries on its own
// interval rather than failing the caller — this is a best-effort side channel, not
// load-bearing for pool correctness.
type Publisher struct {
	client     redis.UniversalClient
	pool       *poolcore.Pool
	instanceID string
	interval   time.Duration
	ttl        time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPublisher constructs a Publisher. It does not block on Redis
// connectivity; the first publish attempt happens as soon as Start runs
// the loop, and later ones on every interval tick.
func NewPublisher(addr string, db int, instanceID string, p *poolcore.Pool, interval, ttl time.Duration) *Publisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &Publisher{
		client:     client,
		pool:       p,
		instanceID: instanceID,
		interval:   interval,
		ttl:        ttl,
		stopCh:     make(chan struct{}),
	}
}

// Start runs the publish loop in the background.
func (pub *Publisher) Start(ctx context.Context) {
	pub.wg.Add(1)
	go pub.loop(ctx)
	log.Printf("[telemetry] publisher started: pool=%s interval=%s", pub.pool.Name(), pub.interval)
}

// Stop signals the publish loop to exit and waits for it to finish.
func (pub *Publisher) Stop() {
	close(pub.stopCh)
	pub.wg.Wait()
	if err := pub.client.Close(); err != nil {
		log.Printf("[telemetry] redis client close error: %v", err)
	}
}

func (pub *Publisher) loop(ctx context.Context) {
	defer pub.wg.Done()

	pub.publishOnce(ctx)

	ticker := time.NewTicker(pub.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pub.stopCh:
			return
		case <-ticker.C:
			pub.publishOnce(ctx)
		}
	}
}

func (pub *Publisher) publishOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	stats := pub.pool.Stats()
	statsKey := fmt.Sprintf(keyPoolStats, stats.Name)
	now := time.Now().UTC()

	pipe := pub.client.Pipeline()
	pipe.HSet(ctx, statsKey, map[string]any{
		"live":       stats.Live,
		"idle":       stats.Idle,
		"max":        stats.Max,
		"init_min":   stats.InitMin,
		"updated_at": now.Format(time.RFC3339),
	})
	pipe.Expire(ctx, statsKey, pub.ttl)
	pipe.Publish(ctx, fmt.Sprintf(channelStats, stats.Name),
		strconv.Itoa(stats.Live)+"/"+strconv.Itoa(stats.Max))
	pipe.Set(ctx, fmt.Sprintf(keyInstanceHB, pub.instanceID), now.Unix(), pub.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[telemetry] publish failed (will retry next tick): %v", err)
	}
}
