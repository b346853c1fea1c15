package poolcore

import (
	"context"
	"log"
	"time"
)

// producerLoop is the pool's single background grower. It waits while the
// idle queue is non-empty or the pool is already at capacity — the inverse
// of a consumer's wait predicate — and opens one session per wakeup rather
// than filling to maxSize outright, bounding connection-storm latency
// without over-provisioning for transient spikes.
func (p *Pool) producerLoop() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for (p.idle.len() > 0 || p.liveCount >= p.maxSize) && !p.shuttingDown {
			p.cond.Wait()
		}
		if p.shuttingDown {
			p.mu.Unlock()
			return
		}

		// Reserve a slot before the slow open so live_count never
		// undercounts a session that's mid-creation.
		p.liveCount++
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), p.openTimeout)
		sess, err := p.opener(ctx)
		cancel()

		p.mu.Lock()
		if err != nil {
			p.liveCount--
			p.mu.Unlock()
			log.Printf("[poolcore] pool %s: producer open failed: %v", p.name, err)
			p.recorder.ObserveProducerOpen("open_failed")
			continue
		}

		p.idle.pushBack(sess, time.Now())
		live, idleLen := p.liveCount, p.idle.len()
		p.cond.Broadcast()
		p.mu.Unlock()

		p.recorder.SetCounts(live, idleLen)
		p.recorder.ObserveProducerOpen("opened")
	}
}
