package poolcore

import (
	"log"
	"time"
)

// reaperLoop is the pool's single background shrinker. Every maxIdleTime it
// evicts idle sessions from the front of the queue (the oldest, by FIFO +
// monotonic return timestamps) while live_count stays above initSize and
// the front entry has been idle at least maxIdleTime.
func (p *Pool) reaperLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.maxIdleTime)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce()
		}
	}
}

func (p *Pool) reapOnce() {
	p.mu.Lock()
	var evicted []idleEntry
	for p.liveCount > p.initSize {
		front, ok := p.idle.front()
		if !ok || time.Since(front.lastReturnedAt) < p.maxIdleTime {
			break
		}
		entry, _ := p.idle.popFront()
		p.liveCount--
		evicted = append(evicted, entry)
	}
	live, idleLen := p.liveCount, p.idle.len()
	p.mu.Unlock()

	if len(evicted) == 0 {
		return
	}

	// Close outside the lock — it's slow I/O and nothing else needs the
	// mutex to observe that live_count already dropped.
	for _, e := range evicted {
		if err := e.sess.Close(); err != nil {
			log.Printf("[poolcore] pool %s: error closing reaped session: %v", p.name, err)
		}
	}

	log.Printf("[poolcore] pool %s: reaper evicted %d idle session(s), live=%d idle=%d",
		p.name, len(evicted), live, idleLen)

	// Signal after eviction so a consumer that woke to an empty queue
	// mid-sweep re-checks promptly, and so the producer re-evaluates growth.
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()

	p.recorder.SetCounts(live, idleLen)
	p.recorder.ObserveReap(len(evicted))
}
