package poolcore

import (
	"time"

	"github.com/polaris-dbpool/dbpool/pkg/session"
)

// idleEntry pairs an idle session with the time it was last returned to the
// queue (or created, for sessions that have never been checked out yet).
type idleEntry struct {
	sess           session.Session
	lastReturnedAt time.Time
}

// idleQueue is a FIFO of idle sessions. It is not itself safe for
// concurrent use — callers synchronize access via the owning Pool's mutex.
// Strict FIFO push-back/pop-front ordering keeps lastReturnedAt
// non-decreasing across the queue, so the reaper only ever needs to
// inspect the front entry.
type idleQueue struct {
	entries []idleEntry
}

func newIdleQueue(capacityHint int) *idleQueue {
	return &idleQueue{entries: make([]idleEntry, 0, capacityHint)}
}

func (q *idleQueue) pushBack(sess session.Session, returnedAt time.Time) {
	q.entries = append(q.entries, idleEntry{sess: sess, lastReturnedAt: returnedAt})
}

// popFront removes and returns the oldest idle entry. ok is false if the
// queue is empty.
func (q *idleQueue) popFront() (idleEntry, bool) {
	if len(q.entries) == 0 {
		return idleEntry{}, false
	}
	e := q.entries[0]
	q.entries[0] = idleEntry{}
	q.entries = q.entries[1:]
	return e, true
}

// front peeks at the oldest idle entry without removing it.
func (q *idleQueue) front() (idleEntry, bool) {
	if len(q.entries) == 0 {
		return idleEntry{}, false
	}
	return q.entries[0], true
}

func (q *idleQueue) len() int {
	return len(q.entries)
}
