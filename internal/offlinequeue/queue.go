// Package offlinequeue implements the offline queue (spec §4.9): a
// bounded, per-user queue of commits awaiting delivery to a user with no
// live session. Grounded on
// original_source/src/infra/message_router.rs's OfflineMessage/
// store_offline_message plus src/model/pts.rs::OfflineQueueConfig
// (max_queue_size/batch_size/expire_seconds defaults).
package offlinequeue

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Config mirrors pts.rs::OfflineQueueConfig's defaults.
type Config struct {
	MaxQueueSize int
	BatchSize    int
	TTL          time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxQueueSize: 5000,
		BatchSize:    50,
		TTL:          7 * 24 * time.Hour,
	}
}

// Queue is the cache-resident default tier (spec §9 open question: "cache
// resident, durable, or both is a deployment choice" — this module answers
// with cache-resident by default; DurableOverflow, if set, additionally
// persists entries once MaxQueueSize is exceeded).
type Queue struct {
	cfg Config

	mu       sync.Mutex
	byUser   map[uuid.UUID]*list.List // each element is model.OfflineQueueEntry

	// DurableOverflow, if non-nil, receives entries dropped for exceeding
	// MaxQueueSize instead of silently discarding them.
	DurableOverflow Overflow
}

// Overflow is the optional durable-store escape hatch for entries that
// don't fit in the in-process queue.
type Overflow interface {
	Persist(entry model.OfflineQueueEntry) error
}

func New(cfg Config) *Queue {
	return &Queue{cfg: cfg, byUser: make(map[uuid.UUID]*list.List)}
}

// Enqueue appends entry to userID's queue, evicting the oldest entry (and
// routing it to DurableOverflow, if configured) when the bound is exceeded.
func (q *Queue) Enqueue(entry model.OfflineQueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.byUser[entry.UserID]
	if !ok {
		l = list.New()
		q.byUser[entry.UserID] = l
	}
	l.PushBack(entry)

	if l.Len() > q.cfg.MaxQueueSize {
		front := l.Front()
		l.Remove(front)
		if q.DurableOverflow != nil {
			_ = q.DurableOverflow.Persist(front.Value.(model.OfflineQueueEntry))
		}
	}
}


// GetAll returns a non-destructive, newest-first snapshot of userID's
// queue, dropping expired entries as it walks the list (spec §4.9
// get_all). The catch-up worker (internal/catchup) intersects this with
// each session's watermark before deciding what to push.
func (q *Queue) GetAll(userID uuid.UUID) []model.OfflineQueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.byUser[userID]
	if !ok {
		return nil
	}

	now := time.Now()
	out := make([]model.OfflineQueueEntry, 0, l.Len())
	for e := l.Back(); e != nil; {
		prev := e.Prev()
		entry := e.Value.(model.OfflineQueueEntry)
		if entry.Expired(now) {
			l.Remove(e)
		} else {
			out = append(out, entry)
		}
		e = prev
	}
	if l.Len() == 0 {
		delete(q.byUser, userID)
	}
	return out
}

// Remove deletes every entry for userID whose commit carries serverMsgID
// (spec §4.9 remove, used on revocation so a recipient that hasn't drained
// the original never sees it).
func (q *Queue) Remove(userID uuid.UUID, serverMsgID uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.byUser[userID]
	if !ok {
		return
	}
	for e := l.Front(); e != nil; {
		next := e.Next()
		if e.Value.(model.OfflineQueueEntry).ServerMsgID() == serverMsgID {
			l.Remove(e)
		}
		e = next
	}
	if l.Len() == 0 {
		delete(q.byUser, userID)
	}
}

// Depth reports the current queue length for userID.
func (q *Queue) Depth(userID uuid.UUID) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.byUser[userID]; ok {
		return l.Len()
	}
	return 0
}

// TotalDepth sums every user's queue length.
func (q *Queue) TotalDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, l := range q.byUser {
		total += l.Len()
	}
	return total
}
