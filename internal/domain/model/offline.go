package model

import (
	"time"

	"github.com/google/uuid"
)

// OfflineQueueEntry is a per-recipient queued commit awaiting delivery
// (spec §3 Offline queue entry, §4.9). It is deliberately decoupled from
// Commit so the queue can carry a bounded, FIFO-ordered subset without
// the full commit log needing to know about delivery bookkeeping.
type OfflineQueueEntry struct {
	UserID  uuid.UUID
	Channel Channel
	Commit  Commit
	// TargetDeviceID scopes this entry to a single device; if empty, any of
	// the user's devices may drain it (spec §3 Offline queue entry).
	TargetDeviceID string
	EnqueuedAt     time.Time
	ExpiresAt      time.Time
	RetryCount     int
	Priority       EventPriority
}

// ServerMsgID is a convenience accessor used for revocation lookups (spec
// §4.9 remove(user_id, server_msg_id)).
func (e OfflineQueueEntry) ServerMsgID() uint64 { return e.Commit.ServerMsgID }

// Expired reports whether this entry has outlived its TTL (spec §4.9 edge case).
func (e OfflineQueueEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
