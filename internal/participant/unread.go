package participant

import (
	"sync"

	"github.com/google/uuid"
)

// UnreadCounter tracks per-user, per-channel unread counts through explicit
// Increment/ClearChannel/Clear calls. It is standalone: neither the router
// nor the session manager calls it. Supplements a feature present in
// original_source/src/model/pts.rs::UnreadCounter but dropped by the
// distilled spec.
type UnreadCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]map[uuid.UUID]uint64 // userID -> channelID -> count
}

func NewUnreadCounter() *UnreadCounter {
	return &UnreadCounter{counts: make(map[uuid.UUID]map[uuid.UUID]uint64)}
}

func (u *UnreadCounter) Increment(userID, channelID uuid.UUID, by uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	perChannel, ok := u.counts[userID]
	if !ok {
		perChannel = make(map[uuid.UUID]uint64)
		u.counts[userID] = perChannel
	}
	perChannel[channelID] += by
}

// Get returns a snapshot of userID's unread counts per channel.
func (u *UnreadCounter) Get(userID uuid.UUID) map[uuid.UUID]uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	src, ok := u.counts[userID]
	if !ok {
		return nil
	}
	out := make(map[uuid.UUID]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ClearChannel resets a single channel's unread count for userID.
func (u *UnreadCounter) ClearChannel(userID, channelID uuid.UUID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if perChannel, ok := u.counts[userID]; ok {
		delete(perChannel, channelID)
	}
}

// Clear resets all unread counts for userID.
func (u *UnreadCounter) Clear(userID uuid.UUID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.counts, userID)
}
