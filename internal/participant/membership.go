package participant

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// MembershipStore resolves a channel's current participant set. A direct
// channel's membership is the two peers on the message; a group/broadcast
// channel's membership comes from durable storage.
type MembershipStore interface {
	Members(ctx context.Context, channel model.Channel) ([]uuid.UUID, error)
}

// Membership caches channel membership in-process with no TTL beyond an
// explicit Invalidate, since the fan-out path (internal/syncengine) calls it on
// every commit and membership changes are comparatively rare.
type Membership struct {
	store MembershipStore
	mu    sync.RWMutex
	cache map[uuid.UUID][]uuid.UUID
}

func NewMembership(store MembershipStore) *Membership {
	return &Membership{store: store, cache: make(map[uuid.UUID][]uuid.UUID)}
}

func (m *Membership) Members(ctx context.Context, channel model.Channel) ([]uuid.UUID, error) {
	m.mu.RLock()
	if cached, ok := m.cache[channel.ID]; ok {
		m.mu.RUnlock()
		return cached, nil
	}
	m.mu.RUnlock()

	members, err := m.store.Members(ctx, channel)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[channel.ID] = members
	m.mu.Unlock()
	return members, nil
}

// Invalidate drops the cached membership for a channel, forcing the next
// Members call to re-resolve from the store.
func (m *Membership) Invalidate(channelID uuid.UUID) {
	m.mu.Lock()
	delete(m.cache, channelID)
	m.mu.Unlock()
}
