// Package sequence allocates the per-channel monotonic pts sequence (spec
// §4.1). pts is scoped to a channel, never to a user: group chats must keep
// an ordering independent of any other channel, and different channels can
// in principle live on different shards.
package sequence

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Store is the durable backing for pts allocation. A real deployment wires
// this to internal/store/postgres; tests can fake it trivially.
type Store interface {
	// AllocatePts atomically increments and returns the new pts for channelID.
	AllocatePts(ctx context.Context, channelID uuid.UUID) (uint64, error)
	// CurrentPts returns the channel's pts without incrementing it.
	CurrentPts(ctx context.Context, channelID uuid.UUID) (uint64, error)
	// LoadAll returns every channel's last-known pts, used to warm the
	// in-process mirror on startup.
	LoadAll(ctx context.Context) (map[uuid.UUID]uint64, error)
}

// Allocator mirrors allocated pts values in-process so repeated CurrentPts
// reads (submit gap-detection, GetChannelPts) don't round-trip to storage.
// Allocation itself still goes through Store so it stays durable and
// globally consistent under concurrent writers on different nodes.
type Allocator struct {
	store   Store
	mu      sync.Mutex // guards LoadOrStore races on counters
	counters sync.Map  // uuid.UUID -> *atomic.Uint64
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// Warm loads every channel's current pts from the store into memory. Call
// once at startup before serving traffic.
func (a *Allocator) Warm(ctx context.Context) error {
	all, err := a.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	for channelID, pts := range all {
		counter := new(atomic.Uint64)
		counter.Store(pts)
		a.counters.Store(channelID, counter)
	}
	return nil
}

func (a *Allocator) counterFor(channelID uuid.UUID) *atomic.Uint64 {
	if v, ok := a.counters.Load(channelID); ok {
		return v.(*atomic.Uint64)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.counters.Load(channelID); ok {
		return v.(*atomic.Uint64)
	}
	counter := new(atomic.Uint64)
	a.counters.Store(channelID, counter)
	return counter
}

// Next allocates the next pts for channelID: durable allocation first, then
// the in-process mirror is set to match (never incremented independently,
// so concurrent allocators across nodes can't diverge from the store of
// record).
func (a *Allocator) Next(ctx context.Context, channelID uuid.UUID) (uint64, error) {
	pts, err := a.store.AllocatePts(ctx, channelID)
	if err != nil {
		return 0, err
	}
	a.counterFor(channelID).Store(pts)
	return pts, nil
}

// Current returns the in-process mirror if warm, otherwise falls back to
// the store (and populates the mirror for next time).
func (a *Allocator) Current(ctx context.Context, channelID uuid.UUID) (uint64, error) {
	if v, ok := a.counters.Load(channelID); ok {
		return v.(*atomic.Uint64).Load(), nil
	}
	pts, err := a.store.CurrentPts(ctx, channelID)
	if err != nil {
		return 0, err
	}
	a.counterFor(channelID).Store(pts)
	return pts, nil
}

// Set forcibly pins a channel's in-process pts, used when recovering from a
// store-reported value without going through allocation (e.g. after a
// batch restore).
func (a *Allocator) Set(channelID uuid.UUID, pts uint64) {
	a.counterFor(channelID).Store(pts)
}
