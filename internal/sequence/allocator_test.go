package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	pts  map[uuid.UUID]uint64
}

func newMemStore() *memStore { return &memStore{pts: make(map[uuid.UUID]uint64)} }

func (m *memStore) AllocatePts(_ context.Context, channelID uuid.UUID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pts[channelID]++
	return m.pts[channelID], nil
}

func (m *memStore) CurrentPts(_ context.Context, channelID uuid.UUID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pts[channelID], nil
}

func (m *memStore) LoadAll(_ context.Context) (map[uuid.UUID]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]uint64, len(m.pts))
	for k, v := range m.pts {
		out[k] = v
	}
	return out, nil
}

func TestNextIsPerChannelMonotonic(t *testing.T) {
	a := NewAllocator(newMemStore())
	ctx := context.Background()
	chanA := uuid.New()
	chanB := uuid.New()

	p1, err := a.Next(ctx, chanA)
	require.NoError(t, err)
	require.EqualValues(t, 1, p1)

	p2, err := a.Next(ctx, chanA)
	require.NoError(t, err)
	require.EqualValues(t, 2, p2)

	// Independent channel starts fresh.
	p3, err := a.Next(ctx, chanB)
	require.NoError(t, err)
	require.EqualValues(t, 1, p3)

	cur, err := a.Current(ctx, chanA)
	require.NoError(t, err)
	require.EqualValues(t, 2, cur)
}

func TestCurrentFallsBackToStoreWhenCold(t *testing.T) {
	store := newMemStore()
	ch := uuid.New()
	store.pts[ch] = 41

	a := NewAllocator(store)
	cur, err := a.Current(context.Background(), ch)
	require.NoError(t, err)
	require.EqualValues(t, 41, cur)
}

func TestWarmPopulatesMirror(t *testing.T) {
	store := newMemStore()
	ch := uuid.New()
	store.pts[ch] = 7

	a := NewAllocator(store)
	require.NoError(t, a.Warm(context.Background()))

	cur, err := a.Current(context.Background(), ch)
	require.NoError(t, err)
	require.EqualValues(t, 7, cur)
}
