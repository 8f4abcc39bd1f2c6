package submitregistry

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-sync-core/internal/domain/model"
)

type memStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]model.SubmitResult
}

func newMemStore() *memStore {
	return &memStore{results: make(map[uuid.UUID]model.SubmitResult)}
}

func (m *memStore) Lookup(_ context.Context, localMessageID uuid.UUID) (*model.SubmitResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[localMessageID]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *memStore) Register(_ context.Context, localMessageID uuid.UUID, result model.SubmitResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[localMessageID] = result
	return nil
}

func TestCheckDuplicateMissReturnsFalse(t *testing.T) {
	r := New(newMemStore())
	res, ok, err := r.CheckDuplicate(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, res)
}

func TestRegisterThenCheckDuplicateReturnsSameResult(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()
	localID := uuid.New()
	want := model.SubmitResult{LocalMessageID: localID, Pts: 7}

	require.NoError(t, r.Register(ctx, localID, want))

	got, ok, err := r.CheckDuplicate(ctx, localID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, *got)
}
