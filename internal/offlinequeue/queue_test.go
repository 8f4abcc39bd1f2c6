package offlinequeue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-sync-core/internal/domain/model"
)

func entry(userID uuid.UUID, serverMsgID uint64, ttl time.Duration) model.OfflineQueueEntry {
	now := time.Now()
	return model.OfflineQueueEntry{
		UserID:     userID,
		Commit:     model.Commit{ServerMsgID: serverMsgID},
		EnqueuedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestEnqueueThenGetAllReturnsNewestFirst(t *testing.T) {
	q := New(DefaultConfig())
	userID := uuid.New()

	q.Enqueue(entry(userID, 1, time.Hour))
	q.Enqueue(entry(userID, 2, time.Hour))
	q.Enqueue(entry(userID, 3, time.Hour))

	out := q.GetAll(userID)
	require.Len(t, out, 3)
	require.Equal(t, uint64(3), out[0].ServerMsgID())
	require.Equal(t, uint64(2), out[1].ServerMsgID())
	require.Equal(t, uint64(1), out[2].ServerMsgID())
}

func TestGetAllDropsExpiredEntries(t *testing.T) {
	q := New(DefaultConfig())
	userID := uuid.New()

	q.Enqueue(entry(userID, 1, -time.Minute))
	q.Enqueue(entry(userID, 2, time.Hour))

	out := q.GetAll(userID)
	require.Len(t, out, 1)
	require.Equal(t, uint64(2), out[0].ServerMsgID())
}

func TestEnqueueEvictsOldestWhenMaxQueueSizeExceeded(t *testing.T) {
	q := New(Config{MaxQueueSize: 2, BatchSize: 10, TTL: time.Hour})
	userID := uuid.New()

	q.Enqueue(entry(userID, 1, time.Hour))
	q.Enqueue(entry(userID, 2, time.Hour))
	q.Enqueue(entry(userID, 3, time.Hour))

	out := q.GetAll(userID)
	require.Len(t, out, 2)
	require.Equal(t, uint64(3), out[0].ServerMsgID())
	require.Equal(t, uint64(2), out[1].ServerMsgID())
}

type recordingOverflow struct {
	persisted []model.OfflineQueueEntry
}

func (r *recordingOverflow) Persist(entry model.OfflineQueueEntry) error {
	r.persisted = append(r.persisted, entry)
	return nil
}

func TestEnqueueRoutesEvictedEntryToDurableOverflow(t *testing.T) {
	q := New(Config{MaxQueueSize: 1, BatchSize: 10, TTL: time.Hour})
	overflow := &recordingOverflow{}
	q.DurableOverflow = overflow
	userID := uuid.New()

	q.Enqueue(entry(userID, 1, time.Hour))
	q.Enqueue(entry(userID, 2, time.Hour))

	require.Len(t, overflow.persisted, 1)
	require.Equal(t, uint64(1), overflow.persisted[0].ServerMsgID())
}

func TestRemoveDeletesMatchingEntry(t *testing.T) {
	q := New(DefaultConfig())
	userID := uuid.New()

	q.Enqueue(entry(userID, 1, time.Hour))
	q.Enqueue(entry(userID, 2, time.Hour))

	q.Remove(userID, 1)

	out := q.GetAll(userID)
	require.Len(t, out, 1)
	require.Equal(t, uint64(2), out[0].ServerMsgID())
}

func TestDepthAndTotalDepth(t *testing.T) {
	q := New(DefaultConfig())
	userA := uuid.New()
	userB := uuid.New()

	q.Enqueue(entry(userA, 1, time.Hour))
	q.Enqueue(entry(userA, 2, time.Hour))
	q.Enqueue(entry(userB, 3, time.Hour))

	require.Equal(t, 2, q.Depth(userA))
	require.Equal(t, 1, q.Depth(userB))
	require.Equal(t, 3, q.TotalDepth())
}
