package msgindex

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRangeReturnsAscendingServerMsgIDs(t *testing.T) {
	idx := New()
	userID := uuid.New()

	idx.Add(userID, 1, 100)
	idx.Add(userID, 2, 101)
	idx.Add(userID, 4, 103)

	out := idx.Range(userID, 1, 4)
	require.Equal(t, []uint64{100, 101, 103}, out)
}

func TestRangeUnknownUserReturnsNil(t *testing.T) {
	idx := New()
	require.Nil(t, idx.Range(uuid.New(), 0, 10))
}

func TestAboveExcludesMinPts(t *testing.T) {
	idx := New()
	userID := uuid.New()

	idx.Add(userID, 1, 100)
	idx.Add(userID, 2, 101)
	idx.Add(userID, 3, 102)

	out := idx.Above(userID, 1)
	require.Len(t, out, 2)
	require.Equal(t, uint64(2), out[101])
	require.Equal(t, uint64(3), out[102])
	_, hasFirst := out[100]
	require.False(t, hasFirst)
}

func TestTrimKeepsOnlyMostRecentEntries(t *testing.T) {
	idx := New()
	userID := uuid.New()

	for pts := uint64(1); pts <= 5; pts++ {
		idx.Add(userID, pts, pts*10)
	}

	idx.Trim(userID, 2)

	out := idx.Range(userID, 1, 5)
	require.Equal(t, []uint64{40, 50}, out)
}

func TestTrimNoopWhenUnderLimit(t *testing.T) {
	idx := New()
	userID := uuid.New()
	idx.Add(userID, 1, 10)

	idx.Trim(userID, 5)

	out := idx.Range(userID, 1, 1)
	require.Equal(t, []uint64{10}, out)
}
