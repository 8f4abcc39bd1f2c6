package synccache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

func TestPtsRoundTrip(t *testing.T) {
	c := New()
	ch := uuid.New()

	_, ok := c.PtsOf(ch)
	require.False(t, ok)

	c.SetPts(ch, 5)
	pts, ok := c.PtsOf(ch)
	require.True(t, ok)
	require.EqualValues(t, 5, pts)
}

func TestQueryCommitsRequiresFullRange(t *testing.T) {
	c := New()
	ch := model.Channel{ID: uuid.New(), Type: model.ChannelDirect}

	c.CacheCommit(model.Commit{Channel: ch, Pts: 1})
	c.CacheCommit(model.Commit{Channel: ch, Pts: 3})

	// pts 2 missing -> must report a miss rather than a partial slice.
	_, ok := c.QueryCommits(ch.ID, 0, 3)
	require.False(t, ok)

	c.CacheCommit(model.Commit{Channel: ch, Pts: 2})
	commits, ok := c.QueryCommits(ch.ID, 0, 3)
	require.True(t, ok)
	require.Len(t, commits, 3)
}

func TestOnlineParticipants(t *testing.T) {
	c := New()
	ch := uuid.New()
	users := []uuid.UUID{uuid.New(), uuid.New()}

	_, ok := c.OnlineParticipants(ch)
	require.False(t, ok)

	c.SetOnlineParticipants(ch, users)
	got, ok := c.OnlineParticipants(ch)
	require.True(t, ok)
	require.ElementsMatch(t, users, got)
}
