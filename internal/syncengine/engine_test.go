package syncengine

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-sync-core/internal/commitlog"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/hub"
	"github.com/webitel/im-sync-core/internal/msgindex"
	"github.com/webitel/im-sync-core/internal/offlinequeue"
	"github.com/webitel/im-sync-core/internal/participant"
	"github.com/webitel/im-sync-core/internal/router"
	"github.com/webitel/im-sync-core/internal/sequence"
	"github.com/webitel/im-sync-core/internal/session"
	"github.com/webitel/im-sync-core/internal/snowflake"
	"github.com/webitel/im-sync-core/internal/submitregistry"
	"github.com/webitel/im-sync-core/internal/synccache"
)

type fakePtsStore struct {
	mu      sync.Mutex
	current map[uuid.UUID]uint64
}

func newFakePtsStore() *fakePtsStore {
	return &fakePtsStore{current: make(map[uuid.UUID]uint64)}
}

func (f *fakePtsStore) AllocatePts(_ context.Context, channelID uuid.UUID) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current[channelID]++
	return f.current[channelID], nil
}

func (f *fakePtsStore) CurrentPts(_ context.Context, channelID uuid.UUID) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current[channelID], nil
}

func (f *fakePtsStore) LoadAll(_ context.Context) (map[uuid.UUID]uint64, error) {
	return map[uuid.UUID]uint64{}, nil
}

type fakeCommitStore struct {
	mu      sync.Mutex
	commits []model.Commit
}

func (f *fakeCommitStore) Append(_ context.Context, commit model.Commit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, commit)
	return nil
}

func (f *fakeCommitStore) Query(_ context.Context, channelID uuid.UUID, fromPts uint64, limit int) ([]model.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Commit
	for _, c := range f.commits {
		if c.Channel.ID == channelID && c.Pts > fromPts {
			out = append(out, c)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type fakeRegistryStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]model.SubmitResult
}

func newFakeRegistryStore() *fakeRegistryStore {
	return &fakeRegistryStore{results: make(map[uuid.UUID]model.SubmitResult)}
}

func (f *fakeRegistryStore) Lookup(_ context.Context, localMessageID uuid.UUID) (*model.SubmitResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[localMessageID]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (f *fakeRegistryStore) Register(_ context.Context, localMessageID uuid.UUID, result model.SubmitResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[localMessageID] = result
	return nil
}

type fakeMembershipStore struct {
	members map[uuid.UUID][]uuid.UUID
}

func (f *fakeMembershipStore) Members(_ context.Context, channel model.Channel) ([]uuid.UUID, error) {
	return f.members[channel.ID], nil
}

func newTestEngine(t *testing.T) (*Engine, uuid.UUID, []uuid.UUID) {
	t.Helper()

	channelID := uuid.New()
	sender := uuid.New()
	other := uuid.New()

	pts := sequence.NewAllocator(newFakePtsStore())
	log := commitlog.New(&fakeCommitStore{})
	registry := submitregistry.New(newFakeRegistryStore())
	cache := synccache.New()
	index := msgindex.New()
	members := participant.NewMembership(&fakeMembershipStore{
		members: map[uuid.UUID][]uuid.UUID{channelID: {sender, other}},
	})

	h := hub.NewHub()
	t.Cleanup(h.Shutdown)
	sessions := session.NewManager()
	queue := offlinequeue.New(offlinequeue.DefaultConfig())
	r := router.New(router.DefaultConfig(), h, sessions, queue)

	ids, err := snowflake.NewGenerator(0, 0)
	require.NoError(t, err)

	engine := New(pts, log, registry, cache, index, members, r, ids, nil)
	return engine, channelID, []uuid.UUID{sender, other}
}

func TestSubmitAllocatesIncreasingPts(t *testing.T) {
	engine, channelID, users := newTestEngine(t)
	sender := users[0]
	ctx := context.Background()

	cmd := model.SubmitCommand{
		LocalMessageID: uuid.New(),
		Channel:        model.Channel{ID: channelID, Type: model.ChannelDirect},
		SenderID:       sender,
		CommandType:    "message.create",
	}

	res1, err := engine.Submit(ctx, cmd)
	require.NoError(t, err)
	require.EqualValues(t, 1, res1.Pts)
	require.False(t, res1.HasGap)

	cmd2 := cmd
	cmd2.LocalMessageID = uuid.New()
	cmd2.LastPts = res1.Pts
	res2, err := engine.Submit(ctx, cmd2)
	require.NoError(t, err)
	require.EqualValues(t, 2, res2.Pts)
	require.False(t, res2.HasGap)
}

func TestSubmitIsIdempotentOnRetry(t *testing.T) {
	engine, channelID, users := newTestEngine(t)
	ctx := context.Background()
	localID := uuid.New()

	cmd := model.SubmitCommand{
		LocalMessageID: localID,
		Channel:        model.Channel{ID: channelID, Type: model.ChannelDirect},
		SenderID:       users[0],
		CommandType:    "message.create",
	}

	first, err := engine.Submit(ctx, cmd)
	require.NoError(t, err)

	second, err := engine.Submit(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSubmitDetectsGap(t *testing.T) {
	engine, channelID, users := newTestEngine(t)
	ctx := context.Background()
	sender := users[0]

	_, err := engine.Submit(ctx, model.SubmitCommand{
		LocalMessageID: uuid.New(),
		Channel:        model.Channel{ID: channelID, Type: model.ChannelDirect},
		SenderID:       sender,
		CommandType:    "message.create",
	})
	require.NoError(t, err)

	_, err = engine.Submit(ctx, model.SubmitCommand{
		LocalMessageID: uuid.New(),
		Channel:        model.Channel{ID: channelID, Type: model.ChannelDirect},
		SenderID:       sender,
		CommandType:    "message.create",
	})
	require.NoError(t, err)

	res, err := engine.Submit(ctx, model.SubmitCommand{
		LocalMessageID: uuid.New(),
		Channel:        model.Channel{ID: channelID, Type: model.ChannelDirect},
		SenderID:       sender,
		CommandType:    "message.create",
		LastPts:        0,
	})
	require.NoError(t, err)
	require.True(t, res.HasGap)
}

func TestGetDifferenceFallsBackToLogOnCacheMiss(t *testing.T) {
	engine, channelID, users := newTestEngine(t)
	ctx := context.Background()
	sender := users[0]

	var last model.SubmitResult
	for i := 0; i < 3; i++ {
		res, err := engine.Submit(ctx, model.SubmitCommand{
			LocalMessageID: uuid.New(),
			Channel:        model.Channel{ID: channelID, Type: model.ChannelDirect},
			SenderID:       sender,
			CommandType:    "message.create",
		})
		require.NoError(t, err)
		last = res
	}

	diff, err := engine.GetDifference(ctx, model.Channel{ID: channelID, Type: model.ChannelDirect}, 0, 10)
	require.NoError(t, err)
	require.Len(t, diff.Commits, 3)
	require.Equal(t, last.Pts, diff.CurrentPts)
	require.False(t, diff.HasMore)
}
