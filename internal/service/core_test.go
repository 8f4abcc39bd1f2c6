package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-sync-core/internal/catchup"
	"github.com/webitel/im-sync-core/internal/commitlog"
	"github.com/webitel/im-sync-core/internal/conn"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/hub"
	"github.com/webitel/im-sync-core/internal/msgindex"
	"github.com/webitel/im-sync-core/internal/offlinequeue"
	"github.com/webitel/im-sync-core/internal/participant"
	"github.com/webitel/im-sync-core/internal/presence"
	"github.com/webitel/im-sync-core/internal/router"
	"github.com/webitel/im-sync-core/internal/sequence"
	"github.com/webitel/im-sync-core/internal/session"
	"github.com/webitel/im-sync-core/internal/snowflake"
	"github.com/webitel/im-sync-core/internal/submitregistry"
	"github.com/webitel/im-sync-core/internal/synccache"
	"github.com/webitel/im-sync-core/internal/syncengine"
)

type fakePtsStore struct {
	mu      sync.Mutex
	current map[uuid.UUID]uint64
}

func (f *fakePtsStore) AllocatePts(_ context.Context, channelID uuid.UUID) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		f.current = make(map[uuid.UUID]uint64)
	}
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
	if f.results == nil {
		f.results = make(map[uuid.UUID]model.SubmitResult)
	}
	f.results[localMessageID] = result
	return nil
}

type fakeMembershipStore struct {
	members map[uuid.UUID][]uuid.UUID
}

func (f *fakeMembershipStore) Members(_ context.Context, channel model.Channel) ([]uuid.UUID, error) {
	return f.members[channel.ID], nil
}

type fakePresenceStore struct {
	mu       sync.Mutex
	lastSeen map[uuid.UUID]time.Time
}

func (f *fakePresenceStore) BatchSaveLastSeen(_ context.Context, lastSeen map[uuid.UUID]time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastSeen == nil {
		f.lastSeen = make(map[uuid.UUID]time.Time)
	}
	for id, at := range lastSeen {
		f.lastSeen[id] = at
	}
	return nil
}

func (f *fakePresenceStore) LoadLastSeen(_ context.Context, userID uuid.UUID) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.lastSeen[userID]
	return at, ok, nil
}

func newTestCore(t *testing.T) (Core, *session.Manager, *hub.Hub) {
	t.Helper()

	h := hub.NewHub()
	t.Cleanup(h.Shutdown)
	sessions := session.NewManager()
	queue := offlinequeue.New(offlinequeue.DefaultConfig())
	r := router.New(router.DefaultConfig(), h, sessions, queue)
	cw := catchup.New(sessions, queue, r)

	pts := sequence.NewAllocator(&fakePtsStore{})
	log := commitlog.New(&fakeCommitStore{})
	registry := submitregistry.New(&fakeRegistryStore{})
	cache := synccache.New()
	index := msgindex.New()
	members := participant.NewMembership(&fakeMembershipStore{})
	ids, err := snowflake.NewGenerator(0, 0)
	require.NoError(t, err)
	engine := syncengine.New(pts, log, registry, cache, index, members, r, ids, nil)

	pres := presence.NewRegistry(presence.DefaultConfig(), h, &fakePresenceStore{})

	return NewCore(engine, sessions, pres, cw, h), sessions, h
}

func TestSessionReadyTriggersOnFirstTransitionOnly(t *testing.T) {
	core, sessions, _ := newTestCore(t)
	userID := uuid.New()
	sess, _ := sessions.Bind(userID, "device-1", "ios")

	require.True(t, core.SessionReady(sess.ID))
	require.False(t, core.SessionReady(sess.ID))
}

func TestSessionReadyUnknownSessionReturnsFalse(t *testing.T) {
	core, _, _ := newTestCore(t)
	require.False(t, core.SessionReady(uuid.New()))
}

func TestSubscribePresenceReturnsCurrentStatus(t *testing.T) {
	core, _, _ := newTestCore(t)
	watcher := uuid.New()
	target := uuid.New()

	status := core.SubscribePresence(watcher, target)
	require.False(t, status.IsOnline())
}

func TestBatchGetOnlineStatusReturnsEntryPerUser(t *testing.T) {
	core, _, _ := newTestCore(t)
	userA := uuid.New()
	userB := uuid.New()

	out := core.BatchGetOnlineStatus(context.Background(), []uuid.UUID{userA, userB})
	require.Len(t, out, 2)
	require.Contains(t, out, userA)
	require.Contains(t, out, userB)
}

func TestSubmitThroughCoreAllocatesPts(t *testing.T) {
	core, _, _ := newTestCore(t)
	channelID := uuid.New()
	sender := uuid.New()

	res, err := core.Submit(context.Background(), model.SubmitCommand{
		LocalMessageID: uuid.New(),
		Channel:        model.Channel{ID: channelID, Type: model.ChannelDirect},
		SenderID:       sender,
		CommandType:    "message.create",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Pts)
}

func TestTypingIndicatorBroadcastsToOtherParticipantsOnly(t *testing.T) {
	core, sessions, h := newTestCore(t)
	from := uuid.New()
	to := uuid.New()

	sess, _ := sessions.Bind(to, "device-1", "ios")
	c := conn.New(context.Background(), to, sess.ID, 4)
	h.Register(to, c)

	channel := model.Channel{
		ID:           uuid.New(),
		Participants: []model.Peer{{ID: from}, {ID: to}},
	}
	core.TypingIndicator(channel, from, true)

	select {
	case <-c.Recv():
	case <-time.After(time.Second):
		t.Fatal("expected typing indicator broadcast to reach the other participant")
	}
}
