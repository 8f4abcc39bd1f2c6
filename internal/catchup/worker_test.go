package catchup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-sync-core/internal/conn"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/hub"
	"github.com/webitel/im-sync-core/internal/offlinequeue"
	"github.com/webitel/im-sync-core/internal/router"
	"github.com/webitel/im-sync-core/internal/session"
)

func newTestWorker(t *testing.T) (*Worker, *hub.Hub, *session.Manager, *offlinequeue.Queue) {
	t.Helper()
	h := hub.NewHub()
	t.Cleanup(h.Shutdown)
	sessions := session.NewManager()
	queue := offlinequeue.New(offlinequeue.DefaultConfig())
	r := router.New(router.DefaultConfig(), h, sessions, queue)
	return New(sessions, queue, r), h, sessions, queue
}

func TestTriggerDrainsOwedEntriesForReadySession(t *testing.T) {
	w, h, sessions, queue := newTestWorker(t)
	userID := uuid.New()
	sess, _ := sessions.Bind(userID, "device-1", "ios")
	require.True(t, sessions.MarkReadyForPush(sess.ID))

	c := conn.New(context.Background(), userID, sess.ID, 4)
	h.Register(userID, c)

	channel := model.Channel{ID: uuid.New()}
	queue.Enqueue(model.OfflineQueueEntry{
		UserID:    userID,
		Channel:   channel,
		Commit:    model.Commit{Pts: 1, ServerMsgID: 1, Channel: channel},
		ExpiresAt: time.Now().Add(time.Hour),
	})
	queue.Enqueue(model.OfflineQueueEntry{
		UserID:    userID,
		Channel:   channel,
		Commit:    model.Commit{Pts: 2, ServerMsgID: 2, Channel: channel},
		ExpiresAt: time.Now().Add(time.Hour),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	t.Cleanup(func() { w.Stop(time.Second) })

	w.Trigger(userID)

	require.Eventually(t, func() bool {
		return len(queue.GetAll(userID)) == 0
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, uint64(2), sess.Watermark(channel.ID))
}

func TestDrainUserSkipsUsersWithNoReadySession(t *testing.T) {
	w, _, _, queue := newTestWorker(t)
	userID := uuid.New()
	channel := model.Channel{ID: uuid.New()}
	queue.Enqueue(model.OfflineQueueEntry{
		UserID:    userID,
		Channel:   channel,
		Commit:    model.Commit{Pts: 1, ServerMsgID: 1, Channel: channel},
		ExpiresAt: time.Now().Add(time.Hour),
	})

	w.drainUser(userID)

	require.Len(t, queue.GetAll(userID), 1)
}

func TestStopUnblocksRun(t *testing.T) {
	w, _, _, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	w.Stop(time.Second)
}
