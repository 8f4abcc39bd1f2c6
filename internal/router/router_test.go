package router

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
	"github.com/webitel/im-sync-core/internal/session"
)

func newTestRouter(t *testing.T) (*Router, *hub.Hub, *session.Manager, *offlinequeue.Queue) {
	t.Helper()
	h := hub.NewHub()
	t.Cleanup(h.Shutdown)
	sessions := session.NewManager()
	queue := offlinequeue.New(offlinequeue.DefaultConfig())
	return New(DefaultConfig(), h, sessions, queue), h, sessions, queue
}

func TestRouteToUserFallsBackToOfflineQueueWithNoReadySession(t *testing.T) {
	r, _, _, queue := newTestRouter(t)
	userID := uuid.New()
	channel := model.Channel{ID: uuid.New()}
	commit := model.Commit{Pts: 1, ServerMsgID: 1, Channel: channel}

	result := r.RouteToUser(userID, channel, commit)
	require.Equal(t, 1, result.OfflineCount)
	require.Equal(t, 0, result.SuccessCount)
	require.Len(t, queue.GetAll(userID), 1)
}

func TestRouteToUserDeliversToReadySession(t *testing.T) {
	r, h, sessions, queue := newTestRouter(t)
	userID := uuid.New()
	sess, _ := sessions.Bind(userID, "device-1", "ios")
	require.True(t, sessions.MarkReadyForPush(sess.ID))

	c := conn.New(context.Background(), userID, sess.ID, 4)
	h.Register(userID, c)

	channel := model.Channel{ID: uuid.New()}
	commit := model.Commit{Pts: 1, ServerMsgID: 1, Channel: channel}

	result := r.RouteToUser(userID, channel, commit)
	require.Equal(t, 1, result.SuccessCount)
	require.Equal(t, 0, result.OfflineCount)
	require.Empty(t, queue.GetAll(userID))
}

func TestRouteToSessionFallsBackWhenSessionNotReady(t *testing.T) {
	r, _, sessions, queue := newTestRouter(t)
	userID := uuid.New()
	sess, _ := sessions.Bind(userID, "device-1", "ios")

	channel := model.Channel{ID: uuid.New()}
	commit := model.Commit{Pts: 1, ServerMsgID: 1, Channel: channel}

	result := r.RouteToSession(userID, sess.ID, channel, commit)
	require.Equal(t, 1, result.OfflineCount)
	require.Len(t, queue.GetAll(userID), 1)
}

func TestDeliverOfflineMessagesSkipsEntriesBelowWatermark(t *testing.T) {
	r, h, sessions, queue := newTestRouter(t)
	userID := uuid.New()
	sess, _ := sessions.Bind(userID, "device-1", "ios")
	require.True(t, sessions.MarkReadyForPush(sess.ID))

	c := conn.New(context.Background(), userID, sess.ID, 4)
	h.Register(userID, c)

	channel := model.Channel{ID: uuid.New()}
	queue.Enqueue(model.OfflineQueueEntry{
		UserID:    userID,
		Channel:   channel,
		Commit:    model.Commit{Pts: 5, ServerMsgID: 5, Channel: channel},
		ExpiresAt: time.Now().Add(time.Hour),
	})

	sessions.UpdateClientPts(sess.ID, channel.ID, 5)

	delivered := r.DeliverOfflineMessages(userID, "device-1")
	require.Equal(t, 0, delivered)
}

func TestDeliverOfflineMessagesDeliversEntriesAboveWatermark(t *testing.T) {
	r, h, sessions, queue := newTestRouter(t)
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

	delivered := r.DeliverOfflineMessages(userID, "device-1")
	require.Equal(t, 1, delivered)
	require.Empty(t, queue.GetAll(userID))
}
