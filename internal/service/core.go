// Package service exposes the Core capability facade (spec §6.1): the
// single entry point transport handlers call into; in this module that is
// the WebSocket handler in internal/transport/ws. It replaces the teacher's original DeliveryService — a thin
// Subscribe/Unsubscribe shim over the hub — with the full operation table
// the expanded specification requires, orchestrating
// internal/syncengine, internal/session, internal/presence and
// internal/hub behind one interface so handlers never reach into those
// packages directly.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/catchup"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/hub"
	"github.com/webitel/im-sync-core/internal/presence"
	"github.com/webitel/im-sync-core/internal/session"
	"github.com/webitel/im-sync-core/internal/syncengine"
)

// Core is the spec §6.1 capability table.
type Core interface {
	Submit(ctx context.Context, cmd model.SubmitCommand) (model.SubmitResult, error)
	GetDifference(ctx context.Context, channel model.Channel, lastPts uint64, limit int) (model.Difference, error)
	GetChannelPts(ctx context.Context, channelID uuid.UUID) (uint64, error)
	BatchGetChannelPts(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID]uint64, error)

	// SessionReady implements spec §6.1 SessionReady / §4.6
	// mark_ready_for_push: on the true transition edge it triggers a
	// catch-up drain for the session's owner.
	SessionReady(sessionID uuid.UUID) bool

	SubscribePresence(watcherID, targetID uuid.UUID) model.OnlineStatus
	UnsubscribePresence(watcherID, targetID uuid.UUID)
	GetOnlineStatus(ctx context.Context, userID uuid.UUID) model.OnlineStatus
	BatchGetOnlineStatus(ctx context.Context, userIDs []uuid.UUID) map[uuid.UUID]model.OnlineStatus

	// TypingIndicator implements spec §6.1 TypingIndicator: a best-effort,
	// unpersisted broadcast to the channel's other online members.
	TypingIndicator(channel model.Channel, fromUser uuid.UUID, isTyping bool)
}

type core struct {
	sync     *syncengine.Engine
	sessions *session.Manager
	presence *presence.Registry
	catchup  *catchup.Worker
	hub      hub.Hubber
}

func NewCore(sync *syncengine.Engine, sessions *session.Manager, pres *presence.Registry, cw *catchup.Worker, h hub.Hubber) Core {
	return &core{sync: sync, sessions: sessions, presence: pres, catchup: cw, hub: h}
}

func (c *core) Submit(ctx context.Context, cmd model.SubmitCommand) (model.SubmitResult, error) {
	return c.sync.Submit(ctx, cmd)
}

func (c *core) GetDifference(ctx context.Context, channel model.Channel, lastPts uint64, limit int) (model.Difference, error) {
	return c.sync.GetDifference(ctx, channel, lastPts, limit)
}

func (c *core) GetChannelPts(ctx context.Context, channelID uuid.UUID) (uint64, error) {
	return c.sync.GetChannelPts(ctx, channelID)
}

func (c *core) BatchGetChannelPts(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID]uint64, error) {
	return c.sync.BatchGetChannelPts(ctx, channelIDs)
}

// SessionReady marks sessionID Ready and, only on the NotReady→Ready edge,
// triggers the catch-up worker for its owner (spec §4.10: "the moment one
// of a user's sessions signals readiness").
func (c *core) SessionReady(sessionID uuid.UUID) bool {
	s, ok := c.sessions.Get(sessionID)
	if !ok {
		return false
	}
	transitioned := c.sessions.MarkReadyForPush(sessionID)
	if transitioned {
		c.catchup.Trigger(s.UserID)
	}
	return transitioned
}

func (c *core) SubscribePresence(watcherID, targetID uuid.UUID) model.OnlineStatus {
	c.presence.Subscribe(watcherID, targetID)
	return c.presence.GetOnlineStatus(context.Background(), targetID)
}

func (c *core) UnsubscribePresence(watcherID, targetID uuid.UUID) {
	c.presence.Unsubscribe(watcherID, targetID)
}

func (c *core) GetOnlineStatus(ctx context.Context, userID uuid.UUID) model.OnlineStatus {
	return c.presence.GetOnlineStatus(ctx, userID)
}

func (c *core) BatchGetOnlineStatus(ctx context.Context, userIDs []uuid.UUID) map[uuid.UUID]model.OnlineStatus {
	return c.presence.BatchGetOnlineStatus(ctx, userIDs)
}

// TypingIndicator is intentionally not routed through internal/router:
// spec §6.1 classes it as ephemeral/unpersisted, so it skips the offline
// queue entirely and is simply dropped for offline recipients.
func (c *core) TypingIndicator(channel model.Channel, fromUser uuid.UUID, isTyping bool) {
	now := time.Now().UnixMilli()
	for _, peer := range channel.Participants {
		if peer.ID == fromUser {
			continue
		}
		ev := &model.SystemEvent{
			ID:         uuid.NewString(),
			TraceID:    uuid.NewString(),
			UserID:     peer.ID,
			Kind:       model.TypingIndicator,
			Priority:   model.PriorityLow,
			OccurredAt: now,
			Payload:    model.TypingPayload{Channel: channel, FromUser: fromUser, IsTyping: isTyping},
		}
		c.hub.Broadcast(ev)
	}
}
