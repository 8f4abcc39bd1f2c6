package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/webitel/im-sync-core/internal/conn"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/hub"
	"github.com/webitel/im-sync-core/internal/presence"
	"github.com/webitel/im-sync-core/internal/service"
	"github.com/webitel/im-sync-core/internal/session"
)

const mailboxBufferSize = 256

// Handler upgrades an HTTP request to a WebSocket and pumps it against
// internal/service.Core for the lifetime of the connection (spec §4.6
// Session manager bind/unbind, §4.7 Connection manager).
type Handler struct {
	logger   *slog.Logger
	core     service.Core
	sessions *session.Manager
	hub      hub.Hubber
	presence *presence.Registry
	upgrader websocket.Upgrader
}

func NewHandler(logger *slog.Logger, core service.Core, sessions *session.Manager, h hub.Hubber, pres *presence.Registry) *Handler {
	return &Handler{
		logger:   logger,
		core:     core,
		sessions: sessions,
		hub:      h,
		presence: pres,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection, binds a session (spec §4.6 bind),
// registers it with the hub and presence registry, and pumps both
// directions until the socket closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, deviceID, platform, ok := authTripleFrom(r)
	if !ok {
		http.Error(w, "missing auth triple", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WS_UPGRADE_FAILED", "err", err)
		return
	}
	defer wsConn.Close()

	sess, superseded := h.sessions.Bind(userID, deviceID, platform)
	if superseded != nil {
		h.hub.EvictSession(userID, superseded.OldSessionID)
	}

	c := conn.New(r.Context(), userID, sess.ID, mailboxBufferSize)
	h.hub.Register(userID, c)
	h.presence.MarkOnline(r.Context(), userID, *sess)

	l := h.logger.With("user_id", userID, "device_id", deviceID, "session_id", sess.ID)
	l.Info("WS_SESSION_OPENED")

	done := make(chan struct{})
	go h.writePump(wsConn, c, done)
	h.readPump(wsConn, userID, sess.ID, l)
	close(done)

	c.Close()
	h.hub.Unregister(userID, c.GetID())
	h.sessions.Unbind(sess.ID)
	h.presence.MarkOffline(r.Context(), userID, sess.ID)
	l.Info("WS_SESSION_CLOSED")
}

// writePump drains the connector's mailbox (spec §5 "push path is
// decoupled from the submit pipeline") onto the socket.
func (h *Handler) writePump(wsConn *websocket.Conn, c conn.Connector, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-c.Recv():
			if !ok {
				return
			}
			frame := pushEnvelope(ev)
			if err := wsConn.WriteJSON(frame); err != nil {
				h.logger.Warn("WS_WRITE_FAILED", "err", err)
				return
			}
		}
	}
}

// readPump decodes client frames and dispatches them onto Core (spec §6.1
// capability table), writing a direct reply for request/response ops.
func (h *Handler) readPump(wsConn *websocket.Conn, userID, sessionID uuid.UUID, l *slog.Logger) {
	for {
		var frame clientEnvelope
		if err := wsConn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn("WS_READ_FAILED", "err", err)
			}
			return
		}
		resp := h.dispatch(frame, userID, sessionID)
		if resp == nil {
			continue
		}
		if err := wsConn.WriteJSON(resp); err != nil {
			l.Warn("WS_REPLY_FAILED", "err", err)
			return
		}
	}
}

func (h *Handler) dispatch(frame clientEnvelope, userID, sessionID uuid.UUID) *serverEnvelope {
	ctx := context.Background()
	switch frame.Op {
	case opSubmit:
		cmd := model.SubmitCommand{
			LocalMessageID: frame.LocalMessageID,
			Channel:        model.Channel{ID: frame.ChannelID, Type: model.ChannelType(frame.ChannelType)},
			SenderID:       userID,
			CommandType:    frame.CommandType,
			Payload:        messageFromPayload(frame.Payload),
			LastPts:        frame.LastPts,
		}
		result, err := h.core.Submit(ctx, cmd)
		return reply(frame.Op, result, err)

	case opGetDifference:
		channel := model.Channel{ID: frame.ChannelID, Type: model.ChannelType(frame.ChannelType)}
		diff, err := h.core.GetDifference(ctx, channel, frame.LastPts, frame.Limit)
		return reply(frame.Op, diff, err)

	case opGetChannelPts:
		pts, err := h.core.GetChannelPts(ctx, frame.ChannelID)
		return reply(frame.Op, pts, err)

	case opSessionReady:
		return reply(frame.Op, h.core.SessionReady(sessionID), nil)

	case opSubscribePresence:
		statuses := make(map[uuid.UUID]model.OnlineStatus, len(frame.TargetUserIDs))
		for _, target := range frame.TargetUserIDs {
			statuses[target] = h.core.SubscribePresence(userID, target)
		}
		return reply(frame.Op, statuses, nil)

	case opUnsubscribePresence:
		for _, target := range frame.TargetUserIDs {
			h.core.UnsubscribePresence(userID, target)
		}
		return reply(frame.Op, true, nil)

	case opGetOnlineStatus:
		return reply(frame.Op, h.core.BatchGetOnlineStatus(ctx, frame.TargetUserIDs), nil)

	case opTypingIndicator:
		channel := model.Channel{ID: frame.ChannelID, Type: model.ChannelType(frame.ChannelType)}
		h.core.TypingIndicator(channel, userID, frame.IsTyping)
		return nil

	default:
		return &serverEnvelope{Op: frame.Op, Ok: false, Error: "unknown op"}
	}
}

func reply(op string, result any, err error) *serverEnvelope {
	if err != nil {
		return &serverEnvelope{Op: op, Ok: false, Error: err.Error()}
	}
	return &serverEnvelope{Op: op, Ok: true, Result: result}
}

// pushEnvelope renders a hub-originated Eventer as the spec §6.3 push
// envelope. Non-commit system events (connected/disconnected/presence/
// typing) are carried in the generic Result field instead.
func pushEnvelope(ev model.Eventer) *serverEnvelope {
	if ce, ok := ev.(*model.CommitEvent); ok {
		commit := ce.Commit()
		return &serverEnvelope{
			Op:              "push",
			Ok:              true,
			ServerMsgID:     commit.ServerMsgID,
			ChannelID:       commit.Channel.ID,
			ChannelType:     int16(commit.Channel.Type),
			SenderID:        commit.SenderID,
			MessageType:     commit.CommandType,
			ServerTimestamp: commit.ServerTimestamp,
			Pts:             commit.Pts,
			Result:          commit.Message,
		}
	}
	return &serverEnvelope{Op: "event", Ok: true, Result: ev.GetPayload()}
}

// messageFromPayload re-marshals the client's opaque JSON payload into the
// typed Message shape (spec §3 Commit.payload: "opaque structured value").
func messageFromPayload(raw map[string]any) model.Message {
	var msg model.Message
	data, err := json.Marshal(raw)
	if err != nil {
		return msg
	}
	_ = json.Unmarshal(data, &msg)
	return msg
}

// authTripleFrom resolves the authenticated (user_id, device_id) from the
// request. Token validation is explicitly out of this core's scope (spec
// §1/§6.2); a real deployment fronts this handler with a middleware that
// populates these headers after verifying a JWT.
func authTripleFrom(r *http.Request) (userID uuid.UUID, deviceID, platform string, ok bool) {
	uidStr := r.Header.Get("X-User-Id")
	deviceID = r.Header.Get("X-Device-Id")
	platform = r.Header.Get("X-Device-Platform")
	if uidStr == "" || deviceID == "" {
		return uuid.Nil, "", "", false
	}
	userID, err := uuid.Parse(uidStr)
	if err != nil {
		return uuid.Nil, "", "", false
	}
	return userID, deviceID, platform, true
}
