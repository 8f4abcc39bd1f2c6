// Package ws is the WebSocket ingress/egress surface (spec §1: "the core
// consumes authenticated (user_id, device_id, session_id) triples" — wire
// framing and token validation are the caller's concern; this package is
// the thin adapter that turns a gorilla/websocket connection into calls
// against internal/service.Core). Adapted from the teacher's
// internal/handler/ws/delivery.go, rewired onto the full capability table
// instead of a bare Subscribe/Unsubscribe shim, and onto a JSON envelope
// (spec §6.3 Message envelope on the wire) instead of the teacher's
// protobuf-only marshaller.
package ws

import "github.com/google/uuid"

// clientEnvelope is what a connected client sends. Op selects which
// capability (spec §6.1) this frame invokes; only the fields relevant to Op
// are populated.
type clientEnvelope struct {
	Op string `json:"op"`

	LocalMessageID uuid.UUID      `json:"local_message_id,omitempty"`
	ChannelID      uuid.UUID      `json:"channel_id,omitempty"`
	ChannelType    int16          `json:"channel_type,omitempty"`
	CommandType    string         `json:"command_type,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	LastPts        uint64         `json:"last_pts,omitempty"`
	Limit          int            `json:"limit,omitempty"`

	TargetUserIDs []uuid.UUID `json:"target_user_ids,omitempty"`
	IsTyping      bool        `json:"is_typing,omitempty"`
}

const (
	opSubmit             = "submit"
	opGetDifference      = "get_difference"
	opGetChannelPts      = "get_channel_pts"
	opSessionReady       = "session_ready"
	opSubscribePresence  = "subscribe_presence"
	opUnsubscribePresence = "unsubscribe_presence"
	opGetOnlineStatus    = "get_online_status"
	opTypingIndicator    = "typing_indicator"
)

// serverEnvelope is every frame the server writes back, either a direct
// reply to a client op or an asynchronously pushed event.
type serverEnvelope struct {
	Op     string `json:"op"`
	Ok     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`

	// Push-only fields, populated when this frame originates from the hub
	// rather than as a direct reply (spec §6.3 push envelope).
	ServerMsgID     uint64 `json:"server_msg_id,omitempty"`
	ChannelID       uuid.UUID `json:"channel_id,omitempty"`
	ChannelType     int16  `json:"channel_type,omitempty"`
	SenderID        uuid.UUID `json:"sender_id,omitempty"`
	MessageType     string `json:"message_type,omitempty"`
	ServerTimestamp int64  `json:"server_timestamp,omitempty"`
	Pts             uint64 `json:"pts,omitempty"`
}
