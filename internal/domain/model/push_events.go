package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnectedPayload is sent to the client immediately after a session is
// registered with the hub (spec §4.7 Connection manager).
type ConnectedPayload struct {
	Ok            bool   `json:"ok"`
	ConnectionID  string `json:"connection_id"`
	ServerVersion string `json:"server_version"`
}

// DisconnectedPayload is sent before the server tears down a stream.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"` // "SHUTDOWN", "EVICTED", "TIMEOUT"
}

// TypingPayload carries an ephemeral typing indicator (spec §6.1 TypingIndicator).
type TypingPayload struct {
	Channel  Channel `json:"-"`
	FromUser uuid.UUID
	IsTyping bool
}

// SystemEvent is a generic envelope for signals that are not a Commit:
// connect/disconnect acks, presence flips, typing indicators.
type SystemEvent struct {
	ID         string
	TraceID    string
	UserID     uuid.UUID
	Kind       EventKind
	Priority   EventPriority
	OccurredAt int64
	Payload    any
	cached     any
}

var _ Eventer = (*SystemEvent)(nil)

func (e *SystemEvent) GetID() string           { return e.ID }
func (e *SystemEvent) GetTraceID() string      { return e.TraceID }
func (e *SystemEvent) GetKind() EventKind      { return e.Kind }
func (e *SystemEvent) GetUserID() uuid.UUID    { return e.UserID }
func (e *SystemEvent) GetPriority() EventPriority { return e.Priority }
func (e *SystemEvent) GetOccurredAt() int64    { return e.OccurredAt }
func (e *SystemEvent) GetPayload() any         { return e.Payload }
func (e *SystemEvent) GetCached() any          { return e.cached }
func (e *SystemEvent) SetCached(v any)         { e.cached = v }

// NewConnectedEvent builds the handshake acknowledgment pushed to a freshly
// registered session.
func NewConnectedEvent(userID uuid.UUID, connID, serverVersion string) *SystemEvent {
	return &SystemEvent{
		ID:         uuid.NewString(),
		TraceID:    uuid.NewString(),
		UserID:     userID,
		Kind:       Connected,
		Priority:   PriorityNormal,
		OccurredAt: time.Now().UnixMilli(),
		Payload: &ConnectedPayload{
			Ok:            true,
			ConnectionID:  connID,
			ServerVersion: serverVersion,
		},
	}
}

// NewDisconnectedEvent builds the pre-teardown notification.
func NewDisconnectedEvent(userID uuid.UUID, reason, code string) *SystemEvent {
	return &SystemEvent{
		ID:         uuid.NewString(),
		TraceID:    uuid.NewString(),
		UserID:     userID,
		Kind:       Disconnected,
		Priority:   PriorityHigh,
		OccurredAt: time.Now().UnixMilli(),
		Payload:    &DisconnectedPayload{Reason: reason, Code: code},
	}
}

// CommitEvent wraps a Commit for fan-out to a single physical recipient
// (spec §4.8 Message router). It distinguishes the commit's business peers
// (Commit.Channel/Message.From/To) from the physical routing target
// (userID), exactly as the teacher's MessageV1Event does for its Message type.
type CommitEvent struct {
	id     uuid.UUID
	commit Commit
	userID uuid.UUID
	cached any
}

var (
	_ Eventer    = (*CommitEvent)(nil)
	_ Exportable = (*CommitEvent)(nil)
)

// NewCommitEvent builds a routed delivery of commit to userID (one physical session owner).
func NewCommitEvent(commit Commit, userID uuid.UUID) *CommitEvent {
	return &CommitEvent{
		id:     uuid.New(),
		commit: commit,
		userID: userID,
	}
}

func (e *CommitEvent) GetID() string           { return e.id.String() }
func (e *CommitEvent) GetTraceID() string      { return e.commit.LocalMessageID.String() }
func (e *CommitEvent) GetPayload() any         { return e.commit }
func (e *CommitEvent) GetUserID() uuid.UUID    { return e.userID }
func (e *CommitEvent) GetOccurredAt() int64    { return e.commit.ServerTimestamp }
func (e *CommitEvent) GetKind() EventKind      { return CommitDelivered }
func (e *CommitEvent) GetPriority() EventPriority { return PriorityHigh }
func (e *CommitEvent) GetCached() any          { return e.cached }
func (e *CommitEvent) SetCached(v any)         { e.cached = v }

// Commit returns the wrapped commit for callers that need the typed value
// (catch-up worker replay, watermark bookkeeping).
func (e *CommitEvent) Commit() Commit { return e.commit }

// GetRoutingKey builds the outbound bus topic:
// im_sync.v1.{domain}.{peer_type}.{sub}.commit.delivered, where peer_type
// is "bot" when the recipient's issuer names a bot or schema, else "contact".
func (e *CommitEvent) GetRoutingKey() string {
	peerType := "contact"
	issuer := strings.ToLower(e.commit.Message.To.Issuer)
	if strings.Contains(issuer, "bot") || strings.Contains(issuer, "schema") {
		peerType = "bot"
	}
	return fmt.Sprintf("im_sync.v1.%d.%s.%s.commit.delivered",
		e.commit.Message.To.DomainID, peerType, e.commit.Message.To.Sub)
}
