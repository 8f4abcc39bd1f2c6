package model

import "github.com/google/uuid"

// EventKind classifies the payloads that flow through a user's Cell mailbox.
type EventKind int16

const (
	Connected EventKind = iota + 1
	Disconnected
	CommitDelivered
	PresenceChanged
	TypingIndicator
)

// EventPriority controls the backpressure strategy in Connector.Send.
type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer is the shared interface for everything routed through a Hub/Cell
// (spec §4.8 Message router, §5 per-user mailbox).
type Eventer interface {
	GetID() string
	GetTraceID() string
	GetKind() EventKind
	GetUserID() uuid.UUID
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	// GetCached/SetCached hold a pre-marshaled wire representation so a
	// fan-out to N sessions of the same user marshals the payload once.
	GetCached() any
	SetCached(any)
}

// Exportable marks an Eventer that should additionally be re-published to
// the outbound message bus (internal/adapter/pubsub), mirroring the
// teacher's event.Exportable contract.
type Exportable interface {
	GetRoutingKey() string
}
