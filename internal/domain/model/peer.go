package model

import "github.com/google/uuid"

//go:generate stringer -type=PeerType
type PeerType int16

const (
	// [ZERO_VALUE_GUARD] WE START FROM 1 TO DISTINGUISH FROM UNINITIALIZED DATA
	PeerUser PeerType = iota + 1
	PeerBot
	PeerChat
	PeerChannel
	PeerGroup
)

// Peer identifies a business participant, independent of where it is routed.
type Peer struct {
	ID       uuid.UUID
	Type     PeerType
	Name     string
	Sub      string
	Issuer   string
	DomainID int64
}

// ChannelType classifies the conversation a Channel belongs to, mirroring the
// channel_type discriminator carried alongside channel_id throughout the
// submit/difference-pull pipeline.
type ChannelType int16

const (
	ChannelDirect ChannelType = iota + 1
	ChannelGroup
	ChannelBroadcast
)

// Channel is the pts allocation unit: a direct conversation, group chat or
// broadcast channel. pts is scoped to the channel ID alone; Type does not
// take part in the key.
type Channel struct {
	ID   uuid.UUID
	Type ChannelType
	// Participants is the resolved membership snapshot used for fan-out and
	// permission checks; it is refreshed by internal/participant.
	Participants []Peer
}

// Key returns the cache/store key for this channel's pts counter: the
// channel ID as a string.
func (c Channel) Key() string {
	return c.ID.String()
}
