package model

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the outcome of the submit pipeline's validation step (spec §4.4).
type Decision int16

const (
	// DecisionAccepted means the commit was assigned a pts and persisted as-is.
	DecisionAccepted Decision = iota + 1
	// DecisionTransformed means the server rewrote part of the payload (e.g.
	// content moderation, link unfurl placeholder) before persisting it.
	DecisionTransformed
	// DecisionRejected means the commit was not assigned a pts at all.
	DecisionRejected
)

func (d Decision) String() string {
	switch d {
	case DecisionAccepted:
		return "accepted"
	case DecisionTransformed:
		return "transformed"
	case DecisionRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// SubmitCommand is what a connected client sends to advance a channel (spec §6.1 Submit).
type SubmitCommand struct {
	LocalMessageID uuid.UUID
	Channel        Channel
	SenderID       uuid.UUID
	CommandType    string
	Payload        Message
	// LastPts is the client's view of the channel's pts at submit time; used
	// for gap detection (spec §4.4 step 4 / §8 invariant on has_gap).
	LastPts uint64
}

// Commit is the durable, ordered record produced by a successful submit
// (spec §3 Commit, §4.2 Commit log store).
type Commit struct {
	Pts             uint64
	ServerMsgID     uint64
	LocalMessageID  uuid.UUID
	Channel         Channel
	CommandType     string
	Message         Message
	SenderID        uuid.UUID
	ServerTimestamp int64
	Decision        Decision
}

// NewCommitTimestamp returns the server timestamp used for a just-minted commit.
func NewCommitTimestamp() int64 {
	return time.Now().UnixMilli()
}

// SubmitResult is the response to a SubmitCommand (spec §4.4 step 12).
type SubmitResult struct {
	Decision        Decision
	Pts             uint64
	ServerMsgID     uint64
	ServerTimestamp int64
	LocalMessageID  uuid.UUID
	HasGap          bool
	CurrentPts      uint64
}

// Difference is the response to a difference-pull request (spec §4.4 Difference-pull pipeline).
type Difference struct {
	Commits    []Commit
	CurrentPts uint64
	HasMore    bool
}
