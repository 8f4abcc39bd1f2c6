package model

import (
	"time"

	"github.com/google/uuid"
)

// ReadyState is the session lifecycle state machine (spec §3 Device session):
// a session starts NotReady and is only eligible for pushes once it reaches
// Ready via an explicit client signal (spec §4.6 mark_ready_for_push).
type ReadyState int16

const (
	NotReady ReadyState = iota + 1
	Ready
	Kicked
	Closed
)

func (s ReadyState) String() string {
	switch s {
	case NotReady:
		return "not_ready"
	case Ready:
		return "ready"
	case Kicked:
		return "kicked"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is a single device/connection's synchronization state (spec §3
// Device session, Per-session watermark).
type Session struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	DeviceID string
	Platform string

	// generation increments on every supersede so stale catch-up drains can
	// detect they no longer own this session (spec §4.10 edge case:
	// reconnect races).
	generation uint64

	ClientPts map[uuid.UUID]uint64 // per-channel watermark

	ConnectedAt  time.Time
	LastActiveAt time.Time
	State        ReadyState
}

// NewSession creates a fresh session in NotReady state (spec §3: "A fresh
// session starts in NotReady").
func NewSession(userID uuid.UUID, deviceID, platform string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New(),
		UserID:       userID,
		DeviceID:     deviceID,
		Platform:     platform,
		ClientPts:    make(map[uuid.UUID]uint64),
		ConnectedAt:  now,
		LastActiveAt: now,
		State:        NotReady,
	}
}

// IsReady reports whether this session is currently eligible for pushes.
func (s *Session) IsReady() bool { return s.State == Ready }

// Generation returns the current supersede counter.
func (s *Session) Generation() uint64 { return s.generation }

// Supersede bumps the generation. internal/session's Bind does not call it:
// a reconnect there allocates a new session and marks the old one Kicked.
func (s *Session) Supersede() { s.generation++ }

// Watermark returns the client's last-acked pts for a channel.
func (s *Session) Watermark(channelID uuid.UUID) uint64 {
	return s.ClientPts[channelID]
}

// AdvanceWatermark records that the client has caught up to pts for a channel.
// It never moves the watermark backwards (spec §8: watermark monotonicity).
func (s *Session) AdvanceWatermark(channelID uuid.UUID, pts uint64) {
	if pts > s.ClientPts[channelID] {
		s.ClientPts[channelID] = pts
	}
}

// OnlineStatus is the aggregate, multi-device presence record for a user
// (spec §3 Online-status record).
type OnlineStatus struct {
	UserID     uuid.UUID
	Devices    []Session
	LastActive time.Time
}

// IsOnline reports whether any device session is currently connected.
func (s OnlineStatus) IsOnline() bool { return len(s.Devices) > 0 }
