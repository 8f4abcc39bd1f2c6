// Package session implements the session manager (spec §4.6): tracking
// each device's connection lifecycle and per-channel watermark
// (client_pts), and deciding when a reconnect supersedes a stale session
// rather than racing it. Grounded on original_source/src/model/pts.rs's
// DeviceSyncState concept and the teacher's registry.Connector lifecycle.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Superseded is returned by Bind when a new session for the same
// (user, device) replaces one already on record; the caller (connection
// manager) must request that the old transport connection close and the
// catch-up worker must abandon any in-flight drain against it (spec §4.6
// per-device invariant, §9 Open Questions).
type Superseded struct {
	OldSessionID uuid.UUID
}

// Manager owns the authoritative Session objects; internal/hub only knows
// about transport connections, not sync state.
type Manager struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*model.Session
	byUser map[uuid.UUID]map[uuid.UUID]*model.Session // userID -> sessionID -> session
	// byDevice tracks the single live session per (userID, deviceID), the
	// slot a fresh bind supersedes (spec §4.6: "at most one live session per
	// (user_id, device_id)").
	byDevice map[uuid.UUID]map[string]uuid.UUID // userID -> deviceID -> sessionID
}

func NewManager() *Manager {
	return &Manager{
		byID:     make(map[uuid.UUID]*model.Session),
		byUser:   make(map[uuid.UUID]map[uuid.UUID]*model.Session),
		byDevice: make(map[uuid.UUID]map[string]uuid.UUID),
	}
}

// Bind registers a brand new session for a device connect (spec §4.6
// bind). If a session is already on record for this (userID, deviceID), it
// is transitioned to Kicked and returned as Superseded so the caller can
// force-close its transport and abandon its catch-up drain.
func (m *Manager) Bind(userID uuid.UUID, deviceID, platform string) (*model.Session, *Superseded) {
	s := model.NewSession(userID, deviceID, platform)

	m.mu.Lock()
	defer m.mu.Unlock()

	var superseded *Superseded
	perDevice, ok := m.byDevice[userID]
	if !ok {
		perDevice = make(map[string]uuid.UUID)
		m.byDevice[userID] = perDevice
	}
	if oldID, ok := perDevice[deviceID]; ok {
		if old, ok := m.byID[oldID]; ok {
			old.State = model.Kicked
			superseded = &Superseded{OldSessionID: oldID}
		}
	}
	perDevice[deviceID] = s.ID

	m.byID[s.ID] = s
	perUser, ok := m.byUser[userID]
	if !ok {
		perUser = make(map[uuid.UUID]*model.Session)
		m.byUser[userID] = perUser
	}
	perUser[s.ID] = s
	return s, superseded
}

// Get returns a session by id.
func (m *Manager) Get(sessionID uuid.UUID) (*model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[sessionID]
	return s, ok
}

// ForUser returns every session for userID, in any state (spec §4.6
// list_user_sessions).
func (m *Manager) ForUser(userID uuid.UUID) []*model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	perUser := m.byUser[userID]
	out := make([]*model.Session, 0, len(perUser))
	for _, s := range perUser {
		out = append(out, s)
	}
	return out
}

// MarkReadyForPush idempotently transitions sessionID from NotReady to
// Ready, returning true only on the edge transition (spec §4.6, §8
// invariant 8: "no push targets a session whose state has never
// transitioned to Ready").
func (m *Manager) MarkReadyForPush(sessionID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[sessionID]
	if !ok || s.State != model.NotReady {
		return false
	}
	s.State = model.Ready
	return true
}

// Unbind marks a session Closed and drops its binding (spec §4.6 unbind).
// It does not touch the offline queue: whatever that session hadn't yet
// drained stays queued for the user's other devices or a future reconnect.
func (m *Manager) Unbind(sessionID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[sessionID]
	if !ok {
		return
	}
	s.State = model.Closed
	delete(m.byID, sessionID)
	if perUser, ok := m.byUser[s.UserID]; ok {
		delete(perUser, sessionID)
		if len(perUser) == 0 {
			delete(m.byUser, s.UserID)
		}
	}
	if perDevice, ok := m.byDevice[s.UserID]; ok {
		if perDevice[s.DeviceID] == sessionID {
			delete(perDevice, s.DeviceID)
		}
		if len(perDevice) == 0 {
			delete(m.byDevice, s.UserID)
		}
	}
}

// UpdateClientPts monotonically advances sessionID's watermark for a
// channel; decreases are ignored (spec §4.6 update_client_pts).
func (m *Manager) UpdateClientPts(sessionID, channelID uuid.UUID, pts uint64) bool {
	m.mu.RLock()
	s, ok := m.byID[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	s.AdvanceWatermark(channelID, pts)
	return true
}

// IsOnline reports whether userID has at least one bound session (any state).
func (m *Manager) IsOnline(userID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]) > 0
}

// ReadySessionForDevice returns the live Ready session for (userID,
// deviceID), if any (spec §4.8 route_to_device).
func (m *Manager) ReadySessionForDevice(userID uuid.UUID, deviceID string) (*model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	perDevice, ok := m.byDevice[userID]
	if !ok {
		return nil, false
	}
	sessionID, ok := perDevice[deviceID]
	if !ok {
		return nil, false
	}
	s, ok := m.byID[sessionID]
	if !ok || s.State != model.Ready {
		return nil, false
	}
	return s, true
}

// ReadySessions returns every currently Ready session for userID.
func (m *Manager) ReadySessions(userID uuid.UUID) []*model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	perUser := m.byUser[userID]
	out := make([]*model.Session, 0, len(perUser))
	for _, s := range perUser {
		if s.State == model.Ready {
			out = append(out, s)
		}
	}
	return out
}
