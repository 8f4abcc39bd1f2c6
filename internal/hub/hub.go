package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/conn"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Hubber is the external API the router and session manager use.
type Hubber interface {
	Broadcast(ev model.Eventer) bool
	PushToSession(userID, sessionID uuid.UUID, ev model.Eventer) bool
	Register(userID uuid.UUID, c conn.Connector)
	Unregister(userID uuid.UUID, connID uuid.UUID)
	IsConnected(userID uuid.UUID) bool
	HasSession(userID, sessionID uuid.UUID) bool
	SessionAlive(userID, sessionID uuid.UUID) bool
	EvictSession(userID, sessionID uuid.UUID) bool
	Stats() (users, connections int)
	Shutdown()
}

type hubConfig struct {
	evictionInterval time.Duration
	idleTimeout      time.Duration
	mailboxSize      int
}

// Hub fans events out to per-user Cells using a Virtual Cell (Actor)
// architecture: lock-free cell lookup via sync.Map, with each cell
// independently buffering and draining its own mailbox.
type Hub struct {
	cells  sync.Map
	config hubConfig
	stopCh chan struct{}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			evictionInterval: time.Minute,
			idleTimeout:      5 * time.Minute,
			mailboxSize:      1024,
		},
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.runEvictor()
	return h
}

func (h *Hub) IsConnected(userID uuid.UUID) bool {
	_, ok := h.cells.Load(userID)
	return ok
}

func (h *Hub) HasSession(userID, sessionID uuid.UUID) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	return val.(*Cell).HasSession(sessionID)
}

func (h *Hub) Broadcast(ev model.Eventer) bool {
	if val, ok := h.cells.Load(ev.GetUserID()); ok {
		return val.(*Cell).Push(ev)
	}
	return false
}

// PushToSession delivers ev to exactly one session of userID, used by
// internal/router for route_to_device/route_to_session (spec §4.8).
func (h *Hub) PushToSession(userID, sessionID uuid.UUID, ev model.Eventer) bool {
	if val, ok := h.cells.Load(userID); ok {
		return val.(*Cell).PushToSession(sessionID, ev)
	}
	return false
}

// SessionAlive checks transport liveness for sessionID before a push (spec §4.7).
func (h *Hub) SessionAlive(userID, sessionID uuid.UUID) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	return val.(*Cell).SessionAlive(sessionID)
}

// EvictSession removes a stale session from the online map, reclaiming the
// cell if it becomes empty (spec §4.8: "evict the session from the
// in-memory online map only if its session_id matches").
func (h *Hub) EvictSession(userID, sessionID uuid.UUID) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	cell := val.(*Cell)
	evicted, empty := cell.DetachSession(sessionID)
	if empty {
		h.cells.Delete(userID)
	}
	return evicted
}

func (h *Hub) Register(userID uuid.UUID, c conn.Connector) {
	val, _ := h.cells.LoadOrStore(userID, NewCell(userID, h.config.mailboxSize))
	val.(*Cell).Attach(c)
}

// Unregister detaches a connection; reclamation of an emptied cell happens
// asynchronously via the evictor, matching the teacher's design so a
// quick disconnect/reconnect doesn't pay cell-teardown cost.
func (h *Hub) Unregister(userID, connID uuid.UUID) {
	if val, ok := h.cells.Load(userID); ok {
		val.(*Cell).Detach(connID)
	}
}

func (h *Hub) Stats() (users, connections int) {
	h.cells.Range(func(_, value any) bool {
		users++
		cell := value.(*Cell)
		cell.mu.RLock()
		connections += len(cell.sessions)
		cell.mu.RUnlock()
		return true
	})
	return
}

func (h *Hub) runEvictor() {
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.performEviction()
		}
	}
}

func (h *Hub) performEviction() {
	reaped := 0
	h.cells.Range(func(key, value any) bool {
		cell := value.(*Cell)
		if cell.IsIdle(h.config.idleTimeout) {
			cell.Stop()
			h.cells.Delete(key)
			reaped++
		}
		return true
	})
	if reaped > 0 {
		slog.Debug("HUB_EVICTION", "reclaimed", reaped)
	}
}

func (h *Hub) Shutdown() {
	close(h.stopCh)
	h.cells.Range(func(_, value any) bool {
		value.(*Cell).Stop()
		return true
	})
}
