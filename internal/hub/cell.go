// Package hub is the in-process per-user actor fan-out layer: the
// mechanism internal/router and internal/session use to reach a live
// transport stream on this node without polling. Adapted directly from the
// teacher's internal/domain/registry package (Hub/Cell/Connector).
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/conn"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Celler is the internal per-user actor contract.
type Celler interface {
	Push(ev model.Eventer) bool
	Attach(c conn.Connector)
	Detach(connID uuid.UUID) bool
	IsIdle(timeout time.Duration) bool
	Stop()
}

// Cell delivers events to every live connection of a single user, batching
// drains of its mailbox so bursts don't thrash the scheduler.
type Cell struct {
	userID  uuid.UUID
	mailbox chan model.Eventer

	mu       sync.RWMutex
	sessions map[uuid.UUID]conn.Connector

	doneCh chan struct{}

	lastActivityUnix int64
}

func NewCell(userID uuid.UUID, bufferSize int) *Cell {
	c := &Cell{
		userID:           userID,
		mailbox:          make(chan model.Eventer, bufferSize),
		sessions:         make(map[uuid.UUID]conn.Connector),
		doneCh:           make(chan struct{}),
		lastActivityUnix: time.Now().Unix(),
	}
	go c.loop()
	return c
}

func (c *Cell) touch() {
	atomic.StoreInt64(&c.lastActivityUnix, time.Now().Unix())
}

func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	hasSessions := len(c.sessions) > 0
	c.mu.RUnlock()
	if hasSessions {
		return false
	}
	lastActivity := time.Unix(atomic.LoadInt64(&c.lastActivityUnix), 0)
	return time.Since(lastActivity) > timeout
}

func (c *Cell) Push(ev model.Eventer) bool {
	c.touch()
	select {
	case c.mailbox <- ev:
		return true
	default:
		return false
	}
}

// PushToSession delivers ev to exactly one of this cell's live connections,
// the one bound to sessionID (spec §4.8 route_to_session / route_to_device).
// Unlike Push/deliver it bypasses the mailbox and sends synchronously,
// since the caller (internal/router) needs to know whether this specific
// session accepted the send in order to decide on offline-queue fallback.
func (c *Cell) PushToSession(sessionID uuid.UUID, ev model.Eventer) bool {
	c.touch()
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cn := range c.sessions {
		if cn.GetSessionID() == sessionID {
			return cn.Send(ev, 250*time.Millisecond)
		}
	}
	return false
}

func (c *Cell) Attach(conn conn.Connector) {
	c.mu.Lock()
	c.sessions[conn.GetID()] = conn
	c.mu.Unlock()
	c.touch()
}

// Detach removes connID and reports whether the cell now has no sessions.
func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	delete(c.sessions, connID)
	isEmpty := len(c.sessions) == 0
	c.mu.Unlock()
	c.touch()
	return isEmpty
}

// HasSession reports whether a connection with the given sessionID is still
// registered in this cell (backs Hub.HasSession).
func (c *Cell) HasSession(sessionID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cn := range c.sessions {
		if cn.GetSessionID() == sessionID {
			return true
		}
	}
	return false
}

// SessionAlive reports whether sessionID is both registered in this cell
// and its transport stream hasn't torn down silently (spec §4.7: "must
// tolerate orphan sessions by inspecting transport liveness before each
// push").
func (c *Cell) SessionAlive(sessionID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cn := range c.sessions {
		if cn.GetSessionID() == sessionID {
			return cn.IsAlive()
		}
	}
	return false
}

// DetachSession removes whichever connection is bound to sessionID,
// reporting whether the cell is now empty. Used by internal/router for
// stale-session eviction scoped to a specific session id (spec §4.8: evict
// "only if its session_id matches").
func (c *Cell) DetachSession(sessionID uuid.UUID) (evicted, empty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cn := range c.sessions {
		if cn.GetSessionID() == sessionID {
			delete(c.sessions, id)
			return true, len(c.sessions) == 0
		}
	}
	return false, len(c.sessions) == 0
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case ev := <-c.mailbox:
			c.deliver(ev)
			for range 64 {
				select {
				case next := <-c.mailbox:
					c.deliver(next)
				default:
					goto wait
				}
			}
		wait:
		}
	}
}

func (c *Cell) deliver(ev model.Eventer) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.sessions) == 0 {
		return
	}
	for _, cn := range c.sessions {
		cn.Send(ev, 250*time.Millisecond)
	}
}

func (c *Cell) Stop() {
	close(c.doneCh)
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cn := range c.sessions {
		cn.Close()
		delete(c.sessions, id)
	}
}
