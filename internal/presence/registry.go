// Package presence implements the presence registry (spec §4.5): the
// online-status record per user and the subscription graph that decides
// who gets notified when a user's status flips. Grounded on
// original_source/src/infra/presence_manager.rs and
// online_status_manager.rs (OnlineStatusManager's user_online/user_offline/
// update_heartbeat), rewired onto internal/hub for fan-out and onto a
// durable Store for last_seen_at instead of the prototype's DashMap-only,
// non-durable state.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/hub"
)

// DerivedStatus is the spec §4.5 status category computed from last_seen_at
// when a user has no live device session.
type DerivedStatus int16

const (
	StatusOnline DerivedStatus = iota + 1
	StatusRecently
	StatusLastWeek
	StatusLastMonth
	StatusLongTimeAgo
)

func (s DerivedStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusRecently:
		return "recently"
	case StatusLastWeek:
		return "last_week"
	case StatusLastMonth:
		return "last_month"
	case StatusLongTimeAgo:
		return "long_time_ago"
	default:
		return "unknown"
	}
}

// Config mirrors the spec §4.5 tunables. The boundaries between Recently/
// LastWeek/LastMonth/LongTimeAgo are left to deployment policy in the spec;
// this module picks the conventional IM defaults (1 day / 7 days / 30 days).
type Config struct {
	OnlineThreshold time.Duration
	RecentlyWindow  time.Duration
	LastWeekWindow  time.Duration
	LastMonthWindow time.Duration
	FlushInterval   time.Duration
	CacheTTL        time.Duration
}

func DefaultConfig() Config {
	return Config{
		OnlineThreshold: 180 * time.Second,
		RecentlyWindow:  24 * time.Hour,
		LastWeekWindow:  7 * 24 * time.Hour,
		LastMonthWindow: 30 * 24 * time.Hour,
		FlushInterval:   5 * time.Minute,
		CacheTTL:        5 * time.Minute,
	}
}

// Store is the durable backing for last_seen_at (spec storage note: "one row
// per user for last_seen_at").
type Store interface {
	BatchSaveLastSeen(ctx context.Context, lastSeen map[uuid.UUID]time.Time) error
	LoadLastSeen(ctx context.Context, userID uuid.UUID) (time.Time, bool, error)
}

// Registry tracks who is online and who wants to know about it.
type Registry struct {
	cfg Config
	hub hub.Hubber
	store Store

	mu       sync.RWMutex
	status   map[uuid.UUID]*model.OnlineStatus
	lastSeen map[uuid.UUID]time.Time
	dirty    map[uuid.UUID]struct{} // awaiting durable flush

	// subscribers[target] = set of watcher userIDs notified on target's status changes.
	subscribers map[uuid.UUID]map[uuid.UUID]struct{}
	// outgoing[watcher] = set of targets watcher subscribed to, the reverse
	// index UnsubscribeAll needs to avoid scanning every target (spec §4.5
	// "drops all outgoing subscription edges originating at this user").
	outgoing map[uuid.UUID]map[uuid.UUID]struct{}

	statusCache *expirable.LRU[uuid.UUID, model.OnlineStatus]
}

func NewRegistry(cfg Config, h hub.Hubber, store Store) *Registry {
	return &Registry{
		cfg:         cfg,
		hub:         h,
		store:       store,
		status:      make(map[uuid.UUID]*model.OnlineStatus),
		lastSeen:    make(map[uuid.UUID]time.Time),
		dirty:       make(map[uuid.UUID]struct{}),
		subscribers: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		outgoing:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		statusCache: expirable.NewLRU[uuid.UUID, model.OnlineStatus](50_000, nil, cfg.CacheTTL),
	}
}

// MarkOnline records a new device session coming online and notifies
// subscribers watching userID (spec §4.5 step: presence fan-out). The
// user's first-ever transition to online flushes last_seen_at immediately.
func (r *Registry) MarkOnline(ctx context.Context, userID uuid.UUID, s model.Session) {
	now := time.Now()
	r.mu.Lock()
	st, ok := r.status[userID]
	if !ok {
		st = &model.OnlineStatus{UserID: userID}
		r.status[userID] = st
	}
	firstDevice := len(st.Devices) == 0
	st.Devices = append(st.Devices, s)
	st.LastActive = now
	r.lastSeen[userID] = now
	r.mu.Unlock()

	r.statusCache.Remove(userID)
	if firstDevice {
		r.flushOne(ctx, userID, now)
	} else {
		r.markDirty(userID)
	}
	r.notifySubscribers(targetID(userID), true)
}

// MarkOffline removes a device session; userID goes fully offline once its
// last device disconnects, and its outgoing subscription edges are dropped
// (spec §4.5 "then drops all outgoing subscription edges originating at
// this user").
func (r *Registry) MarkOffline(ctx context.Context, userID, sessionID uuid.UUID) {
	now := time.Now()
	r.mu.Lock()
	st, ok := r.status[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	remaining := st.Devices[:0]
	for _, d := range st.Devices {
		if d.ID != sessionID {
			remaining = append(remaining, d)
		}
	}
	st.Devices = remaining
	isOffline := len(st.Devices) == 0
	if isOffline {
		delete(r.status, userID)
		r.lastSeen[userID] = now
	}
	r.mu.Unlock()

	if !isOffline {
		return
	}
	r.statusCache.Remove(userID)
	r.flushOne(ctx, userID, now)
	r.notifySubscribers(targetID(userID), false)
	r.UnsubscribeAll(userID)
}

// Heartbeat updates in-memory last_seen_at and marks userID for the next
// batched durable flush (spec §4.5 Writes: Heartbeat).
func (r *Registry) Heartbeat(userID uuid.UUID) {
	r.mu.Lock()
	r.lastSeen[userID] = time.Now()
	r.mu.Unlock()
	r.markDirty(userID)
}

func (r *Registry) markDirty(userID uuid.UUID) {
	r.mu.Lock()
	r.dirty[userID] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) flushOne(ctx context.Context, userID uuid.UUID, at time.Time) {
	if err := r.store.BatchSaveLastSeen(ctx, map[uuid.UUID]time.Time{userID: at}); err != nil {
		slog.Error("PRESENCE_FLUSH_FAILED", "user_id", userID, "err", err)
	}
}

// Flush durably persists every dirty user's last_seen_at (spec §4.5: "durable
// flush interval configurable, default 5 min"); called on a ticker by
// registerLifecycle.
func (r *Registry) Flush(ctx context.Context) {
	r.mu.Lock()
	if len(r.dirty) == 0 {
		r.mu.Unlock()
		return
	}
	batch := make(map[uuid.UUID]time.Time, len(r.dirty))
	for userID := range r.dirty {
		batch[userID] = r.lastSeen[userID]
	}
	r.dirty = make(map[uuid.UUID]struct{})
	r.mu.Unlock()

	if err := r.store.BatchSaveLastSeen(ctx, batch); err != nil {
		slog.Error("PRESENCE_BATCH_FLUSH_FAILED", "count", len(batch), "err", err)
	}
}

// GetOnlineStatus implements spec §6.1 GetOnlineStatus: cache → in-memory →
// durable store, in that order (spec §4.5 Reads).
func (r *Registry) GetOnlineStatus(ctx context.Context, userID uuid.UUID) model.OnlineStatus {
	if st, ok := r.statusCache.Get(userID); ok {
		return st
	}

	r.mu.RLock()
	if st, ok := r.status[userID]; ok {
		snapshot := *st
		r.mu.RUnlock()
		r.statusCache.Add(userID, snapshot)
		return snapshot
	}
	seen, haveSeen := r.lastSeen[userID]
	r.mu.RUnlock()

	if !haveSeen {
		if stored, ok, err := r.store.LoadLastSeen(ctx, userID); err == nil && ok {
			seen = stored
			haveSeen = true
			r.mu.Lock()
			r.lastSeen[userID] = stored
			r.mu.Unlock()
		}
	}

	result := model.OnlineStatus{UserID: userID}
	if haveSeen {
		result.LastActive = seen
	}
	r.statusCache.Add(userID, result)
	return result
}

// BatchGetOnlineStatus implements spec §4.5 batch_get_status.
func (r *Registry) BatchGetOnlineStatus(ctx context.Context, userIDs []uuid.UUID) map[uuid.UUID]model.OnlineStatus {
	out := make(map[uuid.UUID]model.OnlineStatus, len(userIDs))
	for _, id := range userIDs {
		out[id] = r.GetOnlineStatus(ctx, id)
	}
	return out
}

// DerivedStatusOf computes the spec §4.5 status category for st.
func (r *Registry) DerivedStatusOf(st model.OnlineStatus) DerivedStatus {
	if st.IsOnline() {
		return StatusOnline
	}
	elapsed := time.Since(st.LastActive)
	switch {
	case elapsed <= r.cfg.RecentlyWindow:
		return StatusRecently
	case elapsed <= r.cfg.LastWeekWindow:
		return StatusLastWeek
	case elapsed <= r.cfg.LastMonthWindow:
		return StatusLastMonth
	default:
		return StatusLongTimeAgo
	}
}

// Subscribe registers watcherID as interested in targetID's presence (spec
// §6.1 SubscribePresence, §3 Presence subscription graph).
func (r *Registry) Subscribe(watcherID, targetID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subscribers[targetID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.subscribers[targetID] = set
	}
	set[watcherID] = struct{}{}

	out, ok := r.outgoing[watcherID]
	if !ok {
		out = make(map[uuid.UUID]struct{})
		r.outgoing[watcherID] = out
	}
	out[targetID] = struct{}{}
}

// Unsubscribe implements spec §6.1 UnsubscribePresence: removes one edge.
func (r *Registry) Unsubscribe(watcherID, targetID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeEdgeLocked(watcherID, targetID)
}

// UnsubscribeAll drops every outgoing edge originating at userID (spec §4.5
// invariant: fired automatically on this user going offline, also callable
// directly from the session manager on unbind).
func (r *Registry) UnsubscribeAll(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	targets := r.outgoing[userID]
	for targetID := range targets {
		if set, ok := r.subscribers[targetID]; ok {
			delete(set, userID)
			if len(set) == 0 {
				delete(r.subscribers, targetID)
			}
		}
	}
	delete(r.outgoing, userID)
}

func (r *Registry) removeEdgeLocked(watcherID, targetID uuid.UUID) {
	if set, ok := r.subscribers[targetID]; ok {
		delete(set, watcherID)
		if len(set) == 0 {
			delete(r.subscribers, targetID)
		}
	}
	if out, ok := r.outgoing[watcherID]; ok {
		delete(out, targetID)
		if len(out) == 0 {
			delete(r.outgoing, watcherID)
		}
	}
}

func (r *Registry) notifySubscribers(targetUserID uuid.UUID, online bool) {
	r.mu.RLock()
	watchers := make([]uuid.UUID, 0, len(r.subscribers[targetUserID]))
	for w := range r.subscribers[targetUserID] {
		watchers = append(watchers, w)
	}
	r.mu.RUnlock()

	for _, watcherID := range watchers {
		payload := map[string]any{"user_id": targetUserID, "online": online}
		ev := &model.SystemEvent{
			ID:         uuid.NewString(),
			TraceID:    uuid.NewString(),
			UserID:     watcherID,
			Kind:       model.PresenceChanged,
			Priority:   model.PriorityNormal,
			OccurredAt: time.Now().UnixMilli(),
			Payload:    payload,
		}
		r.hub.Broadcast(ev)
	}
}

// targetID exists only to make notifySubscribers' call sites read as
// "notify watchers of this target", since MarkOnline/MarkOffline both
// operate on userID as the target of their own presence change.
func targetID(userID uuid.UUID) uuid.UUID { return userID }
