// Package router implements the message router (spec §4.8): given a
// target user (optionally a target device) and a commit, it resolves live
// sessions via internal/hub, pushes to them, and falls back to
// internal/offlinequeue when a session is absent, stale, or the send
// fails. Grounded on original_source/src/infra/message_router.rs's
// MessageRouter (route_message_to_user/device/session, stale-session
// detection via is_session_online, store_offline_message), rewired onto
// internal/session.Manager + internal/hub instead of the prototype's own
// SessionManager trait + two-level cache.
package router

import (
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/hub"
	"github.com/webitel/im-sync-core/internal/offlinequeue"
	"github.com/webitel/im-sync-core/internal/session"
)

// RouteResult reports what happened to a single routing attempt (spec
// §4.8 RouteResult).
type RouteResult struct {
	SuccessCount int
	FailedCount  int
	OfflineCount int
	LatencyMs    int64
}

func (r RouteResult) merge(o RouteResult) RouteResult {
	return RouteResult{
		SuccessCount: r.SuccessCount + o.SuccessCount,
		FailedCount:  r.FailedCount + o.FailedCount,
		OfflineCount: r.OfflineCount + o.OfflineCount,
		LatencyMs:    r.LatencyMs + o.LatencyMs,
	}
}

// Config mirrors message_router.rs::MessageRouterConfig's relevant knobs;
// queue sizing/batching live in internal/offlinequeue.Config instead.
type Config struct {
	OfflineTTL time.Duration
}

func DefaultConfig() Config {
	return Config{OfflineTTL: 7 * 24 * time.Hour}
}

// Router is the spec §4.8 message router.
type Router struct {
	cfg      Config
	hub      hub.Hubber
	sessions *session.Manager
	queue    *offlinequeue.Queue
}

func New(cfg Config, h hub.Hubber, sessions *session.Manager, queue *offlinequeue.Queue) *Router {
	return &Router{cfg: cfg, hub: h, sessions: sessions, queue: queue}
}

// RouteToUser pushes commit to every Ready session of userID. It falls back
// to the offline queue with one untargeted entry when the user has no Ready
// session at all, and per session when a push to a Ready session fails
// (spec §4.8 route_to_user, §4.4 submit pipeline step 9 fan-out).
func (r *Router) RouteToUser(userID uuid.UUID, channel model.Channel, commit model.Commit) RouteResult {
	start := time.Now()
	ready := r.sessions.ReadySessions(userID)
	if len(ready) == 0 {
		r.enqueueOffline(userID, channel, commit, "")
		return RouteResult{OfflineCount: 1, LatencyMs: since(start)}
	}

	result := RouteResult{}
	for _, s := range ready {
		result = result.merge(r.pushToSession(userID, channel, commit, s.ID, s.DeviceID))
	}
	result.LatencyMs = since(start)
	return result
}

// RouteToDevice pushes commit only to userID's deviceID, if it currently
// has a Ready session (spec §4.8 route_to_device).
func (r *Router) RouteToDevice(userID uuid.UUID, deviceID string, channel model.Channel, commit model.Commit) RouteResult {
	start := time.Now()
	s, ok := r.sessions.ReadySessionForDevice(userID, deviceID)
	if !ok {
		r.enqueueOffline(userID, channel, commit, deviceID)
		return RouteResult{OfflineCount: 1, LatencyMs: since(start)}
	}
	result := r.pushToSession(userID, channel, commit, s.ID, deviceID)
	result.LatencyMs = since(start)
	return result
}

// RouteToSession pushes commit directly to sessionID, bypassing the
// device-map lookup (spec §4.8 route_to_session).
func (r *Router) RouteToSession(userID, sessionID uuid.UUID, channel model.Channel, commit model.Commit) RouteResult {
	start := time.Now()
	s, ok := r.sessions.Get(sessionID)
	if !ok || !s.IsReady() {
		r.enqueueOffline(userID, channel, commit, "")
		return RouteResult{OfflineCount: 1, LatencyMs: since(start)}
	}
	result := r.pushToSession(userID, channel, commit, sessionID, s.DeviceID)
	result.LatencyMs = since(start)
	return result
}

// pushToSession attempts delivery to one specific session, handling
// stale-session eviction (spec §4.8 "evict the session from the in-memory
// online map only if its session_id matches").
func (r *Router) pushToSession(userID uuid.UUID, channel model.Channel, commit model.Commit, sessionID uuid.UUID, deviceID string) RouteResult {
	if !r.hub.SessionAlive(userID, sessionID) {
		r.hub.EvictSession(userID, sessionID)
		r.enqueueOffline(userID, channel, commit, deviceID)
		return RouteResult{OfflineCount: 1}
	}

	ev := model.NewCommitEvent(commit, userID)
	if r.hub.PushToSession(userID, sessionID, ev) {
		return RouteResult{SuccessCount: 1}
	}

	// Send failed: classify as errs.TransportGone (spec §7) and never
	// surface to the submitter — fall back to the offline queue so a
	// future reconnect or catch-up drain recovers it.
	r.enqueueOffline(userID, channel, commit, deviceID)
	return RouteResult{FailedCount: 1, OfflineCount: 1}
}

func (r *Router) enqueueOffline(userID uuid.UUID, channel model.Channel, commit model.Commit, targetDeviceID string) {
	now := time.Now()
	r.queue.Enqueue(model.OfflineQueueEntry{
		UserID:         userID,
		Channel:        channel,
		Commit:         commit,
		TargetDeviceID: targetDeviceID,
		EnqueuedAt:     now,
		ExpiresAt:      now.Add(r.cfg.OfflineTTL),
		Priority:       model.PriorityHigh,
	})
}

// RegisterDeviceOnline binds a device/session pair as reachable for
// routing (spec §4.8 register_device_online). The session manager is the
// source of truth; this method exists so callers work against the
// router's spec-named surface rather than reaching into internal/session
// directly.
func (r *Router) RegisterDeviceOnline(userID uuid.UUID, deviceID, platform string) (*model.Session, *session.Superseded) {
	return r.sessions.Bind(userID, deviceID, platform)
}

// RegisterDeviceOffline unbinds a session (spec §4.8 register_device_offline).
func (r *Router) RegisterDeviceOffline(sessionID uuid.UUID) {
	r.sessions.Unbind(sessionID)
}

// DeliverOfflineMessages pushes every queued entry addressed to userID's
// deviceID (or un-targeted) that the device's Ready session hasn't seen,
// returning the count delivered (spec §4.8 deliver_offline_messages). The
// event-driven equivalent that fires automatically on SessionReady lives
// in internal/catchup; this method is the synchronous, on-demand variant
// of the same operation.
func (r *Router) DeliverOfflineMessages(userID uuid.UUID, deviceID string) int {
	s, ok := r.sessions.ReadySessionForDevice(userID, deviceID)
	if !ok {
		return 0
	}

	entries := r.queue.GetAll(userID)
	delivered := 0
	for i := len(entries) - 1; i >= 0; i-- { // oldest first
		entry := entries[i]
		if entry.TargetDeviceID != "" && entry.TargetDeviceID != deviceID {
			continue
		}
		if entry.Commit.Pts <= s.Watermark(entry.Channel.ID) {
			continue
		}
		ev := model.NewCommitEvent(entry.Commit, userID)
		if r.hub.PushToSession(userID, s.ID, ev) {
			r.sessions.UpdateClientPts(s.ID, entry.Channel.ID, entry.Commit.Pts)
			r.queue.Remove(userID, entry.Commit.ServerMsgID)
			delivered++
		}
	}
	return delivered
}

func since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
