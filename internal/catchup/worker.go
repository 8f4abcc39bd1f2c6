// Package catchup implements the event-driven catch-up worker (spec
// §4.10): drains a user's offline queue the moment one of their sessions
// signals readiness, respecting each session's independent watermark.
// Grounded on original_source/src/infra/offline_worker.rs::
// OfflineMessageWorker — a trigger channel (buffered to
// defaultTriggerBuffer; Trigger drops and logs when it is full) consumed by a single
// dispatch goroutine, with per-user work fanned out onto its own
// goroutine exactly as the Rust worker tokio::spawns per triggered user
// (spec §9: "no polling, idempotent on duplicate triggers, per-user work
// is independent").
package catchup

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/offlinequeue"
	"github.com/webitel/im-sync-core/internal/router"
	"github.com/webitel/im-sync-core/internal/session"
)

const defaultTriggerBuffer = 4096

// Worker is the spec §4.10 catch-up worker.
type Worker struct {
	sessions  *session.Manager
	queue     *offlinequeue.Queue
	router    *router.Router
	batchSize int

	trigger chan uuid.UUID
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func New(sessions *session.Manager, queue *offlinequeue.Queue, r *router.Router) *Worker {
	return &Worker{
		sessions:  sessions,
		queue:     queue,
		router:    r,
		batchSize: offlinequeue.DefaultConfig().BatchSize,
		trigger:   make(chan uuid.UUID, defaultTriggerBuffer),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Trigger schedules a drain for userID; non-blocking, and safe to call
// repeatedly for the same user (each call just re-checks the queue; spec
// §8 invariant 4 guarantees no commit is re-pushed to a session that
// already advanced past it).
func (w *Worker) Trigger(userID uuid.UUID) {
	select {
	case w.trigger <- userID:
	default:
		slog.Warn("CATCHUP_TRIGGER_DROPPED", "user_id", userID)
	}
}

// Run consumes the trigger channel until ctx is cancelled or Stop is
// called, then processes the triggers still buffered before returning. It
// never polls: the only way work happens is a Trigger call.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
		case <-w.stopCh:
		case userID := <-w.trigger:
			go w.drainUser(userID)
			continue
		}
		for {
			select {
			case userID := <-w.trigger:
				w.drainUser(userID)
			default:
				return
			}
		}
	}
}

// Stop requests Run to exit and blocks until it has (spec §5 shutdown:
// "the catch-up worker drains its trigger channel up to a deadline, then
// exits").
func (w *Worker) Stop(deadline time.Duration) {
	close(w.stopCh)
	select {
	case <-w.doneCh:
	case <-time.After(deadline):
	}
}

// drainUser processes every Ready session of userID independently: a
// failing session never blocks another (spec §4.10 step 2).
func (w *Worker) drainUser(userID uuid.UUID) {
	sessions := w.sessions.ReadySessions(userID)
	if len(sessions) == 0 {
		return // no work without readiness (spec §4.10 invariant)
	}
	for _, s := range sessions {
		w.drainSession(userID, s)
	}
}

// drainSession implements spec §4.10 step 1(a-d) for one session: compute
// the still-owed set per channel, sort ascending by pts, chunk into
// batches, and push — advancing the watermark only after a batch
// succeeds.
func (w *Worker) drainSession(userID uuid.UUID, s *model.Session) {
	entries := w.queue.GetAll(userID)
	if len(entries) == 0 {
		return
	}

	owed := make([]model.OfflineQueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.TargetDeviceID != "" && e.TargetDeviceID != s.DeviceID {
			continue
		}
		if e.Commit.Pts > s.Watermark(e.Channel.ID) {
			owed = append(owed, e)
		}
	}
	if len(owed) == 0 {
		return
	}
	sort.Slice(owed, func(i, j int) bool { return owed[i].Commit.Pts < owed[j].Commit.Pts })

	batchSize := w.batchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	for start := 0; start < len(owed); start += batchSize {
		end := min(start+batchSize, len(owed))
		w.pushBatch(userID, s, owed[start:end])
	}
}

func (w *Worker) pushBatch(userID uuid.UUID, s *model.Session, batch []model.OfflineQueueEntry) {
	highestByChannel := make(map[uuid.UUID]uint64, 4)
	for _, entry := range batch {
		result := w.router.RouteToSession(userID, s.ID, entry.Channel, entry.Commit)
		if result.SuccessCount == 0 {
			// This session likely just died; stop this batch and leave the
			// remainder queued for the next trigger (spec §4.10 step 1d: "on
			// failure, retain the entry and surface the failure").
			slog.Warn("CATCHUP_PUSH_FAILED", "user_id", userID, "session_id", s.ID, "pts", entry.Commit.Pts)
			break
		}
		w.queue.Remove(userID, entry.Commit.ServerMsgID)
		if entry.Commit.Pts > highestByChannel[entry.Channel.ID] {
			highestByChannel[entry.Channel.ID] = entry.Commit.Pts
		}
	}
	for channelID, pts := range highestByChannel {
		w.sessions.UpdateClientPts(s.ID, channelID, pts)
	}
}
