// Package syncengine implements the sync engine (spec §4.4): the only
// component that writes pts. It orchestrates the submit pipeline (dedup →
// gap detection → pts allocation → commit → fan-out → registration) and the
// difference-pull pipeline (cache-first reads with a has_more computation),
// plus GetChannelPts/BatchGetChannelPts. Grounded on
// original_source/src/service/sync/sync_service.rs::SyncService, rewired
// onto internal/sequence + internal/commitlog + internal/submitregistry +
// internal/synccache instead of the prototype's Postgres DAOs + Redis
// client, and onto internal/router for fan-out instead of a flat
// cache.fanout_to_online_users call.
package syncengine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/commitlog"
	"github.com/webitel/im-sync-core/internal/domain/errs"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/msgindex"
	"github.com/webitel/im-sync-core/internal/participant"
	"github.com/webitel/im-sync-core/internal/router"
	"github.com/webitel/im-sync-core/internal/sequence"
	"github.com/webitel/im-sync-core/internal/snowflake"
	"github.com/webitel/im-sync-core/internal/submitregistry"
	"github.com/webitel/im-sync-core/internal/synccache"
)

const defaultDifferenceLimit = 100

// Bus is the outbound-export hook (internal/adapter/pubsub): re-publishing
// a delivered commit to the bus is best-effort and never blocks or fails
// the submit pipeline (spec §7: fan-out failures never surface to the
// submitter).
type Bus interface {
	Publish(ctx context.Context, ev model.Eventer) error
}

// Engine is the spec §4.4 sync engine.
type Engine struct {
	pts      *sequence.Allocator
	log      *commitlog.Log
	registry *submitregistry.Registry
	cache    *synccache.Cache
	index    *msgindex.Index
	members  *participant.Membership
	router   *router.Router
	ids      *snowflake.Generator
	bus      Bus
}

func New(
	pts *sequence.Allocator,
	log *commitlog.Log,
	registry *submitregistry.Registry,
	cache *synccache.Cache,
	index *msgindex.Index,
	members *participant.Membership,
	r *router.Router,
	ids *snowflake.Generator,
	bus Bus,
) *Engine {
	return &Engine{
		pts:      pts,
		log:      log,
		registry: registry,
		cache:    cache,
		index:    index,
		members:  members,
		router:   r,
		ids:      ids,
		bus:      bus,
	}
}

// Submit implements the spec §4.4 submit pipeline.
func (e *Engine) Submit(ctx context.Context, cmd model.SubmitCommand) (model.SubmitResult, error) {
	// 1. Idempotency check (spec §4.3, §4.4 step 1).
	if existing, ok, err := e.registry.CheckDuplicate(ctx, cmd.LocalMessageID); err != nil {
		return model.SubmitResult{}, errs.New(errs.TransientStorage, "syncengine.Submit.CheckDuplicate", err)
	} else if ok {
		slog.Info("SUBMIT_DUPLICATE", "local_message_id", cmd.LocalMessageID)
		return *existing, nil
	}

	// 2. No permission check: the engine only allocates and persists, and
	// internal/transport/ws calls Submit without checking the sender's
	// channel membership either.

	// 3. Current pts, cache-first (spec §4.4 step 3).
	serverPts, err := e.currentPts(ctx, cmd.Channel.ID)
	if err != nil {
		return model.SubmitResult{}, err
	}

	// 4. Gap detection (spec §4.4 step 4, §8 invariant: has_gap iff the
	// client's last-seen pts is behind server pts by more than one).
	hasGap := serverPts > 0 && cmd.LastPts < serverPts-1

	// 5. Allocate the new pts durably (spec §4.4 step 5 — the only pts
	// mutation in the whole system).
	newPts, err := e.pts.Next(ctx, cmd.Channel.ID)
	if err != nil {
		return model.SubmitResult{}, errs.New(errs.TransientStorage, "syncengine.Submit.AllocatePts", err)
	}

	// 6. server_msg_id via snowflake (spec §4.4 step 6).
	serverMsgID := e.ids.Next()

	// 7. Build the commit (spec §4.4 step 7).
	commit := model.Commit{
		Pts:             newPts,
		ServerMsgID:     serverMsgID,
		LocalMessageID:  cmd.LocalMessageID,
		Channel:         cmd.Channel,
		CommandType:     cmd.CommandType,
		Message:         cmd.Payload,
		SenderID:        cmd.SenderID,
		ServerTimestamp: model.NewCommitTimestamp(),
		Decision:        model.DecisionAccepted,
	}

	// 8. Durable append (spec §4.4 step 8).
	if err := e.log.Append(ctx, commit); err != nil {
		return model.SubmitResult{}, errs.New(errs.TransientStorage, "syncengine.Submit.Append", err)
	}

	// 9. Hot-tier cache write-through (spec §4.4 step 9).
	e.cache.CacheCommit(commit)

	// 10. Fan-out to the channel's resolved membership, minus the sender
	// (spec §4.4 step 10). Each recipient independently resolves to a live
	// session or an offline-queue entry.
	e.fanOut(ctx, commit)

	// 11. Register for idempotency (spec §4.4 step 11). Done last so a
	// concurrent retry observing the registry entry can always find the
	// commit already appended.
	result := model.SubmitResult{
		Decision:        commit.Decision,
		Pts:             newPts,
		ServerMsgID:     serverMsgID,
		ServerTimestamp: commit.ServerTimestamp,
		LocalMessageID:  cmd.LocalMessageID,
		HasGap:          hasGap,
		CurrentPts:      serverPts,
	}
	if err := e.registry.Register(ctx, cmd.LocalMessageID, result); err != nil {
		// The commit is already durable and fanned out; a registration
		// failure only risks a future duplicate-submit re-running this
		// pipeline, which is itself idempotent at the storage layer. Log and
		// surface as transient rather than unwinding the commit.
		slog.Error("SUBMIT_REGISTER_FAILED", "local_message_id", cmd.LocalMessageID, "err", err)
		return result, errs.New(errs.TransientStorage, "syncengine.Submit.Register", err)
	}

	if hasGap {
		slog.Warn("SUBMIT_GAP_DETECTED", "channel_id", cmd.Channel.ID, "client_pts", cmd.LastPts, "server_pts", serverPts)
	}
	return result, nil
}

// fanOut delivers commit to every member of its channel except the sender,
// routing each through internal/router (spec §4.4 step 10). It also
// records each recipient's pts -> server_msg_id pair in internal/msgindex.
func (e *Engine) fanOut(ctx context.Context, commit model.Commit) {
	members, err := e.members.Members(ctx, commit.Channel)
	if err != nil {
		slog.Error("FANOUT_MEMBERS_FAILED", "channel_id", commit.Channel.ID, "err", err)
		return
	}
	for _, userID := range members {
		if userID == commit.SenderID {
			continue
		}
		e.index.Add(userID, commit.Pts, commit.ServerMsgID)
		e.router.RouteToUser(userID, commit.Channel, commit)
	}

	if e.bus != nil {
		if err := e.bus.Publish(ctx, model.NewCommitEvent(commit, commit.SenderID)); err != nil {
			slog.Warn("FANOUT_BUS_PUBLISH_FAILED", "channel_id", commit.Channel.ID, "server_msg_id", commit.ServerMsgID, "err", err)
		}
	}
}

// currentPts reads a channel's pts, checking the hot tier before the
// in-process allocator mirror (spec §4.4 step 3 / GetChannelPts).
func (e *Engine) currentPts(ctx context.Context, channelID uuid.UUID) (uint64, error) {
	if pts, ok := e.cache.PtsOf(channelID); ok {
		return pts, nil
	}
	pts, err := e.pts.Current(ctx, channelID)
	if err != nil {
		return 0, errs.New(errs.TransientStorage, "syncengine.currentPts", err)
	}
	e.cache.SetPts(channelID, pts)
	return pts, nil
}

// GetDifference implements the spec §4.4 difference-pull pipeline:
// cache-first read, falling back to the durable commit log on a miss.
func (e *Engine) GetDifference(ctx context.Context, channel model.Channel, lastPts uint64, limit int) (model.Difference, error) {
	if limit <= 0 {
		limit = defaultDifferenceLimit
	}

	commits, ok := e.cache.QueryCommits(channel.ID, lastPts, limit)
	if !ok {
		dbCommits, err := e.log.Query(ctx, channel.ID, lastPts, limit)
		if err != nil {
			return model.Difference{}, errs.New(errs.TransientStorage, "syncengine.GetDifference.Query", err)
		}
		for _, c := range dbCommits {
			e.cache.CacheCommit(c)
		}
		commits = dbCommits
	}

	currentPts, err := e.currentPts(ctx, channel.ID)
	if err != nil {
		return model.Difference{}, err
	}

	hasMore := false
	if n := len(commits); n > 0 {
		hasMore = commits[n-1].Pts < currentPts
	}

	return model.Difference{
		Commits:    commits,
		CurrentPts: currentPts,
		HasMore:    hasMore,
	}, nil
}

// GetChannelPts returns a single channel's current pts (spec §6.1).
func (e *Engine) GetChannelPts(ctx context.Context, channelID uuid.UUID) (uint64, error) {
	return e.currentPts(ctx, channelID)
}

// BatchGetChannelPts resolves pts for many channels in one call (spec §6.1);
// each lookup still goes through the same cache-first path as a single
// GetChannelPts, so a cold cache degrades to one store round-trip per miss
// rather than a single batched query — acceptable since internal/sequence's
// in-process mirror makes misses rare after startup warm-up.
func (e *Engine) BatchGetChannelPts(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID]uint64, error) {
	out := make(map[uuid.UUID]uint64, len(channelIDs))
	for _, id := range channelIDs {
		pts, err := e.currentPts(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = pts
	}
	return out, nil
}
