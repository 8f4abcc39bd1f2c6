// Package synccache is the hot tier the sync engine checks before falling
// back to durable storage: current pts per channel, recent commits, and
// the online-user set for a channel's fan-out decision (spec §4.4 steps
// 3/9/10). It is process-local rather than a shared Redis tier — no redis
// client is present anywhere in the retrieval pack this module was built
// from, see DESIGN.md — so a node restart simply re-warms from
// internal/store/postgres via internal/sequence.Warm / commitlog.Query.
package synccache

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

const (
	defaultCommitCacheSize = 10_000
	defaultPtsCacheSize    = 5_000
	defaultOnlineTTL       = 30 * time.Second
)

// commitKey addresses a single cached commit by (channel, pts).
type commitKey struct {
	channel uuid.UUID
	pts     uint64
}

// Cache is the hot-tier facade used by internal/syncengine.
type Cache struct {
	pts     *lru.Cache[uuid.UUID, uint64]
	commits *lru.Cache[commitKey, model.Commit]
	online  *expirable.LRU[uuid.UUID, []uuid.UUID] // channelID -> online participant ids
}

func New() *Cache {
	pts, _ := lru.New[uuid.UUID, uint64](defaultPtsCacheSize)
	commits, _ := lru.New[commitKey, model.Commit](defaultCommitCacheSize)
	online := expirable.NewLRU[uuid.UUID, []uuid.UUID](1024, nil, defaultOnlineTTL)
	return &Cache{pts: pts, commits: commits, online: online}
}

// PtsOf returns the cached pts for a channel, if present.
func (c *Cache) PtsOf(channelID uuid.UUID) (uint64, bool) {
	return c.pts.Get(channelID)
}

// SetPts updates the cached pts for a channel.
func (c *Cache) SetPts(channelID uuid.UUID, pts uint64) {
	c.pts.Add(channelID, pts)
}

// CacheCommit stores a just-persisted commit for fast difference-pull reads.
func (c *Cache) CacheCommit(commit model.Commit) {
	c.commits.Add(commitKey{channel: commit.Channel.ID, pts: commit.Pts}, commit)
	c.SetPts(commit.Channel.ID, commit.Pts)
}

// QueryCommits returns cached commits for channelID in (fromPts, fromPts+limit],
// or ok=false if any entry in that range is not cached (the caller should
// then fall back to commitlog.Query for the whole range — a partial hot-tier
// result would silently under-report a difference-pull response).
func (c *Cache) QueryCommits(channelID uuid.UUID, fromPts uint64, limit int) ([]model.Commit, bool) {
	out := make([]model.Commit, 0, limit)
	for pts := fromPts + 1; pts <= fromPts+uint64(limit); pts++ {
		commit, ok := c.commits.Get(commitKey{channel: channelID, pts: pts})
		if !ok {
			return nil, false
		}
		out = append(out, commit)
	}
	return out, true
}

// OnlineParticipants returns the cached online-subset of a channel's
// membership, if the cache hasn't expired (presence is volatile, hence the
// short TTL on the expirable LRU).
func (c *Cache) OnlineParticipants(channelID uuid.UUID) ([]uuid.UUID, bool) {
	return c.online.Get(channelID)
}

// SetOnlineParticipants refreshes the online-subset cache for a channel.
func (c *Cache) SetOnlineParticipants(channelID uuid.UUID, userIDs []uuid.UUID) {
	c.online.Add(channelID, userIDs)
}
