// Package commitlog is the append-only, per-channel ordered store of
// Commits (spec §4.2). It is the system of record difference-pull reads
// from when the sync cache misses.
package commitlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Store is the durable backing for the commit log, fulfilled by
// internal/store/postgres.
type Store interface {
	// Append persists a just-allocated commit. It must be called after the
	// commit's pts has already been durably allocated (internal/sequence),
	// so append ordering always matches pts ordering.
	Append(ctx context.Context, commit model.Commit) error
	// Query returns commits for channelID with pts in (fromPts, fromPts+limit],
	// ordered ascending, for the difference-pull pipeline (spec §4.4).
	Query(ctx context.Context, channelID uuid.UUID, fromPts uint64, limit int) ([]model.Commit, error)
}

// Log is a thin typed wrapper over Store; kept as its own type (rather than
// using Store directly everywhere) so callers depend on commitlog.Log and
// not on the storage-layer interface name.
type Log struct {
	store Store
}

func New(store Store) *Log {
	return &Log{store: store}
}

func (l *Log) Append(ctx context.Context, commit model.Commit) error {
	return l.store.Append(ctx, commit)
}

func (l *Log) Query(ctx context.Context, channelID uuid.UUID, fromPts uint64, limit int) ([]model.Commit, error) {
	if limit <= 0 {
		limit = 100
	}
	return l.store.Query(ctx, channelID, fromPts, limit)
}
