package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/sequence"
)

var _ sequence.Store = (*SequenceStore)(nil)

// SequenceStore is the durable backing for internal/sequence.Allocator
// (spec §4.1: "a durable row per channel holding current_pts; allocate is
// an upsert that atomically sets current_pts = current_pts + 1 ... in the
// same round-trip"). Row-level atomicity comes from Postgres's own
// MVCC/upsert semantics; no application lock is taken here.
type SequenceStore struct {
	pool *Pool
}

func NewSequenceStore(pool *Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

func (s *SequenceStore) AllocatePts(ctx context.Context, channelID uuid.UUID) (uint64, error) {
	const q = `
		INSERT INTO channel_pts (channel_id, current_pts)
		VALUES ($1, 1)
		ON CONFLICT (channel_id) DO UPDATE SET current_pts = channel_pts.current_pts + 1
		RETURNING current_pts`
	var pts uint64
	if err := s.pool.QueryRow(ctx, q, channelID).Scan(&pts); err != nil {
		return 0, err
	}
	return pts, nil
}

func (s *SequenceStore) CurrentPts(ctx context.Context, channelID uuid.UUID) (uint64, error) {
	const q = `SELECT current_pts FROM channel_pts WHERE channel_id = $1`
	var pts uint64
	err := s.pool.QueryRow(ctx, q, channelID).Scan(&pts)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return pts, nil
}

func (s *SequenceStore) LoadAll(ctx context.Context) (map[uuid.UUID]uint64, error) {
	const q = `SELECT channel_id, current_pts FROM channel_pts`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]uint64)
	for rows.Next() {
		var id uuid.UUID
		var pts uint64
		if err := rows.Scan(&id, &pts); err != nil {
			return nil, err
		}
		out[id] = pts
	}
	return out, rows.Err()
}
