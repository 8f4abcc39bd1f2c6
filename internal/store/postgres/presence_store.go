package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/presence"
)

var _ presence.Store = (*PresenceStore)(nil)

// PresenceStore durably persists each user's last_seen_at (spec §3
// Online-status record: "Durable: last_seen_at persists across restarts").
type PresenceStore struct {
	pool *Pool
}

func NewPresenceStore(pool *Pool) *PresenceStore {
	return &PresenceStore{pool: pool}
}

// BatchSaveLastSeen flushes the registry's batched dirty set (spec §4.5
// "durable flush interval configurable, default 5 min").
func (s *PresenceStore) BatchSaveLastSeen(ctx context.Context, lastSeen map[uuid.UUID]time.Time) error {
	if len(lastSeen) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO presence_last_seen (user_id, last_seen_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
		WHERE presence_last_seen.last_seen_at < EXCLUDED.last_seen_at`
	for userID, at := range lastSeen {
		if _, err := tx.Exec(ctx, q, userID, at); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PresenceStore) LoadLastSeen(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	const q = `SELECT last_seen_at FROM presence_last_seen WHERE user_id = $1`
	var at time.Time
	err := s.pool.QueryRow(ctx, q, userID).Scan(&at)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return at, true, nil
}
