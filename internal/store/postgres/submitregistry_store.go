package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/submitregistry"
)

var _ submitregistry.Store = (*SubmitRegistryStore)(nil)

// SubmitRegistryStore is the idempotency table keyed by local_message_id
// (spec §4.3). Register is itself a no-op on an existing row: the first
// writer's outcome always wins, matching "if an entry exists, return the
// recorded outcome".
type SubmitRegistryStore struct {
	pool *Pool
}

func NewSubmitRegistryStore(pool *Pool) *SubmitRegistryStore {
	return &SubmitRegistryStore{pool: pool}
}

func (s *SubmitRegistryStore) Lookup(ctx context.Context, localMessageID uuid.UUID) (*model.SubmitResult, bool, error) {
	const q = `
		SELECT decision, pts, server_msg_id, server_timestamp, has_gap, current_pts
		FROM submit_registry WHERE local_message_id = $1`
	var r model.SubmitResult
	r.LocalMessageID = localMessageID
	err := s.pool.QueryRow(ctx, q, localMessageID).Scan(
		&r.Decision, &r.Pts, &r.ServerMsgID, &r.ServerTimestamp, &r.HasGap, &r.CurrentPts)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &r, true, nil
}

func (s *SubmitRegistryStore) Register(ctx context.Context, localMessageID uuid.UUID, result model.SubmitResult) error {
	const q = `
		INSERT INTO submit_registry
			(local_message_id, decision, pts, server_msg_id, server_timestamp, has_gap, current_pts)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (local_message_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q,
		localMessageID, result.Decision, result.Pts, result.ServerMsgID,
		result.ServerTimestamp, result.HasGap, result.CurrentPts)
	return err
}
