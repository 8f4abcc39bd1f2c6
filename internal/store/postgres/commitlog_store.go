package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/commitlog"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

var _ commitlog.Store = (*CommitLogStore)(nil)

// CommitLogStore is the append-only durable commit log (spec §4.2).
type CommitLogStore struct {
	pool *Pool
}

func NewCommitLogStore(pool *Pool) *CommitLogStore {
	return &CommitLogStore{pool: pool}
}

// Append is idempotent on server_msg_id: a duplicate append (e.g. a retried
// commit-after-cancel) is a no-op rather than a constraint violation (spec
// §4.2 Append contract).
func (s *CommitLogStore) Append(ctx context.Context, commit model.Commit) error {
	payload, err := json.Marshal(commit.Message)
	if err != nil {
		return fmt.Errorf("commitlog: marshal message: %w", err)
	}

	const q = `
		INSERT INTO commits
			(channel_id, pts, server_msg_id, local_message_id, channel_type,
			 command_type, sender_id, server_timestamp, decision, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (server_msg_id) DO NOTHING`
	_, err = s.pool.Exec(ctx, q,
		commit.Channel.ID, commit.Pts, commit.ServerMsgID, commit.LocalMessageID,
		commit.Channel.Type, commit.CommandType, commit.SenderID,
		commit.ServerTimestamp, commit.Decision, payload)
	return err
}

// Query returns commits for channelID with pts in (fromPts, fromPts+limit],
// ascending (spec §4.2 query contract).
func (s *CommitLogStore) Query(ctx context.Context, channelID uuid.UUID, fromPts uint64, limit int) ([]model.Commit, error) {
	const q = `
		SELECT pts, server_msg_id, local_message_id, channel_type,
		       command_type, sender_id, server_timestamp, decision, message
		FROM commits
		WHERE channel_id = $1 AND pts > $2
		ORDER BY pts ASC
		LIMIT $3`
	rows, err := s.pool.Query(ctx, q, channelID, fromPts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Commit
	for rows.Next() {
		var c model.Commit
		var payload []byte
		c.Channel.ID = channelID
		if err := rows.Scan(&c.Pts, &c.ServerMsgID, &c.LocalMessageID, &c.Channel.Type,
			&c.CommandType, &c.SenderID, &c.ServerTimestamp, &c.Decision, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &c.Message); err != nil {
			return nil, fmt.Errorf("commitlog: unmarshal message: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
