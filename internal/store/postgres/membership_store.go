package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/webitel/im-sync-core/internal/domain/model"
	"github.com/webitel/im-sync-core/internal/participant"
)

var _ participant.MembershipStore = (*MembershipStore)(nil)

// MembershipStore resolves channel membership (spec §4.4 fan-out
// resolution). A direct channel's members are the two peers already
// carried on the channel value; a group/broadcast channel's members come
// from the channel_participants table.
type MembershipStore struct {
	pool *Pool
}

func NewMembershipStore(pool *Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func (s *MembershipStore) Members(ctx context.Context, channel model.Channel) ([]uuid.UUID, error) {
	if channel.Type == model.ChannelDirect {
		out := make([]uuid.UUID, 0, len(channel.Participants))
		for _, p := range channel.Participants {
			out = append(out, p.ID)
		}
		return out, nil
	}

	const q = `SELECT user_id FROM channel_participants WHERE channel_id = $1`
	rows, err := s.pool.Query(ctx, q, channel.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
