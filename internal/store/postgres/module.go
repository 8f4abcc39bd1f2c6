package postgres

import (
	"context"

	"go.uber.org/fx"

	"github.com/webitel/im-sync-core/config"
	"github.com/webitel/im-sync-core/internal/commitlog"
	"github.com/webitel/im-sync-core/internal/participant"
	"github.com/webitel/im-sync-core/internal/presence"
	"github.com/webitel/im-sync-core/internal/sequence"
	"github.com/webitel/im-sync-core/internal/submitregistry"
)

// Module wires the pgx pool and binds it behind the Store interfaces
// internal/sequence, internal/commitlog, internal/submitregistry and
// internal/presence each declare for their durable tier.
var Module = fx.Module("postgres",
	fx.Provide(
		provideOpenedPool,
		fx.Annotate(NewSequenceStore, fx.As(new(sequence.Store))),
		fx.Annotate(NewCommitLogStore, fx.As(new(commitlog.Store))),
		fx.Annotate(NewSubmitRegistryStore, fx.As(new(submitregistry.Store))),
		fx.Annotate(NewPresenceStore, fx.As(new(presence.Store))),
		fx.Annotate(NewMembershipStore, fx.As(new(participant.MembershipStore))),
	),
)

func provideOpenedPool(lc fx.Lifecycle, cfg *config.Config) (*Pool, error) {
	pool, err := Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}
