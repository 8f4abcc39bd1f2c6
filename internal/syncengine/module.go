package syncengine

import (
	"go.uber.org/fx"

	"github.com/webitel/im-sync-core/internal/adapter/pubsub"
)

var Module = fx.Module("syncengine",
	fx.Provide(
		New,
		fx.Annotate(
			func(p pubsub.Publisher) Bus { return p },
			fx.As(new(Bus)),
		),
	),
)
