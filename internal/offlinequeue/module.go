package offlinequeue

import "go.uber.org/fx"

var Module = fx.Module("offlinequeue",
	fx.Provide(
		DefaultConfig,
		New,
	),
)
