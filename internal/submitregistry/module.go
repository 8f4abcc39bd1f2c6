package submitregistry

import "go.uber.org/fx"

var Module = fx.Module("submitregistry",
	fx.Provide(New),
)
