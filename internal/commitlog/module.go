package commitlog

import "go.uber.org/fx"

var Module = fx.Module("commitlog",
	fx.Provide(New),
)
