package synccache

import "go.uber.org/fx"

var Module = fx.Module("synccache",
	fx.Provide(New),
)
