package ws

import "go.uber.org/fx"

var Module = fx.Module("transport_ws",
	fx.Provide(NewHandler),
)
