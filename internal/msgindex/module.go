package msgindex

import "go.uber.org/fx"

var Module = fx.Module("msgindex",
	fx.Provide(New),
)
