package service

import "go.uber.org/fx"

var Module = fx.Module(
	"service",
	fx.Provide(
		fx.Annotate(
			NewCore,
			fx.As(new(Core)),
		),
	),
)
