package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/fx"

	"github.com/webitel/im-sync-core/config"
)

var Module = fx.Module("pubsub",
	fx.Provide(providePublisher),
	fx.Invoke(registerLifecycle),
)

func providePublisher(cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	return NewAMQPPublisher(cfg.AMQP.URL, watermill.NewSlogLogger(logger))
}

func registerLifecycle(lc fx.Lifecycle, pub Publisher) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
}
