package catchup

import (
	"context"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("catchup",
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, w *Worker) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go w.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			w.Stop(5 * time.Second)
			return nil
		},
	})
}
