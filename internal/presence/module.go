package presence

import (
	"context"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("presence",
	fx.Provide(
		DefaultConfig,
		NewRegistry,
	),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle periodically flushes dirty last_seen_at entries (spec
// §4.5 "durable flush interval configurable, default 5 min").
func registerLifecycle(lc fx.Lifecycle, r *Registry) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(r.cfg.FlushInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						r.Flush(context.Background())
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			r.Flush(stopCtx)
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
