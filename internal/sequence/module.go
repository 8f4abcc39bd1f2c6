package sequence

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the Allocator and warms its in-process mirror from Store
// at startup (spec §4.1: "on restart, the store is authoritative").
var Module = fx.Module("sequence",
	fx.Provide(NewAllocator),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, a *Allocator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return a.Warm(ctx)
		},
	})
}
