package reconciler

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the Reconciler for manual triggers. Worker also starts the
// cron loop with the application lifecycle.
var Module = fx.Module("reconciler",
	fx.Provide(New),
)

var Worker = fx.Options(
	Module,
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, r *Reconciler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return r.Start()
		},
		OnStop: func(ctx context.Context) error {
			return r.Stop(ctx)
		},
	})
}
