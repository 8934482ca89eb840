package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(provideReconcilerConfig),
)

func provideReconcilerConfig(cfg Config) (*ReconcilerConfigHolder, error) {
	return NewReconcilerConfigHolder(cfg.Timezone)
}
