package redistier

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/dukasync/storesync/internal/config"
)

// Module wires the tier B redis cache.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) *Storage {
	return New(p.Config.RedisAddr, p.Config.RedisPassword, p.Config.RedisValueCap, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return storage.Close()
		},
	})
}
