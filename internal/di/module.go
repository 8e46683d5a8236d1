package di

import (
	"go.uber.org/fx"

	"github.com/dukasync/storesync/internal/adapter/remote"
	"github.com/dukasync/storesync/internal/app"
	"github.com/dukasync/storesync/internal/config"
	"github.com/dukasync/storesync/internal/domain/repository"
	"github.com/dukasync/storesync/internal/logger"
	"github.com/dukasync/storesync/internal/pkg/auth"
	"github.com/dukasync/storesync/internal/server/http/handlers"
	"github.com/dukasync/storesync/internal/server/http/router"
	"github.com/dukasync/storesync/internal/storage/postgres"
	"github.com/dukasync/storesync/internal/storage/redistier"
	"github.com/dukasync/storesync/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		redistier.Module,
		remote.Module,
		usecase.Module,
		// Tier A answers first everywhere the tiers are walked in order.
		fx.Provide(func(a *postgres.Storage, b *redistier.Storage) []repository.Tier {
			return []repository.Tier{a, b}
		}),
		fx.Provide(
			func(client remote.Client) usecase.RemoteCatalog { return client },
			func(client remote.Client) usecase.TransactionChecker { return client },
			func(client remote.Client) usecase.RemoteOrders { return client },
			func(client remote.Client) usecase.RemoteStock { return client },
			func(client remote.Client) usecase.RemoteDelivery { return client },
			func(client remote.Client) app.RemoteProbe { return client },
		),
		fx.Provide(func(facade *app.StorefrontFacade) handlers.StorefrontFacade { return facade }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
