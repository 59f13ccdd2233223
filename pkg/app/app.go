// Package app assembles the service from configuration: the store chosen
// by DB_DRIVER, the cache, the payment gateway, the event dispatcher, the
// domain services and the HTTP kernel.
//
//	a, err := app.New(ctx)
//	if err != nil { ... }
//	defer a.Close(context.Background())
//	return a.Serve(ctx)
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/zepto/app/controllers"
	"github.com/shashiranjanraj/zepto/app/listeners"
	"github.com/shashiranjanraj/zepto/app/payments"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/app/routes"
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/pkg/cache"
	"github.com/shashiranjanraj/zepto/pkg/event"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

// Application holds every long-lived dependency of the API.
type Application struct {
	Store   *repositories.Store
	Cache   cache.Store
	Gateway payments.Gateway
	Events  *event.Dispatcher
	Zone    *services.DeliveryZone

	Catalog *services.CatalogService
	Orders  *services.OrderService
	Auth    *services.AuthService
	Admin   *services.AdminService

	closers []func(context.Context) error
}

// New loads configuration and connects everything. Close releases what it
// opened, even when New fails halfway.
func New(ctx context.Context) (*Application, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &Application{}

	if uri := config.LogMongoURI(); uri != "" {
		flush, err := logger.AttachMongo(uri, config.MongoDatabase())
		if err != nil {
			logger.Warn("logger: mongo sink unavailable", "error", err)
		} else {
			a.onClose(func(context.Context) error { flush(); return nil })
		}
	}

	store, err := OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.onClose(store.Close)

	a.Cache = cache.Connect(ctx)
	if c, ok := a.Cache.(interface{ Close() error }); ok {
		a.onClose(func(context.Context) error { return c.Close() })
	}

	if a.Gateway, err = payments.New(); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("payments: %w", err)
	}

	a.Events = event.New(event.WithWorkers(config.Int("EVENT_WORKERS", 8)))
	a.onClose(func(context.Context) error { a.Events.Close(); return nil })
	listeners.Register(a.Events, a.Store.Products)

	a.Zone = services.DeliveryZoneFromConfig()
	a.Catalog = services.NewCatalogService(a.Store, a.Cache, config.CacheTTL())
	a.Orders = services.NewOrderService(a.Store, a.Gateway, a.Zone, a.Cache, a.Events)
	a.Auth = services.NewAuthService(a.Store)
	a.Admin = services.NewAdminService(a.Store)

	logger.Info("app: booted",
		"store", a.Store.Driver, "cache", a.Cache.Driver(), "payments", a.Gateway.Name(), "env", config.AppEnv())
	return a, nil
}

// Controllers wires the HTTP controllers to the services.
func (a *Application) Controllers() routes.Controllers {
	return routes.Controllers{
		Health:   controllers.NewHealthController(a.Store, a.Cache),
		Auth:     controllers.NewAuthController(a.Auth),
		Products: controllers.NewProductController(a.Catalog),
		Orders:   controllers.NewOrderController(a.Orders),
		Payments: controllers.NewPaymentController(a.Gateway),
		Address:  controllers.NewAddressController(a.Zone),
		Admin:    controllers.NewAdminController(a.Admin, a.Catalog),
	}
}

// Close runs the registered closers newest first.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) onClose(fn func(context.Context) error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}
