package routes

import (
	"github.com/shashiranjanraj/zepto/app/controllers"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
	"github.com/shashiranjanraj/zepto/pkg/middleware"
	"github.com/shashiranjanraj/zepto/pkg/router"
)

// Controllers is everything RegisterAPI mounts.
type Controllers struct {
	Health   *controllers.HealthController
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
	Address  *controllers.AddressController
	Admin    *controllers.AdminController
}

func RegisterAPI(r *router.Router, c Controllers) {
	r.Get("/", "home", ctx.Wrap(c.Health.Root))

	api := r.Group("/api")
	api.Get("/health", "health", ctx.Wrap(c.Health.Health))

	api.Post("/auth/register", "auth.register", ctx.Wrap(c.Auth.Register))
	api.Post("/auth/login", "auth.login", ctx.Wrap(c.Auth.Login))

	api.Get("/products", "products.index", ctx.Wrap(c.Products.Index))
	api.Get("/products/categories", "products.categories", ctx.Wrap(c.Products.Categories))
	api.Get("/products/{id}", "products.show", ctx.Wrap(c.Products.Show))

	api.Post("/addresses/validate-pincode", "addresses.pincode", ctx.Wrap(c.Address.ValidatePincode))
	api.Get("/payments/methods", "payments.methods", ctx.Wrap(c.Payments.Methods))

	protected := api.Group("", middleware.Authenticate)
	protected.Get("/auth/me", "auth.me", ctx.Wrap(c.Auth.Me))
	protected.Post("/payments/create", "payments.create", ctx.Wrap(c.Payments.Create))
	protected.Post("/payments/verify", "payments.verify", ctx.Wrap(c.Payments.Verify))
	protected.Post("/orders", "orders.store", ctx.Wrap(c.Orders.Store))
	protected.Get("/orders", "orders.index", ctx.Wrap(c.Orders.Index))
	protected.Get("/orders/{id}", "orders.show", ctx.Wrap(c.Orders.Show))
	protected.Put("/orders/{id}/status", "orders.status", ctx.Wrap(c.Orders.UpdateStatus))

	admin := protected.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", "admin.stats", ctx.Wrap(c.Admin.Stats))
	admin.Get("/users", "admin.users", ctx.Wrap(c.Admin.Users))
	admin.Get("/products", "admin.products.index", ctx.Wrap(c.Admin.Products))
	admin.Post("/products", "admin.products.store", ctx.Wrap(c.Admin.StoreProduct))
	admin.Put("/products/{id}", "admin.products.update", ctx.Wrap(c.Admin.UpdateProduct))
	admin.Patch("/products/{id}/stock", "admin.products.stock", ctx.Wrap(c.Admin.AdjustStock))
	admin.Delete("/products/{id}", "admin.products.destroy", ctx.Wrap(c.Admin.DestroyProduct))
	admin.Get("/orders", "admin.orders.index", ctx.Wrap(c.Orders.AdminIndex))
	admin.Put("/orders/{id}/status", "admin.orders.status", ctx.Wrap(c.Orders.UpdateStatus))
}
