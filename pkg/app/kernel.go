package app

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/zepto/app/routes"
	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/pkg/metrics"
	"github.com/shashiranjanraj/zepto/pkg/middleware"
	"github.com/shashiranjanraj/zepto/pkg/response"
	"github.com/shashiranjanraj/zepto/pkg/router"
)

// Handler builds the HTTP kernel.
func (a *Application) Handler() http.Handler {
	return buildRouter(a.Controllers()).Handler()
}

// RouteTable lists the API routes without connecting anything.
func RouteTable() []router.Route {
	return buildRouter(routes.Controllers{}).Routes()
}

func buildRouter(c routes.Controllers) *router.Router {
	r := router.New()

	// Outermost first. The request id must exist before Logger runs.
	cors := middleware.DefaultCORSOptions()
	cors.AllowedOrigins = config.CORSOrigins()
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(cors))
	r.Use(middleware.RateLimit(config.RateLimitPerMinute(), time.Minute))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/metrics", "metrics", metrics.Handler())
	routes.RegisterAPI(r, c)
	return r
}
