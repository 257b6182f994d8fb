package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

const (
	apiPrefix         = "/api/v1"
	requestTimeout    = 30 * time.Second
	errorNotFoundCode = "route_not_found"
)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	orders   RouteRegistrar
	products RouteRegistrar
	admin    []RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// NewRouter mounts health probes at the root and the storefront API under /api/v1. Route
// groups without a registrar answer 501 so clients can tell "not deployed" from "not found".
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Timeout(requestTimeout))
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		// Order routes use custom-method paths (/orders:quote) so they register on the API root.
		if cfg.orders != nil {
			cfg.orders(api)
		} else {
			api.HandleFunc("/orders", notImplemented("orders"))
		}

		api.Route("/products", func(group chi.Router) {
			mountOrStub(group, "products", cfg.products)
		})

		api.Route("/admin", func(group chi.Router) {
			group.Use(RequireAdmin)
			mountOrStub(group, "admin", cfg.admin...)
		})
	})
	return r
}

func mountOrStub(r chi.Router, name string, registrars ...RouteRegistrar) {
	mounted := false
	for _, reg := range registrars {
		if reg != nil {
			reg(r)
			mounted = true
		}
	}
	if !mounted {
		r.HandleFunc("/", notImplemented(name))
		r.HandleFunc("/*", notImplemented(name))
	}
}

func notImplemented(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
	}
}

// WithMiddlewares appends middleware after the built-in request id, real ip and timeout ones.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) { cfg.health = h }
}

// WithOrderRoutes configures the registrar for order endpoints. It receives the API root.
func WithOrderRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.orders = reg }
}

// WithProductRoutes configures the registrar for /products endpoints.
func WithProductRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.products = reg }
}

// WithAdminRoutes adds registrars mounted under /admin behind RequireAdmin.
func WithAdminRoutes(regs ...RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.admin = append(cfg.admin, regs...) }
}
