package http

import (
	"io/fs"
	"net/http"

	"github.com/blablablasealsaresoft/infofi/internal/infrastructure/observability/metrics"
	"github.com/blablablasealsaresoft/infofi/internal/interfaces/http/handler"
	"github.com/blablablasealsaresoft/infofi/internal/interfaces/http/middleware"
	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux            *http.ServeMux
	landingHandler *handler.LandingHandler
	healthHandler  *handler.HealthHandler
	metrics        *metrics.Metrics
	rateLimiter    *middleware.IPRateLimiter
	logger         *logger.Logger
}

// NewRouter создает новый router. metrics и rateLimiter могут быть nil.
func NewRouter(
	landingHandler *handler.LandingHandler,
	healthHandler *handler.HealthHandler,
	metrics *metrics.Metrics,
	rateLimiter *middleware.IPRateLimiter,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		landingHandler: landingHandler,
		healthHandler:  healthHandler,
		metrics:        metrics,
		rateLimiter:    rateLimiter,
		logger:         logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	limit := rt.rateLimit()

	// Static assets are embedded into the binary.
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("failed to initialize embedded static assets: " + err.Error())
	}
	rt.mux.Handle("GET /static/", limit(staticCache(http.StripPrefix("/static/", http.FileServerFS(staticFS)))))

	// Health checks are never rate limited.
	rt.mux.HandleFunc("GET /healthz", rt.healthHandler.Liveness)
	rt.mux.HandleFunc("GET /readyz", rt.healthHandler.Readiness)
	rt.mux.HandleFunc("GET /health", rt.healthHandler.Health)
	rt.mux.Handle("GET /api/status", limit(http.HandlerFunc(rt.healthHandler.Status)))

	if rt.metrics != nil {
		rt.mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	// Landing page: только точный путь "/", остальное 404
	rt.mux.Handle("GET /{$}", limit(http.HandlerFunc(rt.landingHandler.ShowLanding)))

	// Применяем middleware (последний будет самым внешним)
	var handler http.Handler = rt.mux
	handler = middleware.Compression(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(rt.logger, rt.onPanic)(handler)

	return handler
}

func (rt *Router) rateLimit() func(http.Handler) http.Handler {
	if rt.rateLimiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if rt.metrics != nil {
		return middleware.RateLimit(rt.rateLimiter, rt.metrics.ObserveRateLimitDrop)
	}
	return middleware.RateLimit(rt.rateLimiter)
}

func (rt *Router) onPanic() {
	if rt.metrics != nil {
		rt.metrics.ObservePanic()
	}
}

func staticCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}
