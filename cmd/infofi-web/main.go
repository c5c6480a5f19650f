package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	"github.com/blablablasealsaresoft/infofi/internal/application/port"
	"github.com/blablablasealsaresoft/infofi/internal/application/usecase"

	// Domain
	"github.com/blablablasealsaresoft/infofi/internal/domain/landing"

	// Infrastructure
	"github.com/blablablasealsaresoft/infofi/internal/infrastructure/cache/memory"
	redisCache "github.com/blablablasealsaresoft/infofi/internal/infrastructure/cache/redis"
	natsPublisher "github.com/blablablasealsaresoft/infofi/internal/infrastructure/messaging/nats"
	"github.com/blablablasealsaresoft/infofi/internal/infrastructure/observability/metrics"

	// Interfaces
	httpInterface "github.com/blablablasealsaresoft/infofi/internal/interfaces/http"
	"github.com/blablablasealsaresoft/infofi/internal/interfaces/http/handler"
	"github.com/blablablasealsaresoft/infofi/internal/interfaces/http/middleware"
	"github.com/blablablasealsaresoft/infofi/internal/interfaces/view"

	// Shared
	"github.com/blablablasealsaresoft/infofi/pkg/config"
	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	level := os.Getenv("LOG_LEVEL")
	if cfg.App.Debug && level == "" {
		level = "debug"
	}
	log := logger.New(level)
	defer func() { _ = log.Sync() }()

	log.Info("Starting InfoFi web", "version", cfg.App.Version)

	// 3. Контент landing page
	page := landing.Default(cfg.App.DocsURL)
	if err := page.Validate(); err != nil {
		log.Error("Invalid landing page content", err)
		os.Exit(1)
	}

	// 4. Dependency Injection - Infrastructure Layer

	// Cache: Redis если включен, иначе in-process
	var cache port.Cache
	if cfg.Cache.Enabled {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Cache.DialTimeout)
		rc, err := redisCache.NewRedisCache(connectCtx, redisCache.Options{
			Addr:         cfg.Cache.Addr(),
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			TTL:          cfg.Cache.TTL,
			PoolSize:     cfg.Cache.PoolSize,
			MinIdleConns: cfg.Cache.MinIdleConns,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
		})
		connectCancel()
		if err != nil {
			log.Warn("Redis unavailable, falling back to in-memory cache", "addr", cfg.Cache.Addr(), "error", err.Error())
			cache = memory.NewCache(cfg.Cache.TTL)
		} else {
			log.Info("Redis cache connected", "addr", cfg.Cache.Addr())
			cache = rc
		}
	} else {
		cache = memory.NewCache(cfg.Cache.TTL)
	}

	// Page view events
	var publisher port.EventPublisher
	if cfg.Events.Enabled {
		np, err := natsPublisher.NewNATSPublisher(natsPublisher.Options{
			URL:      cfg.Events.NATSURL,
			Stream:   cfg.Events.Stream,
			Subjects: []string{cfg.Events.Subject},
		}, log)
		if err != nil {
			log.Warn("NATS unavailable, page view events disabled", "url", cfg.Events.NATSURL, "error", err.Error())
		} else {
			publisher = np
		}
	}

	// Prometheus
	var m *metrics.Metrics
	var landingMetrics handler.LandingMetrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(registry)
		landingMetrics = m
	}

	// 5. Dependency Injection - Application Layer (Use Cases)

	renderLandingUC, err := usecase.NewRenderLandingPageUseCase(
		page,
		view.LandingPage(page),
		cache,
		publisher,
		usecase.RenderLandingPageConfig{EventSubject: cfg.Events.Subject},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize landing use case", err)
		os.Exit(1)
	}

	// Старые версии страницы в общем кеше больше не нужны
	invalidateCtx, invalidateCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := renderLandingUC.Invalidate(invalidateCtx); err != nil {
		log.Warn("Failed to invalidate landing cache", "error", err.Error())
	}
	invalidateCancel()

	// 6. Dependency Injection - Interfaces Layer (HTTP Handlers)

	// max-age совпадает с TTL кеша отрендеренной страницы
	landingHandler := handler.NewLandingHandler(renderLandingUC, cfg.Cache.TTL, landingMetrics, log)
	healthHandler := handler.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.App.DocsURL)

	rateLimiter := middleware.NewIPRateLimiter(
		cfg.Security.RateLimitRPS(),
		cfg.Security.RateLimitBurst,
		cfg.Security.TrustedProxies,
	)

	// Router
	router := httpInterface.NewRouter(
		landingHandler,
		healthHandler,
		m,
		rateLimiter,
		log,
	)

	// 7. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Запускаем сервер в отдельной goroutine
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		log.Info("Landing page available at http://localhost:" + cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 8. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Дожидаемся фоновых записей в кеш до закрытия соединений
	renderLandingUC.Wait()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Warn("Failed to close NATS publisher", "error", err.Error())
		}
	}
	if err := cache.Close(); err != nil {
		log.Warn("Failed to close cache", "error", err.Error())
	}
	rateLimiter.Close()

	log.Info("Server stopped gracefully")
}
