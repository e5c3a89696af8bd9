package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seu-repo/concierge/internal/adapter/cache"
	"github.com/seu-repo/concierge/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/concierge/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/concierge/internal/adapter/queue"
	wsAdapter "github.com/seu-repo/concierge/internal/adapter/websocket"
	"github.com/seu-repo/concierge/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/concierge/internal/observability/telemetry"
	"github.com/seu-repo/concierge/internal/ports"
	"github.com/seu-repo/concierge/internal/service/dialogue"
	"github.com/seu-repo/concierge/internal/service/health"
	"github.com/seu-repo/concierge/internal/service/intent"
	"github.com/seu-repo/concierge/internal/service/persona"
	"github.com/seu-repo/concierge/pkg/config"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Starting concierge",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server exited gracefully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry.ServiceName, cfg.App.Version, os.Stdout)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	healthService := health.NewService(cfg.App.Version, logger)

	// 4. Initialize Cache (Redis with in-memory fallback)
	viewCache := newCache(ctx, cfg.Redis, logger)
	defer viewCache.Close()
	healthService.RegisterPinger("cache", viewCache, true)

	// 5. Initialize Message Queue for side-channel events
	messageQueue, err := newMessageQueue(cfg.Events, cfg.App.Name, logger)
	if err != nil {
		return err
	}
	if messageQueue != nil {
		defer messageQueue.Close()
		healthService.RegisterPinger("events", messageQueue, false)
	}

	// 6. Initialize Dialogue Services
	catalog := persona.DefaultCatalog()
	if cfg.Assistant.CatalogPath != "" {
		catalog, err = persona.LoadCatalogFile(cfg.Assistant.CatalogPath)
		if err != nil {
			return fmt.Errorf("load persona catalog: %w", err)
		}
		logger.Info("Persona catalog loaded", zap.String("path", cfg.Assistant.CatalogPath))
	}
	resolver := persona.NewResolver(catalog)
	classifier := intent.NewClassifier()

	// 7. Initialize WebSocket Hub (views, events and browser voice capture)
	wsHub := wsAdapter.NewHub(logger)
	captures := wsAdapter.NewCaptureRegistry(wsHub)
	snapshots := cache.NewSnapshotStore(viewCache, cfg.Assistant.SnapshotTTL, logger)

	var events ports.EventPublisher = wsHub
	if messageQueue != nil {
		brokerEvents := circuitbreaker.NewPublisher(
			queue.NewEventPublisher(messageQueue, cfg.Events.SubjectPrefix, logger),
			circuitbreaker.New("events-broker", cfg.CircuitBreaker, logger),
			logger,
		)
		events = dialogue.MultiPublish(wsHub, brokerEvents)
	}

	deps := dialogue.ManagerDeps{
		Resolver:   resolver,
		Classifier: classifier,
		Responder:  intent.NewResponder(classifier.Fallback()),
		Scheduler:  dialogue.NewScheduler(),
		Events:     events,
		Render: func(id string) ports.RenderTarget {
			return dialogue.MultiRender(wsHub.Target(id), snapshots.Target(id))
		},
	}
	if cfg.Assistant.VoiceEnabled {
		deps.Capture = func(id string) ports.VoiceCapture { return captures.For(id) }
	}
	manager := dialogue.NewManager(deps, dialogue.ManagerConfig{
		ReplyDelay:  cfg.Assistant.ReplyDelay,
		IdleTTL:     cfg.Assistant.SessionIdleTTL,
		MaxSessions: cfg.Assistant.MaxSessions,
	}, logger)
	defer manager.Close()

	// 8. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS, logger))
	}

	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1", middleware.RateLimit(cfg.RateLimiting))
	if cfg.CircuitBreaker.Enabled {
		v1.Use(middleware.CircuitBreaker(cfg.CircuitBreaker, logger))
	}
	handlers.NewSessionHandler(manager, cfg.Region.Location(), logger).WithArchive(snapshots).RegisterRoutes(v1)
	handlers.NewPersonaHandler(resolver, logger).RegisterRoutes(v1)

	// WebSocket routes
	wsAdapter.SetupSessionRoutes(app, wsAdapter.NewSessionStreamHandler(wsHub, manager, captures, logger))

	// 9. Start Background Workers
	if messageQueue != nil {
		startBackgroundWorkers(messageQueue, cfg.Events, logger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wsHub.Run(gctx)
	})
	g.Go(func() error {
		return manager.Run(gctx, cfg.Assistant.EvictInterval)
	})

	// 10. Start HTTP Server
	g.Go(func() error {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 11. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" || cfg.App.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level %q: %w", cfg.Logging.Level, err)
	}
	zcfg.Level = level

	return zcfg.Build()
}

func newCache(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) ports.Cache {
	if cfg.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.URL, logger)
		if err == nil {
			return redisCache
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
	}
	return cache.NewLocalCache(time.Minute, logger)
}

func newMessageQueue(cfg config.EventsConfig, clientName string, logger *zap.Logger) (queue.MessageQueue, error) {
	switch cfg.Driver {
	case "nats":
		mq, err := queue.NewNATSQueue(cfg.URL, clientName, logger)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return mq, nil
	case "rabbitmq":
		mq, err := queue.NewRabbitMQQueue(cfg.URL, cfg.Exchange, logger)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq, nil
	default:
		logger.Info("Side-channel events are delivered over WebSocket only")
		return nil, nil
	}
}

// startBackgroundWorkers keeps an audit trail of every side-channel event
func startBackgroundWorkers(mq queue.MessageQueue, cfg config.EventsConfig, logger *zap.Logger) {
	wildcard := ".>"
	if cfg.Driver == "rabbitmq" {
		wildcard = ".#"
	}

	err := mq.Subscribe(cfg.SubjectPrefix+wildcard, func(msg []byte) error {
		logger.Debug("Side-channel event", zap.ByteString("event", msg))
		return nil
	})
	if err != nil {
		logger.Warn("Failed to subscribe event audit worker", zap.Error(err))
	}
}
