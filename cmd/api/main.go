package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/web"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := repository.NewSet(pg.PoolHandle())
	if repos.InMemory {
		logger.Warn("POSTGRES_DSN not set, data is kept in memory and lost on restart")
	}

	revocations := auth.NewMemoryRevocationStore()
	if redis.Reachable() {
		revocations = auth.NewRedisRevocationStore(redis.Client)
	} else {
		logger.Warn("redis unreachable, logout revocations are process-local")
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	var fanout *worker.EventFanout
	if redis.Reachable() {
		fanout = &worker.EventFanout{Client: redis.Client, Channel: cfg.Redis.EventChannel}
	}
	worker.StartNotificationWorker(notifications, dispatcher, fanout, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    repos.Users,
		Tokens:      tokens,
		Revocations: revocations,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.Tickets,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	historyService := service.NewHistoryService(service.HistoryDependencies{
		HistoryRepo:   repos.History,
		TicketService: ticketService,
		Logger:        logger,
	})
	historyService.RegisterHandlers(dispatcher)
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   repos.Users,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	if cfg.Auth.BootstrapAdminEmail != "" {
		admin, created, err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword, "Administrator")
		if err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		logger.Info("bootstrap admin ready", zap.String("user_id", admin.ID), zap.Bool("created", created))
	}

	enforcer, err := auth.NewPolicyEnforcer()
	if err != nil {
		logger.Fatal("failed to build access policy", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.Users, revocations, cfg.Auth.CookieName, logger)

	webHandler, err := web.NewHandler(web.Config{
		Auth:         authService,
		Tickets:      ticketService,
		History:      historyService,
		Users:        userService,
		Sessions:     authMiddleware,
		Enforcer:     enforcer,
		Location:     cfg.App.Location(),
		CookieSecure: cfg.Auth.CookieSecure,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to load templates", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		Immutable:    true,
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	checks := map[string]handlers.Pinger{}
	if pg.Enabled() {
		checks["postgres"] = pg
	}
	if redis.Reachable() {
		checks["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Metrics:         handlers.NewMetricsHandler(metrics),
		Users:           handlers.NewUsersHandler(authService, cfg.Auth.CookieName, cfg.Auth.CookieSecure),
		Tickets:         handlers.NewTicketsHandler(ticketService, historyService),
		AdminUsers:      handlers.NewAdminUsersHandler(userService),
		Markdown:        handlers.NewMarkdownHandler(),
		AuthMiddleware:  authMiddleware,
		Enforcer:        enforcer,
		LoginRatePerMin: cfg.Auth.LoginRateLimitPerMin,
		Web:             webHandler,
		Logger:          logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
