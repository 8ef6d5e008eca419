package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/token-service/internal/api/http"
	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/config"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/persistence"
	"github.com/spec-kit/token-service/internal/repository"
	"github.com/spec-kit/token-service/internal/service"
	"github.com/spec-kit/token-service/internal/worker"
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

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, auth.WithLogger(logger.Named("tokens")))
	if err != nil {
		logger.Fatal("failed to init token service", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	principals := principalRepository(cfg, pg, logger)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	sessions := service.NewSessionService(service.SessionDependencies{
		Principals: principals,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	sweeperDone := worker.StartRevocationSweeper(ctx, sessions, cfg.Auth.RevocationSweepInterval, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, metrics, tokens.RevokedCount),
		Auth:           handlers.NewAuthHandler(sessions),
		AuthMiddleware: auth.NewAuthMiddleware(sessions),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Duration("token_ttl", tokens.TTL()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-sweeperDone
}

func principalRepository(cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) repository.PrincipalRepository {
	if pg.Enabled() {
		return repository.NewPrincipalRepository(pg.PoolHandle())
	}

	principals := make([]domain.Principal, 0, len(cfg.Auth.Principals))
	for _, entry := range cfg.Auth.Principals {
		principals = append(principals, domain.Principal{
			Username:     entry.Username,
			Email:        entry.Email,
			PasswordHash: entry.PasswordHash,
			Active:       true,
		})
	}
	if len(principals) == 0 {
		logger.Warn("no principals configured; logins will be rejected")
	}
	return repository.NewStaticPrincipalRepository(principals)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
