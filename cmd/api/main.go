package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/allocation-service/internal/api/http"
	"github.com/spec-kit/allocation-service/internal/api/http/handlers"
	"github.com/spec-kit/allocation-service/internal/cache"
	"github.com/spec-kit/allocation-service/internal/config"
	"github.com/spec-kit/allocation-service/internal/engine"
	"github.com/spec-kit/allocation-service/internal/events"
	"github.com/spec-kit/allocation-service/internal/observability"
	"github.com/spec-kit/allocation-service/internal/persistence"
	"github.com/spec-kit/allocation-service/internal/repository"
	"github.com/spec-kit/allocation-service/internal/service"
	"github.com/spec-kit/allocation-service/internal/store"
	"github.com/spec-kit/allocation-service/internal/worker"
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

	var persister store.Persister
	if pool := pg.PoolHandle(); pool != nil {
		persister = repository.NewPgxPersister(pool)
	}
	entityStore := store.New(cfg.Engine.AllocationUnit, cfg.Engine.MaxWorkloadPerPerson, cfg.Engine.PersistTimeout(), persister)

	if pool := pg.PoolHandle(); pool != nil {
		staffList, err := repository.NewStaffRepository(pool).ListAll(ctx)
		if err != nil {
			logger.Fatal("failed to load staff", zap.Error(err))
		}
		items, err := repository.NewWorkItemRepository(pool).ListAll(ctx)
		if err != nil {
			logger.Fatal("failed to load work items", zap.Error(err))
		}
		assignments, err := repository.NewAssignmentRepository(pool).ListAll(ctx)
		if err != nil {
			logger.Fatal("failed to load assignments", zap.Error(err))
		}
		entityStore.Hydrate(staffList, items, assignments)
		logger.Info("working set loaded",
			zap.Int("staff", len(staffList)),
			zap.Int("work_items", len(items)),
			zap.Int("assignments", len(assignments)),
		)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	conflictCache := cache.NewConflictCache(redis.Client, cfg.Engine.ConflictCacheTTL(), logger)

	scorer := engine.NewScorer(cfg.Engine)
	gate := engine.NewGate(cfg.Engine)
	detector := engine.NewDetector(cfg.Engine, scorer, gate)

	rosterService := service.NewRosterService(entityStore, logger)
	allocationService := service.NewAllocationService(cfg.Engine, service.AllocationDependencies{
		Store:      entityStore,
		Scorer:     scorer,
		Gate:       gate,
		Detector:   detector,
		Cache:      conflictCache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	conflictService := service.NewConflictService(cfg.Engine, service.ConflictDependencies{
		Store:      entityStore,
		Scorer:     scorer,
		Gate:       gate,
		Detector:   detector,
		Cache:      conflictCache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	sweep := worker.NewSweepWorker(conflictService, metrics, logger, cfg.Engine.SweepInterval())
	sweep.RegisterHandlers(dispatcher)
	sweep.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, entityStore, pg, redis),
		Staff:       handlers.NewStaffHandler(rosterService),
		WorkItems:   handlers.NewWorkItemsHandler(rosterService, allocationService),
		Assignments: handlers.NewAssignmentsHandler(allocationService),
		Conflicts:   handlers.NewConflictsHandler(conflictService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
