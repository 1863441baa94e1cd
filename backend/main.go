package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"coursehub/backend/config"
	"coursehub/backend/jobs"
	"coursehub/backend/player"
	"coursehub/backend/progress"
	"coursehub/backend/routes"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/store/cached"
	"coursehub/backend/store/gormstore"
	"coursehub/backend/store/memstore"
	"coursehub/backend/store/rest"
	"coursehub/backend/utils"

	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(utils.LoggerConfig{Mode: cfg.LogMode})
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize data access
	ds, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "data_source", cfg.DataSource, "error", err)
		return
	}
	defer closeStore()

	overlays := progress.NewOverlays()
	recorder := progress.NewRecorder(ds, overlays, cfg.RequestTimeout, logger)
	loader := progress.NewDashboardLoader(ds, overlays, logger)
	players := player.NewRegistry(func(ctx context.Context, lessonID, courseID uuid.UUID) error {
		sess, _ := session.FromContext(ctx)
		return recorder.CompleteLesson(ctx, sess, lessonID, courseID)
	})

	// Background jobs
	scheduler := jobs.NewScheduler(logger)
	if lister, ok := ds.(store.EnrollmentLister); ok {
		sync := jobs.NewProgressSync(lister, recorder, logger)
		if err := scheduler.Add("progress_sync", cfg.ProgressSyncSpec, sync.Run); err != nil {
			logger.Error("invalid PROGRESS_SYNC_SPEC", "spec", cfg.ProgressSyncSpec, "error", err)
			return
		}
	}
	if err := scheduler.Add("player_sweep", "@every 10m", jobs.PlayerSweep(players, cfg.PlayerIdleTTL, logger)); err != nil {
		logger.Error("player sweep not scheduled", "error", err)
		return
	}
	if err := scheduler.Add("overlay_sweep", "@every 10m", jobs.OverlaySweep(overlays, cfg.PlayerIdleTTL, logger)); err != nil {
		logger.Error("overlay sweep not scheduled", "error", err)
		return
	}
	scheduler.Start()

	app := routes.NewApp(cfg, routes.Services{
		Store:    ds,
		Recorder: recorder,
		Loader:   loader,
		Overlays: overlays,
		Players:  players,
		Log:      logger,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		scheduler.Stop(shutdownCtx)
	}()

	// Start server
	logger.Info("server starting", "port", cfg.ServerPort, "data_source", cfg.DataSource)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Error("server stopped", "error", err)
	}
}

// openStore builds the data-access collaborator for cfg.DataSource, wrapped
// with the redis catalog cache when REDIS_ADDR is set.
func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (store.DataAccess, func(), error) {
	var (
		ds      store.DataAccess
		closers []func()
	)
	switch cfg.DataSource {
	case config.DataSourcePostgres:
		db, err := utils.InitDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		gs := gormstore.New(db, logger)
		if err := gs.AutoMigrate(); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		ds = gs
	case config.DataSourceREST:
		ds = rest.New(rest.Config{BaseURL: cfg.BaaSURL, APIKey: cfg.BaaSAPIKey, Timeout: cfg.RequestTimeout}, logger)
	case config.DataSourceMemory:
		ds = memstore.New()
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}

	if cfg.RedisAddr != "" {
		rdb, err := cached.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, catalog cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			closers = append(closers, func() { _ = rdb.Close() })
			ds = cached.New(ds, rdb, cfg.CatalogCacheTTL, logger)
		}
	}

	return ds, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
