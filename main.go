package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"stockpulse/config"
	"stockpulse/controllers"
	"stockpulse/models"
	"stockpulse/routes"
	"stockpulse/scheduler"
	"stockpulse/services/datafetcher"
	"stockpulse/services/ingest"
	"stockpulse/services/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Error().Err(err).Msg("config load failed")
		os.Exit(1)
	}

	log := newLogger(cfg)
	log.Info().Str("environment", cfg.Environment).Msg("stockpulse starting")

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(1)
	}

	if err := models.MigrateStockModels(db); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}

	window, err := scheduler.ParseWindow(cfg.Market.Open, cfg.Market.Close)
	if err != nil {
		log.Error().Err(err).Msg("invalid market window")
		os.Exit(1)
	}

	// Wire the pipeline: fetch → normalize → upsert, driven by the scheduler.
	gateway := store.NewGateway(db, log)
	client := datafetcher.NewClient(datafetcher.Config{
		BaseURL:  cfg.Provider.BaseURL,
		APIKey:   cfg.Provider.APIKey,
		Interval: cfg.Provider.Interval,
		Timeout:  cfg.Provider.Timeout,
	}, log)
	orchestrator := ingest.NewOrchestrator(client, gateway, cfg.Provider.RequestsPerMinute, log)
	sched := scheduler.New(orchestrator, cfg.Symbols, window, cfg.Market.UpdateIntervalMinutes, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	setupHealthEndpoints(router, db)
	routes.SetupRoutes(router, controllers.NewStockController(gateway, cfg.Symbols, log))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	runCtx, cancelRuns := context.WithCancel(context.Background())

	// One immediate market-hours-gated update, then the recurring schedule.
	go sched.RunNow(runCtx)
	if err := sched.Start(runCtx); err != nil {
		log.Error().Err(err).Msg("scheduler start failed")
		os.Exit(1)
	}

	waitForShutdown(server, sched, cancelRuns, db, log)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	out := zerolog.New(os.Stdout)
	if cfg.Environment != "production" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	return out.With().Timestamp().Logger()
}

// setupHealthEndpoints registers liveness and readiness probes.
func setupHealthEndpoints(router *gin.Engine, db *gorm.DB) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

// waitForShutdown blocks until SIGINT/SIGTERM, then stops the timer, lets the
// in-flight run wind down and releases the store connections. The active
// upsert transaction either commits or rolls back; no record is left
// half-written.
func waitForShutdown(server *http.Server, sched *scheduler.Scheduler, cancelRuns context.CancelFunc, db *gorm.DB, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	sched.Stop()
	cancelRuns()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shut down")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("shutdown complete")
}
