package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lexcal-api/api/swagger"
	"github.com/noah-isme/lexcal-api/internal/bootstrap"
	"github.com/noah-isme/lexcal-api/internal/handler"
	"github.com/noah-isme/lexcal-api/internal/worker"
	"github.com/noah-isme/lexcal-api/pkg/config"
	"github.com/noah-isme/lexcal-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title LexCal API
// @version 1.0.0
// @description Calendar scheduling and conflict engine for legal practices.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, logr)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logr.Warn("shutdown cleanup failed", zap.Error(err))
		}
	}()
	app.StartReminderQueue(ctx)

	var sched *worker.Scheduler
	if cfg.Cron.Enabled {
		sched, err = worker.New(app.Conflicts, app.Reminders, worker.Config{
			Location:      cfg.Location(),
			RescanSpec:    cfg.Cron.RescanSpec,
			RescanHorizon: bootstrap.HorizonDays(cfg.Cron.RescanHorizon),
			ReminderSpec:  cfg.Cron.ReminderSpec,
		}, logr.Named("cron"))
		if err != nil {
			return err
		}
		sched.Start()
	}

	router := newRouter(routerDeps{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        app.Metrics,
		Tokens:         app.Tokens,
		Events:         handler.NewEventHandler(app.Events),
		Slots:          handler.NewSlotHandler(app.Slots),
		Conflicts:      handler.NewConflictHandler(app.Conflicts, bootstrap.HorizonDays(cfg.Cron.RescanHorizon)),
		Exports:        handler.NewExportHandler(app.Exports),
		Ops: handler.NewMetricsHandler(app.Metrics, map[string]handler.Pinger{
			"database": handler.PingFunc(app.PingDatabase),
			"redis":    handler.PingFunc(app.PingRedis),
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logr.Warn("scheduler did not stop in time", zap.Error(err))
		}
	}
	return srv.Shutdown(shutdownCtx)
}
