// Package bootstrap assembles repositories and services from configuration
// so the API server and the operator CLI share one wiring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/repository"
	"github.com/noah-isme/lexcal-api/internal/service"
	"github.com/noah-isme/lexcal-api/pkg/cache"
	"github.com/noah-isme/lexcal-api/pkg/config"
	"github.com/noah-isme/lexcal-api/pkg/database"
	"github.com/noah-isme/lexcal-api/pkg/jobs"
	"github.com/noah-isme/lexcal-api/pkg/storage"
)

const reminderQueueBuffer = 256

// Container holds the long-lived dependencies of one process.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *sqlx.DB
	Redis *redis.Client

	Validator *validator.Validate
	Metrics   *service.MetricsService
	Tokens    *service.TokenService
	Cache     *service.CacheService
	Events    *service.EventService
	Conflicts *service.ConflictService
	Slots     *service.SlotService
	Reminders *service.ReminderService
	Exports   *service.ExportService

	ReminderQueue *jobs.Queue
}

// New opens the database, connects Redis when slot caching is enabled and
// builds every service. Redis failures degrade to an uncached service.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Container{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Validator: dto.NewValidator(),
		Metrics:   service.NewMetricsService(),
	}

	var cacheRepo service.CacheRepository
	if cfg.SlotCache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, slot cache disabled", zap.Error(err))
		} else {
			c.Redis = client
			cacheRepo = repository.NewCacheRepository(client, logger)
		}
	}
	c.Cache = service.NewCacheService(cacheRepo, c.Metrics, cfg.SlotCache.TTL, logger, cfg.SlotCache.Enabled)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("export storage: %w", err)
	}

	loc := cfg.Location()
	events := repository.NewEventRepository(db)
	cases := repository.NewCaseRepository(db)
	scheduling := service.SchedulingConfig{
		Location:          loc,
		RecurrenceLenient: cfg.Scheduling.RecurrenceLenient,
		MaxOccurrences:    cfg.Scheduling.RecurrenceMaxInstances,
		CrossMidnight:     cfg.Scheduling.CrossMidnight,
	}

	c.Tokens = service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})
	c.Events = service.NewEventService(events, cases, db, c.Cache, c.Validator, c.Metrics, logger.Named("events"), scheduling)
	c.Conflicts = service.NewConflictService(events, db, c.Validator, c.Metrics, logger.Named("conflicts"), scheduling)
	c.Slots = service.NewSlotService(events, c.Cache, c.Validator, logger.Named("slots"), service.SlotConfig{
		DayStart: cfg.Scheduling.BusinessDayStart,
		DayEnd:   cfg.Scheduling.BusinessDayEnd,
		Interval: cfg.Scheduling.SlotInterval,
		CacheTTL: cfg.SlotCache.TTL,
	}, loc)
	c.Reminders = service.NewReminderService(events, cases, nil, c.Metrics, logger.Named("reminders"), cfg.Reminders.Lookahead)
	c.Exports = service.NewExportService(events, c.Events, files,
		storage.NewFeedSigner(cfg.Feeds.SigningSecret, cfg.Feeds.TokenTTL),
		c.Validator, logger.Named("exports"), service.ExportConfig{
			APIPrefix:    cfg.APIPrefix,
			PublicURL:    cfg.Feeds.PublicURL,
			CalendarName: cfg.Feeds.CalendarName,
			Location:     loc,
		})

	return c, nil
}

// StartReminderQueue routes reminder delivery through a worker pool.
func (c *Container) StartReminderQueue(ctx context.Context) {
	c.ReminderQueue = jobs.NewQueue("reminders", c.Reminders.HandleJob, jobs.QueueConfig{
		Workers:    c.Config.Reminders.Workers,
		BufferSize: reminderQueueBuffer,
		MaxRetries: c.Config.Reminders.Retries,
		RetryDelay: c.Config.Reminders.RetryDelay,
		Logger:     c.Logger.Named("queue"),
	})
	c.ReminderQueue.Start(ctx)
	c.Reminders.UseQueue(c.ReminderQueue)
}

// PingDatabase checks database reachability.
func (c *Container) PingDatabase(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// PingRedis checks the cache; it succeeds when caching is off.
func (c *Container) PingRedis(ctx context.Context) error {
	if c.Redis == nil {
		return nil
	}
	return c.Redis.Ping(ctx).Err()
}

// Close releases connections, stopping the reminder queue first.
func (c *Container) Close() error {
	if c.ReminderQueue != nil {
		c.ReminderQueue.Stop()
	}
	var errs []error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HorizonDays converts a rescan horizon to whole days, at least one.
func HorizonDays(d time.Duration) int {
	days := int(d / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}
