package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	SlotCache  SlotCacheConfig
	Cron       CronConfig
	Reminders  ReminderConfig
	Feeds      FeedConfig
	Exports    ExportConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig tunes the conflict engine and slot suggester.
type SchedulingConfig struct {
	BusinessDayStart       time.Duration
	BusinessDayEnd         time.Duration
	SlotInterval           time.Duration
	RecurrenceLenient      bool
	RecurrenceMaxInstances int
	CrossMidnight          bool
}

// SlotCacheConfig controls Redis caching of slot suggestions.
type SlotCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// CronConfig drives the periodic conflict rescan and reminder sweep.
type CronConfig struct {
	Enabled       bool
	RescanSpec    string
	RescanHorizon time.Duration
	ReminderSpec  string
}

// ReminderConfig sizes the reminder dispatch queue.
type ReminderConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Lookahead  time.Duration
}

// FeedConfig signs calendar subscription URLs.
type FeedConfig struct {
	SigningSecret string
	TokenTTL      time.Duration
	PublicURL     string
	CalendarName  string
}

// ExportConfig points the CLI exporter at a writable directory.
type ExportConfig struct {
	StorageDir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		SQLitePath:   v.GetString("SQLITE_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		BusinessDayStart:       parseClock(v.GetString("BUSINESS_DAY_START"), 8*time.Hour),
		BusinessDayEnd:         parseClock(v.GetString("BUSINESS_DAY_END"), 17*time.Hour),
		SlotInterval:           parseDuration(v.GetString("SLOT_INTERVAL"), 30*time.Minute),
		RecurrenceLenient:      v.GetBool("RECURRENCE_LENIENT"),
		RecurrenceMaxInstances: v.GetInt("RECURRENCE_MAX_OCCURRENCES"),
		CrossMidnight:          v.GetBool("CONFLICT_CROSS_MIDNIGHT"),
	}

	cfg.SlotCache = SlotCacheConfig{
		Enabled: v.GetBool("SLOT_CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("SLOT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Cron = CronConfig{
		Enabled:       v.GetBool("ENABLE_CRON"),
		RescanSpec:    v.GetString("CONFLICT_RESCAN_CRON"),
		RescanHorizon: parseDuration(v.GetString("CONFLICT_RESCAN_HORIZON"), 14*24*time.Hour),
		ReminderSpec:  v.GetString("REMINDER_CRON"),
	}

	cfg.Reminders = ReminderConfig{
		Workers:    v.GetInt("REMINDER_WORKERS"),
		Retries:    v.GetInt("REMINDER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("REMINDER_RETRY_DELAY"), 5*time.Second),
		Lookahead:  parseDuration(v.GetString("REMINDER_LOOKAHEAD"), 7*24*time.Hour),
	}

	cfg.Feeds = FeedConfig{
		SigningSecret: v.GetString("FEED_SIGNING_SECRET"),
		TokenTTL:      parseDuration(v.GetString("FEED_TOKEN_TTL"), 90*24*time.Hour),
		PublicURL:     strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		CalendarName:  v.GetString("CALENDAR_NAME"),
	}

	cfg.Exports = ExportConfig{StorageDir: v.GetString("EXPORT_STORAGE_DIR")}

	return cfg
}

// Location resolves the practice timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "UTC")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lexcal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("SQLITE_PATH", "./lexcal.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "lexcal-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BUSINESS_DAY_START", "08:00")
	v.SetDefault("BUSINESS_DAY_END", "17:00")
	v.SetDefault("SLOT_INTERVAL", "30m")
	v.SetDefault("RECURRENCE_LENIENT", false)
	v.SetDefault("RECURRENCE_MAX_OCCURRENCES", 1000)
	v.SetDefault("CONFLICT_CROSS_MIDNIGHT", false)

	v.SetDefault("SLOT_CACHE_ENABLED", false)
	v.SetDefault("SLOT_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_CRON", false)
	v.SetDefault("CONFLICT_RESCAN_CRON", "0 2 * * *")
	v.SetDefault("CONFLICT_RESCAN_HORIZON", "336h")
	v.SetDefault("REMINDER_CRON", "*/5 * * * *")

	v.SetDefault("REMINDER_WORKERS", 2)
	v.SetDefault("REMINDER_RETRIES", 3)
	v.SetDefault("REMINDER_RETRY_DELAY", "5s")
	v.SetDefault("REMINDER_LOOKAHEAD", "168h")

	v.SetDefault("FEED_SIGNING_SECRET", "dev_feed_secret")
	v.SetDefault("FEED_TOKEN_TTL", "2160h")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("CALENDAR_NAME", "LexCal")

	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// parseClock turns "HH:MM" into an offset from midnight.
func parseClock(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
