package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devJWTSecret     = "dev_secret"
	devExportsSecret = "dev_exports_secret"
)

// Config is the process configuration, read from the environment and an optional .env file.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Availability AvailabilityConfig
	Exports      ExportsConfig
	Maintenance  MaintenanceConfig
	Calendar     CalendarConfig
	RateLimit    RateLimitConfig
}

type DatabaseConfig struct {
	// URL, when set, takes precedence over the discrete connection fields.
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	ApplicationName string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// StatementTimeout bounds every query server-side. Zero leaves the server default.
	StatementTimeout time.Duration
	AutoMigrate      bool
}

type RedisConfig struct {
	Enabled bool
	// URL, when set, takes precedence over Host, Port, Password and DB.
	URL          string
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AvailabilityConfig tunes resolution caching and weekly schedule validation.
type AvailabilityConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	MaxRangeDays int
	// WeeklyOverlapPolicy is "reject" or "allow".
	WeeklyOverlapPolicy string
}

// ExportsConfig configures asynchronous availability exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// MaintenanceConfig drives the cron-based housekeeping jobs.
type MaintenanceConfig struct {
	Enabled                bool
	ExceptionRetentionDays int
	PruneSchedule          string
	ExportCleanupSchedule  string
}

// CalendarConfig shapes the iCalendar feed.
type CalendarConfig struct {
	Timezone  string
	ProductID string
}

type RateLimitConfig struct {
	CalendarRPS   float64
	CalendarBurst int
}

// Load reads configuration and validates it.
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{
		Env:       strings.ToLower(v.GetString("ENV")),
		Port:      v.GetInt("PORT"),
		APIPrefix: "/" + strings.Trim(v.GetString("API_PREFIX"), "/"),

		Database:     loadDatabase(v),
		Redis:        loadRedis(v),
		JWT:          loadJWT(v),
		CORS:         CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))},
		Log:          LogConfig{Level: v.GetString("LOG_LEVEL"), Format: v.GetString("LOG_FORMAT")},
		Availability: loadAvailability(v),
		Exports:      loadExports(v),
		Maintenance: MaintenanceConfig{
			Enabled:                v.GetBool("ENABLE_MAINTENANCE"),
			ExceptionRetentionDays: v.GetInt("EXCEPTION_RETENTION_DAYS"),
			PruneSchedule:          v.GetString("EXCEPTION_PRUNE_CRON"),
			ExportCleanupSchedule:  v.GetString("EXPORT_CLEANUP_CRON"),
		},
		Calendar: CalendarConfig{
			Timezone:  v.GetString("CALENDAR_TIMEZONE"),
			ProductID: v.GetString("CALENDAR_PRODUCT_ID"),
		},
		RateLimit: RateLimitConfig{
			CalendarRPS:   v.GetFloat64("CALENDAR_FEED_RPS"),
			CalendarBurst: v.GetInt("CALENDAR_FEED_BURST"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting that would make the service misbehave.
// Production additionally refuses the development signing secrets.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch c.Availability.WeeklyOverlapPolicy {
	case "reject", "allow":
	default:
		errs = append(errs, fmt.Errorf("WEEKLY_BLOCK_OVERLAP_POLICY must be reject or allow, got %q", c.Availability.WeeklyOverlapPolicy))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Exports.Enabled && c.Exports.SignedURLSecret == "" {
		errs = append(errs, errors.New("EXPORTS_SIGNED_URL_SECRET is required when exports are enabled"))
	}
	if c.RateLimit.CalendarRPS < 0 || c.RateLimit.CalendarBurst < 0 {
		errs = append(errs, errors.New("calendar feed rate limits must not be negative"))
	}
	if c.Env == EnvProduction {
		if c.JWT.Secret == devJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
		}
		if c.Exports.Enabled && c.Exports.SignedURLSecret == devExportsSecret {
			errs = append(errs, errors.New("EXPORTS_SIGNED_URL_SECRET must be changed in production"))
		}
	}
	return errors.Join(errs...)
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		URL:              v.GetString("DATABASE_URL"),
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		ApplicationName:  v.GetString("DB_APPLICATION_NAME"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime:  parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnMaxIdleTime:  parseDuration(v.GetString("DB_CONN_MAX_IDLE_TIME"), 30*time.Minute),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 0),
		AutoMigrate:      v.GetBool("DB_AUTO_MIGRATE"),
	}
}

func loadRedis(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Enabled:      v.GetBool("REDIS_ENABLED"),
		URL:          v.GetString("REDIS_URL"),
		Host:         v.GetString("REDIS_HOST"),
		Port:         v.GetInt("REDIS_PORT"),
		Password:     v.GetString("REDIS_PASSWORD"),
		DB:           v.GetInt("REDIS_DB"),
		PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout:  parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
		ReadTimeout:  parseDuration(v.GetString("REDIS_READ_TIMEOUT"), time.Second),
		WriteTimeout: parseDuration(v.GetString("REDIS_WRITE_TIMEOUT"), time.Second),
	}
}

func loadJWT(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}
}

func loadAvailability(v *viper.Viper) AvailabilityConfig {
	cfg := AvailabilityConfig{
		CacheEnabled:        v.GetBool("AVAILABILITY_CACHE_ENABLED"),
		CacheTTL:            parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 10*time.Minute),
		MaxRangeDays:        v.GetInt("AVAILABILITY_MAX_RANGE_DAYS"),
		WeeklyOverlapPolicy: strings.ToLower(strings.TrimSpace(v.GetString("WEEKLY_BLOCK_OVERLAP_POLICY"))),
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 92
	}
	return cfg
}

func loadExports(v *viper.Viper) ExportsConfig {
	cfg := ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.WorkerRetries < 0 {
		cfg.WorkerRetries = 0
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "technician_availability")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_APPLICATION_NAME", "technician-availability-api")
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_ISSUER", "technician-availability-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AVAILABILITY_CACHE_ENABLED", false)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "10m")
	v.SetDefault("AVAILABILITY_MAX_RANGE_DAYS", 92)
	v.SetDefault("WEEKLY_BLOCK_OVERLAP_POLICY", "reject")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", devExportsSecret)
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_MAINTENANCE", false)
	v.SetDefault("EXCEPTION_RETENTION_DAYS", 365)
	v.SetDefault("EXCEPTION_PRUNE_CRON", "30 3 * * *")
	v.SetDefault("EXPORT_CLEANUP_CRON", "@hourly")

	v.SetDefault("CALENDAR_TIMEZONE", "UTC")
	v.SetDefault("CALENDAR_PRODUCT_ID", "-//technician-availability-api//EN")

	v.SetDefault("CALENDAR_FEED_RPS", 1.0)
	v.SetDefault("CALENDAR_FEED_BURST", 5)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
