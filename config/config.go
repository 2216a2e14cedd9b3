package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	Auth        AuthConfig        `yaml:"auth"`
	Push        PushConfig        `yaml:"push"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
	Redis       RedisConfig       `yaml:"redis"`
	Storage     StorageConfig     `yaml:"storage"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Sweeper     SweeperConfig     `yaml:"sweeper"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"SERVER_PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" env:"SERVER_RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" env:"SERVER_RATE_LIMIT_BURST"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" env:"SERVER_CACHE_TTL_SECONDS"`
	MaxUploadMB     int     `yaml:"max_upload_mb" env:"SERVER_MAX_UPLOAD_MB"`
	Timezone        string  `yaml:"timezone" env:"SERVER_TIMEZONE"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "file:" or ending in ".db" opens SQLite, anything else Postgres.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns           int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" env:"DATABASE_CONN_MAX_LIFETIME_MINUTES"`
	LogLevel               string `yaml:"log_level" env:"DATABASE_LOG_LEVEL"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// AuthConfig holds token signing settings and the bootstrap administrator.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer         string        `yaml:"issuer" env:"AUTH_ISSUER"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
	AdminEmail     string        `yaml:"admin_email" env:"AUTH_ADMIN_EMAIL"`
	AdminPassword  string        `yaml:"admin_password" env:"AUTH_ADMIN_PASSWORD"`
	AdminFirstName string        `yaml:"admin_first_name"`
	AdminLastName  string        `yaml:"admin_last_name"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" env:"WORKER_POOL_SIZE"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"PUSH_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"PUSH_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject" env:"PUSH_SUBJECT"`
	TTL        int    `yaml:"ttl" env:"PUSH_TTL"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// RedisConfig configures the lifecycle event stream. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Stream   string `yaml:"stream" env:"REDIS_STREAM"`
	MaxLen   int64  `yaml:"max_len" env:"REDIS_STREAM_MAX_LEN"`
}

// StorageConfig selects the document blob backend.
type StorageConfig struct {
	Backend        string `yaml:"backend" env:"STORAGE_BACKEND"` // "filesystem" or "s3"
	Root           string `yaml:"root" env:"STORAGE_ROOT"`
	S3Bucket       string `yaml:"s3_bucket" env:"STORAGE_S3_BUCKET"`
	S3Region       string `yaml:"s3_region" env:"STORAGE_S3_REGION"`
	S3Endpoint     string `yaml:"s3_endpoint" env:"STORAGE_S3_ENDPOINT"`
	S3AccessKey    string `yaml:"s3_access_key" env:"STORAGE_S3_ACCESS_KEY"`
	S3SecretKey    string `yaml:"s3_secret_key" env:"STORAGE_S3_SECRET_KEY"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style" env:"STORAGE_S3_USE_PATH_STYLE"`
}

// MaintenanceConfig tunes the maintenance scheduler.
type MaintenanceConfig struct {
	// StrictDuration rejects malformed estimated durations instead of
	// falling back to DefaultDuration.
	StrictDuration  bool          `yaml:"strict_duration" env:"MAINTENANCE_STRICT_DURATION"`
	DefaultDuration time.Duration `yaml:"default_duration"`
	WeekDays        int           `yaml:"week_days"`
}

// SweeperConfig holds the scheduled maintenance sweep configuration.
type SweeperConfig struct {
	Enabled  bool   `yaml:"enabled" env:"SWEEPER_ENABLED"`
	Schedule string `yaml:"schedule" env:"SWEEPER_SCHEDULE"`
}

// Load reads the configuration from the given path and applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Server.Timezone == "" {
		cfg.Server.Timezone = "Local"
	}

	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "machineryd"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = "machinery:events"
	}
	if cfg.Redis.MaxLen <= 0 {
		cfg.Redis.MaxLen = 10000
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "filesystem"
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "./data/documents"
	}

	if cfg.Maintenance.DefaultDuration <= 0 {
		cfg.Maintenance.DefaultDuration = 2 * time.Hour
	}
	if cfg.Maintenance.WeekDays <= 0 {
		cfg.Maintenance.WeekDays = 7
	}

	if cfg.Sweeper.Schedule == "" {
		cfg.Sweeper.Schedule = "0 6 * * *"
	}
}

// Location resolves the configured server timezone.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		log.Printf("Warning: invalid timezone %q: %v. Using local time.", cfg.Server.Timezone, err)
		return time.Local
	}
	return loc
}
