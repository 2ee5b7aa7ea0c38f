package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// AppEnvDev marks a local development deployment.
	AppEnvDev = "dev"
	// AppEnvProd marks a production deployment.
	AppEnvProd = "prod"

	// DriverSQLite selects the embedded sqlite database.
	DriverSQLite = "sqlite"
	// DriverPostgres selects a Postgres database.
	DriverPostgres = "postgres"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Storage      StorageConfig
	Generation   GenerationConfig
	Anthropic    AnthropicConfig
	NanoBanana   NanoBananaConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"REELFORGE_APP_ENV" default:"dev"`
	Port         string `envconfig:"REELFORGE_APP_PORT" default:"3001"`
	LogLevel     string `envconfig:"REELFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REELFORGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"REELFORGE_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"REELFORGE_DB_DSN"`

	MaxOpenConns    int           `envconfig:"REELFORGE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"REELFORGE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"REELFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REELFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// defaultSQLitePath is where the embedded database lands when no DSN is set.
const defaultSQLitePath = "data/reelforge.db"

func (db *DBConfig) ensureDSN() error {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case DriverSQLite, "":
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLitePath
		}
		return nil
	case DriverPostgres:
		db.Driver = DriverPostgres
		if db.DSN == "" {
			return fmt.Errorf("REELFORGE_DB_DSN is required when REELFORGE_DB_DRIVER=postgres")
		}
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"REELFORGE_REDIS_URL" default:"redis://localhost:6379/0"`
	PoolSize     int           `envconfig:"REELFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REELFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REELFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REELFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REELFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CORSConfig struct {
	Origins []string `envconfig:"REELFORGE_CORS_ORIGINS" default:"http://localhost:5173"`
}

type StorageConfig struct {
	ImagesDir  string `envconfig:"REELFORGE_IMAGES_DIR" default:"data/images"`
	PublicPath string `envconfig:"REELFORGE_IMAGES_PUBLIC_PATH" default:"/images"`
}

type GenerationConfig struct {
	PollInterval      time.Duration `envconfig:"REELFORGE_GENERATION_POLL_INTERVAL" default:"2s"`
	PollTimeout       time.Duration `envconfig:"REELFORGE_GENERATION_POLL_TIMEOUT" default:"120s"`
	LockTTL           time.Duration `envconfig:"REELFORGE_GENERATION_LOCK_TTL" default:"30m"`
	Queue             string        `envconfig:"REELFORGE_GENERATION_QUEUE" default:"generation"`
	WorkerConcurrency int           `envconfig:"REELFORGE_GENERATION_WORKER_CONCURRENCY" default:"1"`
}

type AnthropicConfig struct {
	APIKey    string `envconfig:"REELFORGE_ANTHROPIC_API_KEY"`
	BaseURL   string `envconfig:"REELFORGE_ANTHROPIC_BASE_URL"`
	Model     string `envconfig:"REELFORGE_ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`
	MaxTokens int    `envconfig:"REELFORGE_ANTHROPIC_MAX_TOKENS" default:"4096"`
}

type NanoBananaConfig struct {
	APIKey  string `envconfig:"REELFORGE_NANOBANANA_API_KEY"`
	BaseURL string `envconfig:"REELFORGE_NANOBANANA_BASE_URL"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"REELFORGE_AUTO_MIGRATE" default:"true"`
}
