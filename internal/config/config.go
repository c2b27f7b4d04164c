package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"desorientado_backend/internal/progress"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Judge0    Judge0Config
	Redis     RedisConfig
	Activity  ActivityConfig  `mapstructure:"activity"`
	Review    ReviewConfig    `mapstructure:"review"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// set from command line flags, not the config file
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
	// Timezone is the IANA zone used for "today" when the client sends none.
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone, falling back to the process local zone.
func (s ServerConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type Judge0Config struct {
	APIKey     string `mapstructure:"api_key"`
	URL        string
	Host       string
	LanguageID int `mapstructure:"language_id"`
	TimeoutSec int `mapstructure:"timeout_seconds"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ActivityConfig controls the fire-and-forget activity log.
type ActivityConfig struct {
	BufferSize   int    `mapstructure:"buffer_size"`
	Sink         string `mapstructure:"sink"` // db | amqp | both
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
}

// ReviewConfig tunes the review suggestion heuristic.
type ReviewConfig struct {
	LowAccuracy     float64 `mapstructure:"low_accuracy"`
	LowScoreMinDays int     `mapstructure:"low_score_min_days"`
	Intervals       []int   `mapstructure:"intervals"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("judge0.language_id", 62)
	v.SetDefault("judge0.timeout_seconds", 15)
	v.SetDefault("activity.buffer_size", 256)
	v.SetDefault("activity.sink", "db")
	v.SetDefault("activity.amqp_exchange", "desorientado.activity")
	v.SetDefault("review.low_accuracy", 0.6)
	v.SetDefault("review.low_score_min_days", 1)
	v.SetDefault("review.intervals", []int{3, 7, 14, 30})
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DESORIENTADO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.timezone", "SERVER_TIMEZONE")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Judge0
	v.BindEnv("judge0.api_key", "JUDGE0_API_KEY")
	v.BindEnv("judge0.url", "JUDGE0_URL")
	v.BindEnv("judge0.host", "JUDGE0_HOST")

	// Activity
	v.BindEnv("activity.amqp_url", "AMQP_URL")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if err := cfg.Review.validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// Policy converts the section into the scheduler policy.
func (r ReviewConfig) Policy() progress.Policy {
	return progress.Policy{
		LowAccuracy:     r.LowAccuracy,
		LowScoreMinDays: r.LowScoreMinDays,
		Intervals:       append([]int{}, r.Intervals...),
	}
}

func (r ReviewConfig) validate() error {
	if r.LowAccuracy <= 0 || r.LowAccuracy > 1 {
		return fmt.Errorf("review.low_accuracy must be in (0, 1], got %v", r.LowAccuracy)
	}
	if r.LowScoreMinDays < 0 {
		return fmt.Errorf("review.low_score_min_days must not be negative, got %d", r.LowScoreMinDays)
	}
	if len(r.Intervals) == 0 {
		return fmt.Errorf("review.intervals must not be empty")
	}
	for _, d := range r.Intervals {
		if d <= 0 {
			return fmt.Errorf("review.intervals must be positive, got %v", r.Intervals)
		}
	}
	return nil
}
