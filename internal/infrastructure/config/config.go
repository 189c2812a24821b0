package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Telemetry   TelemetryConfig
	Fulfillment FulfillmentConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64 // also caps CSV uploads
	TrustedProxies  []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	MetricsEnabled    bool
	CollectorEndpoint string  // e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool // dev only
	DBSlowQueryThresh time.Duration
}

// FulfillmentConfig holds the warehouse and courier settings
type FulfillmentConfig struct {
	StaleAfterDays      int           // in-transit age that marks a delivery failed
	StaleCheckInterval  time.Duration // how often the server flags stale parcels
	ImportMaxErrors     int           // row errors kept per import
	TokenCacheBackend   string        // memory or redis
	MetricsCollectEvery time.Duration // stock gauge sampling interval
	ImportsPerMinute    int           // CSV uploads per operator, 0 disables the limit
	ImportBurst         int
}

// StaleAfter returns the stale limit as a duration
func (f FulfillmentConfig) StaleAfter() time.Duration {
	return time.Duration(f.StaleAfterDays) * 24 * time.Hour
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FULFILLMENT_ prefix (e.g., FULFILLMENT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FULFILLMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Fulfillment: FulfillmentConfig{
			StaleAfterDays:      v.GetInt("fulfillment.stale_after_days"),
			StaleCheckInterval:  v.GetDuration("fulfillment.stale_check_interval"),
			ImportMaxErrors:     v.GetInt("fulfillment.import_max_errors"),
			TokenCacheBackend:   v.GetString("fulfillment.token_cache_backend"),
			MetricsCollectEvery: v.GetDuration("fulfillment.metrics_collect_every"),
			ImportsPerMinute:    v.GetInt("fulfillment.imports_per_minute"),
			ImportBurst:         v.GetInt("fulfillment.import_burst"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "fulfillment"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 32 << 20
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "fulfillment"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Fulfillment.StaleAfterDays == 0 {
		cfg.Fulfillment.StaleAfterDays = 20
	}
	if cfg.Fulfillment.StaleCheckInterval == 0 {
		cfg.Fulfillment.StaleCheckInterval = time.Hour
	}
	if cfg.Fulfillment.ImportMaxErrors == 0 {
		cfg.Fulfillment.ImportMaxErrors = 100
	}
	if cfg.Fulfillment.TokenCacheBackend == "" {
		cfg.Fulfillment.TokenCacheBackend = "memory"
	}
	if cfg.Fulfillment.MetricsCollectEvery == 0 {
		cfg.Fulfillment.MetricsCollectEvery = 5 * time.Minute
	}
	if cfg.Fulfillment.ImportsPerMinute > 0 && cfg.Fulfillment.ImportBurst == 0 {
		cfg.Fulfillment.ImportBurst = 3
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Fulfillment.StaleAfterDays < 0 {
		return fmt.Errorf("fulfillment.stale_after_days must be positive, got %d", c.Fulfillment.StaleAfterDays)
	}
	if c.Fulfillment.ImportMaxErrors < 0 {
		return fmt.Errorf("fulfillment.import_max_errors cannot be negative")
	}
	switch c.Fulfillment.TokenCacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("fulfillment.token_cache_backend must be 'memory' or 'redis', got %q", c.Fulfillment.TokenCacheBackend)
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
