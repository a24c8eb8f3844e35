package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Vault      VaultConfig
	Automation AutomationConfig
	Dispatch   DispatchConfig
	Sessions   SessionsConfig
	Storage    StorageConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Swagger    SwaggerConfig
	Telemetry  TelemetryConfig
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

// RedisConfig holds Redis connection settings. When disabled the engine
// falls back to in-process session and rate limit state, which is only
// safe for a single instance.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// VaultConfig holds the credential vault key
type VaultConfig struct {
	Key string // hex-encoded 32-byte AEAD key
}

// AutomationConfig holds browser engine settings
type AutomationConfig struct {
	Mode           string // interactive, background
	Headless       bool
	DisableGPU     bool
	NoSandbox      bool
	RemoteURL      string
	UserAgent      string
	WindowWidth    int
	WindowHeight   int
	DefaultTimeout time.Duration
}

// DispatchConfig holds worker pool and retry settings
type DispatchConfig struct {
	Workers            int           // concurrent jobs ceiling
	RateLimit          int           // job starts allowed per window
	RateWindow         time.Duration // sliding window length
	ClaimInterval      time.Duration // queue poll cadence when idle
	JobTimeout         time.Duration // wall clock budget per attempt
	MaxAttempts        int           // executions per job across retries
	ElementRetryLimit  int           // element_not_found retries before giving up
	RetryBaseDelay     time.Duration // first backoff step
	RetryMaxDelay      time.Duration // backoff ceiling
	StaleAfter         time.Duration // processing age treated as a crashed worker
	StaleSweepInterval time.Duration // how often to look for stale claims
}

// SessionsConfig holds session persistence settings
type SessionsConfig struct {
	TTL       time.Duration // stored session lifetime
	KeyPrefix string        // key namespace in the store
}

// StorageConfig holds object storage settings for listing images
type StorageConfig struct {
	Endpoint       string // custom S3 endpoint (empty = AWS)
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UsePathStyle   bool
	RequestTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
	ProfilingEnabled  bool
	ProfilingEndpoint string // Pyroscope server address
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with COMPR_ prefix (e.g., COMPR_DATABASE_PASSWORD)
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
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("COMPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
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
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Vault: VaultConfig{
			Key: v.GetString("vault.key"),
		},
		Automation: AutomationConfig{
			Mode:           v.GetString("automation.mode"),
			Headless:       v.GetBool("automation.headless"),
			DisableGPU:     v.GetBool("automation.disable_gpu"),
			NoSandbox:      v.GetBool("automation.no_sandbox"),
			RemoteURL:      v.GetString("automation.remote_url"),
			UserAgent:      v.GetString("automation.user_agent"),
			WindowWidth:    v.GetInt("automation.window_width"),
			WindowHeight:   v.GetInt("automation.window_height"),
			DefaultTimeout: v.GetDuration("automation.default_timeout"),
		},
		Dispatch: DispatchConfig{
			Workers:            v.GetInt("dispatch.workers"),
			RateLimit:          v.GetInt("dispatch.rate_limit"),
			RateWindow:         v.GetDuration("dispatch.rate_window"),
			ClaimInterval:      v.GetDuration("dispatch.claim_interval"),
			JobTimeout:         v.GetDuration("dispatch.job_timeout"),
			MaxAttempts:        v.GetInt("dispatch.max_attempts"),
			ElementRetryLimit:  v.GetInt("dispatch.element_retry_limit"),
			RetryBaseDelay:     v.GetDuration("dispatch.retry_base_delay"),
			RetryMaxDelay:      v.GetDuration("dispatch.retry_max_delay"),
			StaleAfter:         v.GetDuration("dispatch.stale_after"),
			StaleSweepInterval: v.GetDuration("dispatch.stale_sweep_interval"),
		},
		Sessions: SessionsConfig{
			TTL:       v.GetDuration("sessions.ttl"),
			KeyPrefix: v.GetString("sessions.key_prefix"),
		},
		Storage: StorageConfig{
			Endpoint:       v.GetString("storage.endpoint"),
			Region:         v.GetString("storage.region"),
			Bucket:         v.GetString("storage.bucket"),
			AccessKey:      v.GetString("storage.access_key"),
			SecretKey:      v.GetString("storage.secret_key"),
			UsePathStyle:   v.GetBool("storage.use_path_style"),
			RequestTimeout: v.GetDuration("storage.request_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingEndpoint: v.GetString("telemetry.profiling_endpoint"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "compr-engine"
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
		cfg.Database.DBName = "compr"
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
	if cfg.Automation.Mode == "" {
		cfg.Automation.Mode = "background"
	}
	if cfg.Automation.WindowWidth == 0 {
		cfg.Automation.WindowWidth = 1366
	}
	if cfg.Automation.WindowHeight == 0 {
		cfg.Automation.WindowHeight = 900
	}
	if cfg.Automation.DefaultTimeout == 0 {
		cfg.Automation.DefaultTimeout = 30 * time.Second
	}
	if cfg.Dispatch.Workers == 0 {
		cfg.Dispatch.Workers = 2
	}
	if cfg.Dispatch.RateLimit == 0 {
		cfg.Dispatch.RateLimit = 10
	}
	if cfg.Dispatch.RateWindow == 0 {
		cfg.Dispatch.RateWindow = time.Minute
	}
	if cfg.Dispatch.ClaimInterval == 0 {
		cfg.Dispatch.ClaimInterval = time.Second
	}
	if cfg.Dispatch.JobTimeout == 0 {
		cfg.Dispatch.JobTimeout = 10 * time.Minute
	}
	if cfg.Dispatch.MaxAttempts == 0 {
		cfg.Dispatch.MaxAttempts = 4
	}
	if cfg.Dispatch.ElementRetryLimit == 0 {
		cfg.Dispatch.ElementRetryLimit = 2
	}
	if cfg.Dispatch.RetryBaseDelay == 0 {
		cfg.Dispatch.RetryBaseDelay = 30 * time.Second
	}
	if cfg.Dispatch.RetryMaxDelay == 0 {
		cfg.Dispatch.RetryMaxDelay = 30 * time.Minute
	}
	if cfg.Dispatch.StaleAfter == 0 {
		cfg.Dispatch.StaleAfter = 15 * time.Minute
	}
	if cfg.Dispatch.StaleSweepInterval == 0 {
		cfg.Dispatch.StaleSweepInterval = 5 * time.Minute
	}
	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 720 * time.Hour
	}
	if cfg.Sessions.KeyPrefix == "" {
		cfg.Sessions.KeyPrefix = "sessions"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.RequestTimeout == 0 {
		cfg.Storage.RequestTimeout = 30 * time.Second
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
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "compr-engine"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
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

	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("dispatch.workers must be at least 1")
	}
	if c.Dispatch.RateLimit < 1 {
		return fmt.Errorf("dispatch.rate_limit must be at least 1")
	}
	if c.Dispatch.ElementRetryLimit < 0 {
		return fmt.Errorf("dispatch.element_retry_limit cannot be negative")
	}

	switch c.Automation.Mode {
	case "interactive", "background":
	default:
		return fmt.Errorf("automation.mode must be 'interactive' or 'background', got %q", c.Automation.Mode)
	}

	if c.Vault.Key != "" {
		key, err := hex.DecodeString(c.Vault.Key)
		if err != nil {
			return fmt.Errorf("vault.key must be hex encoded")
		}
		if len(key) != 32 {
			return fmt.Errorf("vault.key must decode to 32 bytes, got %d", len(key))
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Vault.Key == "" {
			return fmt.Errorf("vault.key is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or IP restricted in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
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

// Addr returns the host:port address for the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
