package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// APIConfig holds REST API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// JobsConfig holds job store configuration.
type JobsConfig struct {
	// Backend selects the job store: "postgres" (default) or "redis".
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// GraceDelay is the wait between an RSVP and the interest
	// confirmation becoming deliverable, during which un-RSVP cancels it.
	GraceDelay time.Duration `mapstructure:"grace_delay"`

	// PopLimit caps the number of due jobs claimed per dispatch cycle.
	PopLimit int `mapstructure:"pop_limit"`
}

// IdentityConfig holds identity service client configuration.
type IdentityConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// SigningKey verifies session tokens issued by the identity service.
	SigningKey string `mapstructure:"signing_key"`
}

// SinkConfig holds delivery sink client configuration.
type SinkConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`

	// FeedbackBaseURL is embedded in feedback request messages.
	FeedbackBaseURL string `mapstructure:"feedback_base_url"`
}

// SchedulerConfig holds sweep and dispatch trigger configuration.
type SchedulerConfig struct {
	// ReminderSpec and FeedbackSpec are standard cron expressions for
	// the two daily sweeps.
	ReminderSpec string `mapstructure:"reminder_spec"`
	FeedbackSpec string `mapstructure:"feedback_spec"`

	// DispatchInterval is the due-job check interval.
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
}

// DispatchConfig holds dispatcher (worker) configuration.
type DispatchConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MetricsPort     int           `mapstructure:"metrics_port"`
}

// AuthConfig holds request-layer authentication configuration.
type AuthConfig struct {
	// OperatorKeyHash is the bcrypt hash of the key required on manual
	// sweep trigger endpoints.
	OperatorKeyHash string `mapstructure:"operator_key_hash"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix DISPATCH_ override file values.
// For example, DISPATCH_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("DISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in zero-valued fields that have sensible defaults.
func (c *Config) applyDefaults() {
	if c.Jobs.Backend == "" {
		c.Jobs.Backend = "postgres"
	}
	if c.Jobs.GraceDelay <= 0 {
		c.Jobs.GraceDelay = 2 * time.Minute
	}
	if c.Jobs.PopLimit <= 0 {
		c.Jobs.PopLimit = 100
	}
	if c.Identity.Timeout <= 0 {
		c.Identity.Timeout = 10 * time.Second
	}
	if c.Sink.Timeout <= 0 {
		c.Sink.Timeout = 30 * time.Second
	}
	if c.Scheduler.ReminderSpec == "" {
		c.Scheduler.ReminderSpec = "30 22 * * *"
	}
	if c.Scheduler.FeedbackSpec == "" {
		c.Scheduler.FeedbackSpec = "33 22 * * *"
	}
	if c.Scheduler.DispatchInterval <= 0 {
		c.Scheduler.DispatchInterval = 5 * time.Second
	}
	if c.Dispatch.Concurrency <= 0 {
		c.Dispatch.Concurrency = 10
	}
	if c.Dispatch.DeliveryTimeout <= 0 {
		c.Dispatch.DeliveryTimeout = 30 * time.Second
	}
	if c.Dispatch.ShutdownTimeout <= 0 {
		c.Dispatch.ShutdownTimeout = 30 * time.Second
	}
	if c.Dispatch.MetricsPort <= 0 {
		c.Dispatch.MetricsPort = 9102
	}
}
