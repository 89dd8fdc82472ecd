package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dvloznov/walletflow/internal/pipeline"
)

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// APIKey, when set, is required as a bearer token on /api routes.
	APIKey string `mapstructure:"api_key"`
	// MaxBodyBytes bounds uploaded CSV and JSON bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type JobsConfig struct {
	QueueSize  int `mapstructure:"queue_size"`
	Workers    int `mapstructure:"workers"`
	MaxRetries int `mapstructure:"max_retries"`
}

type BigQueryConfig struct {
	Project string `mapstructure:"project"`
}

// DiagramConfig holds the service-wide default generation options.
type DiagramConfig struct {
	AggregatePeriod string `mapstructure:"aggregate_period"`
	Offset          bool   `mapstructure:"offset"`
	ShowNotes       bool   `mapstructure:"show_notes"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
	Diagram  DiagramConfig  `mapstructure:"diagram"`
}

// EnvPrefix prefixes environment overrides, e.g. WALLETFLOW_SERVER_PORT=9000.
const EnvPrefix = "WALLETFLOW"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.max_body_bytes", 32<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("jobs.queue_size", 100)
	v.SetDefault("jobs.workers", 5)
	v.SetDefault("jobs.max_retries", 3)
	v.SetDefault("bigquery.project", "")
	v.SetDefault("diagram.aggregate_period", string(pipeline.DefaultPeriod))
	v.SetDefault("diagram.offset", true)
	v.SetDefault("diagram.show_notes", false)
}

// Load reads the configuration: defaults, then the YAML file at path if
// path is non-empty, then WALLETFLOW_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &c, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	if c.Jobs.QueueSize <= 0 {
		return fmt.Errorf("jobs.queue_size must be positive, got %d", c.Jobs.QueueSize)
	}
	if c.Jobs.MaxRetries < 0 {
		return fmt.Errorf("jobs.max_retries must not be negative, got %d", c.Jobs.MaxRetries)
	}
	if _, err := pipeline.ParsePeriod(c.Diagram.AggregatePeriod); err != nil {
		return fmt.Errorf("invalid diagram.aggregate_period: %w", err)
	}
	return nil
}

// DiagramOptions converts the configured defaults into pipeline options.
func (c *Config) DiagramOptions() pipeline.Options {
	period, err := pipeline.ParsePeriod(c.Diagram.AggregatePeriod)
	if err != nil {
		period = pipeline.DefaultPeriod
	}
	return pipeline.Options{
		Offset:          pipeline.Bool(c.Diagram.Offset),
		AggregatePeriod: period,
		ShowNotes:       pipeline.Bool(c.Diagram.ShowNotes),
	}
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
