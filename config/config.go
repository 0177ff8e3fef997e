package config

import (
	"fmt"
	"time"

	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/queue"
)

// Config is the full engine configuration.
type Config struct {
	Service ServiceConfig `yaml:"service" mapstructure:"service"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Queue   QueueConfig   `yaml:"queue" mapstructure:"queue"`
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// EngineConfig controls job execution.
type EngineConfig struct {
	// Mode selects the orchestrator: "sync" runs pipelines inline,
	// "async" schedules jobs through the work queue.
	Mode string `yaml:"mode" mapstructure:"mode"`
	// Workers is the async worker pool size.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// DefaultTimeout bounds a single node execution unless the node's
	// config overrides it.
	DefaultTimeout time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`

	Backoff BackoffConfig `yaml:"backoff" mapstructure:"backoff"`
}

// BackoffConfig controls retry delays for requeued jobs.
type BackoffConfig struct {
	Initial time.Duration `yaml:"initial" mapstructure:"initial"`
	Max     time.Duration `yaml:"max" mapstructure:"max"`
	Factor  float64       `yaml:"factor" mapstructure:"factor"`
	Jitter  float64       `yaml:"jitter" mapstructure:"jitter"`
}

// StoreConfig selects and configures the job store.
type StoreConfig struct {
	// Driver is "memory" or "redis".
	Driver string      `yaml:"driver" mapstructure:"driver"`
	Redis  RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the Redis-backed job store.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	// Prefix namespaces every key this engine writes.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// QueueConfig selects and configures the work queue.
type QueueConfig struct {
	// Driver is "memory" or "kafka".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Capacity bounds the memory queue.
	Capacity int               `yaml:"capacity" mapstructure:"capacity"`
	Kafka    queue.KafkaConfig `yaml:"kafka" mapstructure:"kafka"`
}

// APIConfig configures the HTTP read API.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// MetricsConfig configures OpenTelemetry metric export.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults applies default values to the whole configuration.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "flowd"
	}
	if c.Service.Environment == "" {
		c.Service.Environment = "development"
	}
	if c.Service.Environment == "development" {
		c.Service.Debug = true
	}
	c.Logging.ApplyDefaults()

	if c.Engine.Mode == "" {
		c.Engine.Mode = "async"
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 4
	}
	if c.Engine.DefaultTimeout <= 0 {
		c.Engine.DefaultTimeout = 300 * time.Second
	}
	if c.Engine.Backoff.Initial <= 0 {
		c.Engine.Backoff.Initial = 500 * time.Millisecond
	}
	if c.Engine.Backoff.Max <= 0 {
		c.Engine.Backoff.Max = 30 * time.Second
	}
	if c.Engine.Backoff.Factor <= 0 {
		c.Engine.Backoff.Factor = 2.0
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "flowkit"
	}

	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}
	c.Queue.Kafka.ApplyDefaults()

	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "localhost:4318"
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}

// Validate validates the whole configuration.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	if !contains(validEnvs, c.Service.Environment) {
		return fmt.Errorf("service.environment must be one of %v (got: %s)", validEnvs, c.Service.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	validModes := []string{"sync", "async"}
	if !contains(validModes, c.Engine.Mode) {
		return fmt.Errorf("engine.mode must be one of %v (got: %s)", validModes, c.Engine.Mode)
	}
	if c.Engine.Backoff.Jitter < 0 || c.Engine.Backoff.Jitter > 1 {
		return fmt.Errorf("engine.backoff.jitter must be in [0, 1] (got: %v)", c.Engine.Backoff.Jitter)
	}

	validStores := []string{"memory", "redis"}
	if !contains(validStores, c.Store.Driver) {
		return fmt.Errorf("store.driver must be one of %v (got: %s)", validStores, c.Store.Driver)
	}

	validQueues := []string{"memory", "kafka"}
	if !contains(validQueues, c.Queue.Driver) {
		return fmt.Errorf("queue.driver must be one of %v (got: %s)", validQueues, c.Queue.Driver)
	}
	if c.Queue.Driver == "kafka" {
		if err := c.Queue.Kafka.Validate(); err != nil {
			return fmt.Errorf("queue.kafka: %w", err)
		}
	}
	return nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
