package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. FLOWKIT_ENGINE_MODE.
const envPrefix = "FLOWKIT"

// defaultSearchPaths are tried in order when no explicit path is given.
var defaultSearchPaths = []string{
	"./config.yml",
	"./config/config.yml",
	"./cmd/flowd/config.yml",
}

// Load reads the configuration from path (or the first existing default
// location when path is empty), applies .env and environment overrides,
// fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	// A local .env is developer convenience; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	bindKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile() string {
	for _, p := range defaultSearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// bindKeys registers every config key with Viper so AutomaticEnv can
// resolve overrides even when the key is absent from the file.
func bindKeys(v *viper.Viper) {
	keys := []string{
		"service.name", "service.environment", "service.version", "service.debug",
		"logging.level", "logging.format", "logging.output", "logging.no_color", "logging.caller",
		"engine.mode", "engine.workers", "engine.default_timeout",
		"engine.backoff.initial", "engine.backoff.max", "engine.backoff.factor", "engine.backoff.jitter",
		"store.driver", "store.redis.addr", "store.redis.password", "store.redis.db", "store.redis.prefix",
		"queue.driver", "queue.capacity",
		"queue.kafka.enabled", "queue.kafka.brokers", "queue.kafka.topic", "queue.kafka.group_id",
		"api.enabled", "api.addr",
		"metrics.enabled", "metrics.endpoint", "metrics.insecure", "metrics.interval",
	}
	for _, k := range keys {
		// BindEnv only fails on an empty key.
		_ = v.BindEnv(k)
	}
}
