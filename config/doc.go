// Package config loads and validates the engine configuration.
//
// It uses Viper to read a YAML config file with environment variable
// overrides (FLOWKIT_ prefix, underscore-separated paths, e.g.
// FLOWKIT_STORE_REDIS_ADDR), and godotenv to pick up a local .env file
// during development.
//
// # Usage
//
//	cfg, err := config.Load("config.yml")
package config
