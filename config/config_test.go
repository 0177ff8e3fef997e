package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "service:\n  name: test\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Mode != "async" || cfg.Engine.Workers != 4 {
		t.Fatalf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Engine.DefaultTimeout != 300*time.Second {
		t.Fatalf("default timeout = %v", cfg.Engine.DefaultTimeout)
	}
	if cfg.Store.Driver != "memory" || cfg.Queue.Driver != "memory" {
		t.Fatalf("drivers = %s/%s", cfg.Store.Driver, cfg.Queue.Driver)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("logging level = %s", cfg.Logging.Level)
	}
	if !cfg.Service.Debug {
		t.Fatal("development must enable debug")
	}
}

func TestLoadReadsFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
service:
  name: flowd
  environment: production
engine:
  mode: sync
  workers: 8
store:
  driver: redis
  redis:
    addr: redis.internal:6379
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Mode != "sync" || cfg.Engine.Workers != 8 {
		t.Fatalf("engine = %+v", cfg.Engine)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Service.Debug {
		t.Fatal("production must not enable debug")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FLOWKIT_ENGINE_MODE", "sync")
	t.Setenv("FLOWKIT_STORE_REDIS_ADDR", "override:6379")

	cfg, err := Load(writeConfig(t, "engine:\n  mode: async\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Mode != "sync" {
		t.Fatalf("engine.mode = %s, want env override", cfg.Engine.Mode)
	}
	if cfg.Store.Redis.Addr != "override:6379" {
		t.Fatalf("store.redis.addr = %s", cfg.Store.Redis.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad mode":        "engine:\n  mode: turbo\n",
		"bad environment": "service:\n  environment: prod\n",
		"bad store":       "store:\n  driver: postgres\n",
		"bad queue":       "queue:\n  driver: rabbitmq\n",
		"bad jitter":      "engine:\n  backoff:\n    jitter: 2.0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.Name != "flowd" {
		t.Fatalf("service.name = %s", cfg.Service.Name)
	}
}
