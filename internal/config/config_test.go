package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.NATSURL != "nats://nats:4222" {
		t.Errorf("NATSURL = %q", cfg.NATSURL)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.StatsQueueSize != 256 {
		t.Errorf("StatsQueueSize = %d", cfg.StatsQueueSize)
	}
	if cfg.StationaryAfter != 10*time.Minute {
		t.Errorf("StationaryAfter = %v", cfg.StationaryAfter)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("STATS_QUEUE_SIZE", "16")
	t.Setenv("STATIONARY_AFTER", "5m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.NATSURL)
	}
	if cfg.StatsQueueSize != 16 {
		t.Errorf("StatsQueueSize = %d", cfg.StatsQueueSize)
	}
	if cfg.StationaryAfter != 5*time.Minute {
		t.Errorf("StationaryAfter = %v", cfg.StationaryAfter)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("STATS_QUEUE_SIZE", "lots")
	t.Setenv("STATIONARY_AFTER", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StatsQueueSize != 256 {
		t.Errorf("StatsQueueSize = %d, want default 256", cfg.StatsQueueSize)
	}
	if cfg.StationaryAfter != 10*time.Minute {
		t.Errorf("StationaryAfter = %v, want default 10m", cfg.StationaryAfter)
	}
}
