package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.APIHost != "localhost" || cfg.APIPort != "8090" {
		t.Errorf("Expected default API address localhost:8090, got %s:%s", cfg.APIHost, cfg.APIPort)
	}
	if cfg.StoreType != "sqlite" {
		t.Errorf("Expected default store sqlite, got %s", cfg.StoreType)
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("Expected default sync interval 5m, got %v", cfg.SyncInterval)
	}
	if cfg.MaxRetryAttempts != 3 {
		t.Errorf("Expected 3 retry attempts, got %d", cfg.MaxRetryAttempts)
	}
	if cfg.RetryBaseDelay != 5*time.Second {
		t.Errorf("Expected 5s base delay, got %v", cfg.RetryBaseDelay)
	}
	if cfg.RateLimitMaxRequests != 30 || cfg.RateLimitWindow != time.Minute {
		t.Errorf("Expected 30 req/1m rate limit, got %d/%v", cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	}
	if cfg.IdleThreshold != 5*time.Minute {
		t.Errorf("Expected 5m idle threshold, got %v", cfg.IdleThreshold)
	}
	if cfg.BreakInterval != time.Hour {
		t.Errorf("Expected 1h break interval, got %v", cfg.BreakInterval)
	}
	if cfg.SyncEnabled() {
		t.Error("Expected sync disabled without a backend endpoint")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BACKEND_ENDPOINT", "https://metrics.example.com")
	t.Setenv("SYNC_INTERVAL", "2m")
	t.Setenv("MAX_BATCH_SIZE", "25")
	t.Setenv("POMODORO_AUTO_START", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !cfg.SyncEnabled() {
		t.Error("Expected sync enabled with a backend endpoint")
	}
	if cfg.SyncInterval != 2*time.Minute {
		t.Errorf("Expected 2m sync interval, got %v", cfg.SyncInterval)
	}
	if cfg.MaxBatchSize != 25 {
		t.Errorf("Expected batch size 25, got %d", cfg.MaxBatchSize)
	}
	if !cfg.PomodoroAutoStart {
		t.Error("Expected pomodoro auto-start enabled")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_BATCH_SIZE", "lots")
	t.Setenv("SYNC_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.MaxBatchSize != 100 {
		t.Errorf("Expected default batch size for malformed input, got %d", cfg.MaxBatchSize)
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("Expected default sync interval for malformed input, got %v", cfg.SyncInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:          "unknown store type",
			mutate:        func(c *Config) { c.StoreType = "mongo" },
			expectedField: "STORE_TYPE",
		},
		{
			name:          "postgres requires a url",
			mutate:        func(c *Config) { c.StoreType = "postgres" },
			expectedField: "POSTGRES_URL",
		},
		{
			name:          "batch size below one",
			mutate:        func(c *Config) { c.MaxBatchSize = 0 },
			expectedField: "MAX_BATCH_SIZE",
		},
		{
			name:          "retry attempts below one",
			mutate:        func(c *Config) { c.MaxRetryAttempts = 0 },
			expectedField: "MAX_RETRY_ATTEMPTS",
		},
		{
			name:          "rate limit below one",
			mutate:        func(c *Config) { c.RateLimitMaxRequests = 0 },
			expectedField: "RATE_LIMIT_MAX_REQUESTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.expectedField == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.expectedField {
				t.Errorf("Expected error on %s, got %s", tt.expectedField, cfgErr.Field)
			}
		})
	}
}
