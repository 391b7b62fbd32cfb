package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. Every option has exactly
// one canonical environment key and a default declared here; the daemon
// stays fully functional with no configuration at all (sync is simply
// disabled until BACKEND_ENDPOINT is set).
type Config struct {
	// Backend sync
	BackendEndpoint string
	BackendToken    string

	// Local control API
	APIHost string
	APIPort string

	// State store
	StoreType   string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string
	// Debounce applied to store writes so rapid updates coalesce
	StoreWriteDebounce time.Duration

	// Sync engine
	SyncInterval      time.Duration
	SyncDebounce      time.Duration
	MinSyncInterval   time.Duration
	MaxBatchSize      int
	MaxRetryAttempts  int
	RetryBaseDelay    time.Duration
	FailureBackoffCap time.Duration

	// Local sliding-window rate limiter
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	// Rate-limit waits shorter than this are not surfaced to the user
	RateLimitNotifyAfter time.Duration

	// Activity tracking
	IdleThreshold time.Duration
	StatusTick    time.Duration

	// Reminders
	ReminderPoll        time.Duration
	NotificationTimeout time.Duration
	BreakInterval       time.Duration
	BreakSnooze         time.Duration
	BreakCountdown      time.Duration
	PostureInterval     time.Duration
	PostureSnooze       time.Duration
	EyeStrainInterval   time.Duration
	EyeStrainSnooze     time.Duration
	EyeRestCountdown    time.Duration

	// Pomodoro
	PomodoroWork            time.Duration
	PomodoroShortBreak      time.Duration
	PomodoroLongBreak       time.Duration
	SessionsBeforeLongBreak int
	PomodoroAutoStart       bool

	// Identity
	UserID           string
	ExtensionVersion string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		BackendEndpoint: getEnv("BACKEND_ENDPOINT", ""),
		BackendToken:    getEnv("BACKEND_TOKEN", ""),

		APIHost: getEnv("API_HOST", "localhost"),
		APIPort: getEnv("API_PORT", "8090"),

		StoreType:          getEnv("STORE_TYPE", "sqlite"),
		SQLitePath:         getEnv("SQLITE_PATH", "./activity.db"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		StoreWriteDebounce: getEnvDuration("STORE_WRITE_DEBOUNCE", time.Second),

		SyncInterval:      getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		SyncDebounce:      getEnvDuration("SYNC_DEBOUNCE", 5*time.Second),
		MinSyncInterval:   getEnvDuration("MIN_SYNC_INTERVAL", 30*time.Second),
		MaxBatchSize:      getEnvInt("MAX_BATCH_SIZE", 100),
		MaxRetryAttempts:  getEnvInt("MAX_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:    getEnvDuration("RETRY_BASE_DELAY", 5*time.Second),
		FailureBackoffCap: getEnvDuration("FAILURE_BACKOFF_CAP", 5*time.Minute),

		RateLimitMaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 30),
		RateLimitWindow:      getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitNotifyAfter: getEnvDuration("RATE_LIMIT_NOTIFY_AFTER", 30*time.Second),

		IdleThreshold: getEnvDuration("IDLE_THRESHOLD", 5*time.Minute),
		StatusTick:    getEnvDuration("STATUS_TICK", time.Second),

		ReminderPoll:        getEnvDuration("REMINDER_POLL", 30*time.Second),
		NotificationTimeout: getEnvDuration("NOTIFICATION_TIMEOUT", 30*time.Second),
		BreakInterval:       getEnvDuration("BREAK_INTERVAL", time.Hour),
		BreakSnooze:         getEnvDuration("BREAK_SNOOZE", 10*time.Minute),
		BreakCountdown:      getEnvDuration("BREAK_COUNTDOWN", 5*time.Minute),
		PostureInterval:     getEnvDuration("POSTURE_INTERVAL", 45*time.Minute),
		PostureSnooze:       getEnvDuration("POSTURE_SNOOZE", 15*time.Minute),
		EyeStrainInterval:   getEnvDuration("EYE_STRAIN_INTERVAL", 20*time.Minute),
		EyeStrainSnooze:     getEnvDuration("EYE_STRAIN_SNOOZE", 5*time.Minute),
		EyeRestCountdown:    getEnvDuration("EYE_REST_COUNTDOWN", 20*time.Second),

		PomodoroWork:            getEnvDuration("POMODORO_WORK", 25*time.Minute),
		PomodoroShortBreak:      getEnvDuration("POMODORO_SHORT_BREAK", 5*time.Minute),
		PomodoroLongBreak:       getEnvDuration("POMODORO_LONG_BREAK", 15*time.Minute),
		SessionsBeforeLongBreak: getEnvInt("SESSIONS_BEFORE_LONG_BREAK", 4),
		PomodoroAutoStart:       getEnvBool("POMODORO_AUTO_START", false),

		UserID:           getEnv("USER_ID", "local"),
		ExtensionVersion: getEnv("EXTENSION_VERSION", "dev"),
	}, nil
}

// SyncEnabled reports whether a backend endpoint is configured
func (c *Config) SyncEnabled() bool {
	return c.BackendEndpoint != ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StoreType != "sqlite" && c.StoreType != "postgres" {
		return &ConfigError{Field: "STORE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StoreType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORE_TYPE is 'postgres'"}
	}
	if c.MaxBatchSize < 1 {
		return &ConfigError{Field: "MAX_BATCH_SIZE", Message: "must be at least 1"}
	}
	if c.MaxRetryAttempts < 1 {
		return &ConfigError{Field: "MAX_RETRY_ATTEMPTS", Message: "must be at least 1"}
	}
	if c.RateLimitMaxRequests < 1 {
		return &ConfigError{Field: "RATE_LIMIT_MAX_REQUESTS", Message: "must be at least 1"}
	}
	if c.SessionsBeforeLongBreak < 1 {
		return &ConfigError{Field: "SESSIONS_BEFORE_LONG_BREAK", Message: "must be at least 1"}
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
