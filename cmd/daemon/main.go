package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/editor-activity-metrics/internal/api"
	"github.com/kurihiro0119/editor-activity-metrics/internal/backend"
	"github.com/kurihiro0119/editor-activity-metrics/internal/collector"
	"github.com/kurihiro0119/editor-activity-metrics/internal/config"
	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
	"github.com/kurihiro0119/editor-activity-metrics/internal/notify"
	"github.com/kurihiro0119/editor-activity-metrics/internal/pomodoro"
	"github.com/kurihiro0119/editor-activity-metrics/internal/reminder"
	"github.com/kurihiro0119/editor-activity-metrics/internal/store"
	"github.com/kurihiro0119/editor-activity-metrics/internal/store/postgres"
	"github.com/kurihiro0119/editor-activity-metrics/internal/store/sqlite"
	"github.com/kurihiro0119/editor-activity-metrics/internal/syncer"
	"github.com/kurihiro0119/editor-activity-metrics/internal/tracker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize state store
	var inner store.Store
	switch cfg.StoreType {
	case "postgres":
		inner, err = postgres.NewPostgresStore(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL store: %v", err)
		}
	default:
		inner, err = sqlite.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
	}
	st := store.NewDebounced(inner, cfg.StoreWriteDebounce)
	defer st.Close()

	// Session identity: a fresh id per daemon run, persisted so the
	// backend can associate late batches with the last session.
	sessionID := uuid.New().String()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := st.Update(ctx, store.KeySessionID, sessionID); err != nil {
		log.Printf("Failed to persist session id: %v", err)
	}
	cancel()

	env := domain.Environment{
		OS:               runtime.GOOS,
		HostVersion:      runtime.Version(),
		ExtensionVersion: cfg.ExtensionVersion,
	}

	// Core services, wired explicitly: collector <- tracker, engine,
	// scheduler, pomodoro all hold references instead of singletons.
	coll := collector.New(sessionID, cfg.UserID, env)
	trk := tracker.New(coll, cfg.IdleThreshold, cfg.StatusTick)

	var transport backend.Transport
	if cfg.SyncEnabled() {
		transport = backend.NewHTTPTransport(cfg.BackendEndpoint, cfg.BackendToken)
	} else {
		log.Printf("BACKEND_ENDPOINT not set, sync disabled")
	}

	engine := syncer.New(coll, transport, syncer.Options{
		SyncInterval:         cfg.SyncInterval,
		SyncDebounce:         cfg.SyncDebounce,
		MinSyncInterval:      cfg.MinSyncInterval,
		MaxBatchSize:         cfg.MaxBatchSize,
		MaxRetryAttempts:     cfg.MaxRetryAttempts,
		RetryBaseDelay:       cfg.RetryBaseDelay,
		FailureBackoffCap:    cfg.FailureBackoffCap,
		RateLimitMaxRequests: cfg.RateLimitMaxRequests,
		RateLimitWindow:      cfg.RateLimitWindow,
		RateLimitNotifyAfter: cfg.RateLimitNotifyAfter,
	})
	trk.OnActivity(func(domain.ActivityEvent) {
		engine.NotifyActivity()
	})

	notifier := notify.NewLogNotifier()

	pom := pomodoro.New(pomodoro.Options{
		Work:                    cfg.PomodoroWork,
		ShortBreak:              cfg.PomodoroShortBreak,
		LongBreak:               cfg.PomodoroLongBreak,
		SessionsBeforeLongBreak: cfg.SessionsBeforeLongBreak,
		AutoStart:               cfg.PomodoroAutoStart,
	}, notifier)

	sched := reminder.New(coll, trk, pom, notifier, st, reminder.Options{
		Poll:                cfg.ReminderPoll,
		NotificationTimeout: cfg.NotificationTimeout,
		BreakInterval:       cfg.BreakInterval,
		BreakSnooze:         cfg.BreakSnooze,
		BreakCountdown:      cfg.BreakCountdown,
		PostureInterval:     cfg.PostureInterval,
		PostureSnooze:       cfg.PostureSnooze,
		EyeStrainInterval:   cfg.EyeStrainInterval,
		EyeStrainSnooze:     cfg.EyeStrainSnooze,
		EyeRestCountdown:    cfg.EyeRestCountdown,
	})

	trk.Start()
	engine.Start()
	pom.Start()
	sched.Start()

	sendSessionEvent(transport, backend.EventSessionStart, sessionID, cfg.UserID, env)

	// Control API
	handler := api.NewHandler(coll, trk, engine, sched, pom)
	router := api.SetupRoutes(handler)
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("Control API listening on %s (store: %s)", addr, cfg.StoreType)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down")

	// Teardown order matters: stop producers first, then flush the
	// engine, then announce session end and release the store.
	sched.Stop()
	pom.Stop()
	trk.Stop()
	engine.Stop()
	sendSessionEvent(transport, backend.EventSessionEnd, sessionID, cfg.UserID, env)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// sendSessionEvent announces a session boundary; failures are logged
// and never block startup or shutdown.
func sendSessionEvent(t backend.Transport, eventType, sessionID, userID string, env domain.Environment) {
	if t == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	payload := map[string]interface{}{
		"sessionId":   sessionID,
		"userId":      userID,
		"environment": env,
		"timestamp":   time.Now(),
	}
	if err := t.SendEvent(ctx, eventType, payload); err != nil {
		log.Printf("Failed to send %s: %v", eventType, err)
	}
}
