package syncer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/editor-activity-metrics/internal/backend"
	"github.com/kurihiro0119/editor-activity-metrics/internal/collector"
	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/editor-activity-metrics/internal/errors"
)

// rateLimitMargin is added past the reset time before retrying
const rateLimitMargin = time.Second

// Options tune the engine. The zero value is not usable; use the
// values from config.
type Options struct {
	SyncInterval      time.Duration
	SyncDebounce      time.Duration
	MinSyncInterval   time.Duration
	MaxBatchSize      int
	MaxRetryAttempts  int
	RetryBaseDelay    time.Duration
	FailureBackoffCap time.Duration

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	RateLimitNotifyAfter time.Duration
}

// Status is the engine's externally visible state, served over the
// control API and rendered by the CLI.
type Status struct {
	Enabled             bool       `json:"enabled"`
	Syncing             bool       `json:"syncing"`
	PendingItems        int        `json:"pendingItems"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastSuccess         *time.Time `json:"lastSuccess,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	RateLimitedUntil    *time.Time `json:"rateLimitedUntil,omitempty"`
}

// Engine batches collector snapshots and delivers them to the backend
// under retry, backoff and rate-limit constraints. At most one flush is
// in flight at any time; items stay queued across transient failures.
type Engine struct {
	mu sync.Mutex

	opts      Options
	collector *collector.Collector
	transport backend.Transport
	limiter   *RateLimiter

	pending             []*domain.BatchItem
	isSyncing           bool
	lastCollectTime     time.Time
	lastSuccess         time.Time
	lastError           error
	consecutiveFailures int
	rateLimitedUntil    time.Time

	debounceTimer *time.Timer
	retryTimer    *time.Timer

	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine. A nil transport disables sync entirely: the
// engine keeps accepting activity notifications but never flushes.
func New(c *collector.Collector, t backend.Transport, opts Options) *Engine {
	return &Engine{
		opts:      opts,
		collector: c,
		transport: t,
		limiter:   NewRateLimiter(opts.RateLimitMaxRequests, opts.RateLimitWindow),
		stop:      make(chan struct{}),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Start begins the fixed-interval sync loop
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.opts.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := e.Sync(context.Background(), false); err != nil {
					log.Printf("sync: interval flush failed: %v", err)
				}
			case <-e.stop:
				return
			}
		}
	}()
}

// Stop cancels all timers and attempts a final forced flush so pending
// data is not stranded on shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	if e.retryTimer != nil {
		e.retryTimer.Stop()
	}
	e.mu.Unlock()

	close(e.stop)
	e.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Sync(ctx, true); err != nil {
		log.Printf("sync: final flush failed: %v", err)
	}
}

// NotifyActivity schedules a debounced sync so bursts of edits
// coalesce into a single flush.
func (e *Engine) NotifyActivity() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || e.transport == nil {
		return
	}
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = time.AfterFunc(e.opts.SyncDebounce, func() {
		if err := e.Sync(context.Background(), false); err != nil {
			log.Printf("sync: debounced flush failed: %v", err)
		}
	})
}

// Sync runs one sync cycle: collect the current snapshot into the
// pending queue, then flush if warranted. Returns nil without doing
// anything when sync is disabled, already in flight, rate limited, or
// inside the minimum inter-sync interval (unless forced).
func (e *Engine) Sync(ctx context.Context, forced bool) error {
	if e.transport == nil {
		return nil
	}

	now := e.now()

	e.mu.Lock()
	if e.isSyncing {
		e.mu.Unlock()
		return nil
	}
	if e.rateLimitedUntil.After(now) {
		// a retry is already queued for after the reset
		e.mu.Unlock()
		return nil
	}
	if !forced && !e.lastCollectTime.IsZero() && now.Sub(e.lastCollectTime) < e.opts.MinSyncInterval {
		e.mu.Unlock()
		return nil
	}

	// The drain swaps the collector's snapshot out atomically, and the
	// engine lock is held across drain and enqueue, so overlapping sync
	// cycles each move a disjoint snapshot into the queue.
	snapshot := e.collector.Drain()
	if snapshot.HasMeaningfulData() {
		e.pending = append(e.pending, &domain.BatchItem{
			BatchID:    uuid.New().String(),
			Snapshot:   snapshot,
			EnqueuedAt: now,
		})
	} else if !forced && len(e.pending) == 0 {
		e.lastCollectTime = now
		e.mu.Unlock()
		return nil
	}
	e.lastCollectTime = now
	processNow := forced || len(e.pending) >= e.opts.MaxBatchSize
	e.mu.Unlock()

	if processNow {
		return e.flush(ctx)
	}
	e.scheduleFlush(e.opts.SyncDebounce)
	return nil
}

// scheduleFlush queues a delayed queue flush, replacing any pending one
func (e *Engine) scheduleFlush(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if e.retryTimer != nil {
		e.retryTimer.Stop()
	}
	e.retryTimer = time.AfterFunc(d, func() {
		if err := e.flush(context.Background()); err != nil {
			log.Printf("sync: scheduled flush failed: %v", err)
		}
	})
}

// flush delivers the head of the pending queue to the backend. It
// holds the in-flight guard for the whole delivery so a second flush
// is a no-op, and removes only the sent batch ids on success so items
// appended mid-flight survive.
func (e *Engine) flush(ctx context.Context) error {
	e.mu.Lock()
	if e.isSyncing || len(e.pending) == 0 {
		e.mu.Unlock()
		return nil
	}
	e.isSyncing = true

	count := len(e.pending)
	if count > e.opts.MaxBatchSize {
		count = e.opts.MaxBatchSize
	}
	items := make([]*domain.BatchItem, count)
	copy(items, e.pending[:count])
	e.mu.Unlock()

	err := e.deliver(ctx, items)

	e.mu.Lock()
	e.isSyncing = false
	e.mu.Unlock()

	return err
}

func (e *Engine) deliver(ctx context.Context, items []*domain.BatchItem) error {
	now := e.now()

	// Proactive local throttle before any network attempt.
	if !e.limiter.Allow(now) {
		reset := e.limiter.ResetTime(now)
		e.enterRateLimited(reset)
		return nil
	}

	payload := domain.BatchPayload{
		Items:       items,
		Environment: items[0].Snapshot.Environment,
		SentAt:      now,
	}

	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxRetryAttempts; attempt++ {
		e.limiter.Record(e.now())
		err := e.transport.SendEvent(ctx, backend.EventMetricsBatch, payload)
		if err == nil {
			e.markSuccess(items)
			return nil
		}

		if apperrors.IsRateLimited(err) {
			e.enterRateLimited(apperrors.RateLimitResetAt(err))
			return nil
		}

		lastErr = err
		if attempt == e.opts.MaxRetryAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := e.opts.RetryBaseDelay << (attempt - 1)
		log.Printf("sync: attempt %d/%d failed, retrying in %v: %v", attempt, e.opts.MaxRetryAttempts, delay, err)
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}

	// Retries exhausted: keep the batch queued, back off on the
	// consecutive-failure count and try again later.
	e.mu.Lock()
	e.consecutiveFailures++
	failures := e.consecutiveFailures
	e.lastError = lastErr
	e.mu.Unlock()

	backoff := e.opts.RetryBaseDelay << uint(failures)
	if backoff > e.opts.FailureBackoffCap || backoff <= 0 {
		backoff = e.opts.FailureBackoffCap
	}
	log.Printf("sync: retries exhausted (%d consecutive failures), next attempt in %v", failures, backoff)
	e.scheduleFlush(backoff)

	return apperrors.NewRetryExhaustedError(e.opts.MaxRetryAttempts, lastErr)
}

func (e *Engine) markSuccess(sent []*domain.BatchItem) {
	sentIDs := make(map[string]bool, len(sent))
	for _, item := range sent {
		sentIDs[item.BatchID] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	remaining := e.pending[:0]
	for _, item := range e.pending {
		if !sentIDs[item.BatchID] {
			remaining = append(remaining, item)
		}
	}
	e.pending = remaining
	e.consecutiveFailures = 0
	e.lastError = nil
	e.lastSuccess = e.now()
}

func (e *Engine) enterRateLimited(resetAt time.Time) {
	now := e.now()
	wait := resetAt.Sub(now) + rateLimitMargin

	e.mu.Lock()
	e.rateLimitedUntil = resetAt
	e.mu.Unlock()

	if wait > e.opts.RateLimitNotifyAfter {
		log.Printf("sync: rate limited, deferring %v", wait.Round(time.Second))
	}
	e.scheduleFlush(wait)
}

// PendingCount returns the number of queued batch items
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Status returns a copy of the engine's observable state
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Enabled:             e.transport != nil,
		Syncing:             e.isSyncing,
		PendingItems:        len(e.pending),
		ConsecutiveFailures: e.consecutiveFailures,
	}
	if !e.lastSuccess.IsZero() {
		t := e.lastSuccess
		st.LastSuccess = &t
	}
	if e.lastError != nil {
		st.LastError = e.lastError.Error()
	}
	if e.rateLimitedUntil.After(e.now()) {
		t := e.rateLimitedUntil
		st.RateLimitedUntil = &t
	}
	return st
}
