package pomodoro

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
	"github.com/kurihiro0119/editor-activity-metrics/internal/notify"
)

// Options configure the focus cycle lengths
type Options struct {
	Work                    time.Duration
	ShortBreak              time.Duration
	LongBreak               time.Duration
	SessionsBeforeLongBreak int
	AutoStart               bool
}

// Timer is the Pomodoro focus/break state machine. A single Toggle
// command starts the pending phase or, while running, stops the timer
// entirely; there is no separate pause state.
type Timer struct {
	mu                sync.Mutex
	phase             domain.PomodoroPhase
	isRunning         bool
	timeLeft          time.Duration
	sessionsCompleted int

	opts     Options
	notifier notify.Notifier

	stop chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// New creates a stopped timer ready to start a work phase
func New(opts Options, notifier notify.Notifier) *Timer {
	return &Timer{
		phase:    domain.PhaseWork,
		timeLeft: opts.Work,
		opts:     opts,
		notifier: notifier,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the countdown loop
func (t *Timer) Start() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.tick(time.Second)
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop cancels the countdown loop
func (t *Timer) Stop() {
	close(t.stop)
	t.wg.Wait()
}

// Toggle starts the pending phase, or stops the timer entirely when
// it is running. Stopping resets to a fresh work phase but keeps the
// completed-session count.
func (t *Timer) Toggle() domain.PomodoroState {
	t.mu.Lock()
	if t.isRunning {
		t.isRunning = false
		t.phase = domain.PhaseWork
		t.timeLeft = t.opts.Work
	} else {
		t.isRunning = true
		if t.timeLeft <= 0 {
			t.timeLeft = t.phaseLength(t.phase)
		}
	}
	st := t.stateLocked()
	t.mu.Unlock()
	return st
}

// tick advances the countdown by elapsed and handles phase completion
func (t *Timer) tick(elapsed time.Duration) {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.timeLeft -= elapsed
	if t.timeLeft > 0 {
		t.mu.Unlock()
		return
	}

	finished := t.phase
	var next domain.PomodoroPhase
	if finished == domain.PhaseWork {
		t.sessionsCompleted++
		if t.sessionsCompleted%t.opts.SessionsBeforeLongBreak == 0 {
			next = domain.PhaseLongBreak
		} else {
			next = domain.PhaseShortBreak
		}
	} else {
		next = domain.PhaseWork
	}
	t.phase = next
	t.timeLeft = t.phaseLength(next)
	t.isRunning = t.opts.AutoStart
	completed := t.sessionsCompleted
	t.mu.Unlock()

	t.announce(finished, next, completed)
}

func (t *Timer) announce(finished, next domain.PomodoroPhase, completed int) {
	if t.notifier == nil {
		return
	}
	n := notify.Notification{
		Type:         notify.TypeInfo,
		SoundEnabled: true,
	}
	if finished == domain.PhaseWork {
		n.Title = "Focus session complete"
		n.Message = phaseMessage(next, completed)
	} else {
		n.Title = "Break over"
		n.Message = "Ready for the next focus session."
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := t.notifier.Present(ctx, n); err != nil {
			log.Printf("pomodoro: notification failed: %v", err)
		}
	}()
}

func phaseMessage(next domain.PomodoroPhase, completed int) string {
	if next == domain.PhaseLongBreak {
		return fmt.Sprintf("Time for a long break. Sessions completed: %d", completed)
	}
	return fmt.Sprintf("Time for a short break. Sessions completed: %d", completed)
}

func (t *Timer) phaseLength(p domain.PomodoroPhase) time.Duration {
	switch p {
	case domain.PhaseShortBreak:
		return t.opts.ShortBreak
	case domain.PhaseLongBreak:
		return t.opts.LongBreak
	default:
		return t.opts.Work
	}
}

// State returns the read-only timer state
func (t *Timer) State() domain.PomodoroState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) stateLocked() domain.PomodoroState {
	return domain.PomodoroState{
		IsRunning:         t.isRunning,
		IsBreakTime:       t.phase != domain.PhaseWork,
		Phase:             t.phase,
		TimeLeft:          int(t.timeLeft / time.Second),
		SessionsCompleted: t.sessionsCompleted,
	}
}
