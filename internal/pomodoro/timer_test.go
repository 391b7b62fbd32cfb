package pomodoro

import (
	"testing"
	"time"

	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
)

func testOptions() Options {
	return Options{
		Work:                    25 * time.Minute,
		ShortBreak:              5 * time.Minute,
		LongBreak:               15 * time.Minute,
		SessionsBeforeLongBreak: 4,
	}
}

func TestNewTimerIsStopped(t *testing.T) {
	timer := New(testOptions(), nil)

	st := timer.State()
	if st.IsRunning {
		t.Error("Expected a fresh timer to be stopped")
	}
	if st.Phase != domain.PhaseWork {
		t.Errorf("Expected work phase pending, got %s", st.Phase)
	}
	if st.TimeLeft != 25*60 {
		t.Errorf("Expected full work duration pending, got %ds", st.TimeLeft)
	}
	if st.InFocusSession() {
		t.Error("Expected no focus session while stopped")
	}
}

func TestToggleStartsAndStops(t *testing.T) {
	timer := New(testOptions(), nil)

	st := timer.Toggle()
	if !st.IsRunning {
		t.Fatal("Expected toggle to start the timer")
	}
	if !st.InFocusSession() {
		t.Error("Expected a running work phase to count as a focus session")
	}

	timer.tick(10 * time.Minute)

	// toggling a running timer stops it and resets to a fresh work phase
	st = timer.Toggle()
	if st.IsRunning {
		t.Fatal("Expected toggle to stop the running timer")
	}
	if st.TimeLeft != 25*60 {
		t.Errorf("Expected time reset on stop, got %ds", st.TimeLeft)
	}
}

func TestWorkCompletionStartsShortBreak(t *testing.T) {
	timer := New(testOptions(), nil)
	timer.Toggle()

	timer.tick(25 * time.Minute)

	st := timer.State()
	if st.Phase != domain.PhaseShortBreak {
		t.Errorf("Expected short break after work, got %s", st.Phase)
	}
	if st.SessionsCompleted != 1 {
		t.Errorf("Expected 1 completed session, got %d", st.SessionsCompleted)
	}
	if st.IsRunning {
		t.Error("Expected next phase pending without auto-start")
	}
	if !st.IsBreakTime {
		t.Error("Expected break time after work completion")
	}
}

func TestLongBreakEveryNthSession(t *testing.T) {
	opts := testOptions()
	opts.AutoStart = true
	timer := New(opts, nil)
	timer.Toggle()

	for session := 1; session <= 4; session++ {
		timer.tick(25 * time.Minute) // finish the work phase

		st := timer.State()
		if session < 4 {
			if st.Phase != domain.PhaseShortBreak {
				t.Fatalf("Expected short break after session %d, got %s", session, st.Phase)
			}
			timer.tick(5 * time.Minute) // finish the short break
		} else {
			if st.Phase != domain.PhaseLongBreak {
				t.Fatalf("Expected long break after session %d, got %s", session, st.Phase)
			}
		}
	}

	if got := timer.State().SessionsCompleted; got != 4 {
		t.Errorf("Expected 4 completed sessions, got %d", got)
	}
}

func TestBreakCompletionReturnsToWork(t *testing.T) {
	opts := testOptions()
	opts.AutoStart = true
	timer := New(opts, nil)
	timer.Toggle()

	timer.tick(25 * time.Minute)
	timer.tick(5 * time.Minute)

	st := timer.State()
	if st.Phase != domain.PhaseWork {
		t.Errorf("Expected work phase after the break, got %s", st.Phase)
	}
	if !st.IsRunning {
		t.Error("Expected auto-start to begin the next work phase")
	}
	if st.TimeLeft != 25*60 {
		t.Errorf("Expected full work duration, got %ds", st.TimeLeft)
	}
}

func TestTickIgnoredWhileStopped(t *testing.T) {
	timer := New(testOptions(), nil)

	timer.tick(time.Hour)

	st := timer.State()
	if st.TimeLeft != 25*60 {
		t.Errorf("Expected stopped timer untouched by ticks, got %ds", st.TimeLeft)
	}
	if st.SessionsCompleted != 0 {
		t.Errorf("Expected no completed sessions, got %d", st.SessionsCompleted)
	}
}
