package domain

// PomodoroPhase represents the current phase of the focus cycle
type PomodoroPhase string

const (
	PhaseWork       PomodoroPhase = "work"
	PhaseShortBreak PomodoroPhase = "short_break"
	PhaseLongBreak  PomodoroPhase = "long_break"
)

// PomodoroState is the externally visible, read-only timer state
type PomodoroState struct {
	IsRunning         bool          `json:"isRunning"`
	IsBreakTime       bool          `json:"isBreakTime"`
	Phase             PomodoroPhase `json:"phase"`
	TimeLeft          int           `json:"timeLeft"` // seconds
	SessionsCompleted int           `json:"sessionsCompleted"`
}

// InFocusSession reports whether a work phase is actively running.
// Break reminders are suppressed while this is true.
func (s PomodoroState) InFocusSession() bool {
	return s.IsRunning && !s.IsBreakTime
}
