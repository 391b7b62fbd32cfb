package domain

import "time"

// CodeLines holds line-delta counters for the current session.
// Removed is derived from the edited line span, not a real diff, so
// Total == Added - Removed only approximately for mixed edits.
type CodeLines struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// CodeFiles holds file-operation counters for the current session
type CodeFiles struct {
	Modified int `json:"modified"`
	Created  int `json:"created"`
	Deleted  int `json:"deleted"`
}

// Complexity holds rough cyclomatic-complexity stats fed by external tooling
type Complexity struct {
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// CodeMetrics groups all code-change counters
type CodeMetrics struct {
	Lines      CodeLines      `json:"lines"`
	Files      CodeFiles      `json:"files"`
	FileTypes  map[string]int `json:"fileTypes"`
	Complexity Complexity     `json:"complexity"`
}

// DailyGoals tracks the daily focus-time goal
type DailyGoals struct {
	Target  int64 `json:"target"`
	Current int64 `json:"current"`
	Streak  int   `json:"streak"`
}

// ProductivityMetrics holds focus/distraction accounting in seconds
type ProductivityMetrics struct {
	FocusTime       int64            `json:"focusTime"`
	DistractedTime  int64            `json:"distractedTime"`
	ProductiveHours map[string]int64 `json:"productiveHours"`
	DailyGoals      DailyGoals       `json:"dailyGoals"`
}

// ProjectActivity holds per-project accumulated activity
type ProjectActivity struct {
	TimeSpent  int64          `json:"timeSpent"`
	LastActive time.Time      `json:"lastActive"`
	FileTypes  map[string]int `json:"fileTypes"`
}

// ProjectMetrics groups activity by project
type ProjectMetrics struct {
	CurrentProject string                      `json:"currentProject"`
	Projects       map[string]*ProjectActivity `json:"projects"`
}

// TypingStats holds typing speed (WPM), accuracy and a per-key heatmap
type TypingStats struct {
	Speed    float64        `json:"speed"`
	Accuracy float64        `json:"accuracy"`
	Heatmap  map[string]int `json:"heatmap"`
}

// HealthMetrics holds wellbeing state and per-category reminder toggles
type HealthMetrics struct {
	LastBreak          time.Time   `json:"lastBreak"`
	BreakReminders     bool        `json:"breakReminders"`
	TypingStats        TypingStats `json:"typingStats"`
	PostureReminders   bool        `json:"postureReminders"`
	EyeStrainReminders bool        `json:"eyeStrainReminders"`
}

// QualityMetrics holds counters populated by external lint/test tooling
type QualityMetrics struct {
	LintErrors    int `json:"lintErrors"`
	LintWarnings  int `json:"lintWarnings"`
	TestsPassed   int `json:"testsPassed"`
	TestsFailed   int `json:"testsFailed"`
	TechDebtItems int `json:"techDebtItems"`
}

// Environment holds static descriptors captured once at startup
type Environment struct {
	OS               string `json:"os"`
	HostVersion      string `json:"hostVersion"`
	ExtensionVersion string `json:"extensionVersion"`
}

// MetricsSnapshot is the full metrics model for the current session.
// Callers must treat a returned snapshot as a throwaway copy; all
// mutation goes through the collector's update primitive.
type MetricsSnapshot struct {
	Timestamp    time.Time           `json:"timestamp"`
	SessionID    string              `json:"sessionId"`
	UserID       string              `json:"userId"`
	Code         CodeMetrics         `json:"code"`
	Productivity ProductivityMetrics `json:"productivity"`
	Project      ProjectMetrics      `json:"project"`
	Health       HealthMetrics       `json:"health"`
	Quality      QualityMetrics      `json:"quality"`
	Environment  Environment         `json:"environment"`
}

// NewSnapshot creates a zeroed snapshot bound to a session
func NewSnapshot(sessionID, userID string, env Environment, now time.Time) *MetricsSnapshot {
	return &MetricsSnapshot{
		Timestamp: now,
		SessionID: sessionID,
		UserID:    userID,
		Code: CodeMetrics{
			FileTypes: make(map[string]int),
		},
		Productivity: ProductivityMetrics{
			ProductiveHours: make(map[string]int64),
		},
		Project: ProjectMetrics{
			Projects: make(map[string]*ProjectActivity),
		},
		Health: HealthMetrics{
			BreakReminders:     true,
			PostureReminders:   true,
			EyeStrainReminders: true,
			TypingStats: TypingStats{
				Heatmap: make(map[string]int),
			},
		},
		Environment: env,
	}
}

// Clone returns a deep copy of the snapshot
func (s *MetricsSnapshot) Clone() *MetricsSnapshot {
	c := *s

	c.Code.FileTypes = copyIntMap(s.Code.FileTypes)
	c.Productivity.ProductiveHours = copyInt64Map(s.Productivity.ProductiveHours)
	c.Health.TypingStats.Heatmap = copyIntMap(s.Health.TypingStats.Heatmap)

	c.Project.Projects = make(map[string]*ProjectActivity, len(s.Project.Projects))
	for name, p := range s.Project.Projects {
		pc := *p
		pc.FileTypes = copyIntMap(p.FileTypes)
		c.Project.Projects[name] = &pc
	}

	return &c
}

// HasMeaningfulData reports whether the snapshot carries anything worth
// sending to the backend. Empty snapshots are skipped on non-forced syncs.
func (s *MetricsSnapshot) HasMeaningfulData() bool {
	if s.Code.Lines.Added != 0 || s.Code.Lines.Removed != 0 {
		return true
	}
	if s.Code.Files.Modified != 0 || s.Code.Files.Created != 0 || s.Code.Files.Deleted != 0 {
		return true
	}
	if len(s.Code.FileTypes) != 0 {
		return true
	}
	if s.Productivity.FocusTime != 0 || s.Productivity.DistractedTime != 0 {
		return true
	}
	if len(s.Project.Projects) != 0 {
		return true
	}
	return false
}

func copyIntMap(m map[string]int) map[string]int {
	c := make(map[string]int, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copyInt64Map(m map[string]int64) map[string]int64 {
	c := make(map[string]int64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
