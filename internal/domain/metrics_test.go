package domain

import (
	"testing"
	"time"
)

func TestCloneIsIndependent(t *testing.T) {
	now := time.Now()
	s := NewSnapshot("session-1", "user-1", Environment{OS: "linux"}, now)
	s.Code.FileTypes["go"] = 3
	s.Project.Projects["api"] = &ProjectActivity{
		TimeSpent: 10,
		FileTypes: map[string]int{"go": 2},
	}
	s.Productivity.ProductiveHours["09"] = 120

	c := s.Clone()
	c.Code.FileTypes["go"] = 99
	c.Project.Projects["api"].TimeSpent = 999
	c.Project.Projects["api"].FileTypes["go"] = 99
	c.Productivity.ProductiveHours["09"] = 999

	if s.Code.FileTypes["go"] != 3 {
		t.Errorf("Expected original file type count 3, got %d", s.Code.FileTypes["go"])
	}
	if s.Project.Projects["api"].TimeSpent != 10 {
		t.Errorf("Expected original project time 10, got %d", s.Project.Projects["api"].TimeSpent)
	}
	if s.Project.Projects["api"].FileTypes["go"] != 2 {
		t.Errorf("Expected original project file types untouched, got %d", s.Project.Projects["api"].FileTypes["go"])
	}
	if s.Productivity.ProductiveHours["09"] != 120 {
		t.Errorf("Expected original productive hours untouched, got %d", s.Productivity.ProductiveHours["09"])
	}
}

func TestHasMeaningfulData(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		mutate   func(s *MetricsSnapshot)
		expected bool
	}{
		{
			name:     "fresh snapshot is empty",
			mutate:   func(s *MetricsSnapshot) {},
			expected: false,
		},
		{
			name:     "line delta counts",
			mutate:   func(s *MetricsSnapshot) { s.Code.Lines.Added = 1 },
			expected: true,
		},
		{
			name:     "file operation counts",
			mutate:   func(s *MetricsSnapshot) { s.Code.Files.Deleted = 1 },
			expected: true,
		},
		{
			name:     "file type counts",
			mutate:   func(s *MetricsSnapshot) { s.Code.FileTypes["go"] = 1 },
			expected: true,
		},
		{
			name:     "focus time counts",
			mutate:   func(s *MetricsSnapshot) { s.Productivity.FocusTime = 30 },
			expected: true,
		},
		{
			name:     "project activity counts",
			mutate:   func(s *MetricsSnapshot) { s.Project.Projects["x"] = &ProjectActivity{} },
			expected: true,
		},
		{
			name:     "typing stats alone do not count",
			mutate:   func(s *MetricsSnapshot) { s.Health.TypingStats.Speed = 60 },
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot("s", "u", Environment{}, now)
			tt.mutate(s)
			if got := s.HasMeaningfulData(); got != tt.expected {
				t.Errorf("Expected HasMeaningfulData %t, got %t", tt.expected, got)
			}
		})
	}
}
