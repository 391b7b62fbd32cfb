package collector

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
)

// neutral file-type bucket for paths without an extension
const noExtension = "none"

// Listener is notified with a snapshot copy after every mutation
type Listener func(*domain.MetricsSnapshot)

// Collector owns the metrics model for the current session. All
// mutation funnels through Update; reads return throwaway copies.
// No operation returns an error: malformed input degrades to a
// neutral outcome instead.
type Collector struct {
	mu        sync.Mutex
	snapshot  *domain.MetricsSnapshot
	listeners []Listener

	startTime       time.Time
	isPaused        bool
	pausedAt        time.Time
	totalPausedTime time.Duration

	now func() time.Time
}

// New creates a collector with a zeroed snapshot bound to a session
func New(sessionID, userID string, env domain.Environment) *Collector {
	return newCollector(sessionID, userID, env, time.Now)
}

func newCollector(sessionID, userID string, env domain.Environment, now func() time.Time) *Collector {
	start := now()
	return &Collector{
		snapshot:  domain.NewSnapshot(sessionID, userID, env, start),
		startTime: start,
		now:       now,
	}
}

// Subscribe registers a listener called after every mutation. The
// listener receives its own snapshot copy and runs outside the lock.
func (c *Collector) Subscribe(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

/// Update is the single mutation primitive: it clones the current
// snapshot, applies mutate, refreshes the timestamp and notifies
// listeners. Every RecordX helper funnels through here.
func (c *Collector) Update(mutate func(s *domain.MetricsSnapshot)) {
	c.mu.Lock()
	next := c.snapshot.Clone()
	mutate(next)
	ts := c.now()
	if ts.After(next.Timestamp) {
		next.Timestamp = ts
	}
	c.snapshot = next
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	notified := next.Clone()
	c.mu.Unlock()

	for _, l := range listeners {
		l(notified)
	}
}

// RecordChange registers a document edit: bumps the file-type counter
// and the modified-file counter. Line deltas are recorded separately
// via RecordLineDelta.
func (c *Collector) RecordChange(path, language string, changeCount int) {
	if changeCount <= 0 {
		return
	}
	ext := extLabel(path, language)
	c.Update(func(s *domain.MetricsSnapshot) {
		s.Code.FileTypes[ext] += changeCount
		s.Code.Files.Modified++
	})
}

// RecordLineDelta registers line additions/removals from a document
// diff. Removed counts come from the edited line span rather than a
// true diff, so they over-count on mixed single-line edits; downstream
// consumers depend on that approximation.
func (c *Collector) RecordLineDelta(added, removed int) {
	if added == 0 && removed == 0 {
		return
	}
	c.Update(func(s *domain.MetricsSnapshot) {
		s.Code.Lines.Added += added
		s.Code.Lines.Removed += removed
		s.Code.Lines.Total = s.Code.Lines.Added - s.Code.Lines.Removed
	})
}

// RecordView registers a document becoming visible: bumps per-project
// file-type views and refreshes the project's last-active time.
func (c *Collector) RecordView(path, language, project string) {
	ext := extLabel(path, language)
	ts := c.now()
	c.Update(func(s *domain.MetricsSnapshot) {
		p := ensureProject(s, project)
		p.FileTypes[ext]++
		p.LastActive = ts
	})
}

// RecordFileOperation registers a create/delete/rename. Rename counts
// as a delete plus a create.
func (c *Collector) RecordFileOperation(kind domain.ActivityKind, path, oldPath string) {
	c.Update(func(s *domain.MetricsSnapshot) {
		switch kind {
		case domain.ActivityFileCreate:
			s.Code.Files.Created++
		case domain.ActivityFileDelete:
			s.Code.Files.Deleted++
		case domain.ActivityFileRename:
			s.Code.Files.Created++
			s.Code.Files.Deleted++
		}
	})
}

// RecordFocusTime accumulates focus or distraction seconds into the
// productivity counters and the current hour's bucket.
func (c *Collector) RecordFocusTime(seconds int64, focused bool) {
	if seconds <= 0 {
		return
	}
	hour := c.now().Format("15")
	c.Update(func(s *domain.MetricsSnapshot) {
		if focused {
			s.Productivity.FocusTime += seconds
			s.Productivity.ProductiveHours[hour] += seconds
			s.Productivity.DailyGoals.Current += seconds
		} else {
			s.Productivity.DistractedTime += seconds
		}
	})
}

// RecordTypingStats updates the measured typing speed and accuracy
func (c *Collector) RecordTypingStats(speed, accuracy float64) {
	c.Update(func(s *domain.MetricsSnapshot) {
		s.Health.TypingStats.Speed = speed
		s.Health.TypingStats.Accuracy = accuracy
	})
}

// SetCurrentProject updates which project accumulates time
func (c *Collector) SetCurrentProject(project string) {
	if project == "" {
		return
	}
	c.Update(func(s *domain.MetricsSnapshot) {
		ensureProject(s, project)
		s.Project.CurrentProject = project
	})
}

// RecordProjectTime adds active seconds to a project's total
func (c *Collector) RecordProjectTime(project string, seconds int64) {
	if project == "" || seconds <= 0 {
		return
	}
	ts := c.now()
	c.Update(func(s *domain.MetricsSnapshot) {
		p := ensureProject(s, project)
		p.TimeSpent += seconds
		p.LastActive = ts
	})
}

// RecordBreakTaken stamps the last-break time in the health section
func (c *Collector) RecordBreakTaken() {
	ts := c.now()
	c.Update(func(s *domain.MetricsSnapshot) {
		s.Health.LastBreak = ts
	})
}

// Peek returns a snapshot copy without side effects
func (c *Collector) Peek() *domain.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.Clone()
}

// Get returns a snapshot copy. Kept distinct from Peek for callers
// that historically expected reset-on-read; no reset occurs.
func (c *Collector) Get() *domain.MetricsSnapshot {
	return c.Peek()
}

// Drain atomically swaps in a fresh zero snapshot and returns the
// outgoing one. The swap happens in one critical section, so every
// mutation lands in exactly one of the two snapshots and concurrent
// drains never observe the same data twice. The caller owns the
// returned snapshot.
func (c *Collector) Drain() *domain.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshot
	c.snapshot = domain.NewSnapshot(s.SessionID, s.UserID, s.Environment, c.now())
	return s
}

// Pause marks tracking as paused. Advisory: the activity tracker
// consults this before forwarding activity-driven updates.
func (c *Collector) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isPaused {
		return
	}
	c.isPaused = true
	c.pausedAt = c.now()
}

// Resume clears the paused flag and accumulates the paused duration
func (c *Collector) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isPaused {
		return
	}
	c.isPaused = false
	c.totalPausedTime += c.now().Sub(c.pausedAt)
}

// IsPaused reports the advisory paused state
func (c *Collector) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isPaused
}

// TotalPausedTime returns the accumulated paused duration
func (c *Collector) TotalPausedTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isPaused {
		return c.totalPausedTime + c.now().Sub(c.pausedAt)
	}
	return c.totalPausedTime
}

// SessionDuration returns how long the session has been running
func (c *Collector) SessionDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.startTime)
}

func ensureProject(s *domain.MetricsSnapshot, name string) *domain.ProjectActivity {
	if name == "" {
		name = "unknown"
	}
	p, ok := s.Project.Projects[name]
	if !ok {
		p = &domain.ProjectActivity{FileTypes: make(map[string]int)}
		s.Project.Projects[name] = p
	}
	return p
}

// extLabel maps a path to its file-type bucket, preferring the editor's
// language id and falling back to the extension or the neutral bucket.
func extLabel(path, language string) string {
	if language != "" {
		return strings.ToLower(language)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return noExtension
	}
	return strings.ToLower(ext)
}
