package collector

import (
	"sync"
	"testing"
	"time"

	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
)

// fakeClock steps a fixed time forward on demand
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testCollector(t *testing.T) (*Collector, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	c := newCollector("session-1", "user-1", domain.Environment{OS: "linux"}, clock.Now)
	return c, clock
}

func TestUpdateIsApplyOnce(t *testing.T) {
	c, _ := testCollector(t)

	mutate := func(s *domain.MetricsSnapshot) {
		s.Code.Lines.Added += 5
	}
	c.Update(mutate)
	c.Update(mutate)

	if got := c.Peek().Code.Lines.Added; got != 10 {
		t.Errorf("Expected two updates to accumulate to 10, got %d", got)
	}
}

func TestUpdateTimestampMonotonic(t *testing.T) {
	c, clock := testCollector(t)

	clock.Advance(time.Minute)
	c.Update(func(s *domain.MetricsSnapshot) {})
	first := c.Peek().Timestamp

	// a clock step backwards must not move the timestamp back
	clock.Advance(-30 * time.Minute)
	c.Update(func(s *domain.MetricsSnapshot) {})
	second := c.Peek().Timestamp

	if second.Before(first) {
		t.Errorf("Expected timestamp to stay monotonic, went from %v to %v", first, second)
	}
}

func TestPeekReturnsCopy(t *testing.T) {
	c, _ := testCollector(t)
	c.RecordChange("main.go", "go", 1)

	snap := c.Peek()
	snap.Code.FileTypes["go"] = 999
	snap.Code.Lines.Added = 999

	fresh := c.Peek()
	if fresh.Code.FileTypes["go"] != 1 {
		t.Errorf("Expected internal state isolated from returned copy, got %d", fresh.Code.FileTypes["go"])
	}
	if fresh.Code.Lines.Added != 0 {
		t.Errorf("Expected internal line count 0, got %d", fresh.Code.Lines.Added)
	}
}

func TestRecordChange(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		language    string
		changeCount int
		expectedKey string
		expectedVal int
	}{
		{
			name:        "language id wins over extension",
			path:        "script.py",
			language:    "Python",
			changeCount: 2,
			expectedKey: "python",
			expectedVal: 2,
		},
		{
			name:        "extension fallback",
			path:        "main.go",
			changeCount: 1,
			expectedKey: "go",
			expectedVal: 1,
		},
		{
			name:        "no extension falls into neutral bucket",
			path:        "Makefile",
			changeCount: 1,
			expectedKey: noExtension,
			expectedVal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testCollector(t)
			c.RecordChange(tt.path, tt.language, tt.changeCount)

			snap := c.Peek()
			if got := snap.Code.FileTypes[tt.expectedKey]; got != tt.expectedVal {
				t.Errorf("Expected file type %q count %d, got %d", tt.expectedKey, tt.expectedVal, got)
			}
			if snap.Code.Files.Modified != 1 {
				t.Errorf("Expected 1 modified file, got %d", snap.Code.Files.Modified)
			}
		})
	}
}

func TestRecordChangeIgnoresEmpty(t *testing.T) {
	c, _ := testCollector(t)
	c.RecordChange("main.go", "go", 0)

	if snap := c.Peek(); snap.Code.Files.Modified != 0 {
		t.Errorf("Expected zero-change edit to be ignored, got %d modified", snap.Code.Files.Modified)
	}
}

func TestRecordLineDelta(t *testing.T) {
	c, _ := testCollector(t)

	c.RecordLineDelta(10, 0)
	c.RecordLineDelta(0, 3)
	c.RecordLineDelta(2, 2)

	snap := c.Peek()
	if snap.Code.Lines.Added != 12 {
		t.Errorf("Expected 12 added, got %d", snap.Code.Lines.Added)
	}
	if snap.Code.Lines.Removed != 5 {
		t.Errorf("Expected 5 removed, got %d", snap.Code.Lines.Removed)
	}
	if snap.Code.Lines.Total != 7 {
		t.Errorf("Expected total 7, got %d", snap.Code.Lines.Total)
	}
}

func TestRecordFileOperation(t *testing.T) {
	tests := []struct {
		name            string
		kind            domain.ActivityKind
		expectedCreated int
		expectedDeleted int
	}{
		{name: "create", kind: domain.ActivityFileCreate, expectedCreated: 1},
		{name: "delete", kind: domain.ActivityFileDelete, expectedDeleted: 1},
		{name: "rename counts as delete plus create", kind: domain.ActivityFileRename, expectedCreated: 1, expectedDeleted: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testCollector(t)
			c.RecordFileOperation(tt.kind, "a.go", "b.go")

			snap := c.Peek()
			if snap.Code.Files.Created != tt.expectedCreated {
				t.Errorf("Expected %d created, got %d", tt.expectedCreated, snap.Code.Files.Created)
			}
			if snap.Code.Files.Deleted != tt.expectedDeleted {
				t.Errorf("Expected %d deleted, got %d", tt.expectedDeleted, snap.Code.Files.Deleted)
			}
		})
	}
}

func TestRecordFocusTime(t *testing.T) {
	c, clock := testCollector(t)

	c.RecordFocusTime(30, true)
	c.RecordFocusTime(10, false)

	snap := c.Peek()
	if snap.Productivity.FocusTime != 30 {
		t.Errorf("Expected 30s focus, got %d", snap.Productivity.FocusTime)
	}
	if snap.Productivity.DistractedTime != 10 {
		t.Errorf("Expected 10s distracted, got %d", snap.Productivity.DistractedTime)
	}
	hour := clock.Now().Format("15")
	if snap.Productivity.ProductiveHours[hour] != 30 {
		t.Errorf("Expected hour bucket %q to hold 30s, got %d", hour, snap.Productivity.ProductiveHours[hour])
	}
	if snap.Productivity.DailyGoals.Current != 30 {
		t.Errorf("Expected daily goal progress 30s, got %d", snap.Productivity.DailyGoals.Current)
	}
}

func TestRecordProjectTime(t *testing.T) {
	c, _ := testCollector(t)

	c.SetCurrentProject("api")
	c.RecordProjectTime("api", 60)
	c.RecordProjectTime("api", 30)

	snap := c.Peek()
	if snap.Project.CurrentProject != "api" {
		t.Errorf("Expected current project api, got %q", snap.Project.CurrentProject)
	}
	p, ok := snap.Project.Projects["api"]
	if !ok {
		t.Fatal("Expected project entry to exist")
	}
	if p.TimeSpent != 90 {
		t.Errorf("Expected 90s total, got %d", p.TimeSpent)
	}
}

func TestPauseResume(t *testing.T) {
	c, clock := testCollector(t)

	c.Pause()
	if !c.IsPaused() {
		t.Error("Expected collector paused")
	}
	c.Pause() // second pause is a no-op

	clock.Advance(2 * time.Minute)
	c.Resume()
	if c.IsPaused() {
		t.Error("Expected collector resumed")
	}

	if got := c.TotalPausedTime(); got != 2*time.Minute {
		t.Errorf("Expected 2m paused, got %v", got)
	}

	// pausing again keeps accumulating
	c.Pause()
	clock.Advance(time.Minute)
	if got := c.TotalPausedTime(); got != 3*time.Minute {
		t.Errorf("Expected 3m paused while still paused, got %v", got)
	}
}

func TestDrainTakesDataAndPreservesIdentity(t *testing.T) {
	c, _ := testCollector(t)
	c.RecordLineDelta(5, 1)

	drained := c.Drain()
	if drained.Code.Lines.Added != 5 || drained.Code.Lines.Removed != 1 {
		t.Errorf("Expected drained snapshot to carry the data, got %d/%d", drained.Code.Lines.Added, drained.Code.Lines.Removed)
	}

	snap := c.Peek()
	if snap.HasMeaningfulData() {
		t.Error("Expected a fresh snapshot after drain")
	}
	if snap.SessionID != "session-1" || snap.UserID != "user-1" {
		t.Errorf("Expected session identity preserved, got %q/%q", snap.SessionID, snap.UserID)
	}
	if snap.Environment.OS != "linux" {
		t.Errorf("Expected environment preserved, got %q", snap.Environment.OS)
	}
}

func TestDrainSplitsMutationsExactlyOnce(t *testing.T) {
	c, _ := testCollector(t)

	const total = 2000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			c.RecordLineDelta(1, 0)
		}
	}()

	var drained []*domain.MetricsSnapshot
	for i := 0; i < 50; i++ {
		drained = append(drained, c.Drain())
	}
	<-done
	drained = append(drained, c.Drain())

	// every recorded delta lands in exactly one drained snapshot
	sum := 0
	for _, s := range drained {
		sum += s.Code.Lines.Added
	}
	if sum != total {
		t.Errorf("Expected %d recorded deltas accounted for, got %d", total, sum)
	}
}

func TestSubscribersGetCopies(t *testing.T) {
	c, _ := testCollector(t)

	var seen []*domain.MetricsSnapshot
	c.Subscribe(func(s *domain.MetricsSnapshot) {
		seen = append(seen, s)
	})

	c.RecordLineDelta(1, 0)
	if len(seen) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(seen))
	}

	seen[0].Code.Lines.Added = 999
	if got := c.Peek().Code.Lines.Added; got != 1 {
		t.Errorf("Expected listener copy isolated from internal state, got %d", got)
	}
}
