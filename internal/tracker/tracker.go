package tracker

import (
	"sync"
	"time"

	"github.com/kurihiro0119/editor-activity-metrics/internal/collector"
	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
)

// wordLength is the character count of one "word" for WPM purposes
const wordLength = 5.0

// typingWindow is the sliding window used to estimate typing speed
const typingWindow = time.Minute

// ActivityListener is notified after every ingested event
type ActivityListener func(domain.ActivityEvent)

// Tracker consumes raw editor activity through a single intake point,
// maintains the idle/active state machine and forwards counters to
// the collector. Activity timestamps live here, nowhere else.
type Tracker struct {
	mu               sync.Mutex
	lastActivityTime time.Time
	isActive         bool
	windowFocused    bool
	activeLanguage   string
	currentProject   string
	keystrokes       []time.Time
	listeners        []ActivityListener

	collector     *collector.Collector
	idleThreshold time.Duration
	statusTick    time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// New creates a tracker bound to a collector
func New(c *collector.Collector, idleThreshold, statusTick time.Duration) *Tracker {
	return newTracker(c, idleThreshold, statusTick, time.Now)
}

func newTracker(c *collector.Collector, idleThreshold, statusTick time.Duration, now func() time.Time) *Tracker {
	return &Tracker{
		lastActivityTime: now(),
		isActive:         true,
		windowFocused:    true,
		collector:        c,
		idleThreshold:    idleThreshold,
		statusTick:       statusTick,
		stop:             make(chan struct{}),
		now:              now,
	}
}

// OnActivity registers a listener invoked after each ingested event.
// The sync engine's debounce and the reminder scheduler's activity
// clock both hang off this.
func (t *Tracker) OnActivity(l ActivityListener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

// Ingest is the one ingestion point for editor activity. It records
// the activity timestamp, resumes paused tracking, routes the event
// to the collector and fans out to listeners.
func (t *Tracker) Ingest(event domain.ActivityEvent) {
	now := t.now()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}

	t.mu.Lock()
	t.lastActivityTime = now
	t.isActive = true
	if event.Kind == domain.ActivityWindowFocus {
		t.windowFocused = event.Focused
	} else {
		// any other editor event implies the window has focus
		t.windowFocused = true
	}
	if event.Language != "" {
		t.activeLanguage = event.Language
	}
	if event.Project != "" {
		t.currentProject = event.Project
	}
	if event.Kind == domain.ActivityKeystroke {
		t.keystrokes = append(t.keystrokes, now)
		t.pruneKeystrokesLocked(now)
	}
	listeners := make([]ActivityListener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	if t.collector.IsPaused() {
		t.collector.Resume()
	}
	t.route(event)

	for _, l := range listeners {
		l(event)
	}
}

// route forwards the event's counters to the collector
func (t *Tracker) route(event domain.ActivityEvent) {
	switch event.Kind {
	case domain.ActivityDocumentChange:
		t.collector.RecordChange(event.Path, event.Language, event.ChangeCount)
		t.collector.RecordLineDelta(event.LinesAdded, event.LinesRemoved)
	case domain.ActivityDocumentView:
		t.collector.RecordView(event.Path, event.Language, event.Project)
		t.collector.SetCurrentProject(event.Project)
	case domain.ActivityFileCreate, domain.ActivityFileDelete, domain.ActivityFileRename:
		t.collector.RecordFileOperation(event.Kind, event.Path, event.OldPath)
	}
}

// Start begins the status tick loop
func (t *Tracker) Start() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.statusTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.tick()
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop cancels the tick loop
func (t *Tracker) Stop() {
	close(t.stop)
	t.wg.Wait()
}

// tick recomputes the active state, drives the idle pause and
// accumulates focus/project time for the elapsed tick.
func (t *Tracker) tick() {
	now := t.now()

	t.mu.Lock()
	wasActive := t.isActive
	t.isActive = now.Sub(t.lastActivityTime) < t.idleThreshold
	active := t.isActive
	focused := t.windowFocused
	project := t.currentProject
	t.pruneKeystrokesLocked(now)
	speed := t.typingSpeedLocked(now)
	t.mu.Unlock()

	tickSeconds := int64(t.statusTick / time.Second)
	if tickSeconds < 1 {
		tickSeconds = 1
	}

	if !active {
		if wasActive && !t.collector.IsPaused() {
			t.collector.Pause()
		}
		// the window is open but nobody is typing: distracted time
		if focused {
			t.collector.RecordFocusTime(tickSeconds, false)
		}
		return
	}

	if t.collector.IsPaused() {
		// isActive flipped back without an Ingest (clock skew); resume
		t.collector.Resume()
	}

	t.collector.RecordFocusTime(tickSeconds, true)
	if project != "" {
		t.collector.RecordProjectTime(project, tickSeconds)
	}
	t.collector.RecordTypingStats(speed, 1.0)
}

// IsActive reports whether activity arrived within the idle threshold
func (t *Tracker) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Sub(t.lastActivityTime) < t.idleThreshold
}

// LastActivityTime returns the time of the most recent ingested event
func (t *Tracker) LastActivityTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivityTime
}

// ActiveLanguage returns the language of the most recently touched
// document, empty if none seen yet.
func (t *Tracker) ActiveLanguage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLanguage
}

// TypingSpeed returns the current words-per-minute estimate from the
// sliding keystroke window.
func (t *Tracker) TypingSpeed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.pruneKeystrokesLocked(now)
	return t.typingSpeedLocked(now)
}

func (t *Tracker) pruneKeystrokesLocked(now time.Time) {
	cutoff := now.Add(-typingWindow)
	i := 0
	for i < len(t.keystrokes) && t.keystrokes[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		t.keystrokes = t.keystrokes[i:]
	}
}

func (t *Tracker) typingSpeedLocked(now time.Time) float64 {
	if len(t.keystrokes) == 0 {
		return 0
	}
	span := now.Sub(t.keystrokes[0])
	if span < time.Second {
		span = time.Second
	}
	words := float64(len(t.keystrokes)) / wordLength
	return words / span.Minutes()
}
