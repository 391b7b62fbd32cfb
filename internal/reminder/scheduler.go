package reminder

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kurihiro0119/editor-activity-metrics/internal/collector"
	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/editor-activity-metrics/internal/errors"
	"github.com/kurihiro0119/editor-activity-metrics/internal/notify"
	"github.com/kurihiro0119/editor-activity-metrics/internal/store"
)

// Action ids offered on reminder notifications
const (
	ActionPrimary      = "primary"
	ActionSnooze       = "snooze"
	ActionDisableToday = "disable_today"
)

// ActivityReader is the tracker surface the scheduler consults
type ActivityReader interface {
	IsActive() bool
	ActiveLanguage() string
	TypingSpeed() float64
}

// PomodoroReader exposes the focus-cycle state for break gating
type PomodoroReader interface {
	State() domain.PomodoroState
}

// Options configure built-in categories and the poll cadence
type Options struct {
	Poll                time.Duration
	NotificationTimeout time.Duration

	BreakInterval  time.Duration
	BreakSnooze    time.Duration
	BreakCountdown time.Duration

	PostureInterval time.Duration
	PostureSnooze   time.Duration

	EyeStrainInterval time.Duration
	EyeStrainSnooze   time.Duration
	EyeRestCountdown  time.Duration
}

// entry is one reminder's runtime state: the persisted definition plus
// the in-memory machine state (Armed/Presented) and the decoded
// trigger mark.
type entry struct {
	def        domain.ReminderDefinition
	mark       domain.TriggerMark
	snooze     time.Duration
	countdown  time.Duration
	armedAt    time.Time
	presenting bool
	custom     bool
}

// Scheduler runs one independent interval machine per reminder. All
// categories are re-evaluated on a shared poll tick; evaluation errors
// in one category never stop the others.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry

	opts      Options
	collector *collector.Collector
	activity  ActivityReader
	pomodoro  PomodoroReader
	notifier  notify.Notifier
	st        store.Store

	lastPollDay string

	stop chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// New creates a scheduler with the three built-in categories armed and
// any persisted custom reminders loaded. A store read failure falls
// back to an empty custom set.
func New(c *collector.Collector, activity ActivityReader, pom PomodoroReader, notifier notify.Notifier, st store.Store, opts Options) *Scheduler {
	s := &Scheduler{
		entries:   make(map[string]*entry),
		opts:      opts,
		collector: c,
		activity:  activity,
		pomodoro:  pom,
		notifier:  notifier,
		st:        st,
		stop:      make(chan struct{}),
		now:       time.Now,
	}
	s.installBuiltins()
	s.loadCustom()
	s.loadBuiltinMarks()
	return s
}

func (s *Scheduler) installBuiltins() {
	now := s.now()
	builtins := []struct {
		def       domain.ReminderDefinition
		snooze    time.Duration
		countdown time.Duration
	}{
		{
			def: domain.ReminderDefinition{
				ID:               domain.ReminderBreak,
				Title:            "Time for a break",
				Message:          "You have been coding for a while. Step away for a few minutes.",
				Interval:         int64(s.opts.BreakInterval / time.Second),
				Enabled:          true,
				NotificationType: notify.TypeInfo,
				SoundEnabled:     true,
				Actions:          []string{ActionPrimary, ActionSnooze, ActionDisableToday},
			},
			snooze:    s.opts.BreakSnooze,
			countdown: s.opts.BreakCountdown,
		},
		{
			def: domain.ReminderDefinition{
				ID:               domain.ReminderPosture,
				Title:            "Posture check",
				Message:          "Straighten your back and relax your shoulders.",
				Interval:         int64(s.opts.PostureInterval / time.Second),
				Enabled:          true,
				NotificationType: notify.TypeInfo,
				SoundEnabled:     false,
				Actions:          []string{ActionPrimary, ActionSnooze, ActionDisableToday},
			},
			snooze: s.opts.PostureSnooze,
		},
		{
			def: domain.ReminderDefinition{
				ID:               domain.ReminderEyeStrain,
				Title:            "Rest your eyes",
				Message:          "Look at something 20 feet away for 20 seconds.",
				Interval:         int64(s.opts.EyeStrainInterval / time.Second),
				Enabled:          true,
				NotificationType: notify.TypeInfo,
				SoundEnabled:     false,
				Actions:          []string{ActionPrimary, ActionSnooze, ActionDisableToday},
			},
			snooze:    s.opts.EyeStrainSnooze,
			countdown: s.opts.EyeRestCountdown,
		},
	}

	for _, b := range builtins {
		s.entries[b.def.ID] = &entry{
			def:       b.def,
			snooze:    b.snooze,
			countdown: b.countdown,
			armedAt:   now,
		}
	}
}

func (s *Scheduler) loadCustom() {
	if s.st == nil {
		return
	}
	var defs []domain.ReminderDefinition
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.st.Get(ctx, store.KeyCustomReminders, &defs); err != nil {
		if !apperrors.IsNotFound(err) {
			log.Printf("reminder: failed to load custom reminders, starting empty: %v", err)
		}
		return
	}
	now := s.now()
	for _, def := range defs {
		s.entries[def.ID] = &entry{
			def:     def,
			mark:    def.Mark(now),
			snooze:  s.opts.BreakSnooze,
			armedAt: now,
			custom:  true,
		}
	}
}

// loadBuiltinMarks restores the built-in categories' persisted trigger
// marks so snoozes and disable-for-today survive a daemon restart.
// Custom reminders carry their mark inside their persisted definition.
func (s *Scheduler) loadBuiltinMarks() {
	if s.st == nil {
		return
	}
	var marks map[string]*time.Time
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.st.Get(ctx, store.KeyDisabledUntil, &marks); err != nil {
		if !apperrors.IsNotFound(err) {
			log.Printf("reminder: failed to load built-in reminder state: %v", err)
		}
		return
	}
	now := s.now()
	for id, lt := range marks {
		e, ok := s.entries[id]
		if !ok || e.custom {
			continue
		}
		e.def.LastTriggered = lt
		e.mark = e.def.Mark(now)
	}
}

func (s *Scheduler) persistBuiltinMarks() {
	if s.st == nil {
		return
	}

	s.mu.Lock()
	marks := make(map[string]*time.Time)
	for id, e := range s.entries {
		if !e.custom {
			marks[id] = e.def.LastTriggered
		}
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.st.Update(ctx, store.KeyDisabledUntil, marks); err != nil {
		log.Printf("reminder: failed to persist built-in reminder state: %v", err)
	}
}

// Start begins the shared poll loop
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.Poll)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Evaluate()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop cancels the poll loop
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// Evaluate re-checks every reminder's trigger predicate once. Exposed
// for the poll loop and for tests.
func (s *Scheduler) Evaluate() {
	now := s.now()
	s.rolloverDay(now)

	s.mu.Lock()
	due := make([]*entry, 0)
	for _, e := range s.entries {
		if s.shouldTriggerLocked(e, now) {
			e.presenting = true
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		go s.present(e)
	}
}

// shouldTriggerLocked is the Due predicate: interval elapsed, not
// snoozed, enabled, user active, pomodoro gate for break reminders,
// and every custom condition satisfied.
func (s *Scheduler) shouldTriggerLocked(e *entry, now time.Time) bool {
	if !e.def.Enabled || e.presenting {
		return false
	}

	switch e.mark.Kind {
	case domain.MarkSnoozed:
		if now.Before(e.mark.At) {
			return false
		}
	case domain.MarkFired:
		if now.Sub(e.mark.At) < e.def.IntervalDuration() {
			return false
		}
	case domain.MarkNone:
		if now.Sub(e.armedAt) < e.def.IntervalDuration() {
			return false
		}
	}

	if !s.activity.IsActive() {
		return false
	}

	if e.def.ID == domain.ReminderBreak && s.pomodoro != nil {
		if s.pomodoro.State().InFocusSession() {
			return false
		}
	}

	return s.conditionsSatisfied(e.def.Conditions)
}

func (s *Scheduler) conditionsSatisfied(c *domain.ReminderConditions) bool {
	if c == nil {
		return true
	}
	speed := s.activity.TypingSpeed()
	if c.MinTypingSpeed != nil && speed < *c.MinTypingSpeed {
		return false
	}
	if c.MaxTypingSpeed != nil && speed > *c.MaxTypingSpeed {
		return false
	}
	if len(c.Languages) > 0 {
		lang := s.activity.ActiveLanguage()
		found := false
		for _, l := range c.Languages {
			if l == lang {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.MinSessionDuration != nil {
		if int64(s.collector.SessionDuration()/time.Second) < *c.MinSessionDuration {
			return false
		}
	}
	return true
}

// present drives one Presented cycle for a due reminder
func (s *Scheduler) present(e *entry) {
	s.mu.Lock()
	n := notify.Notification{
		Title:        e.def.Title,
		Message:      e.def.Message,
		Type:         e.def.NotificationType,
		SoundEnabled: e.def.SoundEnabled,
		Timeout:      s.opts.NotificationTimeout,
	}
	for _, id := range e.def.Actions {
		n.Actions = append(n.Actions, notify.Action{ID: id, Label: actionLabel(id)})
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.NotificationTimeout)
	defer cancel()

	action, err := s.notifier.Present(ctx, n)
	if err != nil {
		log.Printf("reminder: %s presentation failed: %v", e.def.ID, err)
		action = ""
	}
	s.HandleAction(e.def.ID, action)
}

// HandleAction applies a user response (or "" for timeout/no response)
// to a reminder. A timeout leaves the trigger mark untouched so the
// reminder stays due and re-fires on the next poll.
func (s *Scheduler) HandleAction(id, action string) {
	now := s.now()

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.presenting = false

	var countdown time.Duration
	switch action {
	case ActionPrimary:
		e.mark = domain.TriggerMark{Kind: domain.MarkFired, At: now}
		countdown = e.countdown
	case ActionSnooze:
		e.mark = domain.TriggerMark{Kind: domain.MarkSnoozed, At: now.Add(e.snooze)}
	case ActionDisableToday:
		e.mark = domain.TriggerMark{Kind: domain.MarkSnoozed, At: nextMidnight(now)}
	default:
		// no response: mark unchanged, stays due
		s.mu.Unlock()
		return
	}
	e.def.ApplyMark(e.mark)
	isBreak := e.def.ID == domain.ReminderBreak
	custom := e.custom
	title := e.def.Title
	s.mu.Unlock()

	if action == ActionPrimary {
		if isBreak {
			s.collector.RecordBreakTaken()
		}
		if countdown > 0 {
			s.startCountdown(title, countdown)
		}
	}
	if custom {
		s.persistCustom()
	} else {
		s.persistBuiltinMarks()
	}
}

// startCountdown runs the post-acknowledgement sub-timer (break
// countdown, 20-second eye rest) and announces its completion.
func (s *Scheduler) startCountdown(title string, d time.Duration) {
	log.Printf("reminder: %s countdown started (%v)", title, d)
	time.AfterFunc(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.NotificationTimeout)
		defer cancel()
		_, err := s.notifier.Present(ctx, notify.Notification{
			Title:   title,
			Message: "Countdown finished.",
			Type:    notify.TypeInfo,
		})
		if err != nil {
			log.Printf("reminder: countdown notification failed: %v", err)
		}
	})
}

// rolloverDay resets day-scoped state when the local date changes
func (s *Scheduler) rolloverDay(now time.Time) {
	day := now.Format("2006-01-02")

	s.mu.Lock()
	if s.lastPollDay == "" {
		s.lastPollDay = day
		s.mu.Unlock()
		return
	}
	if s.lastPollDay == day {
		s.mu.Unlock()
		return
	}
	s.lastPollDay = day
	// expire disable-for-today snoozes that midnight has passed
	expired := false
	for _, e := range s.entries {
		if e.mark.Kind == domain.MarkSnoozed && !now.Before(e.mark.At) {
			e.mark = domain.TriggerMark{Kind: domain.MarkNone}
			e.def.ApplyMark(e.mark)
			e.armedAt = now
			expired = true
		}
	}
	s.mu.Unlock()

	if expired {
		s.persistBuiltinMarks()
		s.persistCustom()
	}
	s.collector.Update(func(snap *domain.MetricsSnapshot) {
		snap.Productivity.DailyGoals.Current = 0
	})
}

// Add registers a custom reminder, assigning an id when absent, and
// persists the custom set. Built-in category ids are reserved and
// cannot be shadowed.
func (s *Scheduler) Add(def domain.ReminderDefinition) (domain.ReminderDefinition, error) {
	switch def.ID {
	case domain.ReminderBreak, domain.ReminderPosture, domain.ReminderEyeStrain:
		return domain.ReminderDefinition{}, apperrors.NewBadRequestError("reminder id " + def.ID + " is reserved")
	}

	now := s.now()
	if def.ID == "" {
		def.ID = domain.NewReminderID(now)
	}
	if def.NotificationType == "" {
		def.NotificationType = notify.TypeInfo
	}
	if len(def.Actions) == 0 {
		def.Actions = []string{ActionPrimary, ActionSnooze, ActionDisableToday}
	}

	s.mu.Lock()
	s.entries[def.ID] = &entry{
		def:     def,
		mark:    def.Mark(now),
		snooze:  s.opts.BreakSnooze,
		armedAt: now,
		custom:  true,
	}
	s.mu.Unlock()

	s.persistCustom()
	return def, nil
}

// Remove deletes a custom reminder by id. Built-in categories cannot
// be removed, only disabled.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || !e.custom {
		s.mu.Unlock()
		return apperrors.NewNotFoundError("reminder " + id)
	}
	delete(s.entries, id)
	s.mu.Unlock()

	s.persistCustom()
	return nil
}

// SetEnabled toggles a reminder category
func (s *Scheduler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFoundError("reminder " + id)
	}
	e.def.Enabled = enabled
	custom := e.custom
	s.mu.Unlock()

	if custom {
		s.persistCustom()
	}
	return nil
}

// List returns all reminder definitions, built-in and custom
func (s *Scheduler) List() []domain.ReminderDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	defs := make([]domain.ReminderDefinition, 0, len(s.entries))
	for _, e := range s.entries {
		defs = append(defs, e.def)
	}
	return defs
}

func (s *Scheduler) persistCustom() {
	if s.st == nil {
		return
	}

	s.mu.Lock()
	defs := make([]domain.ReminderDefinition, 0)
	for _, e := range s.entries {
		if e.custom {
			defs = append(defs, e.def)
		}
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.st.Update(ctx, store.KeyCustomReminders, defs); err != nil {
		log.Printf("reminder: failed to persist custom reminders: %v", err)
	}
}

func actionLabel(id string) string {
	switch id {
	case ActionPrimary:
		return "Do it"
	case ActionSnooze:
		return "Snooze"
	case ActionDisableToday:
		return "Not today"
	default:
		return id
	}
}

// nextMidnight returns the start of the next local day
func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
