package domain

import (
	"fmt"
	"time"
)

// Built-in reminder category ids
const (
	ReminderBreak     = "break"
	ReminderPosture   = "posture"
	ReminderEyeStrain = "eye_strain"
)

// ReminderConditions gates a custom reminder beyond its interval. All
// provided conditions are ANDed; a nil pointer means "not constrained".
type ReminderConditions struct {
	MinTypingSpeed     *float64 `json:"minTypingSpeed,omitempty"`
	MaxTypingSpeed     *float64 `json:"maxTypingSpeed,omitempty"`
	Languages          []string `json:"activeDocumentLanguage,omitempty"`
	MinSessionDuration *int64   `json:"minSessionDuration,omitempty"` // seconds
}

// ReminderDefinition describes one reminder, built-in or user-defined.
//
// LastTriggered carries a documented double duty inherited from the
// persisted format: a past value is the last firing time, a future value
// is an active snooze deadline. Use Mark/ApplyMark to work with the
// unambiguous TriggerMark form instead of reading the field directly.
type ReminderDefinition struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Message          string              `json:"message"`
	Interval         int64               `json:"interval"` // seconds
	Enabled          bool                `json:"enabled"`
	LastTriggered    *time.Time          `json:"lastTriggered,omitempty"`
	Conditions       *ReminderConditions `json:"conditions,omitempty"`
	NotificationType string              `json:"notificationType"`
	SoundEnabled     bool                `json:"soundEnabled"`
	Actions          []string            `json:"actions"`
}

// NewReminderID generates an id for a definition created without one.
// Millisecond resolution matches the persisted ids written by earlier
// versions of the extension.
func NewReminderID(now time.Time) string {
	return fmt.Sprintf("reminder-%d", now.UnixMilli())
}

// MarkKind discriminates the TriggerMark union
type MarkKind int

const (
	MarkNone MarkKind = iota
	MarkFired
	MarkSnoozed
)

// TriggerMark is the internal tagged-union reading of LastTriggered:
// Fired(at) for a past firing, Snoozed(until) for an active snooze.
type TriggerMark struct {
	Kind MarkKind
	At   time.Time
}

// Mark decodes LastTriggered relative to now
func (r *ReminderDefinition) Mark(now time.Time) TriggerMark {
	if r.LastTriggered == nil {
		return TriggerMark{Kind: MarkNone}
	}
	if r.LastTriggered.After(now) {
		return TriggerMark{Kind: MarkSnoozed, At: *r.LastTriggered}
	}
	return TriggerMark{Kind: MarkFired, At: *r.LastTriggered}
}

// ApplyMark encodes a TriggerMark back into the wire field
func (r *ReminderDefinition) ApplyMark(m TriggerMark) {
	switch m.Kind {
	case MarkNone:
		r.LastTriggered = nil
	default:
		at := m.At
		r.LastTriggered = &at
	}
}

// IntervalDuration returns the firing interval as a time.Duration
func (r *ReminderDefinition) IntervalDuration() time.Duration {
	return time.Duration(r.Interval) * time.Second
}
