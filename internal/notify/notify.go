package notify

import (
	"context"
	"log"
	"time"
)

// Notification types understood by presentation surfaces
const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeModal   = "modal"
)

// Action is one selectable response to a notification
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Notification is a presentation request. Timeout bounds how long the
// surface waits for a response; zero means the caller's context rules.
type Notification struct {
	Title        string
	Message      string
	Type         string
	Actions      []Action
	SoundEnabled bool
	Timeout      time.Duration
}

// Notifier is the abstract presentation capability. Present returns
// the selected action id, or the empty string when the notification
// timed out with no response. Implementations must not block past the
// notification's timeout or the context deadline.
type Notifier interface {
	Present(ctx context.Context, n Notification) (string, error)
}

// logNotifier is the persistent fallback surface for headless runs: it
// renders to the log and reports no action taken.
type logNotifier struct{}

// NewLogNotifier creates the log-backed fallback notifier
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Present(_ context.Context, n Notification) (string, error) {
	log.Printf("notify: [%s] %s: %s", n.Type, n.Title, n.Message)
	return "", nil
}
