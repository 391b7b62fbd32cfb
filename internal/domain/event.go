package domain

import "time"

// ActivityKind represents the type of editor activity event
type ActivityKind string

const (
	ActivityKeystroke      ActivityKind = "keystroke"
	ActivitySelection      ActivityKind = "selection"
	ActivityWindowFocus    ActivityKind = "window_focus"
	ActivityDocumentChange ActivityKind = "document_change"
	ActivityDocumentView   ActivityKind = "document_view"
	ActivityDocumentSave   ActivityKind = "document_save"
	ActivityFileCreate     ActivityKind = "file_create"
	ActivityFileDelete     ActivityKind = "file_delete"
	ActivityFileRename     ActivityKind = "file_rename"
)

// ActivityEvent is the single sum type for everything the host editor
// reports. All fields beyond Kind and Timestamp are kind-specific and
// zero otherwise.
type ActivityEvent struct {
	ID       string       `json:"id"`
	Kind     ActivityKind `json:"kind"`
	Path     string       `json:"path,omitempty"`
	OldPath  string       `json:"oldPath,omitempty"` // file_rename only
	Language string       `json:"language,omitempty"`
	Project  string       `json:"project,omitempty"`

	// document_change details
	ChangeCount  int `json:"changeCount,omitempty"`
	LinesAdded   int `json:"linesAdded,omitempty"`
	LinesRemoved int `json:"linesRemoved,omitempty"`

	// document_view details
	LineCount int `json:"lineCount,omitempty"`
	CharCount int `json:"charCount,omitempty"`

	// window_focus detail: whether the editor window gained or lost focus
	Focused bool `json:"focused,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// IsFileOperation reports whether the event is a create/delete/rename
func (e *ActivityEvent) IsFileOperation() bool {
	switch e.Kind {
	case ActivityFileCreate, ActivityFileDelete, ActivityFileRename:
		return true
	}
	return false
}
