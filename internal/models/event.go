package models

import "time"

// Source records where an event came from. It never changes after the event
// enters the feed.
type Source string

const (
	SourceTasks    Source = "tasks"
	SourceProjects Source = "projects"
	SourceBible    Source = "bible"
	SourceHealth   Source = "health"
	SourceManual   Source = "manual"
)

// Derivable reports whether s names a collection events are derived from.
func (s Source) Derivable() bool {
	switch s {
	case SourceTasks, SourceProjects, SourceBible, SourceHealth:
		return true
	}
	return false
}

// EventType is the display category of an event.
type EventType string

const (
	TypeTask       EventType = "task"
	TypeProject    EventType = "project"
	TypeBibleStudy EventType = "bible-study"
	TypeHealth     EventType = "health"
	TypePersonal   EventType = "personal"
	TypeWork       EventType = "work"
	TypeMeeting    EventType = "meeting"
	TypeReminder   EventType = "reminder"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case TypeTask, TypeProject, TypeBibleStudy, TypeHealth,
		TypePersonal, TypeWork, TypeMeeting, TypeReminder:
		return true
	}
	return false
}

// Event is a single entry of the unified calendar feed.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Type        EventType `json:"type"`
	Priority    Priority  `json:"priority,omitempty"` // only set on task events
	Source      Source    `json:"source"`
	OriginalID  *string   `json:"originalId"` // nil for manual events
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Derived reports whether the event was computed from a domain record and is
// therefore owned by sync.
func (e Event) Derived() bool {
	return e.Source != SourceManual
}

// DerivedID builds the deterministic id of an event derived from a record.
func DerivedID(source Source, originalID string) string {
	return string(source) + "-" + originalID
}

// EventDraft is the user input for a manually created event. Zero values mean
// "not provided".
type EventDraft struct {
	Title       string
	Description string
	Start       time.Time
	End         *time.Time
	Type        EventType
}
