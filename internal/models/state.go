package models

import "time"

// SyncStatus is the state of the external calendar connection.
type SyncStatus string

const (
	StatusDisconnected SyncStatus = "disconnected"
	StatusConnected    SyncStatus = "connected"
	StatusSyncing      SyncStatus = "syncing"
	StatusError        SyncStatus = "error"
)

// Valid reports whether s is a known status.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusDisconnected, StatusConnected, StatusSyncing, StatusError:
		return true
	}
	return false
}

// CalendarSettings toggles which domains take part in sync.
type CalendarSettings struct {
	AutoSync        bool   `json:"autoSync"`
	SyncTasks       bool   `json:"syncTasks"`
	SyncProjects    bool   `json:"syncProjects"`
	SyncBibleStudy  bool   `json:"syncBibleStudy"`
	SyncHealth      bool   `json:"syncHealth"`
	DefaultCalendar string `json:"defaultCalendar"`
}

// DefaultSettings returns the settings a fresh installation starts with.
func DefaultSettings() CalendarSettings {
	return CalendarSettings{
		AutoSync:        true,
		SyncTasks:       true,
		SyncProjects:    true,
		SyncBibleStudy:  true,
		SyncHealth:      true,
		DefaultCalendar: "primary",
	}
}

// SettingsPatch is a partial update of CalendarSettings. Nil fields are left
// unchanged.
type SettingsPatch struct {
	AutoSync        *bool   `json:"autoSync,omitempty"`
	SyncTasks       *bool   `json:"syncTasks,omitempty"`
	SyncProjects    *bool   `json:"syncProjects,omitempty"`
	SyncBibleStudy  *bool   `json:"syncBibleStudy,omitempty"`
	SyncHealth      *bool   `json:"syncHealth,omitempty"`
	DefaultCalendar *string `json:"defaultCalendar,omitempty"`
}

// Apply merges p into s and returns the result.
func (p SettingsPatch) Apply(s CalendarSettings) CalendarSettings {
	if p.AutoSync != nil {
		s.AutoSync = *p.AutoSync
	}
	if p.SyncTasks != nil {
		s.SyncTasks = *p.SyncTasks
	}
	if p.SyncProjects != nil {
		s.SyncProjects = *p.SyncProjects
	}
	if p.SyncBibleStudy != nil {
		s.SyncBibleStudy = *p.SyncBibleStudy
	}
	if p.SyncHealth != nil {
		s.SyncHealth = *p.SyncHealth
	}
	if p.DefaultCalendar != nil {
		s.DefaultCalendar = *p.DefaultCalendar
	}
	return s
}

// CalendarState is the persisted form of the aggregator: the event feed and
// the connection record.
type CalendarState struct {
	Events    []Event    `json:"events"`
	Connected bool       `json:"googleCalendarConnected"`
	Status    SyncStatus `json:"syncStatus"`
	LastSync  *time.Time `json:"lastSync"`
}
