package store

import "lifecal/internal/models"

// LoadCalendar returns the saved calendar state, or nil if there is none.
func (s *Store) LoadCalendar() (*models.CalendarState, error) {
	var state models.CalendarState
	ok, err := s.Load(KeyCalendar, &state)
	if err != nil || !ok {
		return nil, err
	}
	return &state, nil
}

// SaveCalendar saves the calendar state. Observers are not notified.
func (s *Store) SaveCalendar(state models.CalendarState) error {
	if state.Events == nil {
		state.Events = []models.Event{}
	}
	return s.Save(KeyCalendar, state)
}

// LoadSettings returns the saved calendar settings, or nil if there are none.
func (s *Store) LoadSettings() (*models.CalendarSettings, error) {
	settings := models.DefaultSettings()
	ok, err := s.Load(KeyCalendarSettings, &settings)
	if err != nil || !ok {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings saves the calendar settings.
func (s *Store) SaveSettings(settings models.CalendarSettings) error {
	return s.Save(KeyCalendarSettings, settings)
}
