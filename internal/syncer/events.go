package syncer

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"lifecal/internal/models"
)

// DefaultUpcomingDays is the window used by UpcomingEvents when none is given.
const DefaultUpcomingDays = 7

// MaxUpcomingDays bounds the UpcomingEvents window to one that fits a
// time.Duration.
const MaxUpcomingDays = 100 * 366

// AddEvent validates draft and appends it to the feed as a manual event.
func (a *Aggregator) AddEvent(draft models.EventDraft) (models.Event, error) {
	ev := models.Event{
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Start:       draft.Start,
		End:         draft.Start,
		Type:        draft.Type,
		Source:      models.SourceManual,
	}
	if draft.End != nil {
		ev.End = *draft.End
	}
	if ev.Type == "" {
		ev.Type = models.TypePersonal
	}
	if err := validate(ev); err != nil {
		return models.Event{}, err
	}
	ev.Color = manualColors[ev.Type]

	a.mu.Lock()
	defer a.mu.Unlock()
	ev.ID = a.newID()
	ev.CreatedAt = a.now()
	a.events = append(a.events, ev)
	a.persistLocked()
	a.logger.Info("Event added.", "id", ev.ID, "title", ev.Title)
	return ev, nil
}

// UpdateEvent replaces the event with the same id. The provenance fields
// (Source, OriginalID, CreatedAt) of the stored event are kept.
func (a *Aggregator) UpdateEvent(ev models.Event) error {
	ev.Title = strings.TrimSpace(ev.Title)
	if ev.End.IsZero() {
		ev.End = ev.Start
	}
	if ev.Type == "" {
		ev.Type = models.TypePersonal
	}
	if err := validate(ev); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.indexLocked(ev.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, ev.ID)
	}
	old := a.events[i]
	ev.Source = old.Source
	ev.OriginalID = old.OriginalID
	ev.CreatedAt = old.CreatedAt
	if ev.Color == "" {
		ev.Color = old.Color
	}
	a.events[i] = ev
	a.persistLocked()
	a.logger.Info("Event updated.", "id", ev.ID)
	return nil
}

// DeleteEvent removes the event with the given id.
func (a *Aggregator) DeleteEvent(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	a.events = slices.Delete(a.events, i, i+1)
	a.persistLocked()
	a.logger.Info("Event deleted.", "id", id)
	return nil
}

// Event returns the event with the given id.
func (a *Aggregator) Event(id string) (models.Event, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.indexLocked(id)
	if i < 0 {
		return models.Event{}, false
	}
	return a.events[i], true
}

// EventsForDate yields the events starting on the calendar day of date,
// ascending by start. Every iteration reads a fresh snapshot of the feed.
func (a *Aggregator) EventsForDate(date time.Time) iter.Seq[models.Event] {
	y, m, d := date.In(a.loc).Date()
	return func(yield func(models.Event) bool) {
		for _, ev := range a.sorted() {
			ey, em, ed := ev.Start.In(a.loc).Date()
			if ey != y || em != m || ed != d {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// UpcomingEvents returns the events starting in [now, now+windowDays),
// ascending by start. A zero window means DefaultUpcomingDays.
func (a *Aggregator) UpcomingEvents(windowDays int) ([]models.Event, error) {
	if windowDays == 0 {
		windowDays = DefaultUpcomingDays
	}
	if windowDays < 0 {
		return nil, &ValidationError{Field: "windowDays", Reason: "must be greater than zero"}
	}
	if windowDays > MaxUpcomingDays {
		return nil, &ValidationError{Field: "windowDays", Reason: fmt.Sprintf("must be at most %d", MaxUpcomingDays)}
	}
	from := a.now()
	to := from.Add(time.Duration(windowDays) * 24 * time.Hour)

	var out []models.Event
	for _, ev := range a.sorted() {
		if ev.Start.Before(from) || !ev.Start.Before(to) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (a *Aggregator) sorted() []models.Event {
	events := a.Events()
	sortByStart(events)
	return events
}

func (a *Aggregator) indexLocked(id string) int {
	return slices.IndexFunc(a.events, func(ev models.Event) bool { return ev.ID == id })
}

func validate(ev models.Event) error {
	if ev.Title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if ev.Start.IsZero() {
		return &ValidationError{Field: "start", Reason: "is required"}
	}
	if ev.End.Before(ev.Start) {
		return &ValidationError{Field: "end", Reason: "is before start"}
	}
	if !ev.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown event type %q", ev.Type)}
	}
	return nil
}
