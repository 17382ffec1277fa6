// Package ics converts feed events to and from iCalendar.
package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"lifecal/internal/models"
)

const (
	productID = "-//lifecal//EN"
	// PropSource records the provenance of an exported event.
	PropSource = "X-LIFECAL-SOURCE"
	propColor  = "COLOR"
)

// NewCalendar builds a VCALENDAR holding one VEVENT per event.
func NewCalendar(events []models.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for _, ev := range events {
		cal.Children = append(cal.Children, ToComponent(ev))
	}
	return cal
}

// ToComponent converts an event to a VEVENT.
func ToComponent(ev models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, ev.ID)
	ve.Props.SetText(ical.PropSummary, ev.Title)
	stamp := ev.CreatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, zoned(ev.Start))
	ve.Props.SetDateTime(ical.PropDateTimeEnd, zoned(ev.End))
	ve.Props.SetText(ical.PropCategories, string(ev.Type))
	setPlain(ve.Props, PropSource, string(ev.Source))

	if ev.Description != "" {
		ve.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Color != "" {
		setPlain(ve.Props, propColor, ev.Color)
	}
	return ve
}

// zoned returns t in a zone a reader can resolve from its TZID. Unnamed
// offsets and the process-local zone are written as UTC.
func zoned(t time.Time) time.Time {
	name := t.Location().String()
	if name == "" || name == "Local" {
		return t.UTC()
	}
	if _, err := time.LoadLocation(name); err != nil {
		return t.UTC()
	}
	return t
}

// setPlain sets a property without a VALUE parameter.
func setPlain(props ical.Props, name, value string) {
	p := ical.NewProp(name)
	p.Value = value
	props.Set(p)
}

// Encode writes events as an iCalendar stream.
func Encode(w io.Writer, events []models.Event) error {
	if len(events) == 0 {
		return errors.New("no events to encode")
	}
	if err := ical.NewEncoder(w).Encode(NewCalendar(events)); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}

// Decode reads the VEVENTs of an iCalendar stream as event drafts. Events
// without a start time and events exported from a synced collection are
// skipped. Times without a zone are read in loc.
func Decode(r io.Reader, loc *time.Location) ([]models.EventDraft, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode iCal data: %w", err)
	}

	var drafts []models.EventDraft
	for _, ve := range cal.Events() {
		// Derived events are rebuilt by sync; importing them would duplicate
		// them as manual events.
		if source := ve.Props.Get(PropSource); source != nil && models.Source(source.Value).Derivable() {
			continue
		}
		start, err := ve.DateTimeStart(loc)
		if err != nil || start.IsZero() {
			continue
		}
		summary, _ := ve.Props.Text(ical.PropSummary)
		description, _ := ve.Props.Text(ical.PropDescription)
		draft := models.EventDraft{
			Title:       summary,
			Description: description,
			Start:       start,
		}
		if end, err := ve.DateTimeEnd(loc); err == nil && !end.IsZero() {
			draft.End = &end
		}
		if category, _ := ve.Props.Text(ical.PropCategories); models.EventType(category).Valid() {
			draft.Type = models.EventType(category)
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}
