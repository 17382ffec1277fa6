// Package caldav publishes the event feed to a CalDAV calendar.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"lifecal/internal/ics"
	"lifecal/internal/models"
)

// basicAuthTransport adds Basic Auth and the client's User-Agent to requests.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "lifecal/1.0")
	return t.Transport.RoundTrip(req)
}

// Publisher writes every feed event to a named CalDAV calendar. It satisfies
// syncer.Connector.
type Publisher struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarName string
	calendarPath string
}

// NewPublisher creates a Publisher for the calendar called calendarName on
// the CalDAV server at endpoint. No request is made until Connect.
func NewPublisher(logger *slog.Logger, endpoint, username, password, calendarName string) (*Publisher, error) {
	if endpoint == "" {
		return nil, errors.New("caldav endpoint is empty")
	}
	if calendarName == "" {
		return nil, errors.New("caldav calendar name is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	return &Publisher{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
		calendarName: calendarName,
	}, nil
}

// Connect locates the target calendar.
func (p *Publisher) Connect(ctx context.Context) error {
	p.logger.Info("Finding CalDAV calendar", "calendarName", p.calendarName)
	calendarPath, err := p.findCalendar(ctx)
	if err != nil {
		return fmt.Errorf("could not find calendar '%s': %w", p.calendarName, err)
	}
	p.calendarPath = calendarPath
	p.logger.Info("Successfully found CalDAV calendar", "path", calendarPath)
	return nil
}

// Push writes each event as its own resource, named after the event id.
// A failed event does not stop the others.
func (p *Publisher) Push(ctx context.Context, events []models.Event) error {
	if p.calendarPath == "" {
		if err := p.Connect(ctx); err != nil {
			return err
		}
	}

	var errs []error
	for _, ev := range events {
		if err := p.putEvent(ctx, ev); err != nil {
			p.logger.Error("Failed to publish event", "title", ev.Title, "error", err)
			errs = append(errs, err)
		}
	}
	p.logger.Info("Published events to CalDAV", "count", len(events)-len(errs), "failed", len(errs))
	return errors.Join(errs...)
}

func (p *Publisher) putEvent(ctx context.Context, ev models.Event) error {
	cal := ics.NewCalendar([]models.Event{ev})
	eventPath := path.Join(p.calendarPath, url.PathEscape(ev.ID)+".ics")
	writer, err := p.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}
	p.logger.Debug("Published event", "title", ev.Title, "path", eventPath)
	return nil
}

// findCalendar discovers the user's calendars and returns the path of the
// one with the matching name.
func (p *Publisher) findCalendar(ctx context.Context) (string, error) {
	principalPath, err := p.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := p.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := p.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == p.calendarName {
			return strings.TrimSuffix(cal.Path, "/"), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", p.calendarName)
}
