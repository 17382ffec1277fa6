package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"lifecal/internal/models"
)

const (
	credentialsFile = "credentials.json"
)

// Connector links the aggregator to a Google Calendar. The feed is never
// written to Google (read-only scope); connecting and syncing verify that
// the calendar is reachable with the stored token.
type Connector struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
}

// NewConnector creates a Google Calendar connector for an authenticated
// account. The token is read from token-<accountName>.json in tokenDir.
func NewConnector(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, accountName, calendarID string) (*Connector, error) {
	config, err := getOAuthConfig(clientID, clientSecret, tokenDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := TokenPath(tokenDir, accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return NewConnectorWithService(logger, service, calendarID), nil
}

// NewConnectorWithService wraps an existing Calendar API service.
func NewConnectorWithService(logger *slog.Logger, service *calendar.Service, calendarID string) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Connector{service: service, logger: logger, calendarID: calendarID}
}

// Connect checks that the configured calendar exists and is readable.
func (c *Connector) Connect(ctx context.Context) error {
	cal, err := c.service.Calendars.Get(c.calendarID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to access calendar %s: %w", c.calendarID, err)
	}
	c.logger.Info("Connected to Google Calendar", "calendarID", c.calendarID, "summary", cal.Summary)
	return nil
}

// Push only re-checks access; the token's scope does not allow writes.
func (c *Connector) Push(ctx context.Context, events []models.Event) error {
	if _, err := c.service.Calendars.Get(c.calendarID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to access calendar %s: %w", c.calendarID, err)
	}
	c.logger.Debug("Google Calendar reachable", "calendarID", c.calendarID, "events", len(events))
	return nil
}

// UpcomingEvents fetches the next days of timed events from the connected
// calendar as drafts for manual events.
func (c *Connector) UpcomingEvents(ctx context.Context, days int) ([]models.EventDraft, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", c.calendarID, "days", days)
	now := time.Now().UTC()
	tmax := now.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	tmin := now.Format(time.RFC3339)

	events, err := c.service.Events.List(c.calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(events.Items), "calendarID", c.calendarID)
	return toDrafts(events.Items), nil
}

// toDrafts converts Google Calendar events to event drafts.
func toDrafts(items []*calendar.Event) []models.EventDraft {
	var drafts []models.EventDraft
	for _, item := range items {
		// Skip events without a start time (e.g., all-day events without a specific time)
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		draft := models.EventDraft{
			Title:       item.Summary,
			Description: item.Description,
			Start:       start,
			Type:        models.TypeMeeting,
		}
		if item.End != nil {
			if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				draft.End = &end
			}
		}
		if len(item.Attendees) == 0 {
			draft.Type = models.TypePersonal
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret, dir string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret, dir)
}

// getOAuthConfig returns an OAuth2 config, preferring explicit client
// credentials over a credentials.json file in dir.
func getOAuthConfig(clientID, clientSecret, dir string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(filepath.Join(dir, credentialsFile))
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in %s", dir)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenPath is where the token of accountName is kept.
func TokenPath(dir, accountName string) string {
	return filepath.Join(dir, "token-"+accountName+".json")
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// TokenAccounts lists the accounts that have a token in dir.
func TokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
