package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lifecal/internal/models"
)

// Connector is the external calendar the aggregator connects and syncs to.
// Both calls are suspension points: they may block until ctx is done.
type Connector interface {
	Connect(ctx context.Context) error
	Push(ctx context.Context, events []models.Event) error
}

// Default latencies of the simulated calendar.
const (
	DefaultConnectDelay = 2 * time.Second
	DefaultPushDelay    = 1 * time.Second
)

// SimulatedConnector stands in for a remote calendar. It waits for a fixed
// latency and then succeeds, or fails with Fail when set.
type SimulatedConnector struct {
	ConnectDelay time.Duration
	PushDelay    time.Duration
	// Fail, when non-nil, is returned by every Connect and Push.
	Fail   error
	Logger *slog.Logger
}

// NewSimulatedConnector returns a connector with the default latencies.
func NewSimulatedConnector(logger *slog.Logger) *SimulatedConnector {
	return &SimulatedConnector{
		ConnectDelay: DefaultConnectDelay,
		PushDelay:    DefaultPushDelay,
		Logger:       logger,
	}
}

// Connect simulates establishing the calendar connection.
func (c *SimulatedConnector) Connect(ctx context.Context) error {
	if err := wait(ctx, c.ConnectDelay); err != nil {
		return err
	}
	if c.Fail != nil {
		return c.Fail
	}
	c.logger().Debug("Simulated calendar connected.")
	return nil
}

// Push simulates sending the feed to the calendar.
func (c *SimulatedConnector) Push(ctx context.Context, events []models.Event) error {
	if err := wait(ctx, c.PushDelay); err != nil {
		return err
	}
	if c.Fail != nil {
		return c.Fail
	}
	c.logger().Debug("Simulated calendar received events.", "count", len(events))
	return nil
}

func (c *SimulatedConnector) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// errNoConnector is the cause reported when no connector is configured.
var errNoConnector = errors.New("no calendar connector configured")

// Unavailable returns a connector whose Connect and Push always fail with
// err. It lets a command run against local data when the configured
// calendar cannot be built.
func Unavailable(err error) Connector {
	if err == nil {
		err = errNoConnector
	}
	return unavailableConnector{err: err}
}

type unavailableConnector struct {
	err error
}

func (c unavailableConnector) Connect(context.Context) error {
	return c.err
}

func (c unavailableConnector) Push(context.Context, []models.Event) error {
	return c.err
}
