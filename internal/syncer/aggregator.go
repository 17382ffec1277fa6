package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifecal/internal/models"
)

// Persister loads and saves the aggregator's own state. Load methods return
// nil without error when nothing has been saved yet.
type Persister interface {
	LoadCalendar() (*models.CalendarState, error)
	SaveCalendar(state models.CalendarState) error
	LoadSettings() (*models.CalendarSettings, error)
	SaveSettings(settings models.CalendarSettings) error
}

// Options configure a new Aggregator. Only Sources is required.
type Options struct {
	Sources   Sources
	Connector Connector
	Persister Persister
	Logger    *slog.Logger
	// Location decides calendar-day boundaries. Defaults to time.Local.
	Location *time.Location
	// Now and NewID default to time.Now and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// Aggregator maintains the unified event feed built from the domain
// collections plus manually added events.
type Aggregator struct {
	sources   Sources
	connector Connector
	persister Persister
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
	newID     func() string

	mu       sync.Mutex
	events   []models.Event
	state    models.CalendarState // Events is unused; the feed lives in events
	settings models.CalendarSettings
	// pending is set when an auto-sync was dropped because another sync
	// was running; the running sync re-triggers once it resolves.
	pending bool

	trigger  chan struct{}
	inflight sync.WaitGroup
}

// New creates an Aggregator, restoring any previously persisted state.
func New(opts Options) (*Aggregator, error) {
	a := &Aggregator{
		sources:   opts.Sources,
		connector: opts.Connector,
		persister: opts.Persister,
		logger:    opts.Logger,
		loc:       opts.Location,
		now:       opts.Now,
		newID:     opts.NewID,
		settings:  models.DefaultSettings(),
		state:     models.CalendarState{Status: models.StatusDisconnected},
		trigger:   make(chan struct{}, 1),
	}
	if a.connector == nil {
		a.connector = Unavailable(nil)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.newID == nil {
		a.newID = uuid.NewString
	}

	if a.persister == nil {
		return a, nil
	}

	saved, err := a.persister.LoadCalendar()
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar state: %w", err)
	}
	if saved != nil {
		a.events = saved.Events
		a.state = models.CalendarState{
			Connected: saved.Connected,
			Status:    saved.Status,
			LastSync:  saved.LastSync,
		}
		a.restoreStatus()
		a.logger.Info("Restored calendar state.", "events", len(a.events), "status", a.state.Status)
	}

	settings, err := a.persister.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar settings: %w", err)
	}
	if settings != nil {
		a.settings = *settings
	}
	return a, nil
}

// restoreStatus resolves a status that cannot be resumed after a restart.
func (a *Aggregator) restoreStatus() {
	switch {
	case a.state.Status == models.StatusSyncing:
		a.logger.Warn("Previous sync did not finish, marking as failed.")
		a.state.Status = models.StatusError
	case !a.state.Status.Valid():
		if a.state.Connected {
			a.state.Status = models.StatusConnected
		} else {
			a.state.Status = models.StatusDisconnected
		}
	}
	if a.state.Status == models.StatusConnected && !a.state.Connected {
		a.state.Status = models.StatusDisconnected
	}
}

// Connect establishes the external calendar connection and runs the initial
// sync. When already connected it only refreshes the feed.
func (a *Aggregator) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.state.Status == models.StatusSyncing {
		a.mu.Unlock()
		return ErrSyncInProgress
	}
	if a.state.Connected {
		a.mu.Unlock()
		a.logger.Info("Calendar already connected, refreshing.")
		return a.Sync(ctx)
	}
	a.state.Status = models.StatusSyncing
	a.inflight.Add(1)
	a.persistLocked()
	a.mu.Unlock()

	a.logger.Info("Connecting calendar.")
	if err := a.connector.Connect(ctx); err != nil {
		a.mu.Lock()
		a.state.Connected = false
		a.state.Status = models.StatusError
		a.persistLocked()
		a.mu.Unlock()
		a.inflight.Done()
		a.logger.Error("Calendar connection failed", "error", err)
		return &ConnectionError{Err: err}
	}

	a.mu.Lock()
	now := a.now()
	a.state.Connected = true
	a.state.LastSync = &now
	a.persistLocked()
	a.mu.Unlock()
	a.logger.Info("Calendar connected.")

	// Status stays syncing so nothing can slip in before the initial sync.
	return a.runSync(ctx)
}

// Disconnect drops the calendar connection. Derived events stay in the feed
// until the next successful sync.
func (a *Aggregator) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Status == models.StatusSyncing {
		return ErrSyncInProgress
	}
	a.state.Connected = false
	a.state.Status = models.StatusDisconnected
	a.persistLocked()
	a.logger.Info("Calendar disconnected.")
	return nil
}

// Sync recomputes every derived event from the current domain records.
// Manual events are left untouched.
func (a *Aggregator) Sync(ctx context.Context) error {
	return a.sync(ctx, false)
}

func (a *Aggregator) sync(ctx context.Context, auto bool) error {
	a.mu.Lock()
	if !a.state.Connected {
		a.mu.Unlock()
		return ErrNotConnected
	}
	if a.state.Status == models.StatusSyncing {
		if auto {
			a.pending = true
		}
		a.mu.Unlock()
		return ErrSyncInProgress
	}
	a.state.Status = models.StatusSyncing
	a.inflight.Add(1)
	a.persistLocked()
	a.mu.Unlock()

	return a.runSync(ctx)
}

// runSync performs a sync. The caller must have set the status to syncing
// and registered the operation in inflight.
func (a *Aggregator) runSync(ctx context.Context) error {
	defer a.inflight.Done()
	a.logger.Info("Starting sync cycle.")

	a.mu.Lock()
	settings := a.settings
	current := slices.Clone(a.events)
	a.mu.Unlock()

	next, err := a.sources.collect(settings)
	if err == nil {
		err = a.connector.Push(ctx, replaceDerived(current, next, a.now()))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state.Status = models.StatusError
		a.persistLocked()
		a.repeatPendingLocked()
		a.logger.Error("Sync cycle failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	now := a.now()
	a.events = replaceDerived(a.events, next, now)
	a.state.Status = models.StatusConnected
	a.state.LastSync = &now
	a.persistLocked()
	a.repeatPendingLocked()
	a.logger.Info("Sync cycle finished.", "derived", len(next), "total", len(a.events))
	return nil
}

// Wait blocks until no connect or sync is in flight.
func (a *Aggregator) Wait() {
	a.inflight.Wait()
}

// UpdateSettings merges patch into the calendar settings. It does not sync.
func (a *Aggregator) UpdateSettings(patch models.SettingsPatch) models.CalendarSettings {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = patch.Apply(a.settings)
	if a.persister != nil {
		if err := a.persister.SaveSettings(a.settings); err != nil {
			a.logger.Error("Failed to save calendar settings", "error", err)
		}
	}
	return a.settings
}

// Settings returns the current calendar settings.
func (a *Aggregator) Settings() models.CalendarSettings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// State returns a consistent snapshot of the feed and connection record.
func (a *Aggregator) State() models.CalendarState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Status returns the current sync status.
func (a *Aggregator) Status() models.SyncStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Status
}

// Events returns a copy of the feed in insertion order.
func (a *Aggregator) Events() []models.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.events)
}

func (a *Aggregator) snapshotLocked() models.CalendarState {
	s := a.state
	s.Events = slices.Clone(a.events)
	if s.LastSync != nil {
		t := *s.LastSync
		s.LastSync = &t
	}
	return s
}

func (a *Aggregator) persistLocked() {
	if a.persister == nil {
		return
	}
	if err := a.persister.SaveCalendar(a.snapshotLocked()); err != nil {
		a.logger.Error("Failed to save calendar state", "error", err)
	}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
