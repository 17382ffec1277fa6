package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lifecal/internal/models"
)

type fakeSources struct {
	tasks    []models.Task
	projects []models.Project
	studies  []models.Study
	goals    []models.HealthGoal
	err      error
}

func (f *fakeSources) Tasks() ([]models.Task, error)       { return f.tasks, f.err }
func (f *fakeSources) Projects() ([]models.Project, error) { return f.projects, f.err }
func (f *fakeSources) Studies() ([]models.Study, error)    { return f.studies, f.err }
func (f *fakeSources) Goals() ([]models.HealthGoal, error) { return f.goals, f.err }

func (f *fakeSources) sources() Sources { return Sources{f, f, f, f} }

type memPersister struct {
	mu       sync.Mutex
	calendar *models.CalendarState
	settings *models.CalendarSettings
	saves    int
}

func (p *memPersister) LoadCalendar() (*models.CalendarState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calendar, nil
}

func (p *memPersister) SaveCalendar(s models.CalendarState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calendar = &s
	p.saves++
	return nil
}

func (p *memPersister) LoadSettings() (*models.CalendarSettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings, nil
}

func (p *memPersister) SaveSettings(s models.CalendarSettings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = &s
	return nil
}

// gateConnector blocks Push while gate is set, signalling entered first.
type gateConnector struct {
	entered chan struct{}
	release chan struct{}
	fail    error
}

func (c *gateConnector) Connect(context.Context) error { return c.fail }

func (c *gateConnector) Push(context.Context, []models.Event) error {
	if c.entered != nil {
		c.entered <- struct{}{}
		<-c.release
	}
	return c.fail
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

type harness struct {
	agg       *Aggregator
	src       *fakeSources
	conn      *gateConnector
	persister *memPersister
	clock     *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		src:       &fakeSources{},
		conn:      &gateConnector{},
		persister: &memPersister{},
		clock:     &testClock{now: ts("2024-02-01T00:00:00Z")},
	}
	seq := 0
	agg, err := New(Options{
		Sources:   h.src.sources(),
		Connector: h.conn,
		Persister: h.persister,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location:  time.UTC,
		Now:       h.clock.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("manual-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.agg = agg
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if err := h.agg.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func derivedSubset(events []models.Event) []models.Event {
	var out []models.Event
	for _, ev := range events {
		if ev.Derived() {
			out = append(out, ev)
		}
	}
	return out
}

func TestSyncDerivesOnlyOpenTasksWithDueDate(t *testing.T) {
	h := newHarness(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{
		{ID: "1", Title: "open", DueDate: &due, Priority: models.PriorityHigh},
		{ID: "2", Title: "done", DueDate: &due, Completed: true},
		{ID: "3", Title: "no date"},
	}
	h.connect(t)

	var found []models.Event
	for _, ev := range h.agg.Events() {
		if ev.Source == models.SourceTasks {
			found = append(found, ev)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 task event, got %d", len(found))
	}
	ev := found[0]
	if ev.OriginalID == nil || *ev.OriginalID != "1" {
		t.Fatalf("expected originalId 1, got %v", ev.OriginalID)
	}
	if ev.ID != "tasks-1" {
		t.Fatalf("expected id tasks-1, got %q", ev.ID)
	}
	if !ev.End.Equal(due.Add(time.Hour)) {
		t.Fatalf("expected end one hour after due date, got %v", ev.End)
	}
	if ev.Color != colorHigh || ev.Title != "📋 open" || ev.Type != models.TypeTask {
		t.Fatalf("unexpected task event %+v", ev)
	}
}

func TestSyncDerivesEveryDomain(t *testing.T) {
	h := newHarness(t)
	deadline := ts("2024-02-05T12:00:00Z")
	h.src.projects = []models.Project{
		{ID: "p1", Name: "Launch", Status: models.StatusActive, Deadline: &deadline},
		{ID: "p2", Name: "Paused", Status: models.StatusOnHold, Deadline: &deadline},
		{ID: "p3", Name: "No deadline", Status: models.StatusActive},
	}
	h.src.goals = []models.HealthGoal{
		{ID: "g1", Title: "Run 5k", Status: models.StatusActive, Deadline: &deadline},
		{ID: "g2", Title: "Done", Status: models.StatusCompleted, Deadline: &deadline},
	}
	h.src.studies = []models.Study{{ID: "s1", Title: "Romans", CreatedAt: ts("2024-01-20T08:00:00Z")}}
	h.connect(t)

	got := map[string]models.Event{}
	for _, ev := range h.agg.Events() {
		got[ev.ID] = ev
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d: %v", len(got), got)
	}
	if ev := got["projects-p1"]; !ev.End.Equal(deadline.Add(2*time.Hour)) || ev.Color != colorProject {
		t.Fatalf("unexpected project event %+v", ev)
	}
	if ev := got["health-g1"]; !ev.End.Equal(deadline.Add(30*time.Minute)) || ev.Type != models.TypeHealth {
		t.Fatalf("unexpected health event %+v", ev)
	}
	if ev := got["bible-s1"]; !ev.Start.Equal(ts("2024-01-20T08:00:00Z")) || ev.Type != models.TypeBibleStudy {
		t.Fatalf("unexpected study event %+v", ev)
	}
}

func TestSyncKeepsNewestFiveStudies(t *testing.T) {
	h := newHarness(t)
	base := ts("2024-01-01T09:00:00Z")
	// Inserted out of creation order on purpose.
	for _, day := range []int{3, 1, 7, 5, 2, 6, 4} {
		h.src.studies = append(h.src.studies, models.Study{
			ID:        fmt.Sprintf("s%d", day),
			Title:     "study",
			CreatedAt: base.AddDate(0, 0, day),
		})
	}
	h.connect(t)

	events := h.agg.Events()
	if len(events) != 5 {
		t.Fatalf("expected 5 study events, got %d", len(events))
	}
	want := []string{"bible-s7", "bible-s6", "bible-s5", "bible-s4", "bible-s3"}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], ev.ID)
		}
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	h := newHarness(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}, {ID: "2", Title: "b", DueDate: &due}}
	h.src.studies = []models.Study{{ID: "s", Title: "s", CreatedAt: due}}
	h.connect(t)

	first, err := json.Marshal(derivedSubset(h.agg.Events()))
	if err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Hour)
	if err := h.agg.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	second, err := json.Marshal(derivedSubset(h.agg.Events()))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("derived events changed between syncs:\n%s\n%s", first, second)
	}
}

func TestSyncReplacesDerivedSubset(t *testing.T) {
	h := newHarness(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}}
	h.connect(t)

	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due, Completed: true}, {ID: "2", Title: "b", DueDate: &due}}
	if err := h.agg.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	events := h.agg.Events()
	if len(events) != 1 || events[0].ID != "tasks-2" {
		t.Fatalf("expected only tasks-2 after resync, got %+v", events)
	}
}

func TestSyncRespectsSettings(t *testing.T) {
	h := newHarness(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}}
	h.src.studies = []models.Study{{ID: "s", Title: "s", CreatedAt: due}}

	s := h.agg.UpdateSettings(models.SettingsPatch{SyncTasks: ptr(false)})
	if s.SyncTasks || !s.SyncBibleStudy || !s.AutoSync {
		t.Fatalf("unexpected settings after patch: %+v", s)
	}
	if h.persister.settings == nil || h.persister.settings.SyncTasks {
		t.Fatalf("expected settings to be persisted")
	}
	if h.agg.Status() != models.StatusDisconnected {
		t.Fatalf("settings update must not sync")
	}

	h.connect(t)
	events := h.agg.Events()
	if len(events) != 1 || events[0].Source != models.SourceBible {
		t.Fatalf("expected only the study event, got %+v", events)
	}
}

func TestSyncWhileDisconnected(t *testing.T) {
	h := newHarness(t)
	if _, err := h.agg.AddEvent(models.EventDraft{Title: "x", Start: ts("2024-02-01T09:00:00Z")}); err != nil {
		t.Fatal(err)
	}
	before := h.agg.Events()

	err := h.agg.Sync(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if len(h.agg.Events()) != len(before) {
		t.Fatalf("feed changed after rejected sync")
	}
	if h.agg.Status() != models.StatusDisconnected {
		t.Fatalf("expected status disconnected, got %s", h.agg.Status())
	}
}

func TestConnectSetsStateAndPersists(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	state := h.agg.State()
	if !state.Connected || state.Status != models.StatusConnected {
		t.Fatalf("unexpected state after connect: %+v", state)
	}
	if state.LastSync == nil || !state.LastSync.Equal(h.clock.Now()) {
		t.Fatalf("expected lastSync to be set, got %v", state.LastSync)
	}
	saved := h.persister.calendar
	if saved == nil || saved.Status != models.StatusConnected || !saved.Connected {
		t.Fatalf("expected connected state to be persisted, got %+v", saved)
	}
}

func TestConnectFailure(t *testing.T) {
	h := newHarness(t)
	h.conn.fail = errors.New("boom")

	err := h.agg.Connect(context.Background())
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	state := h.agg.State()
	if state.Connected || state.Status != models.StatusError {
		t.Fatalf("unexpected state after failed connect: %+v", state)
	}

	// error -> syncing -> connected on retry.
	h.conn.fail = nil
	h.connect(t)
	if h.agg.Status() != models.StatusConnected {
		t.Fatalf("expected connected after retry, got %s", h.agg.Status())
	}
}

func TestSyncFailureKeepsFeed(t *testing.T) {
	h := newHarness(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}}
	h.connect(t)
	before := h.agg.Events()

	h.src.err = errors.New("store offline")
	err := h.agg.Sync(context.Background())
	if !errors.Is(err, ErrSyncFailed) {
		t.Fatalf("expected ErrSyncFailed, got %v", err)
	}
	if h.agg.Status() != models.StatusError {
		t.Fatalf("expected status error, got %s", h.agg.Status())
	}
	if after := h.agg.Events(); len(after) != len(before) || after[0].ID != before[0].ID {
		t.Fatalf("feed changed after failed sync: %+v", after)
	}

	h.src.err = nil
	if err := h.agg.Sync(context.Background()); err != nil {
		t.Fatalf("retry Sync: %v", err)
	}
	if h.agg.Status() != models.StatusConnected {
		t.Fatalf("expected connected after retry, got %s", h.agg.Status())
	}
}

func TestSyncRejectedWhileInProgress(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.conn.entered = make(chan struct{})
	h.conn.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- h.agg.Sync(context.Background()) }()
	<-h.conn.entered

	if h.agg.Status() != models.StatusSyncing {
		t.Fatalf("expected status syncing, got %s", h.agg.Status())
	}
	if err := h.agg.Sync(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
	if err := h.agg.Connect(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress from Connect, got %v", err)
	}
	if err := h.agg.Disconnect(); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress from Disconnect, got %v", err)
	}

	close(h.conn.release)
	if err := <-done; err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if h.agg.Status() != models.StatusConnected {
		t.Fatalf("expected connected, got %s", h.agg.Status())
	}
}

func TestDisconnectKeepsEventsAndReconnectDoesNotDuplicate(t *testing.T) {
	h := newHarness(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}}
	h.connect(t)
	manual, err := h.agg.AddEvent(models.EventDraft{Title: "Standup", Start: ts("2024-02-01T09:00:00Z")})
	if err != nil {
		t.Fatal(err)
	}

	if err := h.agg.Disconnect(); err != nil {
		t.Fatal(err)
	}
	state := h.agg.State()
	if state.Connected || state.Status != models.StatusDisconnected {
		t.Fatalf("unexpected state after disconnect: %+v", state)
	}
	if len(state.Events) != 2 {
		t.Fatalf("expected derived events to be kept on disconnect, got %d events", len(state.Events))
	}

	h.connect(t)
	counts := map[string]int{}
	for _, ev := range h.agg.Events() {
		counts[ev.ID]++
	}
	if counts[manual.ID] != 1 || counts["tasks-1"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected events after reconnect: %v", counts)
	}
	if h.agg.Status() != models.StatusConnected {
		t.Fatalf("expected connected, got %s", h.agg.Status())
	}
}

func TestConnectWhenConnectedRefreshes(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}}

	h.connect(t)
	if len(h.agg.Events()) != 1 {
		t.Fatalf("expected Connect to refresh the feed")
	}
}

func TestNewRestoresPersistedState(t *testing.T) {
	last := ts("2024-01-31T12:00:00Z")
	p := &memPersister{
		calendar: &models.CalendarState{
			Events:    []models.Event{{ID: "m", Title: "kept", Source: models.SourceManual, Start: last, End: last}},
			Connected: true,
			Status:    models.StatusSyncing,
			LastSync:  &last,
		},
		settings: &models.CalendarSettings{AutoSync: false, SyncTasks: true},
	}
	agg, err := New(Options{Persister: p, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatal(err)
	}
	state := agg.State()
	if state.Status != models.StatusError || !state.Connected {
		t.Fatalf("expected interrupted sync to resolve to error, got %+v", state)
	}
	if len(state.Events) != 1 || state.Events[0].ID != "m" {
		t.Fatalf("expected persisted events, got %+v", state.Events)
	}
	if agg.Settings().AutoSync {
		t.Fatalf("expected persisted settings to be loaded")
	}
}

func TestSimulatedConnector(t *testing.T) {
	c := &SimulatedConnector{ConnectDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	c = &SimulatedConnector{Fail: errors.New("down")}
	if err := c.Push(context.Background(), nil); err == nil || err.Error() != "down" {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if err := (&SimulatedConnector{}).Connect(context.Background()); err != nil {
		t.Fatalf("expected zero-delay connect to succeed, got %v", err)
	}
}

func TestUnavailableConnector(t *testing.T) {
	cause := errors.New("google: missing token")
	agg, err := New(Options{
		Sources:   (&fakeSources{}).sources(),
		Connector: Unavailable(cause),
		Persister: &memPersister{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location:  time.UTC,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := agg.AddEvent(models.EventDraft{Title: "local", Start: ts("2024-02-01T09:00:00Z")}); err != nil {
		t.Fatalf("expected local edits to work, got %v", err)
	}

	err = agg.Connect(context.Background())
	var ce *ConnectionError
	if !errors.As(err, &ce) || !errors.Is(err, cause) {
		t.Fatalf("expected a ConnectionError wrapping the cause, got %v", err)
	}
	if st := agg.State(); st.Connected || st.Status != models.StatusError {
		t.Fatalf("expected a disconnected error state, got %+v", st)
	}

	if err := Unavailable(nil).Push(context.Background(), nil); !errors.Is(err, errNoConnector) {
		t.Fatalf("expected errNoConnector, got %v", err)
	}
}
