package syncer

import (
	"context"
	"testing"
	"time"

	"lifecal/internal/models"
)

func TestAutoSyncSkipsWhenDisabledOrDisconnected(t *testing.T) {
	h := newHarness(t)
	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}}

	if err := h.agg.AutoSync(context.Background()); err != nil {
		t.Fatalf("AutoSync while disconnected: %v", err)
	}
	if len(h.agg.Events()) != 0 {
		t.Fatalf("auto-sync must not run while disconnected")
	}

	h.agg.UpdateSettings(models.SettingsPatch{AutoSync: ptr(false)})
	h.connect(t)
	h.src.tasks = append(h.src.tasks, models.Task{ID: "2", Title: "b", DueDate: &due})
	if err := h.agg.AutoSync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.agg.Events()) != 1 {
		t.Fatalf("auto-sync must not run when disabled")
	}

	h.agg.UpdateSettings(models.SettingsPatch{AutoSync: ptr(true)})
	if err := h.agg.AutoSync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.agg.Events()) != 2 {
		t.Fatalf("expected auto-sync to pick up the new task")
	}
}

func TestAutoSyncWhileBusyRunsAgain(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.conn.entered = make(chan struct{})
	h.conn.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- h.agg.Sync(context.Background()) }()
	<-h.conn.entered

	if err := h.agg.AutoSync(context.Background()); err != nil {
		t.Fatalf("expected busy auto-sync to be deferred, got %v", err)
	}
	select {
	case <-h.agg.trigger:
		t.Fatalf("trigger fired before the running sync resolved")
	default:
	}

	close(h.conn.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	select {
	case <-h.agg.trigger:
	default:
		t.Fatalf("expected a follow-up auto-sync after the running sync")
	}
}

func TestRunAutoSync(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.agg.RunAutoSync(ctx)
		close(stopped)
	}()

	due := ts("2024-02-03T10:00:00Z")
	h.src.tasks = []models.Task{{ID: "1", Title: "a", DueDate: &due}}
	h.agg.NotifyChanged()
	h.agg.NotifyChanged()

	deadline := time.After(5 * time.Second)
	for len(h.agg.Events()) != 1 {
		select {
		case <-deadline:
			t.Fatalf("auto-sync did not pick up the change")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("RunAutoSync did not stop after cancel")
	}
	h.agg.Wait()
}
