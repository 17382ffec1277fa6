package syncer

import (
	"context"
	"errors"
)

// NotifyChanged records that a domain collection changed. It never blocks;
// triggers that arrive before RunAutoSync picks up the previous one collapse.
func (a *Aggregator) NotifyChanged() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

// AutoSync syncs when auto-sync is enabled and the calendar is connected,
// and does nothing otherwise. If a sync is already running, one more sync
// is scheduled for when it resolves.
func (a *Aggregator) AutoSync(ctx context.Context) error {
	a.mu.Lock()
	enabled := a.settings.AutoSync && a.state.Connected
	a.mu.Unlock()
	if !enabled {
		return nil
	}

	err := a.sync(ctx, true)
	if errors.Is(err, ErrSyncInProgress) || errors.Is(err, ErrNotConnected) {
		a.logger.Debug("Auto-sync deferred.", "reason", err)
		return nil
	}
	return err
}

// RunAutoSync serves change notifications until ctx is done, running at most
// one sync at a time.
func (a *Aggregator) RunAutoSync(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.trigger:
			if ctx.Err() != nil {
				return
			}
			if err := a.AutoSync(ctx); err != nil {
				a.logger.Error("Auto-sync failed", "error", err)
			}
		}
	}
}

func (a *Aggregator) repeatPendingLocked() {
	if !a.pending {
		return
	}
	a.pending = false
	a.NotifyChanged()
}
