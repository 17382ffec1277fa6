package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"lifecal/internal/syncer"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the calendar in sync on a schedule until interrupted.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cron", Usage: "Cron schedule of periodic syncs; overrides refresh from the config."},
		},
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			spec := r.cfg.RefreshCron
			if c.IsSet("cron") {
				spec = c.String("cron")
			}

			scheduler := cron.New(cron.WithLocation(r.loc))
			_, err := scheduler.AddFunc(spec, func() {
				err := r.agg.Sync(ctx)
				switch {
				case err == nil:
				case errors.Is(err, syncer.ErrNotConnected):
					r.logger.Debug("Skipping scheduled sync, calendar not connected.")
				case errors.Is(err, syncer.ErrSyncInProgress):
					r.logger.Debug("Skipping scheduled sync, another sync is running.")
				default:
					r.logger.Error("Scheduled sync failed", "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
			}

			r.logger.Info("Starting watcher.", "schedule", spec, "status", r.agg.Status())
			scheduler.Start()
			go r.agg.RunAutoSync(ctx)

			<-ctx.Done()
			r.logger.Info("Stopping watcher.")
			<-scheduler.Stop().Done()
			r.agg.Wait()
			return nil
		}),
	}
}
