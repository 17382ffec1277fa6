package main

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"lifecal/internal/config"
	"lifecal/internal/google"
	"lifecal/internal/ics"
	"lifecal/internal/models"
	"lifecal/internal/syncer"
)

func connectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Connect the external calendar and run the initial sync.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			if err := r.agg.Connect(c.Context); err != nil {
				return err
			}
			fmt.Printf("Connected. %d events in calendar.\n", len(r.agg.Events()))
			return nil
		}),
	}
}

func disconnectCommand() *cli.Command {
	return &cli.Command{
		Name:  "disconnect",
		Usage: "Disconnect the external calendar. Synced events are kept until the next sync.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			return r.agg.Disconnect()
		}),
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Rebuild the events derived from tasks, projects, studies and health goals.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			if err := r.agg.Sync(c.Context); err != nil {
				if errors.Is(err, syncer.ErrNotConnected) {
					return fmt.Errorf("%w; run 'lifecal connect' first", err)
				}
				return err
			}
			fmt.Printf("Synced. %d events in calendar.\n", len(r.agg.Events()))
			return nil
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the connection status and settings.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			state := r.agg.State()
			settings := r.agg.Settings()
			lastSync := "never"
			if state.LastSync != nil {
				lastSync = state.LastSync.In(r.loc).Format(time.RFC1123)
			}
			fmt.Printf("Connector:  %s\n", r.cfg.Connector)
			fmt.Printf("Connected:  %t\n", state.Connected)
			fmt.Printf("Status:     %s\n", state.Status)
			fmt.Printf("Last sync:  %s\n", lastSync)
			fmt.Printf("Events:     %d\n", len(state.Events))
			keys, err := r.store.Keys()
			if err != nil {
				return err
			}
			fmt.Printf("Stored:     %s\n", strings.Join(keys, ", "))
			fmt.Printf("Settings:   autoSync=%t tasks=%t projects=%t bibleStudy=%t health=%t calendar=%s\n",
				settings.AutoSync, settings.SyncTasks, settings.SyncProjects, settings.SyncBibleStudy, settings.SyncHealth, settings.DefaultCalendar)
			return nil
		}),
	}
}

func settingsCommand() *cli.Command {
	boolFlags := map[string]func(*models.SettingsPatch, bool){
		"auto-sync":     func(p *models.SettingsPatch, v bool) { p.AutoSync = &v },
		"sync-tasks":    func(p *models.SettingsPatch, v bool) { p.SyncTasks = &v },
		"sync-projects": func(p *models.SettingsPatch, v bool) { p.SyncProjects = &v },
		"sync-bible":    func(p *models.SettingsPatch, v bool) { p.SyncBibleStudy = &v },
		"sync-health":   func(p *models.SettingsPatch, v bool) { p.SyncHealth = &v },
	}
	flags := []cli.Flag{
		&cli.StringFlag{Name: "default-calendar", Usage: "Calendar new events go to."},
	}
	for _, name := range slices.Sorted(maps.Keys(boolFlags)) {
		flags = append(flags, &cli.BoolFlag{Name: name})
	}

	return &cli.Command{
		Name:  "settings",
		Usage: "Change which collections take part in sync. Does not sync by itself.",
		Flags: flags,
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			var patch models.SettingsPatch
			for name, set := range boolFlags {
				if c.IsSet(name) {
					set(&patch, c.Bool(name))
				}
			}
			if c.IsSet("default-calendar") {
				v := c.String("default-calendar")
				patch.DefaultCalendar = &v
			}
			s := r.agg.UpdateSettings(patch)
			fmt.Printf("autoSync=%t tasks=%t projects=%t bibleStudy=%t health=%t calendar=%s\n",
				s.AutoSync, s.SyncTasks, s.SyncProjects, s.SyncBibleStudy, s.SyncHealth, s.DefaultCalendar)
			return nil
		}),
	}
}

func eventCommand() *cli.Command {
	return &cli.Command{
		Name:  "event",
		Usage: "Manage calendar events.",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a manual event.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "start", Required: true, Usage: "Start time (RFC 3339, 'YYYY-MM-DD HH:MM' or 'YYYY-MM-DD')."},
					&cli.StringFlag{Name: "end", Usage: "End time; defaults to start."},
					&cli.StringFlag{Name: "type", Value: string(models.TypePersonal), Usage: "personal, work, meeting or reminder."},
					&cli.StringFlag{Name: "description"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					draft, err := draftFromFlags(c, r)
					if err != nil {
						return err
					}
					ev, err := r.agg.AddEvent(draft)
					if err != nil {
						return err
					}
					printEvent(ev, r.loc)
					return nil
				}),
			},
			{
				Name:  "update",
				Usage: "Update an event.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "start"},
					&cli.StringFlag{Name: "end"},
					&cli.StringFlag{Name: "type"},
					&cli.StringFlag{Name: "description"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					ev, ok := r.agg.Event(c.String("id"))
					if !ok {
						return fmt.Errorf("%w: %s", syncer.ErrEventNotFound, c.String("id"))
					}
					if c.IsSet("title") {
						ev.Title = c.String("title")
					}
					if c.IsSet("description") {
						ev.Description = c.String("description")
					}
					if c.IsSet("type") {
						ev.Type = models.EventType(c.String("type"))
					}
					if c.IsSet("start") {
						start, err := parseTime(c.String("start"), r.loc)
						if err != nil {
							return err
						}
						ev.End = start.Add(ev.End.Sub(ev.Start))
						ev.Start = start
					}
					if c.IsSet("end") {
						end, err := parseTime(c.String("end"), r.loc)
						if err != nil {
							return err
						}
						ev.End = end
					}
					if err := r.agg.UpdateEvent(ev); err != nil {
						return err
					}
					printEvent(ev, r.loc)
					return nil
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete an event.",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					return r.agg.DeleteEvent(c.String("id"))
				}),
			},
			{
				Name:  "list",
				Usage: "List the events of a day.",
				Flags: []cli.Flag{&cli.StringFlag{Name: "date", Usage: "Day to list (YYYY-MM-DD); defaults to today."}},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					day := time.Now().In(r.loc)
					if c.IsSet("date") {
						d, err := parseTime(c.String("date"), r.loc)
						if err != nil {
							return err
						}
						day = d
					}
					for ev := range r.agg.EventsForDate(day) {
						printEvent(ev, r.loc)
					}
					return nil
				}),
			},
			{
				Name:  "upcoming",
				Usage: "List upcoming events.",
				Flags: []cli.Flag{&cli.IntFlag{Name: "days", Usage: "Window in days; defaults to upcoming_days from the config."}},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					days := r.cfg.UpcomingDays
					if c.IsSet("days") {
						days = c.Int("days")
						if days <= 0 {
							return &syncer.ValidationError{Field: "days", Reason: "must be greater than zero"}
						}
					}
					events, err := r.agg.UpcomingEvents(days)
					if err != nil {
						return err
					}
					for _, ev := range events {
						printEvent(ev, r.loc)
					}
					return nil
				}),
			},
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the calendar as an iCalendar (.ics) file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "lifecal.ics", Usage: "Output file, '-' for stdout."},
		},
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			events := r.agg.Events()
			out := c.String("out")
			if out == "-" {
				return ics.Encode(os.Stdout, events)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := ics.Encode(f, events); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			r.logger.Info("Exported calendar.", "file", out, "events", len(events))
			return nil
		}),
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import events as manual events.",
		Subcommands: []*cli.Command{
			{
				Name:  "ics",
				Usage: "Import the events of an iCalendar file.",
				Flags: []cli.Flag{&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true}},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					f, err := os.Open(c.String("file"))
					if err != nil {
						return err
					}
					defer f.Close()
					drafts, err := ics.Decode(f, r.loc)
					if err != nil {
						return err
					}
					return addDrafts(r, drafts)
				}),
			},
			{
				Name:  "google",
				Usage: "Import upcoming events from the configured Google Calendar.",
				Flags: []cli.Flag{&cli.IntFlag{Name: "days", Value: 7}},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if r.cfg.Connector != config.ConnectorGoogle {
						return fmt.Errorf("connector is %q; set connector: google in the config", r.cfg.Connector)
					}
					conn, err := google.NewConnector(c.Context, r.logger, r.cfg.Google.ClientID, r.cfg.Google.ClientSecret, r.cfg.Google.TokenDir, r.cfg.Google.Account, r.cfg.Google.CalendarID)
					if err != nil {
						return err
					}
					drafts, err := conn.UpcomingEvents(c.Context, c.Int("days"))
					if err != nil {
						return err
					}
					return addDrafts(r, drafts)
				}),
			},
		},
	}
}

func addDrafts(r *runtime, drafts []models.EventDraft) error {
	added := 0
	for _, d := range drafts {
		if _, err := r.agg.AddEvent(d); err != nil {
			r.logger.Warn("Skipping event", "title", d.Title, "error", err)
			continue
		}
		added++
	}
	fmt.Printf("Imported %d of %d events.\n", added, len(drafts))
	return nil
}

func draftFromFlags(c *cli.Context, r *runtime) (models.EventDraft, error) {
	start, err := parseTime(c.String("start"), r.loc)
	if err != nil {
		return models.EventDraft{}, err
	}
	draft := models.EventDraft{
		Title:       c.String("title"),
		Description: c.String("description"),
		Start:       start,
		Type:        models.EventType(c.String("type")),
	}
	if c.IsSet("end") {
		end, err := parseTime(c.String("end"), r.loc)
		if err != nil {
			return models.EventDraft{}, err
		}
		draft.End = &end
	}
	return draft, nil
}

func printEvent(ev models.Event, loc *time.Location) {
	fmt.Printf("%s  %s-%s  %-11s %-8s %s\n",
		ev.Start.In(loc).Format("2006-01-02"),
		ev.Start.In(loc).Format("15:04"),
		ev.End.In(loc).Format("15:04"),
		ev.Type, ev.Source, ev.Title)
	fmt.Printf("    id=%s\n", ev.ID)
}
