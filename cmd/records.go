package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v2"

	"lifecal/internal/models"
	"lifecal/internal/store"
)

// afterChange runs the auto-sync a one-shot command owes for a modified
// collection.
func afterChange(c *cli.Context, r *runtime) error {
	if err := r.agg.AutoSync(c.Context); err != nil {
		r.logger.Warn("Auto-sync failed", "error", err)
	}
	return nil
}

func optionalTime(c *cli.Context, r *runtime, name string) (*time.Time, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	t, err := parseTime(c.String(name), r.loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func idFlag() cli.Flag {
	return &cli.StringFlag{Name: "id", Required: true}
}

func taskCommand() *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Manage tasks.",
		Subcommands: []*cli.Command{
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "priority", Value: string(models.PriorityMedium), Usage: "low, medium or high"},
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "due"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					due, err := optionalTime(c, r, "due")
					if err != nil {
						return err
					}
					t, err := r.store.AddTask(models.Task{
						Title:       c.String("title"),
						Description: c.String("description"),
						Priority:    models.Priority(c.String("priority")),
						Category:    c.String("category"),
						DueDate:     due,
					})
					if err != nil {
						return err
					}
					fmt.Printf("Added task %s\n", t.ID)
					return afterChange(c, r)
				}),
			},
			{
				Name: "list",
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					tasks, err := r.store.Tasks()
					if err != nil {
						return err
					}
					for _, t := range tasks {
						done := " "
						if t.Completed {
							done = "x"
						}
						fmt.Printf("[%s] %-36s %-6s due %-16s %s\n", done, t.ID, t.Priority, formatDate(t.DueDate, r.loc), t.Title)
					}
					return nil
				}),
			},
			{
				Name:  "update",
				Usage: "Update a task.",
				Flags: []cli.Flag{
					idFlag(),
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "priority"},
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "due"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					t, err := r.store.Task(c.String("id"))
					if err != nil {
						return err
					}
					if c.IsSet("title") {
						t.Title = c.String("title")
					}
					if c.IsSet("description") {
						t.Description = c.String("description")
					}
					if c.IsSet("priority") {
						t.Priority = models.Priority(c.String("priority"))
					}
					if c.IsSet("category") {
						t.Category = c.String("category")
					}
					if c.IsSet("due") {
						if t.DueDate, err = optionalTime(c, r, "due"); err != nil {
							return err
						}
					}
					if err := r.store.UpdateTask(t); err != nil {
						return err
					}
					return afterChange(c, r)
				}),
			},
			{
				Name:  "toggle",
				Usage: "Mark a task done or open again.",
				Flags: []cli.Flag{idFlag()},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if _, err := r.store.ToggleTask(c.String("id")); err != nil {
						return err
					}
					return afterChange(c, r)
				}),
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{idFlag()},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if err := r.store.DeleteTask(c.String("id")); err != nil {
						return err
					}
					return afterChange(c, r)
				}),
			},
		},
	}
}

func projectCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Manage projects.",
		Subcommands: []*cli.Command{
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "deadline"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					deadline, err := optionalTime(c, r, "deadline")
					if err != nil {
						return err
					}
					p, err := r.store.AddProject(models.Project{
						Name:        c.String("name"),
						Description: c.String("description"),
						Deadline:    deadline,
					})
					if err != nil {
						return err
					}
					fmt.Printf("Added project %s\n", p.ID)
					return afterChange(c, r)
				}),
			},
			{
				Name: "list",
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					projects, err := r.store.Projects()
					if err != nil {
						return err
					}
					for _, p := range projects {
						fmt.Printf("%-36s %-9s %3d%% deadline %-16s %s\n", p.ID, p.Status, p.Progress, formatDate(p.Deadline, r.loc), p.Name)
					}
					stats, err := r.store.ProjectStats()
					if err != nil {
						return err
					}
					fmt.Printf("%d projects: %d active, %d completed, %d on hold\n", stats.Total, stats.Active, stats.Completed, stats.OnHold)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Set a project's status (active, completed, on-hold).",
				Flags: []cli.Flag{idFlag(), &cli.StringFlag{Name: "status", Required: true}},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					projects, err := r.store.Projects()
					if err != nil {
						return err
					}
					for _, p := range projects {
						if p.ID != c.String("id") {
							continue
						}
						p.Status = c.String("status")
						if err := r.store.UpdateProject(p); err != nil {
							return err
						}
						return afterChange(c, r)
					}
					return fmt.Errorf("project %s not found", c.String("id"))
				}),
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{idFlag()},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if err := r.store.DeleteProject(c.String("id")); err != nil {
						return err
					}
					return afterChange(c, r)
				}),
			},
		},
	}
}

func studyCommand() *cli.Command {
	return &cli.Command{
		Name:  "study",
		Usage: "Manage Bible studies.",
		Subcommands: []*cli.Command{
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "passage"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					s, err := r.store.AddStudy(models.Study{
						Title:       c.String("title"),
						Description: c.String("description"),
						Passage:     c.String("passage"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("Added study %s\n", s.ID)
					return afterChange(c, r)
				}),
			},
			{
				Name: "list",
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					studies, err := r.store.Studies()
					if err != nil {
						return err
					}
					for _, s := range studies {
						fmt.Printf("%-36s %s  %s %s\n", s.ID, s.CreatedAt.In(r.loc).Format("2006-01-02"), s.Title, s.Passage)
					}
					return nil
				}),
			},
			{
				Name:  "update",
				Usage: "Update a study.",
				Flags: []cli.Flag{
					idFlag(),
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "passage"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					studies, err := r.store.Studies()
					if err != nil {
						return err
					}
					i := slices.IndexFunc(studies, func(s models.Study) bool { return s.ID == c.String("id") })
					if i < 0 {
						return fmt.Errorf("study %s: %w", c.String("id"), store.ErrNotFound)
					}
					s := studies[i]
					if c.IsSet("title") {
						s.Title = c.String("title")
					}
					if c.IsSet("description") {
						s.Description = c.String("description")
					}
					if c.IsSet("passage") {
						s.Passage = c.String("passage")
					}
					if err := r.store.UpdateStudy(s); err != nil {
						return err
					}
					return afterChange(c, r)
				}),
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{idFlag()},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if err := r.store.DeleteStudy(c.String("id")); err != nil {
						return err
					}
					return afterChange(c, r)
				}),
			},
		},
	}
}

func goalCommand() *cli.Command {
	return &cli.Command{
		Name:  "goal",
		Usage: "Manage health goals.",
		Subcommands: []*cli.Command{
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "target"},
					&cli.StringFlag{Name: "category", Value: "fitness"},
					&cli.StringFlag{Name: "deadline"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					deadline, err := optionalTime(c, r, "deadline")
					if err != nil {
						return err
					}
					g, err := r.store.AddGoal(models.HealthGoal{
						Title:       c.String("title"),
						Description: c.String("description"),
						Target:      c.String("target"),
						Category:    c.String("category"),
						Deadline:    deadline,
					})
					if err != nil {
						return err
					}
					fmt.Printf("Added goal %s\n", g.ID)
					return afterChange(c, r)
				}),
			},
			{
				Name: "list",
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					goals, err := r.store.Goals()
					if err != nil {
						return err
					}
					for _, g := range goals {
						fmt.Printf("%-36s %-9s deadline %-16s %s\n", g.ID, g.Status, formatDate(g.Deadline, r.loc), g.Title)
					}
					stats, err := r.store.HealthStats()
					if err != nil {
						return err
					}
					fmt.Printf("%d of %d goals active, today %.0f steps, weight %.1f\n", stats.ActiveGoals, stats.TotalGoals, stats.TodaySteps, stats.CurrentWeight)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Set a goal's status (active, completed).",
				Flags: []cli.Flag{idFlag(), &cli.StringFlag{Name: "status", Required: true}},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					goals, err := r.store.Goals()
					if err != nil {
						return err
					}
					for _, g := range goals {
						if g.ID != c.String("id") {
							continue
						}
						g.Status = c.String("status")
						if err := r.store.UpdateGoal(g); err != nil {
							return err
						}
						return afterChange(c, r)
					}
					return fmt.Errorf("goal %s not found", c.String("id"))
				}),
			},
			{
				Name:  "log",
				Usage: "Record a step count or a weight reading.",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "steps"},
					&cli.Float64Flag{Name: "weight"},
					&cli.StringFlag{Name: "date", Usage: "Reading date; defaults to now."},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					date := time.Now()
					if c.IsSet("date") {
						d, err := parseTime(c.String("date"), r.loc)
						if err != nil {
							return err
						}
						date = d
					}
					if !c.IsSet("steps") && !c.IsSet("weight") {
						return fmt.Errorf("nothing to log: pass --steps or --weight")
					}
					if c.IsSet("steps") {
						if err := r.store.AddSteps(store.Measurement{Date: date, Value: c.Float64("steps")}); err != nil {
							return err
						}
					}
					if c.IsSet("weight") {
						if err := r.store.AddWeight(store.Measurement{Date: date, Value: c.Float64("weight")}); err != nil {
							return err
						}
					}
					stats, err := r.store.HealthStats()
					if err != nil {
						return err
					}
					fmt.Printf("Today: %.0f steps, weight %.1f\n", stats.TodaySteps, stats.CurrentWeight)
					return nil
				}),
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{idFlag()},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if err := r.store.DeleteGoal(c.String("id")); err != nil {
						return err
					}
					return afterChange(c, r)
				}),
			},
		},
	}
}
