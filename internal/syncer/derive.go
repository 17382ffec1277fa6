package syncer

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"lifecal/internal/models"
)

// Default event lengths for records that carry a single point in time.
const (
	taskDuration    = 60 * time.Minute
	projectDuration = 120 * time.Minute
	studyDuration   = 60 * time.Minute
	healthDuration  = 30 * time.Minute
)

// recentStudies is how many of the newest studies are placed on the calendar.
const recentStudies = 5

const (
	colorHigh    = "#ef4444"
	colorMedium  = "#f59e0b"
	colorLow     = "#10b981"
	colorProject = "#8b5cf6"
	colorStudy   = "#f59e0b"
	colorHealth  = "#10b981"
)

var manualColors = map[models.EventType]string{
	models.TypePersonal:   "#3b82f6",
	models.TypeWork:       "#6366f1",
	models.TypeMeeting:    "#ec4899",
	models.TypeReminder:   "#f97316",
	models.TypeTask:       colorLow,
	models.TypeProject:    colorProject,
	models.TypeBibleStudy: colorStudy,
	models.TypeHealth:     colorHealth,
}

// TaskSource lists the current tasks.
type TaskSource interface {
	Tasks() ([]models.Task, error)
}

// ProjectSource lists the current projects.
type ProjectSource interface {
	Projects() ([]models.Project, error)
}

// StudySource lists the current Bible studies.
type StudySource interface {
	Studies() ([]models.Study, error)
}

// HealthSource lists the current health goals.
type HealthSource interface {
	Goals() ([]models.HealthGoal, error)
}

// Sources are the domain collections the feed is built from. A nil source
// contributes no events.
type Sources struct {
	Tasks    TaskSource
	Projects ProjectSource
	Studies  StudySource
	Health   HealthSource
}

// collect reads every enabled source and maps its eligible records to events.
// The output order is stable for unchanged input.
func (s Sources) collect(settings models.CalendarSettings) ([]models.Event, error) {
	var events []models.Event

	if settings.SyncTasks && s.Tasks != nil {
		tasks, err := s.Tasks.Tasks()
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		events = append(events, taskEvents(tasks)...)
	}
	if settings.SyncProjects && s.Projects != nil {
		projects, err := s.Projects.Projects()
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		events = append(events, projectEvents(projects)...)
	}
	if settings.SyncBibleStudy && s.Studies != nil {
		studies, err := s.Studies.Studies()
		if err != nil {
			return nil, fmt.Errorf("failed to list studies: %w", err)
		}
		events = append(events, studyEvents(studies)...)
	}
	if settings.SyncHealth && s.Health != nil {
		goals, err := s.Health.Goals()
		if err != nil {
			return nil, fmt.Errorf("failed to list health goals: %w", err)
		}
		events = append(events, healthEvents(goals)...)
	}
	return events, nil
}

func taskEvents(tasks []models.Task) []models.Event {
	var out []models.Event
	for _, t := range tasks {
		if t.DueDate == nil || t.Completed {
			continue
		}
		out = append(out, derived(models.SourceTasks, t.ID, models.Event{
			Title:       "📋 " + t.Title,
			Description: t.Description,
			Start:       *t.DueDate,
			End:         t.DueDate.Add(taskDuration),
			Type:        models.TypeTask,
			Priority:    t.Priority,
			Color:       priorityColor(t.Priority),
		}))
	}
	return out
}

func projectEvents(projects []models.Project) []models.Event {
	var out []models.Event
	for _, p := range projects {
		if p.Deadline == nil || p.Status != models.StatusActive {
			continue
		}
		out = append(out, derived(models.SourceProjects, p.ID, models.Event{
			Title:       "💼 " + p.Name,
			Description: p.Description,
			Start:       *p.Deadline,
			End:         p.Deadline.Add(projectDuration),
			Type:        models.TypeProject,
			Color:       colorProject,
		}))
	}
	return out
}

func studyEvents(studies []models.Study) []models.Event {
	recent := slices.Clone(studies)
	slices.SortStableFunc(recent, func(a, b models.Study) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(recent) > recentStudies {
		recent = recent[:recentStudies]
	}

	out := make([]models.Event, 0, len(recent))
	for _, s := range recent {
		out = append(out, derived(models.SourceBible, s.ID, models.Event{
			Title:       "📖 " + s.Title,
			Description: s.Description,
			Start:       s.CreatedAt,
			End:         s.CreatedAt.Add(studyDuration),
			Type:        models.TypeBibleStudy,
			Color:       colorStudy,
		}))
	}
	return out
}

func healthEvents(goals []models.HealthGoal) []models.Event {
	var out []models.Event
	for _, g := range goals {
		if g.Deadline == nil || g.Status != models.StatusActive {
			continue
		}
		out = append(out, derived(models.SourceHealth, g.ID, models.Event{
			Title:       "💪 " + g.Title,
			Description: g.Description,
			Start:       *g.Deadline,
			End:         g.Deadline.Add(healthDuration),
			Type:        models.TypeHealth,
			Color:       colorHealth,
		}))
	}
	return out
}

func derived(source models.Source, originalID string, ev models.Event) models.Event {
	ev.ID = models.DerivedID(source, originalID)
	ev.Source = source
	ev.OriginalID = &originalID
	return ev
}

func priorityColor(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return colorHigh
	case models.PriorityMedium:
		return colorMedium
	default:
		return colorLow
	}
}

// replaceDerived returns the manual events of current followed by next.
// Derived events that already existed keep their CreatedAt so that repeated
// syncs over unchanged data produce identical events.
func replaceDerived(current, next []models.Event, now time.Time) []models.Event {
	created := make(map[string]time.Time, len(current))
	out := make([]models.Event, 0, len(current)+len(next))
	for _, ev := range current {
		if ev.Derived() {
			created[ev.ID] = ev.CreatedAt
			continue
		}
		out = append(out, ev)
	}
	for _, ev := range next {
		if t, ok := created[ev.ID]; ok {
			ev.CreatedAt = t
		} else {
			ev.CreatedAt = now
		}
		out = append(out, ev)
	}
	return out
}

func sortByStart(events []models.Event) {
	slices.SortStableFunc(events, func(a, b models.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
