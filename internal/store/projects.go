package store

import (
	"fmt"
	"slices"
	"strings"

	"lifecal/internal/models"
)

// Projects returns all projects.
func (s *Store) Projects() ([]models.Project, error) {
	return load[[]models.Project](s, KeyProjects)
}

// AddProject stores a new active project.
func (s *Store) AddProject(p models.Project) (models.Project, error) {
	if strings.TrimSpace(p.Name) == "" {
		return models.Project{}, fmt.Errorf("project name is required")
	}
	p.ID = s.newID()
	p.CreatedAt = s.now()
	p.Status = models.StatusActive
	p.Progress = 0
	err := mutate(s, KeyProjects, func(projects *[]models.Project) error {
		*projects = append(*projects, p)
		return nil
	})
	return p, err
}

// UpdateProject replaces the project with the same ID.
func (s *Store) UpdateProject(p models.Project) error {
	return mutate(s, KeyProjects, func(projects *[]models.Project) error {
		i := slices.IndexFunc(*projects, func(x models.Project) bool { return x.ID == p.ID })
		if i < 0 {
			return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
		}
		(*projects)[i] = p
		return nil
	})
}

// DeleteProject deletes a project.
func (s *Store) DeleteProject(id string) error {
	return mutate(s, KeyProjects, func(projects *[]models.Project) error {
		n := len(*projects)
		*projects = slices.DeleteFunc(*projects, func(x models.Project) bool { return x.ID == id })
		if len(*projects) == n {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ProjectStats counts projects by status.
type ProjectStats struct {
	Total     int
	Active    int
	Completed int
	OnHold    int
}

// ProjectStats returns project counts.
func (s *Store) ProjectStats() (ProjectStats, error) {
	projects, err := s.Projects()
	if err != nil {
		return ProjectStats{}, err
	}
	stats := ProjectStats{Total: len(projects)}
	for _, p := range projects {
		switch p.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusOnHold:
			stats.OnHold++
		}
	}
	return stats, nil
}
