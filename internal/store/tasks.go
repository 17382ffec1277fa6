package store

import (
	"fmt"
	"slices"
	"strings"

	"lifecal/internal/models"
)

// Tasks returns all tasks in insertion order.
func (s *Store) Tasks() ([]models.Task, error) {
	return load[[]models.Task](s, KeyTasks)
}

// Task retrieves a task by ID.
func (s *Store) Task(id string) (models.Task, error) {
	tasks, err := s.Tasks()
	if err != nil {
		return models.Task{}, err
	}
	i := slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == id })
	if i < 0 {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return tasks[i], nil
}

// AddTask stores a new, open task and returns it with its ID assigned.
func (s *Store) AddTask(t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title is required")
	}
	t.ID = s.newID()
	t.CreatedAt = s.now()
	t.Completed = false
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	err := mutate(s, KeyTasks, func(tasks *[]models.Task) error {
		*tasks = append(*tasks, t)
		return nil
	})
	return t, err
}

// UpdateTask replaces the task with the same ID.
func (s *Store) UpdateTask(t models.Task) error {
	return mutate(s, KeyTasks, func(tasks *[]models.Task) error {
		i := slices.IndexFunc(*tasks, func(x models.Task) bool { return x.ID == t.ID })
		if i < 0 {
			return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
		}
		(*tasks)[i] = t
		return nil
	})
}

// ToggleTask flips the completed flag of a task.
func (s *Store) ToggleTask(id string) (models.Task, error) {
	var out models.Task
	err := mutate(s, KeyTasks, func(tasks *[]models.Task) error {
		i := slices.IndexFunc(*tasks, func(x models.Task) bool { return x.ID == id })
		if i < 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		(*tasks)[i].Completed = !(*tasks)[i].Completed
		out = (*tasks)[i]
		return nil
	})
	return out, err
}

// DeleteTask deletes a task.
func (s *Store) DeleteTask(id string) error {
	return mutate(s, KeyTasks, func(tasks *[]models.Task) error {
		n := len(*tasks)
		*tasks = slices.DeleteFunc(*tasks, func(x models.Task) bool { return x.ID == id })
		if len(*tasks) == n {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
