package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"lifecal/internal/models"
)

// Measurement is a dated health reading such as a step count or a weight.
type Measurement struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// healthData is the document stored under KeyHealth.
type healthData struct {
	Steps  []Measurement       `json:"steps"`
	Weight []Measurement       `json:"weight"`
	Goals  []models.HealthGoal `json:"goals"`
}

// Goals returns all health goals.
func (s *Store) Goals() ([]models.HealthGoal, error) {
	doc, err := load[healthData](s, KeyHealth)
	return doc.Goals, err
}

// AddGoal stores a new goal. Goals without a status start active.
func (s *Store) AddGoal(g models.HealthGoal) (models.HealthGoal, error) {
	if strings.TrimSpace(g.Title) == "" {
		return models.HealthGoal{}, fmt.Errorf("goal title is required")
	}
	g.ID = s.newID()
	g.CreatedAt = s.now()
	g.Progress = 0
	if g.Status == "" {
		g.Status = models.StatusActive
	}
	err := mutate(s, KeyHealth, func(doc *healthData) error {
		doc.Goals = append(doc.Goals, g)
		return nil
	})
	return g, err
}

// UpdateGoal replaces the goal with the same ID.
func (s *Store) UpdateGoal(g models.HealthGoal) error {
	return mutate(s, KeyHealth, func(doc *healthData) error {
		i := slices.IndexFunc(doc.Goals, func(x models.HealthGoal) bool { return x.ID == g.ID })
		if i < 0 {
			return fmt.Errorf("goal %s: %w", g.ID, ErrNotFound)
		}
		doc.Goals[i] = g
		return nil
	})
}

// DeleteGoal deletes a goal.
func (s *Store) DeleteGoal(id string) error {
	return mutate(s, KeyHealth, func(doc *healthData) error {
		n := len(doc.Goals)
		doc.Goals = slices.DeleteFunc(doc.Goals, func(x models.HealthGoal) bool { return x.ID == id })
		if len(doc.Goals) == n {
			return fmt.Errorf("goal %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// AddSteps records a step count.
func (s *Store) AddSteps(m Measurement) error {
	return mutate(s, KeyHealth, func(doc *healthData) error {
		doc.Steps = append(doc.Steps, m)
		return nil
	})
}

// AddWeight records a weight reading.
func (s *Store) AddWeight(m Measurement) error {
	return mutate(s, KeyHealth, func(doc *healthData) error {
		doc.Weight = append(doc.Weight, m)
		return nil
	})
}

// HealthStats summarizes the health log as of now.
type HealthStats struct {
	TodaySteps    float64
	CurrentWeight float64
	ActiveGoals   int
	TotalGoals    int
}

// HealthStats returns today's steps, the latest weight and goal counts.
func (s *Store) HealthStats() (HealthStats, error) {
	doc, err := load[healthData](s, KeyHealth)
	if err != nil {
		return HealthStats{}, err
	}
	var stats HealthStats
	now := s.now()
	y, m, d := now.Date()
	for _, st := range doc.Steps {
		sy, sm, sd := st.Date.In(now.Location()).Date()
		if sy == y && sm == m && sd == d {
			stats.TodaySteps = st.Value
			break
		}
	}
	if n := len(doc.Weight); n > 0 {
		stats.CurrentWeight = doc.Weight[n-1].Value
	}
	stats.TotalGoals = len(doc.Goals)
	for _, g := range doc.Goals {
		if g.Status == models.StatusActive {
			stats.ActiveGoals++
		}
	}
	return stats, nil
}
