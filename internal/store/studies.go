package store

import (
	"fmt"
	"slices"
	"strings"

	"lifecal/internal/models"
)

// bibleData is the document stored under KeyBible.
type bibleData struct {
	Studies []models.Study `json:"studies"`
}

// Studies returns all Bible studies in creation order.
func (s *Store) Studies() ([]models.Study, error) {
	doc, err := load[bibleData](s, KeyBible)
	return doc.Studies, err
}

// AddStudy stores a new study.
func (s *Store) AddStudy(st models.Study) (models.Study, error) {
	if strings.TrimSpace(st.Title) == "" {
		return models.Study{}, fmt.Errorf("study title is required")
	}
	now := s.now()
	st.ID = s.newID()
	st.CreatedAt = now
	st.LastModified = now
	err := mutate(s, KeyBible, func(doc *bibleData) error {
		doc.Studies = append(doc.Studies, st)
		return nil
	})
	return st, err
}

// UpdateStudy replaces the study with the same ID and bumps LastModified.
func (s *Store) UpdateStudy(st models.Study) error {
	st.LastModified = s.now()
	return mutate(s, KeyBible, func(doc *bibleData) error {
		i := slices.IndexFunc(doc.Studies, func(x models.Study) bool { return x.ID == st.ID })
		if i < 0 {
			return fmt.Errorf("study %s: %w", st.ID, ErrNotFound)
		}
		doc.Studies[i] = st
		return nil
	})
}

// DeleteStudy deletes a study.
func (s *Store) DeleteStudy(id string) error {
	return mutate(s, KeyBible, func(doc *bibleData) error {
		n := len(doc.Studies)
		doc.Studies = slices.DeleteFunc(doc.Studies, func(x models.Study) bool { return x.ID == id })
		if len(doc.Studies) == n {
			return fmt.Errorf("study %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
