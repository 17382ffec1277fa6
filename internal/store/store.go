package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Storage keys. Each key holds one JSON document.
const (
	KeyTasks            = "tasks"
	KeyProjects         = "projects"
	KeyBible            = "bibleData"
	KeyHealth           = "healthData"
	KeyCalendar         = "calendarData"
	KeyCalendarSettings = "calendarSettings"
	KeyFiles            = "files"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Store is a local key/value document store. Every domain collection is
// loaded and saved as a whole under its key.
type Store struct {
	db *sql.DB

	// mu serializes read-modify-write cycles on collections.
	mu        sync.Mutex
	observers []func(key string)

	now   func() time.Time
	newID func() string
}

// Open opens (or creates) the store at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps in-memory databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, now: time.Now, newID: uuid.NewString}, nil
}

// DefaultPath returns the path to the store file under the XDG data directory.
func DefaultPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	appDir := filepath.Join(dataDir, "lifecal")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(appDir, "lifecal.db"), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnChange registers fn to be called after a domain collection is modified.
// It is not called for the calendar's own keys.
func (s *Store) OnChange(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Load decodes the document stored under key into v. It reports false when
// the key has never been written.
func (s *Store) Load(key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM storage WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Save replaces the document stored under key.
func (s *Store) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(data))
	return err
}

// Keys lists the keys currently stored.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM storage ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// mutate loads the collection under key, applies fn and saves the result,
// then notifies observers.
func mutate[T any](s *Store, key string, fn func(*T) error) error {
	s.mu.Lock()
	var doc T
	if _, err := s.Load(key, &doc); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := fn(&doc); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.Save(key, doc); err != nil {
		s.mu.Unlock()
		return err
	}
	observers := append([]func(string){}, s.observers...)
	s.mu.Unlock()

	for _, notify := range observers {
		notify(key)
	}
	return nil
}

func load[T any](s *Store, key string) (T, error) {
	var doc T
	_, err := s.Load(key, &doc)
	return doc, err
}
