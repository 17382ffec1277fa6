package models

import "time"

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status values shared by projects and health goals.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusOnHold    = "on-hold"
)

// Task is a to-do item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Project groups work towards a deadline.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"` // active, completed, on-hold
	Deadline    *time.Time `json:"deadline,omitempty"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Study is a Bible-study note.
type Study struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Passage      string    `json:"passage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

// HealthGoal is a fitness or wellbeing target.
type HealthGoal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Target      string     `json:"target,omitempty"`
	Category    string     `json:"category,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      string     `json:"status"` // active, completed
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// File is metadata for a stored document. Contents live elsewhere.
type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	FolderID   string    `json:"folderId,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Folder groups files by ID.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"createdAt"`
}
