package store

import (
	"fmt"
	"slices"
	"strings"

	"lifecal/internal/models"
)

// fileData is the document stored under KeyFiles.
type fileData struct {
	Files   []models.File   `json:"files"`
	Folders []models.Folder `json:"folders"`
}

// FileStats summarizes the file collection.
type FileStats struct {
	TotalFiles   int   `json:"totalFiles"`
	TotalSize    int64 `json:"totalSize"`
	TotalFolders int   `json:"totalFolders"`
}

// Files returns all files in upload order.
func (s *Store) Files() ([]models.File, error) {
	doc, err := load[fileData](s, KeyFiles)
	return doc.Files, err
}

// Folders returns all folders.
func (s *Store) Folders() ([]models.Folder, error) {
	doc, err := load[fileData](s, KeyFiles)
	return doc.Folders, err
}

// AddFile records a file. A file placed in a folder is listed by it too.
func (s *Store) AddFile(f models.File) (models.File, error) {
	if strings.TrimSpace(f.Name) == "" {
		return models.File{}, fmt.Errorf("file name is required")
	}
	if f.Size < 0 {
		return models.File{}, fmt.Errorf("file size must not be negative")
	}
	f.ID = s.newID()
	f.UploadedAt = s.now()
	if f.Type == "" {
		f.Type = "unknown"
	}
	err := mutate(s, KeyFiles, func(doc *fileData) error {
		if f.FolderID != "" {
			i := slices.IndexFunc(doc.Folders, func(x models.Folder) bool { return x.ID == f.FolderID })
			if i < 0 {
				return fmt.Errorf("folder %s: %w", f.FolderID, ErrNotFound)
			}
			doc.Folders[i].Files = append(doc.Folders[i].Files, f.ID)
		}
		doc.Files = append(doc.Files, f)
		return nil
	})
	return f, err
}

// DeleteFile deletes a file and drops it from its folder.
func (s *Store) DeleteFile(id string) error {
	return mutate(s, KeyFiles, func(doc *fileData) error {
		n := len(doc.Files)
		doc.Files = slices.DeleteFunc(doc.Files, func(x models.File) bool { return x.ID == id })
		if len(doc.Files) == n {
			return fmt.Errorf("file %s: %w", id, ErrNotFound)
		}
		for i := range doc.Folders {
			doc.Folders[i].Files = slices.DeleteFunc(doc.Folders[i].Files, func(x string) bool { return x == id })
		}
		return nil
	})
}

// AddFolder stores a new, empty folder.
func (s *Store) AddFolder(folder models.Folder) (models.Folder, error) {
	if strings.TrimSpace(folder.Name) == "" {
		return models.Folder{}, fmt.Errorf("folder name is required")
	}
	folder.ID = s.newID()
	folder.CreatedAt = s.now()
	folder.Files = []string{}
	err := mutate(s, KeyFiles, func(doc *fileData) error {
		doc.Folders = append(doc.Folders, folder)
		return nil
	})
	return folder, err
}

// FileStats counts files and folders and sums the file sizes.
func (s *Store) FileStats() (FileStats, error) {
	doc, err := load[fileData](s, KeyFiles)
	if err != nil {
		return FileStats{}, err
	}
	stats := FileStats{TotalFiles: len(doc.Files), TotalFolders: len(doc.Folders)}
	for _, f := range doc.Files {
		stats.TotalSize += f.Size
	}
	return stats, nil
}
