package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"taskie/backend/internal/models"
)

// Store persists full collections to single JSON files. It is the degraded
// tier behind the remote store: reads never fail (missing or corrupt data is
// an empty collection) and writes are unconditional full overwrites.
type Store struct {
	tasksPath   string
	membersPath string
}

func New(tasksPath, membersPath string) *Store {
	return &Store{tasksPath: tasksPath, membersPath: membersPath}
}

// ReadTasks returns the persisted records, or an empty slice when the file is
// missing or unparsable. Corruption is treated as "no tasks", not an error.
func (s *Store) ReadTasks() []models.TaskRecord {
	var records []models.TaskRecord
	readCollection(s.tasksPath, &records)
	if records == nil {
		records = []models.TaskRecord{}
	}
	return records
}

// WriteTasks overwrites the whole file with the given collection.
func (s *Store) WriteTasks(records []models.TaskRecord) error {
	return writeCollection(s.tasksPath, records)
}

func (s *Store) ReadMembers() []models.TeamMember {
	var members []models.TeamMember
	readCollection(s.membersPath, &members)
	if members == nil {
		members = []models.TeamMember{}
	}
	return members
}

func (s *Store) WriteMembers(members []models.TeamMember) error {
	return writeCollection(s.membersPath, members)
}

func readCollection(path string, dest interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// Unparsable cache reads as empty rather than surfacing a hard error.
		return
	}
}

func writeCollection(path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".taskie-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace collection file: %w", err)
	}

	return nil
}
