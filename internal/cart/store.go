package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileStore persists cart lines as a JSON document, the same shape the web
// client keeps in local storage.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]Line, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Line{}, nil
		}
		return nil, fmt.Errorf("failed to read cart file: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart file: %w", err)
	}
	return lines, nil
}

func (s *FileStore) Save(lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	return nil
}

// MemoryStore keeps cart state in memory.
type MemoryStore struct {
	lines []Line
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() ([]Line, error) {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out, nil
}

func (s *MemoryStore) Save(lines []Line) error {
	s.lines = make([]Line, len(lines))
	copy(s.lines, lines)
	return nil
}
