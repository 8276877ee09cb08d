package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/pkg/logger"
)

// FileSnapshotter writes the last search result as an indented JSON document
// at a fixed path. Writes go through a temp file and a rename so readers
// never see a half-written snapshot.
type FileSnapshotter struct {
	path string
	mu   sync.Mutex
}

// NewFileSnapshotter creates a snapshotter writing to path
func NewFileSnapshotter(path string) *FileSnapshotter {
	logger.Info("snapshot store initialized", zap.String("backend", "file"), zap.String("path", path))
	return &FileSnapshotter{path: path}
}

// Save overwrites the snapshot file with result
func (s *FileSnapshotter) Save(result models.AggregatedResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(s.path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Latest reads the snapshot file back
func (s *FileSnapshotter) Latest() (models.AggregatedResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.AggregatedResult{}, false
	}

	var result models.AggregatedResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.AggregatedResult{}, false
	}
	return result, true
}

// Close is a no-op; the file is closed after every write
func (s *FileSnapshotter) Close() error {
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	return nil
}
