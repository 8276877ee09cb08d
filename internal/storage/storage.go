package storage

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/pkg/logger"
)

var (
	bucketName = []byte("snapshots")
	latestKey  = []byte("latest")
)

// BoltSnapshotter keeps the last search result under a single key of a BBolt
// database. Each Save overwrites the previous snapshot.
type BoltSnapshotter struct {
	db *bbolt.DB
}

// NewBoltSnapshotter opens (or creates) the database at path
func NewBoltSnapshotter(path string) (*BoltSnapshotter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	// Create bucket if not exists
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot bucket: %w", err)
	}

	logger.Info("snapshot store initialized", zap.String("backend", "bolt"), zap.String("path", path))
	return &BoltSnapshotter{db: db}, nil
}

// Save replaces the stored snapshot with result
func (s *BoltSnapshotter) Save(result models.AggregatedResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(latestKey, data)
	})
}

// Latest returns the stored snapshot and true, or false if none was saved
func (s *BoltSnapshotter) Latest() (models.AggregatedResult, bool) {
	var result models.AggregatedResult
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get(latestKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &result)
	})

	if err != nil || !found {
		return models.AggregatedResult{}, false
	}
	return result, true
}

// Close closes the database connection
func (s *BoltSnapshotter) Close() error {
	return s.db.Close()
}
