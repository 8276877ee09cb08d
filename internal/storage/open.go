package storage

import (
	"fmt"

	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/internal/models"
)

// SnapshotStore is a snapshot backend that can be closed on shutdown
type SnapshotStore interface {
	Save(result models.AggregatedResult) error
	Latest() (models.AggregatedResult, bool)
	Close() error
}

// Open returns the backend selected by cfg.Backend. "none" yields a store
// that discards every snapshot.
func Open(cfg config.SnapshotConfig) (SnapshotStore, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileSnapshotter(cfg.Path), nil
	case "bolt":
		return NewBoltSnapshotter(cfg.Path)
	case "none":
		return discard{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

type discard struct{}

func (discard) Save(models.AggregatedResult) error { return nil }

func (discard) Latest() (models.AggregatedResult, bool) { return models.AggregatedResult{}, false }

func (discard) Close() error { return nil }
