package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by repositories when a learner has no saved progress.
var ErrNotFound = errors.New("progress snapshot not found")

// Repository persists learner snapshots.
type Repository interface {
	Load(ctx context.Context, learnerID string) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	snapshots map[string]Snapshot
	mu        sync.RWMutex
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		snapshots: make(map[string]Snapshot),
	}
}

func (r *MemoryRepository) Load(_ context.Context, learnerID string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.snapshots[learnerID]
	if !ok {
		return Snapshot{}, fmt.Errorf("learner %s: %w", learnerID, ErrNotFound)
	}
	return snap.Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, snap Snapshot) error {
	if snap.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snap.LearnerID] = snap.Clone()
	return nil
}
