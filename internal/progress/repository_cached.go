package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix  = "progress:snapshot:"
	defaultSnapshotTTL = 30 * time.Minute
)

// CachedRepository puts a Redis/Dragonfly read-through cache in front of
// another repository. Cache failures are logged and fall through to the
// backing repository.
type CachedRepository struct {
	next   Repository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedRepository wraps next with a cache. A zero ttl uses 30 minutes.
func NewCachedRepository(next Repository, client *redis.Client, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &CachedRepository{next: next, client: client, ttl: ttl}
}

func (r *CachedRepository) Load(ctx context.Context, learnerID string) (Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKeyPrefix+learnerID).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if jsonErr := json.Unmarshal(data, &snap); jsonErr == nil {
			return snap, nil
		}
		slog.Warn("discarding undecodable cached snapshot", "learner_id", learnerID)
	case !errors.Is(err, redis.Nil):
		slog.Warn("progress cache read failed", "learner_id", learnerID, "error", err)
	}

	snap, err := r.next.Load(ctx, learnerID)
	if err != nil {
		return Snapshot{}, err
	}
	r.put(ctx, snap)
	return snap, nil
}

func (r *CachedRepository) Save(ctx context.Context, snap Snapshot) error {
	if err := r.next.Save(ctx, snap); err != nil {
		return fmt.Errorf("save through cache: %w", err)
	}
	r.put(ctx, snap)
	return nil
}

func (r *CachedRepository) put(ctx context.Context, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, snapshotKeyPrefix+snap.LearnerID, data, r.ttl).Err(); err != nil {
		slog.Warn("progress cache write failed", "learner_id", snap.LearnerID, "error", err)
	}
}
