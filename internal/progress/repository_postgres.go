package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresRepository stores snapshots as JSONB rows in learner_progress.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL-backed repository.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Load(ctx context.Context, learnerID string) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var data []byte
	var version string
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot, catalog_version
		 FROM learner_progress
		 WHERE learner_id = $1`,
		learnerID,
	).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("learner %s: %w", learnerID, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("load progress: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode progress snapshot: %w", err)
	}
	snap.LearnerID = learnerID
	snap.CatalogVersion = version
	return snap, nil
}

func (r *PostgresRepository) Save(ctx context.Context, snap Snapshot) error {
	if snap.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal progress snapshot: %w", err)
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = r.pool.Exec(ctx,
		`INSERT INTO learner_progress (learner_id, catalog_version, snapshot, updated_at)
		 VALUES ($1, $2, $3::jsonb, $4)
		 ON CONFLICT (learner_id) DO UPDATE
		 SET catalog_version = EXCLUDED.catalog_version,
		     snapshot = EXCLUDED.snapshot,
		     updated_at = EXCLUDED.updated_at`,
		snap.LearnerID,
		snap.CatalogVersion,
		string(data),
		savedAt,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
