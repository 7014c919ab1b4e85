package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

// ManagerConfig holds dependencies for the session manager.
type ManagerConfig struct {
	Catalog    *catalog.Catalog
	Repository Repository // defaults to an in-memory repository
	Policy     Policy
	Observers  []Observer
	Now        func() time.Time
}

// Session is a learner's live progress store.
type Session struct {
	ID        string
	LearnerID string
	Store     *Store
	StartedAt time.Time
}

// Manager hands out one Store per learner, restoring saved progress on first
// use and saving it back on request. Video counts are content facts shared by
// every learner; the manager keeps them and feeds them to each session.
type Manager struct {
	catalog   *catalog.Catalog
	version   string
	repo      Repository
	policy    Policy
	observers []Observer
	now       func() time.Time

	countMu sync.Mutex // serializes RecordSubtopicVideoCount

	mu          sync.Mutex
	sessions    map[string]*Session
	videoCounts map[string]int
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	cat := cfg.Catalog
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	repo := cfg.Repository
	if repo == nil {
		repo = NewMemoryRepository()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		catalog:     cat,
		version:     catalog.Fingerprint(cat),
		repo:        repo,
		policy:      cfg.Policy,
		observers:   slices.Clone(cfg.Observers),
		now:         now,
		sessions:    make(map[string]*Session),
		videoCounts: make(map[string]int),
	}
}

// Catalog returns the catalog sessions are seeded with.
func (m *Manager) Catalog() *catalog.Catalog { return m.catalog }

// Session returns the learner's live session, creating it from saved
// progress or a fresh seed on first use.
func (m *Manager) Session(ctx context.Context, learnerID string) (*Session, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner_id is required")
	}

	if sess, ok := m.liveSession(learnerID); ok {
		return sess, nil
	}

	// m.mu is not held across the repository load.
	store := NewStore(StoreConfig{LearnerID: learnerID, Policy: m.policy, Now: m.now})
	snap, err := m.repo.Load(ctx, learnerID)
	switch {
	case err == nil:
		if snap.CatalogVersion != "" && snap.CatalogVersion != m.version {
			slog.Warn("restoring progress saved against a different catalog",
				"learner_id", learnerID,
				"saved_version", snap.CatalogVersion,
				"current_version", m.version,
			)
		}
		store.Restore(m.catalog.Concepts, m.catalog.Regions, snap)
	case errors.Is(err, ErrNotFound):
		store.Initialize(m.catalog.Concepts, m.catalog.Regions)
	default:
		return nil, fmt.Errorf("loading progress for %s: %w", learnerID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A concurrent request for the same learner may have won the race.
	if sess, ok := m.sessions[learnerID]; ok {
		return sess, nil
	}

	for id, n := range m.videoCounts {
		store.RecordSubtopicVideoCount(id, n)
	}
	for _, o := range m.observers {
		store.Subscribe(o)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		Store:     store,
		StartedAt: m.now(),
	}
	m.sessions[learnerID] = sess

	slog.Info("progress session started", "learner_id", learnerID, "session_id", sess.ID)
	return sess, nil
}

func (m *Manager) liveSession(learnerID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[learnerID]
	return sess, ok
}

// Save persists the learner's live session.
func (m *Manager) Save(ctx context.Context, learnerID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[learnerID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no live session for learner %s", learnerID)
	}

	snap := sess.Store.Snapshot()
	snap.CatalogVersion = m.version
	if err := m.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving progress for %s: %w", learnerID, err)
	}
	return nil
}

// End saves and drops the learner's live session.
func (m *Manager) End(ctx context.Context, learnerID string) error {
	if err := m.Save(ctx, learnerID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, learnerID)
	m.mu.Unlock()
	return nil
}

// RecordSubtopicVideoCount is the content-count callback: it stores the
// count and forwards it to every live session. Calls are serialized so live
// sessions end up with the same count the manager keeps.
func (m *Manager) RecordSubtopicVideoCount(subtopicID string, count int) {
	m.countMu.Lock()
	defer m.countMu.Unlock()

	m.mu.Lock()
	m.videoCounts[subtopicID] = max(count, 0)
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.Store.RecordSubtopicVideoCount(subtopicID, max(count, 0))
	}
	slog.Debug("subtopic video count recorded", "subtopic_id", subtopicID, "count", count, "sessions", len(live))
}

// VideoCounts returns a copy of the known subtopic video counts.
func (m *Manager) VideoCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.videoCounts)
}

// ActiveLearners returns the IDs of learners with a live session.
func (m *Manager) ActiveLearners() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.sessions))
}
