package progress_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/progress"
)

func newTestManager(t *testing.T, repo progress.Repository, observers ...progress.Observer) *progress.Manager {
	t.Helper()
	concepts, regions := testCatalog()
	return progress.NewManager(progress.ManagerConfig{
		Catalog:    &catalog.Catalog{Concepts: concepts, Regions: regions},
		Repository: repo,
		Observers:  observers,
	})
}

func TestManager_Session_SeedsNewLearner(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Session(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sess.ID == "" {
		t.Error("session ID should be set")
	}
	if !sess.Store.IsConceptUnlocked("m1") {
		t.Error("new session should have the first concept unlocked")
	}

	again, _ := m.Session(context.Background(), "alice")
	if again != sess {
		t.Error("Session() should return the live session on repeat calls")
	}
}

func TestManager_Session_EmptyLearner(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.Session(context.Background(), ""); err == nil {
		t.Error("Session() should reject an empty learner ID")
	}
}

func TestManager_SaveAndRestore(t *testing.T) {
	repo := progress.NewMemoryRepository()
	ctx := context.Background()

	first := newTestManager(t, repo)
	first.RecordSubtopicVideoCount("m1-s1", 2)
	sess, _ := first.Session(ctx, "bob")
	sess.Store.MarkVideoWatched("m1", "m1-s1", "v1")
	sess.Store.CompleteQuiz("m1", 88)
	sess.Store.SetCurrentRegion("meadow")
	if err := first.Save(ctx, "bob"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	saved, err := repo.Load(ctx, "bob")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.CatalogVersion == "" {
		t.Error("saved snapshot should carry the catalog version")
	}

	// A fresh process restores from the repository.
	second := newTestManager(t, repo)
	restored, err := second.Session(ctx, "bob")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !restored.Store.IsConceptCompleted("m1") {
		t.Error("restored session lost quiz completion")
	}
	if !restored.Store.IsConceptUnlocked("m2") {
		t.Error("restored session lost cascade unlock")
	}
	if got := restored.Store.SubtopicProgress("m1", "m1-s1"); got != 50 {
		t.Errorf("SubtopicProgress = %d, want 50", got)
	}
	if restored.Store.CurrentRegion() != "meadow" {
		t.Errorf("CurrentRegion = %q, want meadow", restored.Store.CurrentRegion())
	}
}

func TestManager_Save_NoSession(t *testing.T) {
	m := newTestManager(t, nil)
	if err := m.Save(context.Background(), "nobody"); err == nil {
		t.Error("Save() should error without a live session")
	}
}

func TestManager_RecordSubtopicVideoCount_FansOut(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	a, _ := m.Session(ctx, "a")
	b, _ := m.Session(ctx, "b")
	a.Store.MarkVideoWatched("m1", "m1-s1", "v1")
	b.Store.MarkVideoWatched("m1", "m1-s1", "v1")

	m.RecordSubtopicVideoCount("m1-s1", 4)

	for _, s := range []*progress.Session{a, b} {
		if got := s.Store.SubtopicProgress("m1", "m1-s1"); got != 25 {
			t.Errorf("%s: SubtopicProgress = %d, want 25", s.LearnerID, got)
		}
	}

	// Sessions started later get the known counts too.
	c, _ := m.Session(ctx, "c")
	if n, ok := c.Store.SubtopicVideoCount("m1-s1"); !ok || n != 4 {
		t.Errorf("late session count = %d, %v; want 4, true", n, ok)
	}
	if got := m.VideoCounts()["m1-s1"]; got != 4 {
		t.Errorf("VideoCounts()[m1-s1] = %d, want 4", got)
	}
}

func TestManager_ObserversAttached(t *testing.T) {
	events := progress.NewMemoryEventLogger()
	m := newTestManager(t, nil, progress.EventObserver{Logger: events})

	sess, _ := m.Session(context.Background(), "carol")
	sess.Store.CompleteQuiz("m1", 70)

	got := events.Events()
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].EventType != "quiz_completed" || got[0].LearnerID != "carol" {
		t.Errorf("event[0] = %+v", got[0])
	}
	if got[0].Data["score"] != 70 {
		t.Errorf("event[0].Data[score] = %v, want 70", got[0].Data["score"])
	}
	if got[1].EventType != "concept_unlocked" || got[1].Data["concept_id"] != "m2" {
		t.Errorf("event[1] = %+v", got[1])
	}
}

func TestManager_End(t *testing.T) {
	repo := progress.NewMemoryRepository()
	m := newTestManager(t, repo)
	ctx := context.Background()

	_, _ = m.Session(ctx, "dave")
	if err := m.End(ctx, "dave"); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if len(m.ActiveLearners()) != 0 {
		t.Errorf("ActiveLearners = %v, want none", m.ActiveLearners())
	}
	if _, err := repo.Load(ctx, "dave"); err != nil {
		t.Errorf("End() should have saved progress: %v", err)
	}
}

type failingRepo struct{}

func (failingRepo) Load(context.Context, string) (progress.Snapshot, error) {
	return progress.Snapshot{}, errors.New("db down")
}

func (failingRepo) Save(context.Context, progress.Snapshot) error {
	return errors.New("db down")
}

func TestManager_Session_RepositoryError(t *testing.T) {
	m := newTestManager(t, failingRepo{})
	if _, err := m.Session(context.Background(), "erin"); err == nil {
		t.Error("Session() should surface repository errors")
	}
}

// slowRepo blocks loads of one learner until release is closed.
type slowRepo struct {
	*progress.MemoryRepository
	slow    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *slowRepo) Load(ctx context.Context, learnerID string) (progress.Snapshot, error) {
	if learnerID == r.slow {
		r.once.Do(func() { close(r.started) })
		<-r.release
	}
	return r.MemoryRepository.Load(ctx, learnerID)
}

func TestManager_Session_SlowLoadDoesNotBlockOthers(t *testing.T) {
	repo := &slowRepo{
		MemoryRepository: progress.NewMemoryRepository(),
		slow:             "slow",
		started:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	m := newTestManager(t, repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	sessions := make([]*progress.Session, 2)
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := m.Session(ctx, "slow")
			if err != nil {
				t.Errorf("Session(slow) error = %v", err)
				return
			}
			sessions[i] = sess
		}()
	}
	<-repo.started

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := m.Session(ctx, "fast"); err != nil {
			t.Errorf("Session(fast) error = %v", err)
		}
		m.RecordSubtopicVideoCount("m1-s1", 3)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("a slow load for one learner blocked another learner")
	}

	close(repo.release)
	wg.Wait()
	if sessions[0] == nil || sessions[0] != sessions[1] {
		t.Fatalf("concurrent Session(slow) calls returned different sessions")
	}
	if n, ok := sessions[0].Store.SubtopicVideoCount("m1-s1"); !ok || n != 3 {
		t.Errorf("slow session count = %d, %v; want 3, true", n, ok)
	}
}

func TestManager_RecordSubtopicVideoCount_Concurrent(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()
	learners := []string{"a", "b", "c"}
	for _, id := range learners {
		if _, err := m.Session(ctx, id); err != nil {
			t.Fatalf("Session(%s) error = %v", id, err)
		}
	}

	var wg sync.WaitGroup
	for n := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordSubtopicVideoCount("m1-s1", n)
		}()
	}
	wg.Wait()

	want := m.VideoCounts()["m1-s1"]
	for _, id := range learners {
		sess, _ := m.Session(ctx, id)
		if got, _ := sess.Store.SubtopicVideoCount("m1-s1"); got != want {
			t.Errorf("%s: count = %d, manager has %d", id, got, want)
		}
	}
}
