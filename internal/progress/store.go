package progress

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

// StoreConfig holds dependencies for a Store.
type StoreConfig struct {
	LearnerID string
	Policy    Policy
	Now       func() time.Time // defaults to time.Now
}

type topicKey struct {
	conceptID string
	topicID   string
}

// Store is one learner's progress state. All mutators take an exclusive lock
// for the whole operation, including unlock cascades; queries are pure.
type Store struct {
	learnerID string
	policy    Policy
	now       func() time.Time

	mu               sync.RWMutex
	initialized      bool
	index            *catalog.Index
	progress         map[string]*Record
	videoCounts      map[string]int
	unlockedConcepts map[string]bool
	unlockedRegions  map[string]bool
	unlockedTopics   map[topicKey]bool
	currentRegion    string
	observers        []Observer
}

// NewStore creates an empty, uninitialized store.
func NewStore(cfg StoreConfig) *Store {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		learnerID:        cfg.LearnerID,
		policy:           cfg.Policy,
		now:              now,
		progress:         make(map[string]*Record),
		videoCounts:      make(map[string]int),
		unlockedConcepts: make(map[string]bool),
		unlockedRegions:  make(map[string]bool),
		unlockedTopics:   make(map[topicKey]bool),
	}
}

// LearnerID returns the learner this store belongs to.
func (s *Store) LearnerID() string { return s.learnerID }

// Policy returns the gating policy in effect.
func (s *Store) Policy() Policy { return s.policy }

// Subscribe registers an observer for committed changes.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(slices.Clone(s.observers), o)
}

// Initialize seeds the store with the catalog. Only the first concept and
// the first region (input order) start unlocked. Calling it again is a
// no-op so existing progress is never wiped.
func (s *Store) Initialize(concepts []catalog.Concept, regions []catalog.Region) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		slog.Debug("progress store already initialized", "learner_id", s.learnerID)
		return
	}
	s.seed(concepts, regions)
	s.mu.Unlock()
}

func (s *Store) seed(concepts []catalog.Concept, regions []catalog.Region) {
	s.initialized = true
	s.index = catalog.NewIndex(concepts, regions)
	if len(concepts) > 0 {
		s.unlockedConcepts[concepts[0].ID] = true
	}
	if len(regions) > 0 {
		s.unlockedRegions[regions[0].ID] = true
	}
	for _, c := range concepts {
		if len(c.Topics) > 0 {
			s.unlockedTopics[topicKey{c.ID, c.Topics[0].ID}] = true
		}
	}
}

// Initialized reports whether Initialize or Restore has run.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Catalog returns the index the store was seeded with, or nil.
func (s *Store) Catalog() *catalog.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// MarkVideoWatched records that the learner finished videoID in a subtopic
// of a concept. Marking the same video twice leaves state untouched. It
// reports whether anything changed.
func (s *Store) MarkVideoWatched(conceptID, subtopicID, videoID string) bool {
	s.mu.Lock()
	rec := s.record(conceptID)
	if !rec.markWatched(subtopicID, videoID) {
		s.mu.Unlock()
		return false
	}
	changes := []Change{s.change(Change{
		Kind:       ChangeVideoWatched,
		ConceptID:  conceptID,
		SubtopicID: subtopicID,
		VideoID:    videoID,
	})}
	changes = s.latchTopics(conceptID, changes)
	observers := s.observers
	s.mu.Unlock()

	s.notify(observers, changes)
	return true
}

// RecordSubtopicVideoCount declares the total number of videos in a subtopic.
// Until it is called the subtopic contributes 0%.
func (s *Store) RecordSubtopicVideoCount(subtopicID string, count int) {
	count = max(count, 0)

	s.mu.Lock()
	if old, ok := s.videoCounts[subtopicID]; ok && old == count {
		s.mu.Unlock()
		return
	}

	var owners []string
	if s.index != nil {
		owners = s.index.ConceptsWithSubtopic(subtopicID)
	}
	var changes []Change
	for _, id := range owners {
		changes = s.latchTopics(id, changes)
	}
	s.videoCounts[subtopicID] = count
	changes = append(changes, s.change(Change{
		Kind:       ChangeVideoCountRecorded,
		SubtopicID: subtopicID,
		Count:      count,
	}))
	for _, id := range owners {
		changes = s.latchTopics(id, changes)
	}
	observers := s.observers
	s.mu.Unlock()

	s.notify(observers, changes)
}

// CompleteQuiz stores the quiz result for a concept and runs the unlock
// cascade: the next concept of the region opens, and once every concept of
// the region has a completed quiz the next region opens.
func (s *Store) CompleteQuiz(conceptID string, score int) {
	s.mu.Lock()
	rec := s.record(conceptID)
	at := s.now()
	rec.QuizCompleted = true
	rec.QuizScore = score
	rec.QuizPassed = s.passed(conceptID, score)
	rec.CompletedAt = &at

	changes := []Change{s.change(Change{
		Kind:      ChangeQuizCompleted,
		ConceptID: conceptID,
		Score:     score,
	})}
	changes = s.cascade(conceptID, changes)
	observers := s.observers
	s.mu.Unlock()

	slog.Info("quiz completed",
		"learner_id", s.learnerID,
		"concept_id", conceptID,
		"score", score,
		"unlocks", len(changes)-1,
	)
	s.notify(observers, changes)
}

func (s *Store) passed(conceptID string, score int) bool {
	if s.index == nil {
		return true
	}
	c, ok := s.index.Concept(conceptID)
	if !ok {
		return true
	}
	return score >= c.Quiz.PassingScore
}

// UnlockConcept opens a concept directly. Flags only ever go from locked to unlocked.
func (s *Store) UnlockConcept(conceptID string) {
	s.mu.Lock()
	changes := s.unlockConcept(conceptID, nil)
	observers := s.observers
	s.mu.Unlock()
	s.notify(observers, changes)
}

// UnlockRegion opens a region directly.
func (s *Store) UnlockRegion(regionID string) {
	s.mu.Lock()
	changes := s.unlockRegion(regionID, nil)
	observers := s.observers
	s.mu.Unlock()
	s.notify(observers, changes)
}

// SetCurrentRegion selects the region the learner is browsing. An empty ID clears it.
func (s *Store) SetCurrentRegion(regionID string) {
	s.mu.Lock()
	if s.currentRegion == regionID {
		s.mu.Unlock()
		return
	}
	s.currentRegion = regionID
	changes := []Change{s.change(Change{Kind: ChangeCurrentRegion, RegionID: regionID})}
	observers := s.observers
	s.mu.Unlock()
	s.notify(observers, changes)
}

// CurrentRegion returns the selected region, or "".
func (s *Store) CurrentRegion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRegion
}

// ConceptProgress returns a copy of the concept's record. The second result
// is false when the learner has not interacted with the concept yet.
func (s *Store) ConceptProgress(conceptID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.progress[conceptID]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// SubtopicVideoCount returns the recorded video total and whether it is known.
func (s *Store) SubtopicVideoCount(subtopicID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.videoCounts[subtopicID]
	return n, ok
}

// SubtopicProgress returns the subtopic completion in [0, 100].
func (s *Store) SubtopicProgress(conceptID, subtopicID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subtopicPercent(conceptID, subtopicID)
}

// TopicProgress returns the rounded mean of the topic's subtopic percentages.
func (s *Store) TopicProgress(conceptID, topicID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	t, _, ok := s.index.Topic(conceptID, topicID)
	if !ok {
		return 0
	}
	return s.topicPercent(conceptID, t)
}

// ConceptCompletion returns the rounded mean of the concept's topic percentages.
func (s *Store) ConceptCompletion(conceptID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conceptPercent(conceptID)
}

// RegionProgress returns the share of the region's concepts whose quiz is done.
func (s *Store) RegionProgress(regionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	members := s.index.ConceptsInRegion(regionID)
	done := 0
	for _, id := range members {
		if rec := s.progress[id]; rec != nil && rec.QuizCompleted {
			done++
		}
	}
	return Percent(done, len(members))
}

// IsConceptUnlocked reports whether the learner may open a concept.
func (s *Store) IsConceptUnlocked(conceptID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlockedConcepts[conceptID]
}

// IsRegionUnlocked reports whether the learner may enter a region.
func (s *Store) IsRegionUnlocked(regionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlockedRegions[regionID]
}

// IsTopicUnlocked reports whether a topic may be studied: the first topic
// always, any other once the previous topic reached the unlock threshold.
// Unknown topics are locked.
func (s *Store) IsTopicUnlocked(conceptID, topicID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return false
	}
	concept, ok := s.index.Concept(conceptID)
	if !ok {
		return false
	}
	_, i, ok := s.index.Topic(conceptID, topicID)
	if !ok {
		return false
	}
	return s.topicUnlocked(concept, i)
}

// topicUnlocked evaluates the gate of concept.Topics[i]. Caller holds s.mu.
func (s *Store) topicUnlocked(concept catalog.Concept, i int) bool {
	if s.unlockedTopics[topicKey{concept.ID, concept.Topics[i].ID}] {
		return true
	}
	prev := 0
	if i > 0 {
		prev = s.topicPercent(concept.ID, concept.Topics[i-1])
	}
	return s.policy.TopicUnlocked(i, prev)
}

// IsConceptCompleted reports whether the concept's quiz has been completed.
func (s *Store) IsConceptCompleted(conceptID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.progress[conceptID]
	return rec != nil && rec.QuizCompleted
}

// IsQuizAvailable reports whether the concept is complete enough to take its quiz.
func (s *Store) IsQuizAvailable(conceptID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy.QuizAvailable(s.conceptPercent(conceptID))
}

// record returns the concept's record, creating it on first use. Caller holds s.mu.
func (s *Store) record(conceptID string) *Record {
	rec, ok := s.progress[conceptID]
	if !ok {
		rec = newRecord(conceptID)
		s.progress[conceptID] = rec
	}
	return rec
}

func (s *Store) subtopicPercent(conceptID, subtopicID string) int {
	total, ok := s.videoCounts[subtopicID]
	if !ok {
		return 0
	}
	return Percent(s.progress[conceptID].WatchedIn(subtopicID), total)
}

func (s *Store) topicPercent(conceptID string, t catalog.Topic) int {
	values := make([]int, 0, len(t.Subtopics))
	for _, st := range t.Subtopics {
		values = append(values, s.subtopicPercent(conceptID, st.ID))
	}
	return Average(values)
}

func (s *Store) conceptPercent(conceptID string) int {
	if s.index == nil {
		return 0
	}
	c, ok := s.index.Concept(conceptID)
	if !ok {
		return 0
	}
	values := make([]int, 0, len(c.Topics))
	for _, t := range c.Topics {
		values = append(values, s.topicPercent(conceptID, t))
	}
	return Average(values)
}

func (s *Store) change(c Change) Change {
	c.LearnerID = s.learnerID
	c.At = s.now()
	return c
}

func (s *Store) notify(observers []Observer, changes []Change) {
	for _, c := range changes {
		switch c.Kind {
		case ChangeConceptUnlocked, ChangeRegionUnlocked, ChangeTopicUnlocked:
			slog.Info("unlocked",
				"learner_id", s.learnerID,
				"kind", c.Kind,
				"concept_id", c.ConceptID,
				"topic_id", c.TopicID,
				"region_id", c.RegionID,
			)
		}
		for _, o := range observers {
			o.Notify(c)
		}
	}
}
