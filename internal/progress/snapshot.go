package progress

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

// TopicRef identifies a topic within a concept.
type TopicRef struct {
	ConceptID string `json:"concept_id"`
	TopicID   string `json:"topic_id"`
}

// Snapshot is a serialisable copy of a store's facts and unlock flags.
type Snapshot struct {
	LearnerID        string            `json:"learner_id"`
	CatalogVersion   string            `json:"catalog_version,omitempty"`
	Progress         map[string]Record `json:"progress"`
	VideoCounts      map[string]int    `json:"video_counts"`
	UnlockedConcepts []string          `json:"unlocked_concepts"`
	UnlockedRegions  []string          `json:"unlocked_regions"`
	UnlockedTopics   []TopicRef        `json:"unlocked_topics"`
	CurrentRegion    string            `json:"current_region,omitempty"`
	SavedAt          time.Time         `json:"saved_at"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Progress = make(map[string]Record, len(s.Progress))
	for k, r := range s.Progress {
		out.Progress[k] = r.Clone()
	}
	out.VideoCounts = cloneCounts(s.VideoCounts)
	out.UnlockedConcepts = slices.Clone(s.UnlockedConcepts)
	out.UnlockedRegions = slices.Clone(s.UnlockedRegions)
	out.UnlockedTopics = slices.Clone(s.UnlockedTopics)
	return out
}

// Snapshot captures the current state. Unlock lists are sorted so equal
// states produce equal snapshots.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		LearnerID:        s.learnerID,
		Progress:         make(map[string]Record, len(s.progress)),
		VideoCounts:      cloneCounts(s.videoCounts),
		UnlockedConcepts: slices.Sorted(maps.Keys(s.unlockedConcepts)),
		UnlockedRegions:  slices.Sorted(maps.Keys(s.unlockedRegions)),
		CurrentRegion:    s.currentRegion,
		SavedAt:          s.now(),
	}
	for id, rec := range s.progress {
		snap.Progress[id] = rec.Clone()
	}
	for k := range s.unlockedTopics {
		snap.UnlockedTopics = append(snap.UnlockedTopics, TopicRef{ConceptID: k.conceptID, TopicID: k.topicID})
	}
	slices.SortFunc(snap.UnlockedTopics, func(a, b TopicRef) int {
		return cmp.Or(
			strings.Compare(a.ConceptID, b.ConceptID),
			strings.Compare(a.TopicID, b.TopicID),
		)
	})
	return snap
}

// Restore seeds the store from the catalog and a saved snapshot. The initial
// unlocks of Initialize still apply; saved flags are added on top. Like
// Initialize, it does nothing once the store holds state.
func (s *Store) Restore(concepts []catalog.Concept, regions []catalog.Region, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.seed(concepts, regions)

	for id, rec := range snap.Progress {
		r := rec.Clone()
		r.ConceptID = id
		s.progress[id] = &r
	}
	for id, n := range snap.VideoCounts {
		s.videoCounts[id] = max(n, 0)
	}
	for _, id := range snap.UnlockedConcepts {
		s.unlockedConcepts[id] = true
	}
	for _, id := range snap.UnlockedRegions {
		s.unlockedRegions[id] = true
	}
	for _, t := range snap.UnlockedTopics {
		s.unlockedTopics[topicKey{t.ConceptID, t.TopicID}] = true
	}
	s.currentRegion = snap.CurrentRegion

	for _, c := range concepts {
		_ = s.latchTopics(c.ID, nil)
	}
}
