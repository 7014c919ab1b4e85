package progress

import "time"

// ChangeKind names a state transition of a Store.
type ChangeKind string

const (
	ChangeVideoWatched       ChangeKind = "video_watched"
	ChangeVideoCountRecorded ChangeKind = "video_count_recorded"
	ChangeQuizCompleted      ChangeKind = "quiz_completed"
	ChangeConceptUnlocked    ChangeKind = "concept_unlocked"
	ChangeTopicUnlocked      ChangeKind = "topic_unlocked"
	ChangeRegionUnlocked     ChangeKind = "region_unlocked"
	ChangeCurrentRegion      ChangeKind = "current_region_changed"
)

// Change describes one committed mutation. Only the fields relevant to Kind are set.
type Change struct {
	LearnerID  string     `json:"learner_id"`
	Kind       ChangeKind `json:"kind"`
	ConceptID  string     `json:"concept_id,omitempty"`
	TopicID    string     `json:"topic_id,omitempty"`
	SubtopicID string     `json:"subtopic_id,omitempty"`
	VideoID    string     `json:"video_id,omitempty"`
	RegionID   string     `json:"region_id,omitempty"`
	Count      int        `json:"count,omitempty"`
	Score      int        `json:"score,omitempty"`
	At         time.Time  `json:"at"`
}

// Observer is notified after a mutation commits. Notify runs outside the
// store lock, so observers may query the store.
type Observer interface {
	Notify(Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Change)

func (f ObserverFunc) Notify(c Change) { f(c) }
