// Package progress holds a learner's watch and quiz facts and the unlock
// rules layered over them.
package progress

import (
	"maps"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Record is one learner's facts for one concept. It is created on the first
// watch or quiz event for the concept and never removed.
type Record struct {
	ConceptID      string              `json:"concept_id"`
	VideosWatched  []string            `json:"videos_watched"`
	SubtopicVideos map[string][]string `json:"subtopic_videos"`
	QuizCompleted  bool                `json:"quiz_completed"`
	QuizScore      int                 `json:"quiz_score,omitempty"`
	QuizPassed     bool                `json:"quiz_passed,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

func newRecord(conceptID string) *Record {
	return &Record{
		ConceptID:      conceptID,
		VideosWatched:  []string{},
		SubtopicVideos: make(map[string][]string),
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.VideosWatched = slices.Clone(r.VideosWatched)
	if out.VideosWatched == nil {
		out.VideosWatched = []string{}
	}
	out.SubtopicVideos = make(map[string][]string, len(r.SubtopicVideos))
	for k, v := range r.SubtopicVideos {
		out.SubtopicVideos[k] = slices.Clone(v)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// WatchedIn returns how many distinct videos were watched in a subtopic.
func (r *Record) WatchedIn(subtopicID string) int {
	if r == nil {
		return 0
	}
	return len(r.SubtopicVideos[subtopicID])
}

// markWatched adds videoID to the subtopic and concept sets. It reports
// false when the subtopic already had the video.
func (r *Record) markWatched(subtopicID, videoID string) bool {
	if slices.Contains(r.SubtopicVideos[subtopicID], videoID) {
		return false
	}
	r.SubtopicVideos[subtopicID] = append(r.SubtopicVideos[subtopicID], videoID)
	if !slices.Contains(r.VideosWatched, videoID) {
		r.VideosWatched = append(r.VideosWatched, videoID)
	}
	return true
}

// Percent returns min(100, round(100*watched/total)), or 0 when total is not positive.
func Percent(watched, total int) int {
	if total <= 0 || watched <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(watched) / float64(total)))
	return min(p, 100)
}

// Average returns the rounded unweighted mean, or 0 for no values.
func Average(values []int) int {
	if len(values) == 0 {
		return 0
	}
	return int(math.Round(float64(lo.Sum(values)) / float64(len(values))))
}

func cloneCounts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return maps.Clone(m)
}
