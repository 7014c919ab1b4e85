package progress

import "github.com/p-n-ai/pai-quest/internal/catalog"

// MapView is a read model of the learner's whole map, taken under one lock.
type MapView struct {
	LearnerID     string       `json:"learner_id"`
	CurrentRegion string       `json:"current_region,omitempty"`
	Regions       []RegionView `json:"regions"`
}

// RegionView is one region of a MapView.
type RegionView struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Color       string        `json:"color,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	Unlocked    bool          `json:"unlocked"`
	Progress    int           `json:"progress"`
	Concepts    []ConceptView `json:"concepts"`
}

// ConceptView is one concept of a MapView.
type ConceptView struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	RegionID      string      `json:"region_id"`
	Unlocked      bool        `json:"unlocked"`
	Completed     bool        `json:"completed"`
	QuizAvailable bool        `json:"quiz_available"`
	QuizScore     int         `json:"quiz_score"`
	QuizPassed    bool        `json:"quiz_passed"`
	Completion    int         `json:"completion"`
	Topics        []TopicView `json:"topics"`
}

// TopicView is one topic of a ConceptView.
type TopicView struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Unlocked  bool           `json:"unlocked"`
	Progress  int            `json:"progress"`
	Subtopics []SubtopicView `json:"subtopics"`
}

// SubtopicView is one subtopic of a TopicView. Total is nil while the
// video count is unknown.
type SubtopicView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Watched  int    `json:"watched"`
	Total    *int   `json:"total"`
	Progress int    `json:"progress"`
}

// View returns the learner's map in region order.
func (s *Store) View() MapView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := MapView{LearnerID: s.learnerID, CurrentRegion: s.currentRegion, Regions: []RegionView{}}
	if s.index == nil {
		return view
	}

	for _, r := range s.index.Regions() {
		rv := RegionView{
			ID:          r.ID,
			DisplayName: r.DisplayName,
			Color:       r.Color,
			Icon:        r.Icon,
			Unlocked:    s.unlockedRegions[r.ID],
			Concepts:    []ConceptView{},
		}
		done := 0
		members := s.index.ConceptsInRegion(r.ID)
		for _, id := range members {
			c, _ := s.index.Concept(id)
			cv := s.conceptView(c)
			if cv.Completed {
				done++
			}
			rv.Concepts = append(rv.Concepts, cv)
		}
		rv.Progress = Percent(done, len(members))
		view.Regions = append(view.Regions, rv)
	}
	return view
}

// ConceptView returns the read model of one concept.
func (s *Store) ConceptView(conceptID string) (ConceptView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return ConceptView{}, false
	}
	c, ok := s.index.Concept(conceptID)
	if !ok {
		return ConceptView{}, false
	}
	return s.conceptView(c), true
}

// conceptView builds a ConceptView. Caller holds s.mu.
func (s *Store) conceptView(c catalog.Concept) ConceptView {
	completion := s.conceptPercent(c.ID)
	cv := ConceptView{
		ID:            c.ID,
		Title:         c.Title,
		RegionID:      c.RegionID,
		Unlocked:      s.unlockedConcepts[c.ID],
		QuizAvailable: s.policy.QuizAvailable(completion),
		Completion:    completion,
		Topics:        make([]TopicView, 0, len(c.Topics)),
	}
	rec := s.progress[c.ID]
	if rec != nil {
		cv.Completed = rec.QuizCompleted
		cv.QuizScore = rec.QuizScore
		cv.QuizPassed = rec.QuizPassed
	}

	for i, t := range c.Topics {
		tv := TopicView{
			ID:        t.ID,
			Title:     t.Title,
			Unlocked:  s.topicUnlocked(c, i),
			Progress:  s.topicPercent(c.ID, t),
			Subtopics: make([]SubtopicView, 0, len(t.Subtopics)),
		}
		for _, st := range t.Subtopics {
			sv := SubtopicView{
				ID:       st.ID,
				Title:    st.Title,
				Progress: s.subtopicPercent(c.ID, st.ID),
			}
			if rec != nil {
				sv.Watched = rec.WatchedIn(st.ID)
			}
			if n, ok := s.videoCounts[st.ID]; ok {
				sv.Total = &n
			}
			tv.Subtopics = append(tv.Subtopics, sv)
		}
		cv.Topics = append(cv.Topics, tv)
	}
	return cv
}
