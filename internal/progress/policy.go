package progress

// DefaultUnlockThreshold is the completion percentage that opens the next
// topic and the concept quiz.
const DefaultUnlockThreshold = 70

// Policy holds the gating rules. The zero value uses DefaultUnlockThreshold.
type Policy struct {
	Threshold int
}

func (p Policy) threshold() int {
	if p.Threshold <= 0 || p.Threshold > 100 {
		return DefaultUnlockThreshold
	}
	return p.Threshold
}

// TopicUnlocked reports whether the topic at index may be studied given the
// previous topic's aggregate percentage. Index 0 is always open.
func (p Policy) TopicUnlocked(index, previousPercent int) bool {
	if index == 0 {
		return true
	}
	if index < 0 {
		return false
	}
	return previousPercent >= p.threshold()
}

// QuizAvailable reports whether a concept's quiz may be taken.
func (p Policy) QuizAvailable(conceptPercent int) bool {
	return conceptPercent >= p.threshold()
}

// cascade applies the concept and region unlock rules after the quiz for
// conceptID completed. Caller holds s.mu for writing and has already stored
// the quiz result, so the region check sees it.
func (s *Store) cascade(conceptID string, changes []Change) []Change {
	if s.index == nil {
		return changes
	}
	concept, ok := s.index.Concept(conceptID)
	if !ok {
		return changes
	}

	if next, ok := s.index.NextConcept(conceptID); ok {
		changes = s.unlockConcept(next, changes)
	}

	members := s.index.ConceptsInRegion(concept.RegionID)
	for _, id := range members {
		rec := s.progress[id]
		if rec == nil || !rec.QuizCompleted {
			return changes
		}
	}
	if next, ok := s.index.NextRegion(concept.RegionID); ok {
		changes = s.unlockRegion(next, changes)
	}
	return changes
}

func (s *Store) unlockConcept(id string, changes []Change) []Change {
	if s.unlockedConcepts[id] {
		return changes
	}
	s.unlockedConcepts[id] = true
	return append(changes, s.change(Change{Kind: ChangeConceptUnlocked, ConceptID: id}))
}

// unlockRegion opens a region and its entry concept.
func (s *Store) unlockRegion(id string, changes []Change) []Change {
	if s.unlockedRegions[id] {
		return changes
	}
	s.unlockedRegions[id] = true
	changes = append(changes, s.change(Change{Kind: ChangeRegionUnlocked, RegionID: id}))
	if s.index != nil {
		if members := s.index.ConceptsInRegion(id); len(members) > 0 {
			changes = s.unlockConcept(members[0], changes)
		}
	}
	return changes
}

// latchTopics records every topic of conceptID that is currently open so a
// later change in video counts cannot close it again.
func (s *Store) latchTopics(conceptID string, changes []Change) []Change {
	if s.index == nil {
		return changes
	}
	concept, ok := s.index.Concept(conceptID)
	if !ok {
		return changes
	}
	prev := 0
	for i, t := range concept.Topics {
		key := topicKey{conceptID, t.ID}
		if !s.unlockedTopics[key] && s.policy.TopicUnlocked(i, prev) {
			s.unlockedTopics[key] = true
			if i > 0 {
				changes = append(changes, s.change(Change{
					Kind:      ChangeTopicUnlocked,
					ConceptID: conceptID,
					TopicID:   t.ID,
				}))
			}
		}
		prev = s.topicPercent(conceptID, t)
	}
	return changes
}
