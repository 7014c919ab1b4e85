package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/progress"
	"github.com/p-n-ai/pai-quest/internal/report"
)

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*progress.Session, bool) {
	sess, err := s.manager.Session(r.Context(), r.PathValue("learner"))
	if err != nil {
		slog.Error("opening progress session failed", "learner_id", r.PathValue("learner"), "error", err)
		writeError(w, http.StatusInternalServerError, "loading progress failed")
		return nil, false
	}
	return sess, true
}

// save persists a mutation. A failed save is reported but the live session
// keeps the change.
func (s *Server) save(w http.ResponseWriter, r *http.Request, learnerID string) bool {
	if err := s.manager.Save(r.Context(), learnerID); err != nil {
		slog.Error("saving progress failed", "learner_id", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "saving progress failed")
		return false
	}
	return true
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Store.View())
}

type conceptResponse struct {
	Concept progress.ConceptView `json:"concept"`
	Record  *progress.Record     `json:"record"`
}

func (s *Server) handleConcept(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conceptID := r.PathValue("concept")
	view, found := sess.Store.ConceptView(conceptID)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("concept not found: %s", conceptID))
		return
	}

	resp := conceptResponse{Concept: view}
	if rec, ok := sess.Store.ConceptProgress(conceptID); ok {
		resp.Record = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

type watchRequest struct {
	ConceptID  string `json:"concept_id"`
	SubtopicID string `json:"subtopic_id"`
	VideoID    string `json:"video_id"`
}

type watchResponse struct {
	Changed           bool `json:"changed"`
	SubtopicProgress  int  `json:"subtopic_progress"`
	ConceptCompletion int  `json:"concept_completion"`
	QuizAvailable     bool `json:"quiz_available"`
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ConceptID == "" || req.SubtopicID == "" || req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "concept_id, subtopic_id and video_id are required")
		return
	}
	if _, ok := s.index.Concept(req.ConceptID); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("concept not found: %s", req.ConceptID))
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	store := sess.Store
	if !store.IsConceptUnlocked(req.ConceptID) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("concept is locked: %s", req.ConceptID))
		return
	}
	topic, _, ok := s.index.SubtopicTopic(req.ConceptID, req.SubtopicID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("subtopic %s not found in concept %s", req.SubtopicID, req.ConceptID))
		return
	}
	if !store.IsTopicUnlocked(req.ConceptID, topic.ID) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("topic is locked: %s", topic.ID))
		return
	}

	changed := store.MarkVideoWatched(req.ConceptID, req.SubtopicID, req.VideoID)
	if changed && !s.save(w, r, sess.LearnerID) {
		return
	}

	writeJSON(w, http.StatusOK, watchResponse{
		Changed:           changed,
		SubtopicProgress:  store.SubtopicProgress(req.ConceptID, req.SubtopicID),
		ConceptCompletion: store.ConceptCompletion(req.ConceptID),
		QuizAvailable:     store.IsQuizAvailable(req.ConceptID),
	})
}

type quizRequest struct {
	ConceptID string `json:"concept_id"`
	Score     *int   `json:"score,omitempty"`
	Answers   []int  `json:"answers,omitempty"`
}

type quizResponse struct {
	ConceptID string         `json:"concept_id"`
	Score     int            `json:"score"`
	Passed    bool           `json:"passed"`
	Grade     *catalog.Grade `json:"grade,omitempty"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ConceptID == "" {
		writeError(w, http.StatusBadRequest, "concept_id is required")
		return
	}
	concept, ok := s.index.Concept(req.ConceptID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("concept not found: %s", req.ConceptID))
		return
	}

	resp := quizResponse{ConceptID: req.ConceptID}
	switch {
	case req.Answers != nil:
		if len(concept.Quiz.Questions) == 0 {
			writeError(w, http.StatusBadRequest, "concept has no quiz questions; submit a score")
			return
		}
		g := concept.Quiz.Grade(req.Answers)
		resp.Grade = &g
		resp.Score = g.Score
	case req.Score != nil:
		if *req.Score < 0 || *req.Score > 100 {
			writeError(w, http.StatusBadRequest, "score must be between 0 and 100")
			return
		}
		resp.Score = *req.Score
	default:
		writeError(w, http.StatusBadRequest, "score or answers is required")
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	store := sess.Store
	if !store.IsConceptUnlocked(req.ConceptID) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("concept is locked: %s", req.ConceptID))
		return
	}
	if !store.IsQuizAvailable(req.ConceptID) {
		writeError(w, http.StatusConflict, fmt.Sprintf("quiz not available yet: %s is %d%% complete",
			req.ConceptID, store.ConceptCompletion(req.ConceptID)))
		return
	}

	store.CompleteQuiz(req.ConceptID, resp.Score)
	if rec, ok := store.ConceptProgress(req.ConceptID); ok {
		resp.Passed = rec.QuizPassed
	}
	if !s.save(w, r, sess.LearnerID) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type regionRequest struct {
	RegionID string `json:"region_id"`
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RegionID != "" {
		if _, ok := s.index.Region(req.RegionID); !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("region not found: %s", req.RegionID))
			return
		}
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if req.RegionID != "" && !sess.Store.IsRegionUnlocked(req.RegionID) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("region is locked: %s", req.RegionID))
		return
	}

	sess.Store.SetCurrentRegion(req.RegionID)
	if !s.save(w, r, sess.LearnerID) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"current_region": sess.Store.CurrentRegion()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, "realtime updates are disabled")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.hub.Serve(w, r, sess.LearnerID)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, sess.Store.View()); err != nil {
		slog.Error("rendering report failed", "learner_id", sess.LearnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "rendering report failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-progress.xlsx"`, sess.LearnerID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type videoCountRequest struct {
	Count *int `json:"count"`
}

func (s *Server) handleVideoCount(w http.ResponseWriter, r *http.Request) {
	subtopicID := r.PathValue("subtopic")
	if len(s.index.ConceptsWithSubtopic(subtopicID)) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("subtopic not found: %s", subtopicID))
		return
	}

	var req videoCountRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Count == nil {
		writeError(w, http.StatusBadRequest, "count is required")
		return
	}

	s.manager.RecordSubtopicVideoCount(subtopicID, *req.Count)
	writeJSON(w, http.StatusOK, map[string]any{
		"subtopic_id": subtopicID,
		"count":       max(*req.Count, 0),
	})
}
