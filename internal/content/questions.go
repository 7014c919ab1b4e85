package content

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

// QuestionFetcher lists the quiz questions attached to a CMS subtopic.
type QuestionFetcher interface {
	FetchQuestions(ctx context.Context, contentID int) ([]catalog.Question, error)
}

// FillQuestions gives every concept without authored quiz questions the
// questions the CMS attaches to its subtopics, in topic and subtopic order.
// A concept is left untouched when any of its subtopic fetches fails, so a
// quiz is never graded against a partial question set. It returns the number
// of concepts filled; only context cancellation is an error.
func FillQuestions(ctx context.Context, fetcher QuestionFetcher, cat *catalog.Catalog, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	wanted := make(map[int]bool)
	for _, c := range cat.Concepts {
		if len(c.Quiz.Questions) > 0 {
			continue
		}
		for _, id := range contentIDs(c) {
			wanted[id] = true
		}
	}
	if len(wanted) == 0 {
		return 0, nil
	}

	var mu sync.Mutex
	fetched := make(map[int][]catalog.Question, len(wanted))
	failed := make(map[int]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for contentID := range wanted {
		g.Go(func() error {
			questions, err := fetcher.FetchQuestions(gctx, contentID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("fetching subtopic quiz questions failed", "content_id", contentID, "error", err)
				failed[contentID] = true
				return nil
			}
			fetched[contentID] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	filled := 0
	for i := range cat.Concepts {
		c := &cat.Concepts[i]
		if len(c.Quiz.Questions) > 0 {
			continue
		}
		var questions []catalog.Question
		complete := true
		for _, id := range contentIDs(*c) {
			if failed[id] {
				complete = false
				break
			}
			questions = append(questions, fetched[id]...)
		}
		if !complete || len(questions) == 0 {
			continue
		}
		c.Quiz.Questions = questions
		filled++
	}

	slog.Info("quiz questions loaded from CMS", "concepts", filled)
	return filled, nil
}

// contentIDs returns the distinct CMS ids of a concept's subtopics in order.
func contentIDs(c catalog.Concept) []int {
	var ids []int
	seen := make(map[int]bool)
	for _, t := range c.Topics {
		for _, st := range t.Subtopics {
			if st.ContentID <= 0 || seen[st.ContentID] {
				continue
			}
			seen[st.ContentID] = true
			ids = append(ids, st.ContentID)
		}
	}
	return ids
}
