package content

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

const defaultConcurrency = 4

// VideoFetcher lists the videos of a CMS subtopic.
type VideoFetcher interface {
	FetchVideos(ctx context.Context, contentID int) ([]catalog.Video, error)
}

// CountRecorder receives subtopic video totals once they are known.
type CountRecorder interface {
	RecordSubtopicVideoCount(subtopicID string, count int)
}

// SyncResult summarises one Sync run.
type SyncResult struct {
	Recorded int // subtopics whose count was recorded
	Skipped  int // subtopics without a CMS id
	Failed   int // subtopics whose fetch failed
}

// Syncer discovers subtopic video counts from the CMS and reports them.
type Syncer struct {
	fetcher     VideoFetcher
	recorder    CountRecorder
	cache       *CountCache
	concurrency int
}

// SyncerConfig holds dependencies for a Syncer.
type SyncerConfig struct {
	Fetcher     VideoFetcher
	Recorder    CountRecorder
	Cache       *CountCache // optional
	Concurrency int         // parallel CMS requests (default 4)
}

// NewSyncer creates a content syncer.
func NewSyncer(cfg SyncerConfig) *Syncer {
	n := cfg.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	return &Syncer{
		fetcher:     cfg.Fetcher,
		recorder:    cfg.Recorder,
		cache:       cfg.Cache,
		concurrency: n,
	}
}

// Warm replays counts remembered in the cache so progress is meaningful
// before the CMS has answered.
func (s *Syncer) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	counts, err := s.cache.Load(ctx)
	if err != nil {
		return err
	}
	for id, n := range counts {
		s.recorder.RecordSubtopicVideoCount(id, n)
	}
	slog.Info("video counts warmed from cache", "subtopics", len(counts))
	return nil
}

// Sync fetches the video list of every subtopic in the catalog. Subtopics
// sharing a CMS id are fetched once. Fetch failures are logged and leave the
// subtopic's count unknown; only context cancellation aborts the run.
func (s *Syncer) Sync(ctx context.Context, cat *catalog.Catalog) (SyncResult, error) {
	byContent := make(map[int][]string)
	var result SyncResult
	for _, c := range cat.Concepts {
		for _, t := range c.Topics {
			for _, st := range t.Subtopics {
				if st.ContentID <= 0 {
					slog.Warn("subtopic has no CMS id, video count stays unknown", "subtopic_id", st.ID)
					result.Skipped++
					continue
				}
				byContent[st.ContentID] = append(byContent[st.ContentID], st.ID)
			}
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for contentID, subtopics := range byContent {
		g.Go(func() error {
			videos, err := s.fetcher.FetchVideos(gctx, contentID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("fetching subtopic videos failed", "content_id", contentID, "error", err)
				mu.Lock()
				result.Failed += len(subtopics)
				mu.Unlock()
				return nil
			}

			for _, id := range subtopics {
				s.recorder.RecordSubtopicVideoCount(id, len(videos))
				if s.cache != nil {
					if err := s.cache.Save(gctx, id, len(videos)); err != nil {
						slog.Warn("caching video count failed", "subtopic_id", id, "error", err)
					}
				}
			}
			mu.Lock()
			result.Recorded += len(subtopics)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	slog.Info("content sync finished",
		"recorded", result.Recorded,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}
