package progress_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-quest/internal/progress"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := progress.NewMemoryEventLogger()

	err := logger.LogEvent(progress.Event{
		LearnerID: "learner-1",
		EventType: "video_watched",
		Data: map[string]any{
			"video_id": "v1",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != "video_watched" {
		t.Errorf("EventType = %q, want video_watched", events[0].EventType)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	logger := progress.NewMemoryEventLogger()
	if err := logger.LogEvent(progress.Event{LearnerID: "x"}); err == nil {
		t.Error("LogEvent() should require an event type")
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := progress.NewPostgresEventLogger(nil)

	err := logger.LogEvent(progress.Event{
		LearnerID: "learner-1",
		EventType: "quiz_completed",
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestEventObserver_MapsChange(t *testing.T) {
	logger := progress.NewMemoryEventLogger()
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	progress.EventObserver{Logger: logger}.Notify(progress.Change{
		LearnerID:  "learner-1",
		Kind:       progress.ChangeVideoCountRecorded,
		SubtopicID: "s1",
		Count:      5,
		At:         at,
	})

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	e := events[0]
	if e.EventType != "video_count_recorded" {
		t.Errorf("EventType = %q", e.EventType)
	}
	if e.Data["subtopic_id"] != "s1" || e.Data["count"] != 5 {
		t.Errorf("Data = %v", e.Data)
	}
	if _, ok := e.Data["concept_id"]; ok {
		t.Error("empty fields should be omitted")
	}
	if !e.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, at)
	}
}

func TestEventObserver_LoggerErrorIsSwallowed(t *testing.T) {
	// NopEventLogger never fails; PostgresEventLogger with nil pool always does.
	progress.EventObserver{Logger: progress.NopEventLogger{}}.Notify(progress.Change{Kind: progress.ChangeQuizCompleted})
	progress.EventObserver{Logger: progress.NewPostgresEventLogger(nil)}.Notify(progress.Change{Kind: progress.ChangeQuizCompleted})
}
