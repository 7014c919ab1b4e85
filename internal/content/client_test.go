package content_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-quest/internal/content"
)

func newCMS(t *testing.T, handler http.HandlerFunc) *content.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := content.NewClient(srv.URL+"/", "secret")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := content.NewClient("", ""); err == nil {
		t.Error("NewClient() should require a base URL")
	}
}

func TestClient_FetchVideos(t *testing.T) {
	client := newCMS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos" {
			t.Errorf("path = %s, want /api/videos", r.URL.Path)
		}
		if got := r.URL.Query().Get("filters[subtopic][id][$eq]"); got != "14" {
			t.Errorf("subtopic filter = %q, want 14", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":7,"title":"Counting up","video_url":"https://cdn/7.mp4","duration":95},
			{"id":9,"title":"","video_url":"https://cdn/9.mp4"}
		]}`))
	})

	videos, err := client.FetchVideos(context.Background(), 14)
	if err != nil {
		t.Fatalf("FetchVideos() error = %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("len(videos) = %d, want 2", len(videos))
	}
	if videos[0].ID != "video-7" || videos[0].Duration != 95 || videos[0].URL != "https://cdn/7.mp4" {
		t.Errorf("videos[0] = %+v", videos[0])
	}
	if videos[1].Title != "Video 2" || videos[1].Order != 1 {
		t.Errorf("videos[1] = %+v", videos[1])
	}
}

func TestClient_FetchVideos_Empty(t *testing.T) {
	client := newCMS(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	videos, err := client.FetchVideos(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchVideos() error = %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("len(videos) = %d, want 0", len(videos))
	}
}

func TestClient_FetchVideos_HTTPError(t *testing.T) {
	client := newCMS(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := client.FetchVideos(context.Background(), 1)
	if err == nil {
		t.Fatal("FetchVideos() should fail on 403")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %v, want status code", err)
	}
}

func TestClient_FetchVideos_BadJSON(t *testing.T) {
	client := newCMS(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":`))
	})

	if _, err := client.FetchVideos(context.Background(), 1); err == nil {
		t.Error("FetchVideos() should fail on malformed JSON")
	}
}

func TestClient_FetchQuestions(t *testing.T) {
	client := newCMS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quizzes" {
			t.Errorf("path = %s, want /api/quizzes", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"id":3,"questions":[
			{"question":"2+2?","optionA":"3","optionB":"4","optionC":"5","optionD":"6","correctOption":"B","explanation":"two pairs"},
			{"question":"1+0?","optionA":"1","optionB":"0","optionC":"2","optionD":"3"}
		]}]}`))
	})

	questions, err := client.FetchQuestions(context.Background(), 14)
	if err != nil {
		t.Fatalf("FetchQuestions() error = %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("len(questions) = %d, want 2", len(questions))
	}
	if questions[0].Correct != 1 || questions[0].Explanation != "two pairs" {
		t.Errorf("questions[0] = %+v", questions[0])
	}
	if questions[1].Correct != 0 {
		t.Errorf("missing correctOption should default to A, got %d", questions[1].Correct)
	}
	if len(questions[0].Options) != 4 {
		t.Errorf("len(Options) = %d, want 4", len(questions[0].Options))
	}
}
