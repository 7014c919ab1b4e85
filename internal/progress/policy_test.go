package progress_test

import (
	"testing"

	"github.com/p-n-ai/pai-quest/internal/progress"
)

func TestPolicy_TopicUnlocked(t *testing.T) {
	tests := []struct {
		name     string
		policy   progress.Policy
		index    int
		previous int
		want     bool
	}{
		{"first topic", progress.Policy{}, 0, 0, true},
		{"negative index", progress.Policy{}, -1, 100, false},
		{"below default", progress.Policy{}, 1, 69, false},
		{"at default", progress.Policy{}, 1, 70, true},
		{"custom threshold", progress.Policy{Threshold: 50}, 2, 50, true},
		{"invalid threshold falls back", progress.Policy{Threshold: 150}, 1, 69, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.TopicUnlocked(tt.index, tt.previous); got != tt.want {
				t.Errorf("TopicUnlocked(%d, %d) = %v, want %v", tt.index, tt.previous, got, tt.want)
			}
		})
	}
}

func TestPolicy_QuizAvailable(t *testing.T) {
	p := progress.Policy{}
	if p.QuizAvailable(69) {
		t.Error("quiz should be closed at 69")
	}
	if !p.QuizAvailable(70) {
		t.Error("quiz should be open at 70")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		watched, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{9, 4, 100},
		{-1, 4, 0},
	}
	for _, tt := range tests {
		if got := progress.Percent(tt.watched, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.watched, tt.total, got, tt.want)
		}
	}
}

func TestAverage(t *testing.T) {
	if got := progress.Average(nil); got != 0 {
		t.Errorf("Average(nil) = %d, want 0", got)
	}
	if got := progress.Average([]int{50, 51}); got != 51 {
		t.Errorf("Average(50, 51) = %d, want 51", got)
	}
	if got := progress.Average([]int{100, 0, 0}); got != 33 {
		t.Errorf("Average(100, 0, 0) = %d, want 33", got)
	}
}
