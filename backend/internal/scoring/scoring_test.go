package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/embedding"
)

func TestFeedbackScore_NoLikes(t *testing.T) {
	if got := FeedbackScore([]float32{1, 2, 3}, nil); got != 0 {
		t.Errorf("Expected 0 with no liked embeddings, got %v", got)
	}
	if got := FeedbackScore([]float32{1, 2, 3}, [][]float32{}); got != 0 {
		t.Errorf("Expected 0 with empty liked embeddings, got %v", got)
	}
}

func TestFeedbackScore_IdenticalIs100(t *testing.T) {
	v := []float32{0.3, -0.1, 0.8, 0.05}
	if got := FeedbackScore(v, [][]float32{v}); got != 100 {
		t.Errorf("Expected exactly 100, got %v", got)
	}
}

func TestFeedbackScore_MeanAndMax(t *testing.T) {
	article := []float32{1, 0}
	liked := [][]float32{
		{1, 0}, // sim 1
		{0, 1}, // sim 0
	}
	// mean 0.5, max 1 -> 100 * 1.5 / 2
	if got := FeedbackScore(article, liked); math.Abs(got-75) > 1e-9 {
		t.Errorf("Expected 75, got %v", got)
	}
}

func TestFeedbackScore_ZeroArticle(t *testing.T) {
	if got := FeedbackScore([]float32{0, 0}, [][]float32{{1, 0}}); got != 0 {
		t.Errorf("Expected 0 for zero embedding, got %v", got)
	}
}

func TestInterestScorer(t *testing.T) {
	s := NewInterestScorerFromVector([]float32{1, 0})

	tests := []struct {
		name    string
		article []float32
		want    float64
	}{
		{"aligned", []float32{2, 0}, 100},
		{"opposite", []float32{-1, 0}, -100},
		{"orthogonal", []float32{0, 3}, 0},
		{"zero vector", []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.article); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewInterestScorer_FromProvider(t *testing.T) {
	p := embedding.NewHashProvider(128)
	s, err := NewInterestScorer(context.Background(), p, "AI stock market economy")
	if err != nil {
		t.Fatalf("NewInterestScorer failed: %v", err)
	}
	v, _ := p.Embed(context.Background(), "AI stock market economy")
	if got := s.Score(v); got != 100 {
		t.Errorf("Expected statement to score exactly 100 against itself, got %v", got)
	}
}

func TestFinal(t *testing.T) {
	if got := Final(50, 50, 0); got != 40.0 {
		t.Errorf("Expected exactly 40, got %v", got)
	}
	if got := Final(10, 20, 50); math.Abs(got-22) > 1e-9 {
		t.Errorf("Expected 22, got %v", got)
	}
}

func TestAdmit(t *testing.T) {
	tests := []struct {
		interest, liking float64
		want             bool
	}{
		{10, 5, false},
		{15, 10, true},
		{20, 0, false},
		{-10, 40, true},
	}
	for _, tt := range tests {
		if got := Admit(tt.interest, tt.liking, DefaultAdmissionThreshold); got != tt.want {
			t.Errorf("Admit(%v, %v) = %v, want %v", tt.interest, tt.liking, got, tt.want)
		}
	}
}
