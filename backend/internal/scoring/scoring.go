// Package scoring computes the local, per-article scores of the ranking pipeline:
// topical interest, similarity to previously liked articles, and the blended final score.
package scoring

import (
	"context"
	"fmt"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/embedding"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/similarity"
)

// Final score weights.
const (
	InterestWeight = 0.4
	LikingWeight   = 0.4
	GraphWeight    = 0.2
)

// DefaultAdmissionThreshold is the minimum interest+liking sum an article needs
// before it is worth paying for entity/theme extraction and graph insertion.
const DefaultAdmissionThreshold = 20.0

// InterestScorer compares article embeddings to a fixed interest embedding
type InterestScorer struct {
	interest []float32
}

// NewInterestScorer embeds statement once and keeps the vector for the process lifetime
func NewInterestScorer(ctx context.Context, p embedding.Provider, statement string) (*InterestScorer, error) {
	vec, err := embedding.EmbedOrZero(ctx, p, statement, nil)
	if err != nil {
		return nil, fmt.Errorf("embed interest statement: %w", err)
	}
	return NewInterestScorerFromVector(vec), nil
}

// NewInterestScorerFromVector builds a scorer around a precomputed interest embedding
func NewInterestScorerFromVector(interest []float32) *InterestScorer {
	return &InterestScorer{interest: interest}
}

// Score returns cosine(article, interest) * 100, in [-100, 100]
func (s *InterestScorer) Score(article []float32) float64 {
	return similarity.Cosine(article, s.interest) * 100
}

// FeedbackScore rewards both consistent and peak resemblance to liked articles:
// 100 * (mean(sims) + max(sims)) / 2. Returns 0 when nothing has been liked yet.
func FeedbackScore(article []float32, liked [][]float32) float64 {
	if len(liked) == 0 {
		return 0
	}

	sims := make([]float64, len(liked))
	for i, l := range liked {
		sims[i] = similarity.Cosine(article, l)
	}

	return 100 * (similarity.Mean(sims) + similarity.Max(sims)) / 2
}

// Final blends the three component scores
func Final(interest, liking, graph float64) float64 {
	return InterestWeight*interest + LikingWeight*liking + GraphWeight*graph
}

// Admit reports whether an article passes the admission gate.
// The comparison is strict: a sum equal to the threshold is rejected.
func Admit(interest, liking, threshold float64) bool {
	return interest+liking > threshold
}
