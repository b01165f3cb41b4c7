package graph

import (
	"math"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
)

// Sub-score weights of the graph score
const (
	similarityShare = 0.5
	entityShare     = 0.3
	themeShare      = 0.2

	entityWeightPerShared = 0.1
	entityWeightCap       = 0.5
	themeWeightPerShared  = 0.15
	themeWeightCap        = 0.6
)

// Contribution is one neighbor's weight paired with its reaction
type Contribution struct {
	Weight   float64
	Reaction domain.Reaction
}

// SubScore averages weight*multiplier over contributions whose reaction counts.
// Skipped reactions are left out of the average entirely. Empty input yields 0.
func SubScore(cs []Contribution) float64 {
	var sum float64
	var n int
	for _, c := range cs {
		m, ok := c.Reaction.Multiplier()
		if !ok {
			continue
		}
		sum += c.Weight * m
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// EntityWeight is the weight of a neighbor sharing shared entities with the target
func EntityWeight(shared int) float64 {
	return math.Min(float64(shared)*entityWeightPerShared, entityWeightCap)
}

// ThemeWeight is the weight of a neighbor sharing shared themes with the target
func ThemeWeight(shared int) float64 {
	return math.Min(float64(shared)*themeWeightPerShared, themeWeightCap)
}

// Combine blends the three sub-scores into the graph score
func Combine(similarity, entity, theme []Contribution) float64 {
	return 100 * (similarityShare*SubScore(similarity) +
		entityShare*SubScore(entity) +
		themeShare*SubScore(theme))
}

// sharedCount is the number of entities or themes an article shares with the target
type sharedCount struct {
	reaction domain.Reaction
	shared   int
}

func entityContributions(counts map[string]sharedCount) []Contribution {
	out := make([]Contribution, 0, len(counts))
	for _, c := range counts {
		out = append(out, Contribution{Weight: EntityWeight(c.shared), Reaction: c.reaction})
	}
	return out
}

func themeContributions(counts map[string]sharedCount) []Contribution {
	out := make([]Contribution, 0, len(counts))
	for _, c := range counts {
		out = append(out, Contribution{Weight: ThemeWeight(c.shared), Reaction: c.reaction})
	}
	return out
}
