package graph

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/similarity"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
)

// ============================================================================
// Similarity Scan
// ============================================================================

// candidate is an existing article considered for a SIMILAR_TO edge
type candidate struct {
	ID        string
	Embedding []float32
}

// similarEdge is a SIMILAR_TO edge to be written
type similarEdge struct {
	ID     string
	Weight float64
}

// minChunk keeps tiny batches from spawning a goroutine per comparison
const minChunk = 16

// scanSimilar compares embedding against every candidate and returns the edges whose
// similarity reaches threshold, in candidate order. Comparisons are independent, so
// they fan out across CPUs. Candidates without an embedding are logged and skipped.
func scanSimilar(ctx context.Context, log *zap.Logger, articleID string, embedding []float32, candidates []candidate, threshold float64) ([]similarEdge, error) {
	if len(candidates) == 0 || similarity.IsZero(embedding) {
		return nil, nil
	}

	sims := make([]float64, len(candidates))
	valid := make([]bool, len(candidates))

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(candidates) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(candidates); start += chunk {
		end := start + chunk
		if end > len(candidates) {
			end = len(candidates)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := candidates[i]
				if len(c.Embedding) != len(embedding) {
					continue
				}
				sims[i] = similarity.Cosine(embedding, c.Embedding)
				valid[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var edges []similarEdge
	for i, c := range candidates {
		if !valid[i] {
			warn := apperrors.NewGraphConsistencyWarning(articleID, c.ID, "neighbor has no usable embedding")
			log.Warn("Skipping neighbor in similarity scan",
				zap.String("article_id", articleID),
				zap.String("neighbor_id", c.ID),
				zap.Error(warn),
			)
			continue
		}
		if sims[i] >= threshold {
			edges = append(edges, similarEdge{ID: c.ID, Weight: sims[i]})
		}
	}

	return edges, nil
}

// rankNeighbors filters neighbors by minimum similarity, orders them by similarity
// descending and caps the result at the query limit. An article matching several
// names appears once.
func rankNeighbors(log *zap.Logger, articleID string, input []float32, rows []neighborRow, q NeighborQuery) map[string]Neighbor {
	seen := make(map[string]bool, len(rows))
	var ranked []Neighbor
	for _, row := range rows {
		if seen[row.Neighbor.ID] {
			continue
		}
		seen[row.Neighbor.ID] = true

		if len(row.Embedding) == 0 || len(row.Embedding) != len(input) {
			log.Warn("Skipping neighbor without embedding",
				zap.String("article_id", articleID),
				zap.Error(apperrors.NewGraphConsistencyWarning(articleID, row.Neighbor.ID, "neighbor has no usable embedding")),
			)
			continue
		}

		sim := similarity.Cosine(input, row.Embedding)
		if sim < q.MinSimilarity {
			continue
		}
		n := row.Neighbor
		n.Similarity = sim
		ranked = append(ranked, n)
	}

	sortNeighbors(ranked)
	if q.Limit > 0 && len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}

	out := make(map[string]Neighbor, len(ranked))
	for _, n := range ranked {
		out[n.ID] = n
	}
	return out
}

// neighborRow is a candidate neighbor with the embedding needed to rank it
type neighborRow struct {
	Neighbor  Neighbor
	Embedding []float32
}
