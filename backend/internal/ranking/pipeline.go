package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/embedding"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/graph"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/observability"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/scoring"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
)

// GetRankedArticles returns today's ranking, fetching and ranking a new batch unless
// enough articles are already stored for today.
//
// On failure the previous successful ranking is returned together with the error,
// or nil when there is none. A partially scored batch is never returned.
func (o *Orchestrator) GetRankedArticles(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error) {
	o.batchMu.Lock()
	defer o.batchMu.Unlock()

	return o.rank(ctx, cfg)
}

func (o *Orchestrator) rank(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error) {
	start := time.Now()
	defer func() {
		observability.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	today, err := o.articles.TodaysArticles(ctx)
	if err != nil {
		return o.fail("load today's articles", err)
	}

	if len(today) > o.cfg.ReuseMinArticles {
		o.logger.Info("Reusing today's stored articles", zap.Int("count", len(today)))
		if err := o.rescore(ctx, today); err != nil {
			return o.fail("rescore stored articles", err)
		}
		o.setLast(today)
		return today, nil
	}

	ranked, err := o.runBatch(ctx, cfg)
	if err != nil {
		return o.fail("rank new batch", err)
	}

	o.logger.Info("Ranked new batch",
		zap.Int("admitted", len(ranked)),
		zap.Duration("duration", time.Since(start)),
	)
	o.setLast(ranked)
	return ranked, nil
}

func (o *Orchestrator) fail(step string, err error) ([]domain.Article, error) {
	prev, ok := o.LastRanking()
	o.logger.Error("Ranking batch aborted",
		zap.String("step", step),
		zap.Bool("serving_stale", ok),
		zap.Error(err),
	)
	return prev, err
}

// runBatch moves fetched candidates through every pipeline state and stores the result
func (o *Orchestrator) runBatch(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error) {
	candidates, err := o.source.FetchCandidates(ctx, cfg)
	if err != nil {
		return nil, err
	}

	liked, err := o.articles.LikedEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	now := o.now()
	batch := make([]domain.Article, len(candidates))
	for i, c := range candidates {
		batch[i] = domain.NewArticle(o.newID(), c, now)
	}

	if err := o.embedAll(ctx, batch); err != nil {
		return nil, err
	}

	admitted := o.scoreAndGate(batch, liked)

	enriched, err := o.enrich(ctx, admitted)
	if err != nil {
		return nil, err
	}

	if err := o.upsertAll(ctx, enriched); err != nil {
		return nil, err
	}

	if err := o.finalize(ctx, enriched); err != nil {
		o.rollbackGraph(ctx, enriched)
		return nil, err
	}
	sortByFinal(enriched)

	if err := o.articles.BulkInsert(ctx, enriched); err != nil {
		o.rollbackGraph(ctx, enriched)
		return nil, err
	}

	observability.ArticlesAdmitted.Add(float64(len(enriched)))
	return enriched, nil
}

// embedAll embeds every article concurrently. Unembeddable text gets a zero vector.
func (o *Orchestrator) embedAll(ctx context.Context, batch []domain.Article) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.EmbedConcurrency)

	for i := range batch {
		g.Go(func() error {
			vec, err := embedding.EmbedOrZero(gctx, o.embedder, batch[i].EmbeddingText(), o.logger)
			if err != nil {
				return err
			}
			batch[i].Embedding = vec
			return nil
		})
	}

	return g.Wait()
}

// scoreAndGate sets interest and liking scores and keeps the articles that pass the gate
func (o *Orchestrator) scoreAndGate(batch []domain.Article, liked [][]float32) []domain.Article {
	admitted := make([]domain.Article, 0, len(batch))
	for _, a := range batch {
		a.Scores.Interest = o.interest.Score(a.Embedding)
		a.Scores.Liking = scoring.FeedbackScore(a.Embedding, liked)

		if !scoring.Admit(a.Scores.Interest, a.Scores.Liking, o.cfg.AdmissionThreshold) {
			observability.ArticlesDropped.WithLabelValues(observability.DropBelowGate).Inc()
			o.logger.Debug("Article below admission gate",
				zap.String("url", a.URL),
				zap.Float64("interest_score", a.Scores.Interest),
				zap.Float64("liking_score", a.Scores.Liking),
			)
			continue
		}
		admitted = append(admitted, a)
	}
	return admitted
}

// enrich extracts entities and themes. An article whose extraction fails is dropped
// unless the failure is fatal to the whole batch. When every admitted article fails
// the batch fails too, so the previous ranking is kept.
func (o *Orchestrator) enrich(ctx context.Context, admitted []domain.Article) ([]domain.Article, error) {
	out := make([]domain.Article, 0, len(admitted))
	var lastErr error
	for _, a := range admitted {
		text := a.ExtractionText()

		entities, err := o.entities.Extract(ctx, text)
		if err == nil {
			a.Entities = entities
			a.Themes, err = o.themes.Extract(ctx, text)
		}
		if err != nil {
			if apperrors.IsFatalToBatch(err) {
				return nil, err
			}
			lastErr = err
			observability.ArticlesDropped.WithLabelValues(observability.DropExtractionFailed).Inc()
			o.logger.Warn("Dropping article after extraction failure",
				zap.String("article_id", a.ID),
				zap.String("url", a.URL),
				zap.String("reason", err.Error()),
			)
			continue
		}
		if a.Entities == nil {
			a.Entities = []domain.Entity{}
		}
		if a.Themes == nil {
			a.Themes = []domain.Theme{}
		}
		out = append(out, a)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("extraction failed for all %d admitted articles: %w", len(admitted), lastErr)
	}
	return out, nil
}

func (o *Orchestrator) upsertAll(ctx context.Context, articles []domain.Article) error {
	for i, a := range articles {
		if err := o.graph.UpsertArticleNode(ctx, graph.NodeFromArticle(a), a.Entities, a.Themes); err != nil {
			o.rollbackGraph(ctx, articles[:i])
			return err
		}
	}
	return nil
}

// finalize sets graph and final scores
func (o *Orchestrator) finalize(ctx context.Context, articles []domain.Article) error {
	for i := range articles {
		g, err := o.graph.GraphScore(ctx, articles[i].ID)
		if err != nil {
			return err
		}
		s := &articles[i].Scores
		s.Graph = g
		s.Final = scoring.Final(s.Interest, s.Liking, g)
		s.Computed = true
	}
	return nil
}

// rescore re-derives graph and final scores of stored articles from the current
// graph and re-sorts them
func (o *Orchestrator) rescore(ctx context.Context, articles []domain.Article) error {
	if err := o.finalize(ctx, articles); err != nil {
		return err
	}
	sortByFinal(articles)
	return nil
}

// rollbackGraph removes nodes of a batch that never reached the article store
func (o *Orchestrator) rollbackGraph(ctx context.Context, articles []domain.Article) {
	if len(articles) == 0 {
		return
	}
	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	if err := o.graph.RemoveNodes(ctx, ids); err != nil {
		o.logger.Warn("Failed to remove nodes of aborted batch", zap.Int("count", len(ids)), zap.Error(err))
	}
}

// sortByFinal orders by final score descending, keeping input order on ties
func sortByFinal(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Scores.Final > articles[j].Scores.Final
	})
}
