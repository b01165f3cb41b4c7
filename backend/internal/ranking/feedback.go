package ranking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/graph"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/observability"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
)

// RecordReaction applies a reaction button press to the article at url and returns
// the resulting reaction. Pressing the current reaction again clears it.
//
// Neighbors' graph scores are not recomputed here; they are re-derived the next time
// a ranking is read or RefreshScores runs.
func (o *Orchestrator) RecordReaction(ctx context.Context, url, reaction string) (domain.Reaction, error) {
	pressed, err := domain.ParseReaction(reaction)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrInvalidReaction, err)
	}

	article, err := o.articles.ArticleByURL(ctx, url)
	if err != nil {
		return "", err
	}

	next := domain.Toggle(article.Reaction, pressed)

	if err := o.feedback.SetReaction(ctx, url, next); err != nil {
		return "", err
	}
	if err := o.graph.UpdateReaction(ctx, article.ID, next); err != nil {
		return "", err
	}

	o.updateCached(url, func(a *domain.Article) { a.Reaction = next })
	observability.Reactions.WithLabelValues(string(next)).Inc()

	o.logger.Info("Reaction recorded",
		zap.String("article_id", article.ID),
		zap.String("previous", string(article.Reaction)),
		zap.String("reaction", string(next)),
	)
	return next, nil
}

// RecordNote stores the user's note for the article at url
func (o *Orchestrator) RecordNote(ctx context.Context, url, note string) error {
	article, err := o.articles.ArticleByURL(ctx, url)
	if err != nil {
		return err
	}

	if err := o.feedback.SetNote(ctx, url, note); err != nil {
		return err
	}
	if err := o.graph.UpdateNote(ctx, article.ID, note); err != nil {
		return err
	}

	o.updateCached(url, func(a *domain.Article) { a.Note = note })
	o.logger.Info("Note recorded", zap.String("article_id", article.ID), zap.Int("length", len(note)))
	return nil
}

// PurgeBatch removes articles from the graph and the article store.
// Ids that are already gone are ignored.
func (o *Orchestrator) PurgeBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := o.graph.RemoveNodes(ctx, ids); err != nil {
		return err
	}
	if err := o.articles.DeleteArticles(ctx, ids); err != nil {
		return err
	}

	o.dropCached(ids)
	o.logger.Info("Purged batch", zap.Int("count", len(ids)))
	return nil
}

// PurgeAndRefetch discards today's articles and ranks a fresh batch
func (o *Orchestrator) PurgeAndRefetch(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error) {
	o.batchMu.Lock()
	defer o.batchMu.Unlock()

	today, err := o.articles.TodaysArticles(ctx)
	if err != nil {
		return o.fail("load today's articles", err)
	}

	ids := make([]string, len(today))
	for i, a := range today {
		ids[i] = a.ID
	}
	if err := o.PurgeBatch(ctx, ids); err != nil {
		return o.fail("purge today's batch", err)
	}

	// Rows written between the two calls are still today's
	purged, err := o.articles.PurgeToday(ctx)
	if err != nil {
		return o.fail("purge today's rows", err)
	}
	if len(purged) > 0 {
		if err := o.graph.RemoveNodes(ctx, purged); err != nil {
			return o.fail("purge today's nodes", err)
		}
	}

	o.setLast(nil)
	return o.rank(ctx, cfg)
}

// RefreshScores re-derives graph and final scores of today's articles from the
// current graph and persists them
func (o *Orchestrator) RefreshScores(ctx context.Context) ([]domain.Article, error) {
	o.batchMu.Lock()
	defer o.batchMu.Unlock()

	today, err := o.articles.TodaysArticles(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.rescore(ctx, today); err != nil {
		return nil, err
	}
	for _, a := range today {
		if err := o.articles.UpdateScores(ctx, a.ID, a.Scores); err != nil {
			return nil, err
		}
	}

	o.setLast(today)
	o.logger.Info("Scores refreshed", zap.Int("count", len(today)))
	return today, nil
}

// RelatedByEntity returns articles mentioning an entity whose name contains name,
// most similar to the article id first
func (o *Orchestrator) RelatedByEntity(ctx context.Context, id, name string) ([]graph.Neighbor, error) {
	m, err := o.graph.FindNeighborsByEntity(ctx, id, name, o.cfg.EntityQuery)
	if err != nil {
		return nil, err
	}
	return graph.SortNeighbors(m), nil
}

// RelatedByTheme returns articles with a theme whose name contains name
func (o *Orchestrator) RelatedByTheme(ctx context.Context, id, name string) ([]graph.Neighbor, error) {
	m, err := o.graph.FindNeighborsByTheme(ctx, id, name, o.cfg.ThemeQuery)
	if err != nil {
		return nil, err
	}
	return graph.SortNeighbors(m), nil
}

// ArticleTopics returns the entities and themes the graph holds for an article
func (o *Orchestrator) ArticleTopics(ctx context.Context, id string) (graph.Topics, error) {
	return o.graph.ArticleTopics(ctx, id)
}

// Popular returns the most mentioned entities and themes
func (o *Orchestrator) Popular(ctx context.Context, limit int) (graph.Popularity, error) {
	return o.graph.Popular(ctx, limit)
}
