// Package ranking drives a batch of fetched articles through embedding, scoring,
// the admission gate, graph enrichment and final ranking, and applies the user's
// feedback to the article store and the similarity graph.
package ranking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/embedding"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/graph"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/scoring"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// ArticleSource returns candidate articles. *source.NewsAPI implements it.
type ArticleSource interface {
	FetchCandidates(ctx context.Context, cfg domain.FetchConfig) ([]domain.Candidate, error)
}

// ArticleStore persists ranked articles. *store.PostgresStore implements it.
type ArticleStore interface {
	TodaysArticles(ctx context.Context) ([]domain.Article, error)
	BulkInsert(ctx context.Context, articles []domain.Article) error
	LikedEmbeddings(ctx context.Context) ([][]float32, error)
	PurgeToday(ctx context.Context) ([]string, error)
	DeleteArticles(ctx context.Context, ids []string) error
	ArticleByURL(ctx context.Context, url string) (domain.Article, error)
	UpdateScores(ctx context.Context, id string, scores domain.Scores) error
}

// FeedbackStore records reactions and notes by article URL
type FeedbackStore interface {
	SetReaction(ctx context.Context, url string, reaction domain.Reaction) error
	SetNote(ctx context.Context, url, note string) error
}

// EntityExtractor finds the entities an article mentions
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.Entity, error)
}

// ThemeExtractor finds at most three themes of an article
type ThemeExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.Theme, error)
}

// Config tunes the orchestrator
type Config struct {
	// AdmissionThreshold is the interest+liking sum an article must exceed to be enriched and ranked
	AdmissionThreshold float64
	// ReuseMinArticles: more stored articles than this for today skips fetching
	ReuseMinArticles int
	EntityQuery      graph.NeighborQuery
	ThemeQuery       graph.NeighborQuery
	EmbedConcurrency int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		AdmissionThreshold: scoring.DefaultAdmissionThreshold,
		ReuseMinArticles:   5,
		EntityQuery:        graph.DefaultEntityQuery,
		ThemeQuery:         graph.DefaultThemeQuery,
		EmbedConcurrency:   4,
	}
}

// Dependencies are the collaborators of an Orchestrator
type Dependencies struct {
	Source   ArticleSource
	Articles ArticleStore
	Feedback FeedbackStore
	Graph    graph.Store
	Embedder embedding.Provider
	Interest *scoring.InterestScorer
	Entities EntityExtractor
	Themes   ThemeExtractor
	Logger   *zap.Logger
}

// Orchestrator is the entry point for ranking and feedback
type Orchestrator struct {
	source   ArticleSource
	articles ArticleStore
	feedback FeedbackStore
	graph    graph.Store
	embedder embedding.Provider
	interest *scoring.InterestScorer
	entities EntityExtractor
	themes   ThemeExtractor
	cfg      Config
	logger   *zap.Logger

	newID func() string
	now   func() time.Time

	// batchMu allows one batch pipeline at a time
	batchMu sync.Mutex

	cacheMu sync.RWMutex
	last    []domain.Article
}

// NewOrchestrator creates an orchestrator. Thresholds are used as given, so start
// from DefaultConfig; unset neighbor limits and concurrency take their defaults.
func NewOrchestrator(deps Dependencies, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.EntityQuery.Limit == 0 {
		cfg.EntityQuery = def.EntityQuery
	}
	if cfg.ThemeQuery.Limit == 0 {
		cfg.ThemeQuery = def.ThemeQuery
	}
	if cfg.EmbedConcurrency < 1 {
		cfg.EmbedConcurrency = def.EmbedConcurrency
	}

	return &Orchestrator{
		source:   deps.Source,
		articles: deps.Articles,
		feedback: deps.Feedback,
		graph:    deps.Graph,
		embedder: deps.Embedder,
		interest: deps.Interest,
		entities: deps.Entities,
		themes:   deps.Themes,
		cfg:      cfg,
		logger:   logger.OrDefault(deps.Logger, "ranking"),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// LastRanking returns a copy of the most recent successful ranking.
// ok is false before the first success.
func (o *Orchestrator) LastRanking() (articles []domain.Article, ok bool) {
	o.cacheMu.RLock()
	defer o.cacheMu.RUnlock()
	if o.last == nil {
		return nil, false
	}
	return append(make([]domain.Article, 0, len(o.last)), o.last...), true
}

// setLast caches a ranking. nil forgets the cached one.
func (o *Orchestrator) setLast(articles []domain.Article) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	if articles == nil {
		o.last = nil
		return
	}
	o.last = append(make([]domain.Article, 0, len(articles)), articles...)
}

// updateCached applies fn to every cached article with url
func (o *Orchestrator) updateCached(url string, fn func(*domain.Article)) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	for i := range o.last {
		if o.last[i].URL == url {
			fn(&o.last[i])
		}
	}
}

func (o *Orchestrator) dropCached(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	if o.last == nil {
		return
	}
	kept := o.last[:0]
	for _, a := range o.last {
		if !drop[a.ID] {
			kept = append(kept, a)
		}
	}
	o.last = kept
}
