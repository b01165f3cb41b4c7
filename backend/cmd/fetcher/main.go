package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/services"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/config"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// ranker is the part of *ranking.Orchestrator a fetch job needs
type ranker interface {
	GetRankedArticles(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error)
	PurgeAndRefetch(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error)
}

func main() {
	refetch := flag.Bool("refetch", false, "discard today's articles before fetching")
	once := flag.Bool("once", false, "run a single fetch even when FETCH_SCHEDULE is set")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	sm := services.NewServiceManager(log, cfg)
	err = sm.Start(startCtx)
	cancelStart()
	if err != nil {
		log.Fatal("Failed to start services", zap.Error(err))
	}
	defer sm.Shutdown(context.Background())

	fetchCfg := services.FetchConfig(cfg)
	job := func() {
		if err := runJob(context.Background(), sm.Orchestrator(), *refetch, fetchCfg, cfg.FetchTimeout, log); err != nil {
			log.Error("Fetch job failed", zap.Error(err))
		}
	}

	if *once || cfg.FetchSchedule == "" {
		job()
		return
	}

	c, err := newScheduler(cfg.FetchSchedule, job)
	if err != nil {
		log.Fatal("Invalid FETCH_SCHEDULE", zap.String("schedule", cfg.FetchSchedule), zap.Error(err))
	}
	c.Start()
	log.Info("Fetcher scheduled", zap.String("schedule", cfg.FetchSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Stopping scheduler...")
	// Wait for a running job to finish
	<-c.Stop().Done()
	log.Info("Fetcher exited")
}

// newScheduler registers job on a standard five-field cron expression.
// A job still running when the next tick fires makes that tick a no-op.
func newScheduler(expr string, job func()) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(expr, job); err != nil {
		return nil, fmt.Errorf("add cron job: %w", err)
	}
	return c, nil
}

// runJob ranks one batch within timeout
func runJob(ctx context.Context, r ranker, refetch bool, cfg domain.FetchConfig, timeout time.Duration, log *zap.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		articles []domain.Article
		err      error
	)
	if refetch {
		articles, err = r.PurgeAndRefetch(ctx, cfg)
	} else {
		articles, err = r.GetRankedArticles(ctx, cfg)
	}
	if err != nil {
		return err
	}

	log.Info("Fetch job finished",
		zap.Bool("refetch", refetch),
		zap.Int("articles", len(articles)),
		zap.Duration("duration", time.Since(start)),
	)
	for i, a := range articles {
		if i == 5 {
			break
		}
		log.Info("Top article",
			zap.Int("rank", i+1),
			zap.String("title", a.Title),
			zap.Float64("final_score", a.Scores.Final),
		)
	}
	return nil
}
