package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
)

type mockRanker struct {
	ranked, refetched int
	deadline          bool
	err               error
}

func (m *mockRanker) GetRankedArticles(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error) {
	m.ranked++
	_, m.deadline = ctx.Deadline()
	return []domain.Article{{Title: "a"}}, m.err
}

func (m *mockRanker) PurgeAndRefetch(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error) {
	m.refetched++
	return []domain.Article{{Title: "b"}}, m.err
}

func TestRunJob(t *testing.T) {
	r := &mockRanker{}
	require.NoError(t, runJob(context.Background(), r, false, domain.FetchConfig{}, time.Minute, zap.NewNop()))
	assert.Equal(t, 1, r.ranked)
	assert.Equal(t, 0, r.refetched)
	assert.True(t, r.deadline)

	require.NoError(t, runJob(context.Background(), r, true, domain.FetchConfig{}, 0, zap.NewNop()))
	assert.Equal(t, 1, r.refetched)
}

func TestRunJob_ReturnsError(t *testing.T) {
	r := &mockRanker{err: errors.New("newsapi down")}
	assert.Error(t, runJob(context.Background(), r, false, domain.FetchConfig{}, time.Minute, zap.NewNop()))
}

func TestNewScheduler(t *testing.T) {
	c, err := newScheduler("0 7 * * *", func() {})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = newScheduler("every morning", func() {})
	assert.Error(t, err)
}
