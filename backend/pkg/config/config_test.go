package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INTEREST_STATEMENT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.SimilarityThreshold)
	assert.Equal(t, 0.3, cfg.NeighborMinSimilarity)
	assert.Equal(t, 20, cfg.EntityNeighborLimit)
	assert.Equal(t, 10, cfg.ThemeNeighborLimit)
	assert.Equal(t, 20.0, cfg.AdmissionThreshold)
	assert.Equal(t, DefaultInterestStatement, cfg.InterestStatement)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NEWS_CATEGORIES", "business,technology")
	t.Setenv("THEME_NEIGHBOR_LIMIT", "20")
	t.Setenv("EMBEDDING_PROVIDER", "hash")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"business", "technology"}, cfg.NewsCategories)
	assert.Equal(t, 20, cfg.ThemeNeighborLimit)
	assert.Equal(t, "hash", cfg.EmbeddingProvider)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Neo4jURI:              "bolt://localhost:7687",
			PostgresDSN:           "postgres://localhost/curator",
			EmbeddingProvider:     "hash",
			EmbeddingDimensions:   384,
			SimilarityThreshold:   0.5,
			NeighborMinSimilarity: 0.3,
			EntityNeighborLimit:   20,
			ThemeNeighborLimit:    10,
			NewsPageSize:          50,
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Neo4jURI = ""
	assert.True(t, apperrors.IsErrorType(cfg.Validate(), apperrors.ErrorTypeConfig))

	cfg = base()
	cfg.EmbeddingProvider = "bert"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ThemeNeighborLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.NewsPageSize = 500
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ReuseMinArticles = -1
	assert.Error(t, cfg.Validate())

	// Zero thresholds are meaningful values, not "unset"
	cfg = base()
	cfg.SimilarityThreshold = 0
	cfg.AdmissionThreshold = 0
	cfg.ReuseMinArticles = 0
	assert.NoError(t, cfg.Validate())
}
