package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

const (
	openaiMaxRetries     = 3
	openaiRateLimitBurst = 5
)

// ErrEmptyResponse is returned when the embeddings endpoint returns no vectors
var ErrEmptyResponse = errors.New("empty embedding response")

// OpenAIConfig holds configuration for the OpenAI-compatible provider.
// BaseURL may point at OpenAI itself or at a LiteLLM/text-embeddings proxy.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	RPS        float64
}

// OpenAIProvider embeds text through an OpenAI-compatible embeddings endpoint
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	dimensions  int
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewOpenAIProvider creates a new OpenAI-compatible embedding provider
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	// Local proxies accept any key
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1"
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), openaiRateLimitBurst),
		logger:      logger.Named("embedding"),
	}
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Dimensions returns the configured output dimensions
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Embed generates an embedding for text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	}
	if strings.HasPrefix(p.model, "text-embedding-3") {
		req.Dimensions = p.dimensions
	}

	var resp openai.EmbeddingResponse
	var err error
	for attempt := 0; attempt < openaiMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			p.logger.Warn("Retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err = p.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err = p.client.CreateEmbeddings(ctx, req)
		if err == nil {
			break
		}
		if isRejectedInput(err) {
			return nil, apperrors.NewEmbeddingError(text, err)
		}

		p.logger.Error("Embedding request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", p.model),
		)
	}

	if err != nil {
		return nil, apperrors.NewExternalServiceError("embedding:openai",
			fmt.Errorf("failed after %d attempts: %w", openaiMaxRetries, err))
	}

	if len(resp.Data) == 0 {
		return nil, apperrors.NewExternalServiceError("embedding:openai", ErrEmptyResponse)
	}

	return resp.Data[0].Embedding, nil
}

// isRejectedInput reports whether the endpoint refused the text itself rather than failing
func isRejectedInput(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusBadRequest
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusBadRequest
	}
	return false
}
