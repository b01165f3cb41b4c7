package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// ErrNoChoices is returned when the LLM answers without any choice
var ErrNoChoices = errors.New("no choices in LLM response")

// ErrRejectedInput is returned when the endpoint refuses the prompt itself (HTTP 400,
// e.g. a content filter). Other inputs may still succeed.
var ErrRejectedInput = errors.New("LLM rejected input")

// LLMAdapter talks to an OpenAI-compatible chat endpoint (OpenAI, LiteLLM, Ollama)
// and asks for JSON object answers. It backs entity and theme extraction.
type LLMAdapter struct {
	client     *openai.Client
	model      string
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(baseURL, apiKey, modelID string) *LLMAdapter {
	// Local proxies accept any key
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"

	return &LLMAdapter{
		client:     openai.NewClientWithConfig(config),
		model:      modelID,
		maxRetries: 3,
		backoff:    time.Second,
		logger:     logger.Named("llm"),
	}
}

// Model returns the model requests are sent to
func (a *LLMAdapter) Model() string {
	return a.model
}

// GenerateJSON sends a system and user message and returns the raw JSON object the
// model produced. A refused prompt surfaces as ErrRejectedInput, every other
// failure as an ExternalServiceError.
func (a *LLMAdapter) GenerateJSON(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	}

	// Retry logic with linear backoff
	var resp openai.ChatCompletionResponse
	var err error
	attempts := 0
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.backoff
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", apperrors.NewExternalServiceError("llm", ctx.Err())
			case <-time.After(backoff):
			}
		}

		attempts++
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", a.model),
		)

		if status := statusCode(err); status == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %w", ErrRejectedInput, err)
		} else if status > 400 && status < 500 && status != http.StatusTooManyRequests {
			// Auth and routing errors will fail again
			break
		}
	}

	if err != nil {
		return "", apperrors.NewExternalServiceError("llm",
			fmt.Errorf("failed to generate response after %d attempts: %w", attempts, err))
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	a.logger.Debug("LLM response generated",
		zap.String("model", a.model),
		zap.Int("content_length", len(content)),
	)

	return content, nil
}

// statusCode returns the HTTP status carried by a go-openai error, 0 otherwise
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
