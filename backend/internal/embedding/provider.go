// Package embedding turns article text into fixed-length vectors.
//
// Every vector produced by one deployment shares the same dimension D. Providers
// return an EmbeddingError for text that cannot be embedded, and callers use
// EmbedOrZero to fall back to a zero vector in that case.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/observability"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
)

// Provider defines the interface for embedding providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// Embed returns the vector for text. Identical text yields identical vectors.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns D, fixed for the lifetime of the provider
	Dimensions() int
}

// ErrDimensionMismatch is returned when a provider yields a vector of the wrong size
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Zero returns a zero vector of dimension d
func Zero(d int) []float32 {
	return make([]float32, d)
}

// EmbedOrZero embeds text with p and applies the fallback policy.
// Text that is empty after trimming, and text the provider rejects, produce a
// zero vector. Any other failure is returned as an ExternalServiceError.
func EmbedOrZero(ctx context.Context, p Provider, text string, log *zap.Logger) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return Zero(p.Dimensions()), nil
	}

	start := time.Now()
	vec, err := p.Embed(ctx, text)
	observability.RecordEmbedding(p.Name(), err == nil, time.Since(start))

	if err != nil {
		var embErr *apperrors.EmbeddingError
		if errors.As(err, &embErr) {
			if log != nil {
				log.Warn("Text could not be embedded, using zero vector",
					zap.String("provider", p.Name()),
					zap.Error(err),
				)
			}
			return Zero(p.Dimensions()), nil
		}
		if apperrors.IsFatalToBatch(err) {
			return nil, err
		}
		return nil, apperrors.NewExternalServiceError("embedding:"+p.Name(), err)
	}

	if len(vec) != p.Dimensions() {
		return nil, apperrors.NewExternalServiceError("embedding:"+p.Name(),
			fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), p.Dimensions()))
	}

	return vec, nil
}
