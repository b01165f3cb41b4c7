package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/similarity"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
)

type stubProvider struct {
	vec   []float32
	err   error
	dims  int
	calls int
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Dimensions() int { return s.dims }
func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider(64)
	ctx := context.Background()

	a, _ := p.Embed(ctx, "Nvidia beats earnings expectations")
	b, _ := p.Embed(ctx, "Nvidia beats earnings expectations")
	if len(a) != 64 {
		t.Fatalf("Expected 64 dimensions, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("Expected identical vectors for identical text")
		}
	}
}

func TestHashProvider_SimilarTextIsCloser(t *testing.T) {
	p := NewHashProvider(256)
	ctx := context.Background()

	base, _ := p.Embed(ctx, "AI chip stocks rally as Nvidia earnings surge")
	near, _ := p.Embed(ctx, "Nvidia earnings surge lifts AI chip stocks")
	far, _ := p.Embed(ctx, "Local bakery wins regional bread contest")

	if similarity.Cosine(base, near) <= similarity.Cosine(base, far) {
		t.Error("Expected overlapping text to be more similar than unrelated text")
	}
}

func TestHashProvider_NoWordsIsZero(t *testing.T) {
	p := NewHashProvider(16)
	v, err := p.Embed(context.Background(), "  !!! ... ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !similarity.IsZero(v) {
		t.Error("Expected zero vector for punctuation-only text")
	}
}

func TestEmbedOrZero_EmptyText(t *testing.T) {
	stub := &stubProvider{dims: 8}
	v, err := EmbedOrZero(context.Background(), stub, "   \n", nil)
	if err != nil {
		t.Fatalf("Expected no error for empty text, got %v", err)
	}
	if len(v) != 8 || !similarity.IsZero(v) {
		t.Errorf("Expected zero vector of dim 8, got %v", v)
	}
	if stub.calls != 0 {
		t.Error("Provider must not be called for empty text")
	}
}

func TestEmbedOrZero_EmbeddingErrorFallsBack(t *testing.T) {
	stub := &stubProvider{dims: 4, err: apperrors.NewEmbeddingError("???", nil)}
	v, err := EmbedOrZero(context.Background(), stub, "???", nil)
	if err != nil {
		t.Fatalf("Expected fallback, got error %v", err)
	}
	if !similarity.IsZero(v) || len(v) != 4 {
		t.Errorf("Expected zero vector, got %v", v)
	}
}

func TestEmbedOrZero_TransportErrorIsExternal(t *testing.T) {
	stub := &stubProvider{dims: 4, err: errors.New("connection refused")}
	_, err := EmbedOrZero(context.Background(), stub, "text", nil)
	if !apperrors.IsFatalToBatch(err) {
		t.Errorf("Expected external service error, got %v", err)
	}
}

func TestEmbedOrZero_DimensionMismatch(t *testing.T) {
	stub := &stubProvider{dims: 4, vec: []float32{1, 2}}
	_, err := EmbedOrZero(context.Background(), stub, "text", nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected dimension mismatch, got %v", err)
	}
}
