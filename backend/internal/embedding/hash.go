package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashProvider is a local, dependency-free provider using the feature-hashing trick:
// every lowercased word is hashed to a bucket and a sign, and the accumulated vector
// is L2-normalized. Texts sharing words get similar vectors, which is enough for
// offline development and tests.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a hash provider producing vectors of dimension dims
func NewHashProvider(dims int) *HashProvider {
	return &HashProvider{dimensions: dims}
}

// Name returns the provider identifier
func (p *HashProvider) Name() string {
	return "hash"
}

// Dimensions returns the output dimensions
func (p *HashProvider) Dimensions() int {
	return p.dimensions
}

// Embed hashes the words of text into a normalized vector.
// Text without any word characters yields a zero vector.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimensions)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w)) // fnv.Write never returns an error
		sum := h.Sum64()

		idx := sum % uint64(p.dimensions)
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}

	return vec, nil
}
