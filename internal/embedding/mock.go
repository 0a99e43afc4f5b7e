package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder generates deterministic embeddings from a text hash. It is
// useful for offline runs and tests: the same text always maps to the same
// unit vector, but vectors carry no semantic signal.
type MockEmbedder struct {
	dims int
}

// NewMockEmbedder creates a mock embedder. dims <= 0 defaults to 384
// (matching all-MiniLM-L6-v2).
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &MockEmbedder{dims: dims}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make(Vector, m.dims)
	var norm float64
	for i := range vec {
		// LCG seeded by the text hash
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float32(int64(seed)) / float32(math.MaxInt64)
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	vecs := make([]Vector, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

func (m *MockEmbedder) Dims() int { return m.dims }
