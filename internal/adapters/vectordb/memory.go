// Package vectordb provides the vector index and its persisted artifact.
// The index is built once, then only read; replacing it means building a new one.
package vectordb

import (
	"context"
	"math"
	"sort"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// Index is an immutable exact nearest-neighbour index using cosine similarity.
// Safe for concurrent readers.
type Index struct {
	modelInfo string
	dim       int
	chunks    []entities.Chunk
	norms     []float64 // Precomputed L2 norm per chunk
}

var _ ports.VectorIndex = (*Index)(nil)

// NewIndex copies chunks into a ready-to-query index.
// Every embedding must have exactly dim components.
func NewIndex(modelInfo string, dim int, chunks []entities.Chunk) (*Index, error) {
	if dim <= 0 && len(chunks) > 0 {
		return nil, entities.Errorf(entities.ErrIndexCorrupt, "index", "invalid dimension %d", dim)
	}

	idx := &Index{
		modelInfo: modelInfo,
		dim:       dim,
		chunks:    make([]entities.Chunk, len(chunks)),
		norms:     make([]float64, len(chunks)),
	}
	for i, c := range chunks {
		if len(c.Embedding) != dim {
			return nil, entities.Errorf(entities.ErrIndexCorrupt, "index",
				"chunk %s has dimension %d, want %d", c.ID, len(c.Embedding), dim)
		}
		c.Embedding = append([]float32(nil), c.Embedding...)
		idx.chunks[i] = c
		idx.norms[i] = norm(c.Embedding)
	}
	return idx, nil
}

// Factory adapts NewIndex to the build use case.
func Factory(modelInfo string, dim int, chunks []entities.Chunk) (ports.VectorIndex, error) {
	return NewIndex(modelInfo, dim, chunks)
}

// Search finds the k chunks most similar to embedding.
func (x *Index) Search(ctx context.Context, embedding []float32, k int) (entities.RetrievalResult, error) {
	if k <= 0 {
		return nil, entities.Errorf(entities.ErrInput, "search", "k must be positive, got %d", k)
	}
	if len(x.chunks) == 0 {
		return entities.RetrievalResult{}, nil
	}
	if len(embedding) != x.dim {
		return nil, entities.Errorf(entities.ErrIndexCorrupt, "search",
			"query dimension %d does not match index dimension %d", len(embedding), x.dim)
	}

	qnorm := norm(embedding)
	results := make(entities.RetrievalResult, len(x.chunks))
	for i := range x.chunks {
		results[i] = entities.ScoredChunk{
			Chunk: x.chunks[i],
			Score: cosine(embedding, x.chunks[i].Embedding, qnorm, x.norms[i]),
		}
	}

	// Stable: equal scores keep insertion order, so growing k only extends the prefix.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k:k]
	}
	return results, nil
}

// Chunks returns a copy of the stored chunks in insertion order.
func (x *Index) Chunks() []entities.Chunk {
	return append([]entities.Chunk(nil), x.chunks...)
}

func (x *Index) Len() int          { return len(x.chunks) }
func (x *Index) Dimension() int    { return x.dim }
func (x *Index) ModelInfo() string { return x.modelInfo }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine calculates cosine similarity given both norms.
func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
