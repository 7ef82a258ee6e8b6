package usecases

import (
	"context"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// NoMinScore disables the score cutoff; cosine similarity is never below -1.
const NoMinScore = -1.0

// Retriever embeds a question and searches an index. It holds no state between calls.
type Retriever struct {
	embedder ports.Embedder
	minScore float64
}

// NewRetriever creates a Retriever dropping hits scored below minScore.
func NewRetriever(embedder ports.Embedder, minScore float64) *Retriever {
	return &Retriever{embedder: embedder, minScore: minScore}
}

// Retrieve returns up to k chunks most similar to question.
// An empty index yields an empty result without calling the embedder.
func (r *Retriever) Retrieve(ctx context.Context, idx ports.VectorIndex, question string, k int) (entities.RetrievalResult, error) {
	if k <= 0 {
		return nil, entities.Errorf(entities.ErrInput, "retrieve", "k must be positive, got %d", k)
	}
	if idx.Len() == 0 {
		return entities.RetrievalResult{}, nil
	}

	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, entities.NewError(entities.ErrCapability, "embed question", err)
	}

	results, err := idx.Search(ctx, embedding, k)
	if err != nil {
		return nil, classify("search", err)
	}

	if r.minScore <= NoMinScore {
		return results, nil
	}
	kept := results[:0]
	for _, res := range results {
		if res.Score >= r.minScore {
			kept = append(kept, res)
		}
	}
	return kept, nil
}

// classify keeps an existing error kind and files anything else as a capability failure.
func classify(op string, err error) error {
	if entities.KindOf(err) != nil {
		return err
	}
	return entities.NewError(entities.ErrCapability, op, err)
}
