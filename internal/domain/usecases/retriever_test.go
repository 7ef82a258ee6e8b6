package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
)

func TestRetriever_DelegatesToIndex(t *testing.T) {
	emb := &mockEmbedder{dim: 3}
	idx := &mockIndex{results: scored("a", "b", "c", "d", "e")}

	res, err := NewRetriever(emb, NoMinScore).Retrieve(context.Background(), idx, "q", 4)
	require.NoError(t, err)
	assert.Len(t, res, 4)
	assert.Equal(t, int32(4), idx.lastK.Load())
	assert.Equal(t, int32(1), emb.calls.Load())
}

func TestRetriever_EmptyIndexSkipsEmbedding(t *testing.T) {
	emb := &mockEmbedder{dim: 3}
	res, err := NewRetriever(emb, NoMinScore).Retrieve(context.Background(), &mockIndex{}, "q", 4)

	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestRetriever_NonPositiveK(t *testing.T) {
	r := NewRetriever(&mockEmbedder{dim: 3}, NoMinScore)
	for _, k := range []int{0, -3} {
		_, err := r.Retrieve(context.Background(), &mockIndex{results: scored("a")}, "q", k)
		assert.True(t, errors.Is(err, entities.ErrInput), "k=%d", k)
	}
}

func TestRetriever_MinScore(t *testing.T) {
	idx := &mockIndex{results: entities.RetrievalResult{
		{Chunk: entities.Chunk{ID: "hi"}, Score: 0.9},
		{Chunk: entities.Chunk{ID: "mid"}, Score: 0.5},
		{Chunk: entities.Chunk{ID: "low"}, Score: -0.2},
	}}

	res, err := NewRetriever(&mockEmbedder{dim: 3}, 0.5).Retrieve(context.Background(), idx, "q", 3)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "hi", res[0].Chunk.ID)
	assert.Equal(t, "mid", res[1].Chunk.ID)

	res, err = NewRetriever(&mockEmbedder{dim: 3}, NoMinScore).Retrieve(context.Background(), idx, "q", 3)
	require.NoError(t, err)
	assert.Len(t, res, 3)
}

func TestRetriever_EmbedFailureIsCapability(t *testing.T) {
	cause := errors.New("connection refused")
	_, err := NewRetriever(&mockEmbedder{err: cause}, NoMinScore).
		Retrieve(context.Background(), &mockIndex{results: scored("a")}, "q", 2)

	assert.True(t, errors.Is(err, entities.ErrCapability))
	assert.True(t, errors.Is(err, cause))
}

func TestRetriever_SearchErrorKeepsKind(t *testing.T) {
	idx := &mockIndex{
		results: scored("a"),
		err:     entities.Errorf(entities.ErrIndexCorrupt, "search", "dimension mismatch"),
	}
	_, err := NewRetriever(&mockEmbedder{dim: 3}, NoMinScore).Retrieve(context.Background(), idx, "q", 2)
	assert.True(t, errors.Is(err, entities.ErrIndexCorrupt))
	assert.False(t, errors.Is(err, entities.ErrCapability))

	idx.err = errors.New("unexpected")
	_, err = NewRetriever(&mockEmbedder{dim: 3}, NoMinScore).Retrieve(context.Background(), idx, "q", 2)
	assert.True(t, errors.Is(err, entities.ErrCapability))
}
