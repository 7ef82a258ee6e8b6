package usecases

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// flakyEmbedder fails every EmbedBatch call after the first n.
type flakyEmbedder struct {
	mockEmbedder
	n       int32
	batches atomic.Int32
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.batches.Add(1) > f.n {
		return nil, errors.New("rate limited")
	}
	return f.mockEmbedder.EmbedBatch(ctx, texts)
}

// shortEmbedder drops the last vector of every batch.
type shortEmbedder struct{ mockEmbedder }

func (s *shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.mockEmbedder.EmbedBatch(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[:len(out)-1], nil
}

func newBuild(t *testing.T, docs []entities.SourceDocument, emb ports.Embedder, store ports.IndexStore, batch int) *BuildUseCase {
	t.Helper()
	return NewBuildUseCase(&mockLoader{docs: docs}, mustChunker(t, 80, 20), emb, store, mockFactory, batch, nil)
}

func TestBuild_EmbedsEveryChunkAndSaves(t *testing.T) {
	store := newMockStore()
	emb := &mockEmbedder{dim: 4, model: "mock/4"}

	report, err := newBuild(t, []entities.SourceDocument{doc("a", ulcerText)}, emb, store, 3).
		Build(context.Background(), "kb", "index.db")
	require.NoError(t, err)

	saved, ok := store.saved["index.db"]
	require.True(t, ok)
	assert.Equal(t, report.Chunks, saved.Len())
	assert.Equal(t, 4, saved.Dimension())
	assert.Equal(t, "mock/4", saved.ModelInfo())
	for _, ch := range saved.Chunks() {
		assert.Len(t, ch.Embedding, 4)
	}

	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 4, report.Dimension)
	assert.Equal(t, "mock/4", report.Model)
}

func TestBuild_EmbedFailureSavesNothing(t *testing.T) {
	store := newMockStore()
	emb := &flakyEmbedder{mockEmbedder: mockEmbedder{dim: 4}, n: 1}

	_, err := newBuild(t, []entities.SourceDocument{doc("a", ulcerText)}, emb, store, 2).
		Build(context.Background(), "kb", "index.db")

	assert.True(t, errors.Is(err, entities.ErrCapability))
	assert.Empty(t, store.saved, "a partial index must never be persisted")
	assert.Equal(t, int32(2), emb.batches.Load(), "build stops at the first failed batch")
}

func TestBuild_EmbeddingCountMismatch(t *testing.T) {
	store := newMockStore()
	_, err := newBuild(t, []entities.SourceDocument{doc("a", ulcerText)}, &shortEmbedder{mockEmbedder{dim: 4}}, store, 8).
		Build(context.Background(), "kb", "index.db")

	assert.True(t, errors.Is(err, entities.ErrCapability))
	assert.Empty(t, store.saved)
}

func TestBuild_EmptyKnowledgeBaseProbesDimension(t *testing.T) {
	store := newMockStore()
	emb := &mockEmbedder{dim: 7}

	report, err := newBuild(t, nil, emb, store, 0).Build(context.Background(), "kb", "index.db")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Chunks)
	assert.Equal(t, 7, report.Dimension)
	assert.Equal(t, 0, store.saved["index.db"].Len())
	assert.Equal(t, int32(1), emb.calls.Load())
}

func TestBuild_LoaderErrorKeepsKind(t *testing.T) {
	uc := NewBuildUseCase(
		&mockLoader{err: entities.Errorf(entities.ErrNotFound, "load", "no such file")},
		mustChunker(t, 80, 20), &mockEmbedder{dim: 3}, newMockStore(), mockFactory, 0, nil)

	_, err := uc.Build(context.Background(), "missing", "index.db")
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestOpenIndex(t *testing.T) {
	store := newMockStore()
	store.saved["idx"] = &mockIndex{dim: 384, model: "mock/a", results: scored("x")}

	idx, err := OpenIndex(context.Background(), store, &mockEmbedder{dim: 384, model: "mock/a"}, "idx")
	require.NoError(t, err)
	assert.Equal(t, 384, idx.Dimension())
}

func TestOpenIndex_DimensionMismatch(t *testing.T) {
	store := newMockStore()
	store.saved["idx"] = &mockIndex{dim: 384, model: "mock/a"}

	_, err := OpenIndex(context.Background(), store, &mockEmbedder{dim: 768, model: "mock/a"}, "idx")
	assert.True(t, errors.Is(err, entities.ErrIndexCorrupt))
}

func TestOpenIndex_ModelMismatch(t *testing.T) {
	store := newMockStore()
	store.saved["idx"] = &mockIndex{dim: 384, model: "mock/a"}

	_, err := OpenIndex(context.Background(), store, &mockEmbedder{dim: 384, model: "mock/b"}, "idx")
	assert.True(t, errors.Is(err, entities.ErrIndexCorrupt))
}

func TestOpenIndex_Errors(t *testing.T) {
	_, err := OpenIndex(context.Background(), newMockStore(), &mockEmbedder{dim: 3}, "missing")
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	store := newMockStore()
	store.saved["idx"] = &mockIndex{dim: 3}
	_, err = OpenIndex(context.Background(), store, &mockEmbedder{err: errors.New("down")}, "idx")
	assert.True(t, errors.Is(err, entities.ErrCapability))
}
