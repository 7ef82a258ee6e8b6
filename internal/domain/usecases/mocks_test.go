package usecases

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// mockEmbedder returns vec(text) or a fixed vector of length dim.
type mockEmbedder struct {
	dim   int
	model string
	vec   func(text string) []float32
	err   error
	calls atomic.Int32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if m.vec != nil {
		return m.vec(text), nil
	}
	v := make([]float32, m.dim)
	if m.dim > 0 {
		v[0] = 1
	}
	return v, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) ModelInfo() string {
	if m.model == "" {
		return "mock/embedder"
	}
	return m.model
}

// mockIndex returns canned results truncated to k.
type mockIndex struct {
	chunks  []entities.Chunk
	results entities.RetrievalResult
	dim     int
	model   string
	err     error
	lastK   atomic.Int32
}

func (m *mockIndex) Search(ctx context.Context, embedding []float32, k int) (entities.RetrievalResult, error) {
	m.lastK.Store(int32(k))
	if m.err != nil {
		return nil, m.err
	}
	res := append(entities.RetrievalResult(nil), m.results...)
	if k < len(res) {
		res = res[:k]
	}
	return res, nil
}

func (m *mockIndex) Chunks() []entities.Chunk { return m.chunks }

func (m *mockIndex) Len() int {
	if len(m.chunks) > 0 {
		return len(m.chunks)
	}
	return len(m.results)
}

func (m *mockIndex) Dimension() int    { return m.dim }
func (m *mockIndex) ModelInfo() string { return m.model }

func mockFactory(modelInfo string, dim int, chunks []entities.Chunk) (ports.VectorIndex, error) {
	return &mockIndex{chunks: chunks, dim: dim, model: modelInfo}, nil
}

// mockStore keeps saved indexes in memory keyed by path.
type mockStore struct {
	mu      sync.Mutex
	saved   map[string]ports.VectorIndex
	loadErr error
}

func newMockStore() *mockStore { return &mockStore{saved: map[string]ports.VectorIndex{}} }

func (m *mockStore) Save(ctx context.Context, idx ports.VectorIndex, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[dest] = idx
	return nil
}

func (m *mockStore) Load(ctx context.Context, src string) (ports.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	idx, ok := m.saved[src]
	if !ok {
		return nil, entities.Errorf(entities.ErrNotFound, "load index", "%s missing", src)
	}
	return idx, nil
}

type mockLoader struct {
	docs []entities.SourceDocument
	err  error
}

func (m *mockLoader) Load(ctx context.Context, path string) ([]entities.SourceDocument, error) {
	return m.docs, m.err
}

func (m *mockLoader) SupportedExtensions() []string { return []string{".txt"} }

// mockGenerator echoes the prompt followed by answer, like a model returning full text.
type mockGenerator struct {
	answer     string
	err        error
	calls      atomic.Int32
	mu         sync.Mutex
	lastPrompt string
	lastOpts   ports.GenerateOptions
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastPrompt = prompt
	m.lastOpts = opts
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return prompt + " " + m.answer + "</s>", nil
}

type mockWatcher struct {
	events chan ports.FileEvent
	dir    string
}

func (m *mockWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	m.dir = dir
	return m.events, nil
}

func (m *mockWatcher) Stop() error { return nil }

type swapRecorder struct {
	mu    sync.Mutex
	swaps []ports.VectorIndex
}

func (s *swapRecorder) Swap(idx ports.VectorIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps = append(s.swaps, idx)
}

func scored(texts ...string) entities.RetrievalResult {
	res := make(entities.RetrievalResult, len(texts))
	for i, t := range texts {
		res[i] = entities.ScoredChunk{
			Chunk: entities.Chunk{ID: t, Text: t},
			Score: 1 - float64(i)*0.1,
		}
	}
	return res
}
