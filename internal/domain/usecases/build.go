package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// DefaultEmbedBatchSize is how many chunks go into one EmbedBatch call.
const DefaultEmbedBatchSize = 32

// dimensionProbe is embedded to learn the active model's vector size.
const dimensionProbe = "dimension probe"

// IndexFactory creates an immutable index from embedded chunks.
type IndexFactory func(modelInfo string, dim int, chunks []entities.Chunk) (ports.VectorIndex, error)

// BuildReport summarises an offline index build.
type BuildReport struct {
	Documents int
	Chunks    int
	Dimension int
	Model     string
	Elapsed   time.Duration
}

// BuildUseCase runs the offline pipeline: load, chunk, embed, index, persist.
// It must not run concurrently against the same destination.
type BuildUseCase struct {
	loader    ports.DocumentLoader
	chunker   *Chunker
	embedder  ports.Embedder
	store     ports.IndexStore
	newIndex  IndexFactory
	batchSize int
	logger    *zap.Logger
}

// NewBuildUseCase creates a BuildUseCase with injected dependencies.
func NewBuildUseCase(
	loader ports.DocumentLoader,
	chunker *Chunker,
	embedder ports.Embedder,
	store ports.IndexStore,
	newIndex IndexFactory,
	batchSize int,
	logger *zap.Logger,
) *BuildUseCase {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuildUseCase{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		newIndex:  newIndex,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Build indexes the documents at source and saves the artifact at dest.
// Nothing is written unless every chunk was embedded.
func (uc *BuildUseCase) Build(ctx context.Context, source, dest string) (*BuildReport, error) {
	start := time.Now()

	docs, err := uc.loader.Load(ctx, source)
	if err != nil {
		return nil, classify("load documents", err)
	}
	chunks := uc.chunker.Split(docs)
	uc.logger.Info("Chunked knowledge base",
		zap.String("source", source),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))

	if err := uc.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	dim := 0
	if len(chunks) > 0 {
		dim = len(chunks[0].Embedding)
	} else {
		probe, err := uc.embedder.Embed(ctx, dimensionProbe)
		if err != nil {
			return nil, entities.NewError(entities.ErrCapability, "embed", err)
		}
		dim = len(probe)
	}

	idx, err := uc.newIndex(uc.embedder.ModelInfo(), dim, chunks)
	if err != nil {
		return nil, classify("index", err)
	}
	if err := uc.store.Save(ctx, idx, dest); err != nil {
		return nil, fmt.Errorf("saving index to %s: %w", dest, err)
	}

	report := &BuildReport{
		Documents: len(docs),
		Chunks:    len(chunks),
		Dimension: dim,
		Model:     uc.embedder.ModelInfo(),
		Elapsed:   time.Since(start),
	}
	uc.logger.Info("Index built",
		zap.String("dest", dest),
		zap.Int("chunks", report.Chunks),
		zap.Int("dimension", report.Dimension),
		zap.String("model", report.Model),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (uc *BuildUseCase) embedChunks(ctx context.Context, chunks []entities.Chunk) error {
	for start := 0; start < len(chunks); start += uc.batchSize {
		end := min(start+uc.batchSize, len(chunks))

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Text
		}

		embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return entities.NewError(entities.ErrCapability, "embed", err)
		}
		if len(embeddings) != len(texts) {
			return entities.Errorf(entities.ErrCapability, "embed", "got %d embeddings for %d chunks", len(embeddings), len(texts))
		}
		for i, emb := range embeddings {
			chunks[start+i].Embedding = emb
		}
		uc.logger.Debug("Embedded batch", zap.Int("done", end), zap.Int("total", len(chunks)))
	}
	return nil
}

// OpenIndex loads the artifact at src and checks it against the active embedder.
// A dimension or model mismatch is reported as ErrIndexCorrupt.
func OpenIndex(ctx context.Context, store ports.IndexStore, embedder ports.Embedder, src string) (ports.VectorIndex, error) {
	idx, err := store.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	probe, err := embedder.Embed(ctx, dimensionProbe)
	if err != nil {
		return nil, entities.NewError(entities.ErrCapability, "embed", err)
	}
	if len(probe) != idx.Dimension() {
		return nil, entities.Errorf(entities.ErrIndexCorrupt, "open index",
			"%s has dimension %d but embedder %s produces %d", src, idx.Dimension(), embedder.ModelInfo(), len(probe))
	}
	if idx.ModelInfo() != embedder.ModelInfo() {
		return nil, entities.Errorf(entities.ErrIndexCorrupt, "open index",
			"%s was built with %s, active embedder is %s", src, idx.ModelInfo(), embedder.ModelInfo())
	}
	return idx, nil
}
