// Package wiring assembles adapters and use cases from configuration.
package wiring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/adapters/blobstore"
	"github.com/0xcro3dile/ulcerrag/internal/adapters/embedding"
	"github.com/0xcro3dile/ulcerrag/internal/adapters/llm"
	"github.com/0xcro3dile/ulcerrag/internal/adapters/loader"
	"github.com/0xcro3dile/ulcerrag/internal/adapters/parser"
	"github.com/0xcro3dile/ulcerrag/internal/adapters/vectordb"
	"github.com/0xcro3dile/ulcerrag/internal/config"
	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
	"github.com/0xcro3dile/ulcerrag/internal/domain/usecases"
	"github.com/0xcro3dile/ulcerrag/internal/infrastructure/observability"
)

// Provider names.
const (
	ProviderOllama      = "ollama"
	ProviderOpenAI      = "openai"
	ProviderHash        = "hash"
	ProviderHuggingFace = "huggingface"
)

// NewEmbedder creates the embedder named by cfg.Embedder.Provider.
func NewEmbedder(cfg *config.Config, logger *zap.Logger) (ports.Embedder, error) {
	e := cfg.Embedder
	switch e.Provider {
	case ProviderOllama:
		return embedding.NewOllamaAdapter(e.BaseURL, e.Model, logger), nil
	case ProviderOpenAI:
		oe, err := embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, e.BaseURL, e.Model, logger)
		if err != nil {
			return nil, err
		}
		return oe, nil
	case ProviderHash:
		return embedding.NewHashEmbedder(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", e.Provider)
	}
}

// NewGenerator creates the generator named by cfg.Generator.Provider.
func NewGenerator(cfg *config.Config, logger *zap.Logger) (ports.Generator, error) {
	g := cfg.Generator
	switch g.Provider {
	case ProviderHuggingFace:
		hf, err := llm.NewHuggingFaceAdapter(g.BaseURL, cfg.HuggingFaceToken, g.Model, logger)
		if err != nil {
			return nil, err
		}
		return hf, nil
	case ProviderOllama:
		return llm.NewOllamaLLMAdapter(g.BaseURL, g.Model, logger), nil
	case ProviderOpenAI:
		oa, err := llm.NewOpenAIAdapter(cfg.OpenAIAPIKey, g.BaseURL, g.Model, logger)
		if err != nil {
			return nil, err
		}
		return oa, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", g.Provider)
	}
}

// GenerateOptions maps configuration onto sampling parameters.
func GenerateOptions(cfg *config.Config) ports.GenerateOptions {
	opts := usecases.DefaultGenerateOptions()
	opts.MaxTokens = cfg.Generator.MaxTokens
	opts.Temperature = cfg.Generator.Temperature
	if len(cfg.Generator.Stop) > 0 {
		opts.Stop = cfg.Generator.Stop
	}
	return opts
}

// NewBuildUseCase assembles the offline indexing pipeline around embedder.
func NewBuildUseCase(cfg *config.Config, embedder ports.Embedder, logger *zap.Logger) (*usecases.BuildUseCase, error) {
	chunker, err := usecases.NewChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}
	docs := loader.NewFileLoader(cfg.Extensions, parser.NewPDFParser(), logger)
	return usecases.NewBuildUseCase(
		docs,
		chunker,
		embedder,
		vectordb.NewSQLiteStore(logger),
		vectordb.Factory,
		cfg.Embedder.BatchSize,
		logger,
	), nil
}

// Artifact resolves where the index lives locally. For an s3:// IndexPath the
// local copy sits in the temp directory and Remote holds the URI.
type Artifact struct {
	Local  string
	Remote string
}

// ResolveArtifact splits cfg.IndexPath into its local and remote parts.
func ResolveArtifact(cfg *config.Config) (Artifact, error) {
	if !blobstore.IsURI(cfg.IndexPath) {
		return Artifact{Local: cfg.IndexPath}, nil
	}
	_, key, err := blobstore.ParseURI(cfg.IndexPath)
	if err != nil {
		return Artifact{}, entities.NewError(entities.ErrInput, "resolve artifact", err)
	}
	return Artifact{
		Local:  filepath.Join(os.TempDir(), "ulcerrag-"+filepath.Base(key)),
		Remote: cfg.IndexPath,
	}, nil
}

// NewBlobStore connects to S3 using cfg.S3.
func NewBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.BlobStore, error) {
	store, err := blobstore.NewS3Store(ctx, blobstore.S3Options{
		Region:   cfg.S3.Region,
		Endpoint: cfg.S3.Endpoint,
	}, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Pipeline is the serving side: a hot-swappable index and the query use case over it.
type Pipeline struct {
	Index    *vectordb.Holder
	Store    ports.IndexStore
	Embedder ports.Embedder
	Metrics  *observability.Metrics

	query  *usecases.QueryUseCase
	logger *zap.Logger
}

// OpenPipeline loads the artifact at path and assembles the online pipeline.
// embedder and generator should already be instrumented if metrics are wanted.
func OpenPipeline(
	ctx context.Context,
	cfg *config.Config,
	path string,
	embedder ports.Embedder,
	generator ports.Generator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := vectordb.NewSQLiteStore(logger)
	idx, err := usecases.OpenIndex(ctx, store, embedder, path)
	if err != nil {
		return nil, err
	}

	prompts, err := usecases.NewPromptBuilder(usecases.MistralFormat, cfg.Retrieval.TopN)
	if err != nil {
		return nil, err
	}

	holder := vectordb.NewHolder(idx)
	p := &Pipeline{
		Index:    holder,
		Store:    store,
		Embedder: embedder,
		Metrics:  metrics,
		query: usecases.NewQueryUseCase(
			holder,
			usecases.NewRetriever(embedder, cfg.Retrieval.MinScore),
			prompts,
			generator,
			cfg.Retrieval.TopK,
			GenerateOptions(cfg),
			logger,
		),
		logger: logger,
	}
	if metrics != nil {
		metrics.SetIndexChunks(idx.Len())
	}
	logger.Info("Index loaded",
		zap.String("path", path),
		zap.Int("chunks", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.String("model", idx.ModelInfo()))
	return p, nil
}

// AnswerQuestion answers one question and records its outcome.
func (p *Pipeline) AnswerQuestion(ctx context.Context, question string) (*entities.Answer, error) {
	ans, err := p.query.AnswerQuestion(ctx, question)
	if p.Metrics != nil {
		switch {
		case err != nil:
			p.Metrics.ObserveQuery(observability.OutcomeError)
		case !ans.Grounded:
			p.Metrics.ObserveQuery(observability.OutcomeFallback)
		default:
			p.Metrics.ObserveQuery(observability.OutcomeOK)
		}
	}
	return ans, err
}

// Swap replaces the serving index.
func (p *Pipeline) Swap(idx ports.VectorIndex) {
	p.Index.Swap(idx)
	if p.Metrics != nil {
		p.Metrics.SetIndexChunks(idx.Len())
	}
}

// Reloader returns a reloader that swaps artifacts into p as they are replaced.
func (p *Pipeline) Reloader(watcher ports.FileWatcher) *usecases.Reloader {
	return usecases.NewReloader(p.Store, p.Embedder, watcher, p, p.logger)
}
