// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
)

// Embedder maps text to dense vectors.
// Implementations must be deterministic for a fixed model.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in order; same per-item result as Embed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelInfo identifies provider and model, e.g. "ollama/nomic-embed-text".
	ModelInfo() string
}

// GenerateOptions are the sampling parameters for one completion.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Generator produces a raw completion for a fully framed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// VectorIndex is a read-only nearest-neighbour index over embedded chunks.
// Implementations are safe for concurrent use.
type VectorIndex interface {
	// Search returns at most k chunks by descending similarity, ties in insertion order.
	Search(ctx context.Context, embedding []float32, k int) (entities.RetrievalResult, error)

	// Chunks returns the stored chunks (with embeddings) in insertion order.
	Chunks() []entities.Chunk

	Len() int
	Dimension() int
	ModelInfo() string
}

// IndexStore persists and restores the index artifact.
type IndexStore interface {
	// Save writes idx to dest, replacing any existing artifact atomically.
	Save(ctx context.Context, idx VectorIndex, dest string) error

	// Load restores a read-only index from src.
	Load(ctx context.Context, src string) (VectorIndex, error)
}

// DocumentLoader reads a file or a directory of files into source documents.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]entities.SourceDocument, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// DocumentParser extracts text from binary document formats.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf").
	SupportedFormats() []string
}

// BlobStore moves index artifacts between local files and remote object storage.
type BlobStore interface {
	Upload(ctx context.Context, localPath, uri string) error
	Download(ctx context.Context, uri, localPath string) error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
