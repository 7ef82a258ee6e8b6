// Package entities contains core business entities.
// These are pure domain objects with no knowledge of storage, models or transport.
package entities

// Metadata keys shared by loaders, the chunker and the prompt builder.
const (
	MetaSource     = "source"
	MetaPath       = "path"
	MetaChunkIndex = "chunk_index"
	MetaOffset     = "offset"
)

// SourceDocument is one knowledge-base file as read by a loader.
// Immutable after creation; one document may yield many chunks.
type SourceDocument struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Source returns the originating file's base name.
func (d SourceDocument) Source() string {
	return d.Metadata[MetaSource]
}

// Chunk is a bounded excerpt of a SourceDocument, the unit of embedding and retrieval.
type Chunk struct {
	ID              string
	DocumentID      string
	Text            string
	Index           int // Position within the document
	OverlapWithPrev int // Runes shared with the previous chunk of the same document
	Metadata        map[string]string
	Embedding       []float32 // Populated once embedded
}

// Source returns the originating file's base name.
func (c Chunk) Source() string {
	return c.Metadata[MetaSource]
}

// ScoredChunk is one retrieval hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RetrievalResult is ordered by descending score and may be empty.
type RetrievalResult []ScoredChunk

// Prompt is the framed text sent to a generator along with the pieces it was built from.
type Prompt struct {
	Text     string
	Context  string // Rendered context block, or the no-context sentinel
	Question string
	Used     int // Number of chunks rendered into Context
}

// Answer is the post-processed generator output.
type Answer struct {
	Text     string
	Sources  []ScoredChunk
	Grounded bool // False when the fallback sentence was returned
}
