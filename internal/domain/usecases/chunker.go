// Package usecases contains application business rules.
// Usecases orchestrate entities and depend only on port interfaces.
package usecases

import (
	"strconv"
	"unicode"

	"github.com/google/uuid"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ulcerrag/chunk"))

// span is a half-open rune range of a document.
type span struct{ start, end int }

func (s span) len() int { return s.end - s.start }

// separator reports the length of a boundary marker ending a piece at r[i], or 0.
type separator func(r []rune, i, end int) int

// Boundary levels, coarsest first. Text is only split at a finer level when a
// piece produced by the coarser one is still longer than the chunk size.
var separators = []separator{
	// paragraph
	func(r []rune, i, end int) int {
		if r[i] == '\n' && i+1 < end && r[i+1] == '\n' {
			return 2
		}
		return 0
	},
	// line
	func(r []rune, i, end int) int {
		if r[i] == '\n' {
			return 1
		}
		return 0
	},
	// sentence
	func(r []rune, i, end int) int {
		if (r[i] == '.' || r[i] == '?' || r[i] == '!') && i+1 < end && unicode.IsSpace(r[i+1]) {
			return 2
		}
		return 0
	},
	// word
	func(r []rune, i, end int) int {
		if unicode.IsSpace(r[i]) {
			return 1
		}
		return 0
	},
}

// Chunker splits documents into overlapping passages of bounded length.
// Lengths are counted in runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates 0 <= overlap < size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, entities.Errorf(entities.ErrInput, "chunk", "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, entities.Errorf(entities.ErrInput, "chunk", "chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks every document in order. Deterministic for equal input.
func (c *Chunker) Split(docs []entities.SourceDocument) []entities.Chunk {
	var chunks []entities.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.SplitDocument(doc)...)
	}
	return chunks
}

// SplitDocument chunks a single document.
func (c *Chunker) SplitDocument(doc entities.SourceDocument) []entities.Chunk {
	r := []rune(doc.Text)
	if len(r) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	prevEnd := -1
	for _, s := range c.split(r, span{0, len(r)}, 0) {
		s = trimSpan(r, s)
		// A window that is only a carried tail plus whitespace adds nothing.
		if s.len() == 0 || s.end <= prevEnd {
			continue
		}

		overlap := 0
		if prevEnd > s.start {
			overlap = prevEnd - s.start
		}
		prevEnd = s.end

		index := len(chunks)
		meta := make(map[string]string, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[entities.MetaChunkIndex] = strconv.Itoa(index)
		meta[entities.MetaOffset] = strconv.Itoa(s.start)

		chunks = append(chunks, entities.Chunk{
			ID:              chunkID(doc.ID, index),
			DocumentID:      doc.ID,
			Text:            string(r[s.start:s.end]),
			Index:           index,
			OverlapWithPrev: overlap,
			Metadata:        meta,
		})
	}
	return chunks
}

// split returns chunk spans for s using separator level and finer.
func (c *Chunker) split(r []rune, s span, level int) []span {
	if s.len() <= c.size {
		return []span{s}
	}

	// Find the coarsest level that actually divides s.
	var pieces []span
	for ; level < len(separators); level++ {
		pieces = splitAfter(r, s, separators[level])
		if len(pieces) > 1 {
			break
		}
	}
	if level == len(separators) {
		return c.merge(hardSplit(s, c.size))
	}

	var out, good []span
	for _, p := range pieces {
		if p.len() <= c.size {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good)...)
			good = nil
		}
		out = append(out, c.split(r, p, level+1)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(good)...)
	}
	return out
}

// merge packs contiguous pieces (each <= size) into windows of at most size
// runes, carrying a tail of at most overlap runes into the next window.
func (c *Chunker) merge(pieces []span) []span {
	var out []span
	var window []span
	total := 0

	for _, p := range pieces {
		if len(window) > 0 && total+p.len() > c.size {
			out = append(out, span{window[0].start, window[len(window)-1].end})
			for len(window) > 0 && (total > c.overlap || total+p.len() > c.size) {
				total -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, p)
		total += p.len()
	}
	if len(window) > 0 {
		out = append(out, span{window[0].start, window[len(window)-1].end})
	}
	return out
}

// splitAfter cuts s after every separator occurrence; separators stay with the preceding piece.
func splitAfter(r []rune, s span, sep separator) []span {
	var pieces []span
	start := s.start
	for i := s.start; i < s.end; {
		if n := sep(r, i, s.end); n > 0 {
			pieces = append(pieces, span{start, i + n})
			i += n
			start = i
			continue
		}
		i++
	}
	if start < s.end {
		pieces = append(pieces, span{start, s.end})
	}
	return pieces
}

func hardSplit(s span, size int) []span {
	var pieces []span
	for start := s.start; start < s.end; start += size {
		pieces = append(pieces, span{start, min(start+size, s.end)})
	}
	return pieces
}

func trimSpan(r []rune, s span) span {
	for s.start < s.end && unicode.IsSpace(r[s.start]) {
		s.start++
	}
	for s.end > s.start && unicode.IsSpace(r[s.end-1]) {
		s.end--
	}
	return s
}

// chunkID is stable across rebuilds of the same document.
func chunkID(docID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(docID+"#"+strconv.Itoa(index))).String()
}
