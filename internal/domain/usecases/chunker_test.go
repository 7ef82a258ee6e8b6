package usecases

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
)

const ulcerText = `Gastric ulcers are open sores that develop on the inside lining of the stomach. They are a type of peptic ulcer disease.

The most common symptom is burning stomach pain. Pain may be worse when the stomach is empty. Other symptoms include bloating, heartburn and nausea.
Severe ulcers can cause vomiting blood, dark stools and unexplained weight loss.

Ulcers are commonly caused by infection with Helicobacter pylori (H. pylori) and by long-term use of nonsteroidal anti-inflammatory drugs (NSAIDs) such as aspirin and ibuprofen. Smoking and alcohol may worsen ulcers.

Treatment usually includes proton pump inhibitors to reduce acid, antibiotics when H. pylori is present, and stopping NSAIDs where possible.`

func doc(id, text string) entities.SourceDocument {
	return entities.SourceDocument{
		ID:       id,
		Text:     text,
		Metadata: map[string]string{entities.MetaSource: id + ".txt"},
	}
}

func mustChunker(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := NewChunker(size, overlap)
	require.NoError(t, err)
	return c
}

// checkInvariants verifies length bounds, source fidelity and overlap for one document's chunks.
func checkInvariants(t *testing.T, text string, chunks []entities.Chunk, size, overlap int) {
	t.Helper()
	r := []rune(text)
	prevEnd := -1
	for i, ch := range chunks {
		n := utf8.RuneCountInString(ch.Text)
		assert.GreaterOrEqual(t, n, 1, "chunk %d empty", i)
		assert.LessOrEqual(t, n, size, "chunk %d too long", i)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, strings.TrimSpace(ch.Text), ch.Text, "chunk %d not trimmed", i)

		offset, err := strconv.Atoi(ch.Metadata[entities.MetaOffset])
		require.NoError(t, err)
		assert.Equal(t, ch.Text, string(r[offset:offset+n]), "chunk %d not a substring at its offset", i)
		assert.Equal(t, strconv.Itoa(i), ch.Metadata[entities.MetaChunkIndex])

		shared := 0
		if prevEnd > offset {
			shared = prevEnd - offset
		}
		assert.LessOrEqual(t, shared, overlap, "chunk %d overlaps too much", i)
		assert.Equal(t, shared, ch.OverlapWithPrev, "chunk %d overlap bookkeeping", i)
		if i > 0 {
			assert.Greater(t, offset+n, prevEnd, "chunk %d adds no new text", i)
		}
		prevEnd = offset + n
	}
}

func TestNewChunker_Validation(t *testing.T) {
	tests := []struct {
		size, overlap int
		ok            bool
	}{
		{500, 50, true},
		{10, 0, true},
		{10, 9, true},
		{10, 10, false},
		{10, 11, false},
		{10, -1, false},
		{0, 0, false},
		{-5, 0, false},
	}
	for _, tt := range tests {
		_, err := NewChunker(tt.size, tt.overlap)
		if tt.ok {
			assert.NoError(t, err, "size=%d overlap=%d", tt.size, tt.overlap)
		} else {
			assert.True(t, errors.Is(err, entities.ErrInput), "size=%d overlap=%d", tt.size, tt.overlap)
		}
	}
}

func TestChunker_Invariants(t *testing.T) {
	for _, cfg := range []struct{ size, overlap int }{
		{500, 50}, {120, 20}, {60, 15}, {25, 5}, {10, 0},
	} {
		c := mustChunker(t, cfg.size, cfg.overlap)
		chunks := c.SplitDocument(doc("ulcer", ulcerText))
		require.NotEmpty(t, chunks, "size=%d", cfg.size)
		checkInvariants(t, ulcerText, chunks, cfg.size, cfg.overlap)
	}
}

func TestChunker_ShortDocumentIsOneChunk(t *testing.T) {
	chunks := mustChunker(t, 500, 50).SplitDocument(doc("d", "  Ulcers hurt.\n"))
	require.Len(t, chunks, 1)
	assert.Equal(t, "Ulcers hurt.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].OverlapWithPrev)
}

func TestChunker_EmptyAndBlankDocuments(t *testing.T) {
	c := mustChunker(t, 50, 5)
	assert.Empty(t, c.SplitDocument(doc("e", "")))
	assert.Empty(t, c.SplitDocument(doc("b", " \n\n \t ")))
}

func TestChunker_BlankLineRunsDoNotDuplicate(t *testing.T) {
	text := "\n\n\n\n\n\n. é\n\n\n\n"
	chunks := mustChunker(t, 10, 8).SplitDocument(doc("d", text))
	require.Len(t, chunks, 1)
	assert.Equal(t, ". é", chunks[0].Text)
	checkInvariants(t, text, chunks, 10, 8)
}

func TestChunker_InvariantsOnGeneratedText(t *testing.T) {
	parts := []string{"\n", "\n\n", "\n\n\n\n", " ", ". ", "é", "ulcer", "a", "pylori"}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var b strings.Builder
		for n := rng.Intn(40); n > 0; n-- {
			b.WriteString(parts[rng.Intn(len(parts))])
		}
		text := b.String()
		size := 2 + rng.Intn(20)
		overlap := rng.Intn(size)

		chunks := mustChunker(t, size, overlap).SplitDocument(doc("g", text))
		checkInvariants(t, text, chunks, size, overlap)
		seen := map[string]bool{}
		for _, ch := range chunks {
			key := ch.Metadata[entities.MetaOffset] + "/" + ch.Text
			assert.False(t, seen[key], "duplicate chunk %q in %q (size=%d overlap=%d)", ch.Text, text, size, overlap)
			seen[key] = true
		}
	}
}

func TestChunker_PrefersParagraphBoundaries(t *testing.T) {
	chunks := mustChunker(t, 12, 0).SplitDocument(doc("p", "para one.\n\npara two."))
	require.Len(t, chunks, 2)
	assert.Equal(t, "para one.", chunks[0].Text)
	assert.Equal(t, "para two.", chunks[1].Text)
}

func TestChunker_WordLevelOverlap(t *testing.T) {
	words := make([]string, 40)
	for i := range words {
		words[i] = "word" + strconv.Itoa(i)
	}
	text := strings.Join(words, " ")

	chunks := mustChunker(t, 30, 10).SplitDocument(doc("w", text))
	require.Greater(t, len(chunks), 1)
	checkInvariants(t, text, chunks, 30, 10)

	overlapped := 0
	for _, ch := range chunks[1:] {
		if ch.OverlapWithPrev > 0 {
			overlapped++
		}
	}
	assert.Greater(t, overlapped, 0, "a tail should be carried between word-level chunks")
}

func TestChunker_HardSplitsUnbrokenText(t *testing.T) {
	text := strings.Repeat("a", 250)
	chunks := mustChunker(t, 100, 0).SplitDocument(doc("h", text))
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 100)
	assert.Len(t, chunks[1].Text, 100)
	assert.Len(t, chunks[2].Text, 50)
}

func TestChunker_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 150)
	chunks := mustChunker(t, 100, 0).SplitDocument(doc("u", text))
	require.Len(t, chunks, 2)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0].Text))
	assert.Equal(t, 50, utf8.RuneCountInString(chunks[1].Text))
}

func TestChunker_Deterministic(t *testing.T) {
	c := mustChunker(t, 80, 20)
	docs := []entities.SourceDocument{doc("a", ulcerText), doc("b", "Antacids neutralise acid.")}
	assert.Equal(t, c.Split(docs), c.Split(docs))
}

func TestChunker_MetadataAndIDs(t *testing.T) {
	c := mustChunker(t, 80, 20)
	chunks := c.Split([]entities.SourceDocument{doc("a", ulcerText), doc("b", ulcerText)})

	seen := map[string]bool{}
	for _, ch := range chunks {
		assert.False(t, seen[ch.ID], "duplicate id %s", ch.ID)
		seen[ch.ID] = true
		assert.Equal(t, ch.DocumentID+".txt", ch.Source())
		assert.Equal(t, chunkID(ch.DocumentID, ch.Index), ch.ID)
	}

	// Chunk metadata must not alias the document's map.
	d := doc("m", "short text")
	chunks = c.SplitDocument(d)
	chunks[0].Metadata[entities.MetaSource] = "changed"
	assert.Equal(t, "m.txt", d.Metadata[entities.MetaSource])
}
