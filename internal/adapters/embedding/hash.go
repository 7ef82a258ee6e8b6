package embedding

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"
)

// DefaultHashDimension is the vector size of a HashEmbedder built with dim <= 0.
const DefaultHashDimension = 384

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "can": true, "do": true, "does": true, "for": true, "from": true, "how": true,
	"i": true, "in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "what": true, "when": true, "which": true, "who": true,
	"why": true, "with": true, "you": true,
}

// HashEmbedder is an offline bag-of-words embedder using the hashing trick.
// Vectors are deterministic and L2-normalised; texts sharing content words
// score above zero, texts sharing none score zero.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder producing dim-sized vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// Embed never fails.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, tok := range tokens(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		vec[int(sum%uint32(e.dim))] += sign
	}
	l2normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

// ModelInfo includes the dimension since it changes the vector space.
func (e *HashEmbedder) ModelInfo() string {
	return "hash/" + strconv.Itoa(e.dim)
}

// tokens lower-cases text, splits on non-alphanumerics, drops stopwords
// and strips common English suffixes.
func tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

var suffixes = []string{"ing", "ed", "es", "s"}

func stem(word string) string {
	if len(word) <= 4 || strings.HasSuffix(word, "ss") {
		return word
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(word, suf) {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}
