package vectordb

import (
	"context"
	"sync/atomic"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// Holder serves queries from whichever index was stored last.
// In-flight searches finish against the index they started on.
type Holder struct {
	current atomic.Pointer[indexBox]
}

type indexBox struct{ idx ports.VectorIndex }

var _ ports.VectorIndex = (*Holder)(nil)

// NewHolder creates a Holder serving idx.
func NewHolder(idx ports.VectorIndex) *Holder {
	h := &Holder{}
	h.Swap(idx)
	return h
}

// Swap replaces the served index.
func (h *Holder) Swap(idx ports.VectorIndex) {
	h.current.Store(&indexBox{idx: idx})
}

// Current returns the served index.
func (h *Holder) Current() ports.VectorIndex {
	return h.current.Load().idx
}

func (h *Holder) Search(ctx context.Context, embedding []float32, k int) (entities.RetrievalResult, error) {
	return h.Current().Search(ctx, embedding, k)
}

func (h *Holder) Chunks() []entities.Chunk { return h.Current().Chunks() }
func (h *Holder) Len() int                 { return h.Current().Len() }
func (h *Holder) Dimension() int           { return h.Current().Dimension() }
func (h *Holder) ModelInfo() string        { return h.Current().ModelInfo() }
