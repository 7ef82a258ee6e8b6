package usecases

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// IndexSwapper publishes a freshly loaded index to readers.
type IndexSwapper interface {
	Swap(idx ports.VectorIndex)
}

// Reloader swaps in a new index whenever the artifact is replaced on disk.
// A replacement that fails to open is logged and the current index stays in service.
type Reloader struct {
	store    ports.IndexStore
	embedder ports.Embedder
	watcher  ports.FileWatcher
	target   IndexSwapper
	logger   *zap.Logger
}

// NewReloader creates a Reloader with injected dependencies.
func NewReloader(store ports.IndexStore, embedder ports.Embedder, watcher ports.FileWatcher, target IndexSwapper, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{
		store:    store,
		embedder: embedder,
		watcher:  watcher,
		target:   target,
		logger:   logger,
	}
}

// Run watches path until ctx is done or the watcher's event stream ends.
func (r *Reloader) Run(ctx context.Context, path string) error {
	events, err := r.watcher.Watch(ctx, filepath.Dir(path))
	if err != nil {
		return err
	}
	name := filepath.Base(path)

	for ev := range events {
		if filepath.Base(ev.Path) != name || ev.Operation == ports.FileDeleted {
			continue
		}
		r.reload(ctx, path)
	}
	return ctx.Err()
}

func (r *Reloader) reload(ctx context.Context, path string) {
	idx, err := OpenIndex(ctx, r.store, r.embedder, path)
	if err != nil {
		r.logger.Warn("Index reload failed, keeping current index", zap.String("path", path), zap.Error(err))
		return
	}
	r.target.Swap(idx)
	r.logger.Info("Index reloaded", zap.String("path", path), zap.Int("chunks", idx.Len()))
}
