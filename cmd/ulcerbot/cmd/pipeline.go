package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/infrastructure/observability"
	"github.com/0xcro3dile/ulcerrag/internal/infrastructure/wiring"
)

// openPipeline fetches the artifact if it is remote and assembles the
// instrumented online pipeline over it.
func openPipeline(ctx context.Context) (*wiring.Pipeline, wiring.Artifact, error) {
	art, err := wiring.ResolveArtifact(cfg)
	if err != nil {
		return nil, art, err
	}
	if art.Remote != "" {
		blobs, err := wiring.NewBlobStore(ctx, cfg, logger)
		if err != nil {
			return nil, art, err
		}
		if err := blobs.Download(ctx, art.Remote, art.Local); err != nil {
			return nil, art, err
		}
	}

	metrics := observability.NewMetrics()
	embedder, err := wiring.NewEmbedder(cfg, logger)
	if err != nil {
		return nil, art, err
	}
	generator, err := wiring.NewGenerator(cfg, logger)
	if err != nil {
		return nil, art, err
	}

	p, err := wiring.OpenPipeline(ctx, cfg, art.Local,
		observability.InstrumentEmbedder(embedder, metrics),
		observability.InstrumentGenerator(generator, metrics),
		metrics, logger)
	if errors.Is(err, entities.ErrNotFound) {
		return nil, art, fmt.Errorf("%w (run `ulcerbot build` first)", err)
	}
	if err != nil {
		return nil, art, err
	}
	return p, art, nil
}
