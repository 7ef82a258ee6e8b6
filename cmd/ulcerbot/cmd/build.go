package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/infrastructure/wiring"
)

var buildCmd = &cobra.Command{
	Use:   "build [source]",
	Short: "Build the vector index from the knowledge base",
	Long: `Load a text file or a directory of files, split it into chunks, embed every
chunk and write the index artifact. The previous artifact stays valid until
the new one is complete.

Examples:
  ulcerbot build
  ulcerbot build ulcer_kb/ --index s3://my-bucket/ulcer_index.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	source := cfg.KnowledgeBase
	if len(args) > 0 {
		source = args[0]
	}

	art, err := wiring.ResolveArtifact(cfg)
	if err != nil {
		return err
	}
	embedder, err := wiring.NewEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	builder, err := wiring.NewBuildUseCase(cfg, embedder, logger)
	if err != nil {
		return err
	}

	report, err := builder.Build(ctx, source, art.Local)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	if art.Remote != "" {
		blobs, err := wiring.NewBlobStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if err := blobs.Upload(ctx, art.Local, art.Remote); err != nil {
			return err
		}
		logger.Info("Index uploaded", zap.String("uri", art.Remote))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d documents (%s, dim %d) in %s -> %s\n",
		report.Chunks, report.Documents, report.Model, report.Dimension, report.Elapsed.Round(time.Millisecond), cfg.IndexPath)
	return nil
}
