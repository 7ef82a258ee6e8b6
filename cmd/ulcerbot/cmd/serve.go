package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/adapters/filewatcher"
	"github.com/0xcro3dile/ulcerrag/internal/infrastructure/http"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	Long: `Serve POST /chat, GET /health and GET /metrics.

A local index artifact is watched; when it is replaced (for example by
"ulcerbot build") the new index is loaded and swapped in without a restart.

Examples:
  ulcerbot serve
  ulcerbot serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, art, err := openPipeline(ctx)
	if err != nil {
		return err
	}

	if cfg.Server.Watch && art.Remote == "" {
		watcher, err := filewatcher.NewFSNotifyWatcher([]string{filepath.Base(art.Local)}, logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		go func() {
			if err := p.Reloader(watcher).Run(ctx, art.Local); err != nil && ctx.Err() == nil {
				logger.Warn("Index watcher stopped", zap.Error(err))
			}
		}()
	}

	listen := cfg.Server.Addr
	if addr != "" {
		listen = addr
	}
	return http.NewServer(p, p.Metrics, listen, logger).Start(ctx)
}
