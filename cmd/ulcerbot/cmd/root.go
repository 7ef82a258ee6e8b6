package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/config"
)

var (
	// configPath is the optional YAML configuration file
	configPath string
	// debug switches to the development logger at debug level
	debug bool

	indexPath     string
	embedderName  string
	generatorName string

	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ulcerbot",
	Short: "Retrieval-augmented question answering about gastric ulcers",
	Long: `ulcerbot answers questions about gastric ulcers from a fixed knowledge base.

Answers are grounded in passages retrieved from a prebuilt index; when the
knowledge base does not cover a question the assistant says so.

Examples:
  # Build the index from ulcer.txt (or a directory of .txt files)
  ulcerbot build ulcer.txt

  # Ask a single question
  ulcerbot ask "What causes stomach ulcers?"

  # Interactive session
  ulcerbot chat

  # HTTP API on :8000
  ulcerbot serve`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&indexPath, "index", "", "Index artifact path or s3://bucket/key (default ulcer_index.db)")
	rootCmd.PersistentFlags().StringVar(&embedderName, "embedder", "", "Embedding provider: ollama, openai, hash")
	rootCmd.PersistentFlags().StringVar(&generatorName, "generator", "", "Generation provider: huggingface, ollama, openai")
}

// loadConfig layers command-line flags over file and environment settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if changed(cmd, "index") {
		c.IndexPath = indexPath
	}
	if changed(cmd, "embedder") {
		c.Embedder.Provider = embedderName
	}
	if changed(cmd, "generator") {
		c.Generator.Provider = generatorName
	}
	if debug {
		c.Log.Development = true
		c.Log.Level = "debug"
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func changed(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Changed(name) || cmd.PersistentFlags().Changed(name)
}

func newLogger(c *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	zc.Level = level
	return zc.Build()
}
