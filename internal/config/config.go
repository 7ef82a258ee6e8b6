// Package config loads ulcerrag settings from defaults, a YAML file, .env
// files and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every ulcerrag environment variable.
const EnvPrefix = "ULCERRAG_"

// Config is the complete runtime configuration.
type Config struct {
	KnowledgeBase string   `yaml:"knowledge_base"`
	IndexPath     string   `yaml:"index_path"`
	Extensions    []string `yaml:"extensions"`

	Chunk     ChunkConfig     `yaml:"chunk"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	S3        S3Config        `yaml:"s3"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`

	// Secrets come from the environment only.
	HuggingFaceToken string `yaml:"-"`
	OpenAIAPIKey     string `yaml:"-"`
}

type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	TopN     int     `yaml:"top_n"`
	MinScore float64 `yaml:"min_score"`
}

type EmbedderConfig struct {
	Provider  string `yaml:"provider"` // ollama | openai | hash
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"` // hash provider only
	BatchSize int    `yaml:"batch_size"`
}

type GeneratorConfig struct {
	Provider    string   `yaml:"provider"` // huggingface | ollama | openai
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature float64  `yaml:"temperature"`
	Stop        []string `yaml:"stop"`
}

type S3Config struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		KnowledgeBase: "ulcer.txt",
		IndexPath:     "ulcer_index.db",
		Extensions:    []string{".txt"},
		Chunk:         ChunkConfig{Size: 500, Overlap: 50},
		Retrieval:     RetrievalConfig{TopK: 4, TopN: 3, MinScore: -1},
		Embedder: EmbedderConfig{
			Provider:  "ollama",
			BatchSize: 32,
		},
		Generator: GeneratorConfig{
			Provider:    "huggingface",
			Model:       "mistralai/Mistral-7B-Instruct-v0.3",
			MaxTokens:   512,
			Temperature: 0.1,
			Stop:        []string{"</s>"},
		},
		Server: ServerConfig{Addr: ":8000", Watch: true},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional),
// the given .env files (missing files are skipped) and the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(name); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}

	str(EnvPrefix+"KNOWLEDGE_BASE", &c.KnowledgeBase)
	str(EnvPrefix+"INDEX_PATH", &c.IndexPath)
	if v, ok := lookup(EnvPrefix + "EXTENSIONS"); ok && v != "" {
		c.Extensions = strings.Split(v, ",")
	}
	num(EnvPrefix+"CHUNK_SIZE", &c.Chunk.Size)
	num(EnvPrefix+"CHUNK_OVERLAP", &c.Chunk.Overlap)
	num(EnvPrefix+"TOP_K", &c.Retrieval.TopK)
	num(EnvPrefix+"TOP_N", &c.Retrieval.TopN)
	float(EnvPrefix+"MIN_SCORE", &c.Retrieval.MinScore)
	str(EnvPrefix+"EMBEDDER", &c.Embedder.Provider)
	str(EnvPrefix+"EMBED_MODEL", &c.Embedder.Model)
	str(EnvPrefix+"EMBED_URL", &c.Embedder.BaseURL)
	str(EnvPrefix+"GENERATOR", &c.Generator.Provider)
	str(EnvPrefix+"GEN_MODEL", &c.Generator.Model)
	str(EnvPrefix+"GEN_URL", &c.Generator.BaseURL)
	num(EnvPrefix+"MAX_TOKENS", &c.Generator.MaxTokens)
	float(EnvPrefix+"TEMPERATURE", &c.Generator.Temperature)
	str(EnvPrefix+"S3_REGION", &c.S3.Region)
	str(EnvPrefix+"S3_ENDPOINT", &c.S3.Endpoint)
	str(EnvPrefix+"ADDR", &c.Server.Addr)
	str(EnvPrefix+"LOG_LEVEL", &c.Log.Level)

	str("HUGGINGFACEHUB_API_TOKEN", &c.HuggingFaceToken)
	str("OPENAI_API_KEY", &c.OpenAIAPIKey)

	return errors.Join(errs...)
}

// Validate checks bounds the pipeline relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Chunk.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size))
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		errs = append(errs, fmt.Errorf("chunk.overlap must be in [0, chunk.size), got %d", c.Chunk.Overlap))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.TopN < 1 || c.Retrieval.TopN > 3 {
		errs = append(errs, fmt.Errorf("retrieval.top_n must be between 1 and 3, got %d", c.Retrieval.TopN))
	}
	if c.Retrieval.MinScore < -1 || c.Retrieval.MinScore > 1 {
		errs = append(errs, fmt.Errorf("retrieval.min_score must be in [-1, 1], got %g", c.Retrieval.MinScore))
	}
	if c.Generator.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("generator.max_tokens must be positive, got %d", c.Generator.MaxTokens))
	}
	if c.Generator.Temperature < 0 {
		errs = append(errs, fmt.Errorf("generator.temperature must not be negative, got %g", c.Generator.Temperature))
	}
	if c.Embedder.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedder.batch_size must be positive, got %d", c.Embedder.BatchSize))
	}
	if c.IndexPath == "" {
		errs = append(errs, errors.New("index_path must be set"))
	}
	return errors.Join(errs...)
}
