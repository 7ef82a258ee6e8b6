// Package usecases - query.go answers one question per call with no retained state.
package usecases

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// Query defaults.
const (
	DefaultTopK        = 4
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.1

	promptLogLimit = 500
)

// DefaultGenerateOptions are the near-deterministic sampling parameters used for answers.
func DefaultGenerateOptions() ports.GenerateOptions {
	return ports.GenerateOptions{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Stop:        []string{MistralFormat.Stop},
	}
}

// QueryUseCase composes retrieval, prompt building and generation.
// Safe for concurrent use: the index and generator are shared read-only.
type QueryUseCase struct {
	index     ports.VectorIndex
	retriever *Retriever
	prompts   *PromptBuilder
	generator ports.Generator
	topK      int
	opts      ports.GenerateOptions
	logger    *zap.Logger
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(
	index ports.VectorIndex,
	retriever *Retriever,
	prompts *PromptBuilder,
	generator ports.Generator,
	topK int,
	opts ports.GenerateOptions,
	logger *zap.Logger,
) *QueryUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryUseCase{
		index:     index,
		retriever: retriever,
		prompts:   prompts,
		generator: generator,
		topK:      topK,
		opts:      opts,
		logger:    logger,
	}
}

// AnswerQuestion runs the full pipeline for one question.
// Any stage failure is returned as a single classified error; no partial answer is produced.
func (uc *QueryUseCase) AnswerQuestion(ctx context.Context, question string) (*entities.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, entities.Errorf(entities.ErrInput, "answer", "question is required")
	}

	// 1. Retrieve
	results, err := uc.retriever.Retrieve(ctx, uc.index, question, uc.topK)
	if err != nil {
		return nil, err
	}

	// 2. Build prompt
	prompt := uc.prompts.Build(results, question)
	uc.logger.Debug("Prompt built",
		zap.Int("hits", len(results)),
		zap.Int("context_chunks", prompt.Used),
		zap.String("prompt", truncate(prompt.Text, promptLogLimit)))

	// 3. Generate
	raw, err := uc.generator.Generate(ctx, prompt.Text, uc.opts)
	if err != nil {
		return nil, entities.NewError(entities.ErrCapability, "generate", err)
	}

	// 4. Strip prompt echo
	text := ExtractAnswer(raw, uc.prompts.Format())
	uc.logger.Debug("Answer generated", zap.String("answer", text))

	return &entities.Answer{
		Text:     text,
		Sources:  results[:prompt.Used],
		Grounded: !IsFallback(text),
	}, nil
}

// Search only retrieves relevant chunks without generation.
func (uc *QueryUseCase) Search(ctx context.Context, question string) (entities.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, entities.Errorf(entities.ErrInput, "search", "question is required")
	}
	return uc.retriever.Retrieve(ctx, uc.index, question, uc.topK)
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
