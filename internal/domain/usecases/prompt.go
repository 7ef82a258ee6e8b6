package usecases

import (
	"strings"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
)

const (
	// FallbackAnswer is the grounded refusal the model is instructed to give.
	FallbackAnswer = "I don't know, please consult a healthcare professional."

	// NoContext replaces the context block when retrieval found nothing.
	NoContext = "No relevant context found"

	// MaxTopN bounds how many passages go into one prompt.
	MaxTopN = 3

	systemInstruction = "You are a medical assistant specialized in gastric ulcers. " +
		"Answer the user's question using ONLY the provided context. " +
		"If the answer isn't in the context, say: \"" + FallbackAnswer + "\""
)

// PromptFormat holds a model family's instruction delimiters.
type PromptFormat struct {
	Open     string // Opens the instruction turn
	SysOpen  string
	SysClose string
	Close    string // Closes the instruction turn; the completion follows it
	Stop     string // End-of-sequence marker
}

// MistralFormat frames prompts for Mistral/Llama-2 style instruct models.
var MistralFormat = PromptFormat{
	Open:     "<s>[INST] ",
	SysOpen:  "<<SYS>>\n",
	SysClose: "\n<</SYS>>\n\n",
	Close:    " [/INST]",
	Stop:     "</s>",
}

// PromptBuilder renders retrieval results and a question into a grounded prompt.
type PromptBuilder struct {
	format PromptFormat
	topN   int
}

// NewPromptBuilder caps the context at topN passages, 1 <= topN <= MaxTopN.
func NewPromptBuilder(format PromptFormat, topN int) (*PromptBuilder, error) {
	if topN < 1 || topN > MaxTopN {
		return nil, entities.Errorf(entities.ErrInput, "prompt", "top_n must be in [1, %d], got %d", MaxTopN, topN)
	}
	return &PromptBuilder{format: format, topN: topN}, nil
}

// Format returns the delimiters this builder frames prompts with.
func (b *PromptBuilder) Format() PromptFormat {
	return b.format
}

// Context renders the top passages as a bulleted block, one line each,
// or the NoContext sentinel when there are none.
func (b *PromptBuilder) Context(results entities.RetrievalResult) (string, int) {
	lines := make([]string, 0, b.topN)
	for _, r := range results {
		if len(lines) == b.topN {
			break
		}
		line := singleLine(r.Chunk.Text)
		if line == "" {
			continue
		}
		lines = append(lines, "- "+line)
	}
	if len(lines) == 0 {
		return NoContext, 0
	}
	return strings.Join(lines, "\n"), len(lines)
}

// Build assembles the full prompt: system instruction, context, verbatim question.
func (b *PromptBuilder) Build(results entities.RetrievalResult, question string) entities.Prompt {
	ctxBlock, used := b.Context(results)

	var sb strings.Builder
	sb.WriteString(b.format.Open)
	sb.WriteString(b.format.SysOpen)
	sb.WriteString(systemInstruction)
	sb.WriteString(b.format.SysClose)
	sb.WriteString("Context:\n")
	sb.WriteString(ctxBlock)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString(b.format.Close)

	return entities.Prompt{
		Text:     sb.String(),
		Context:  ctxBlock,
		Question: question,
		Used:     used,
	}
}

// singleLine collapses internal newlines to spaces and trims the ends.
func singleLine(text string) string {
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(text)
}
