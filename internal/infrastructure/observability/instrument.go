package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// Capability labels.
const (
	CapabilityEmbed    = "embed"
	CapabilityGenerate = "generate"
)

type instrumentedEmbedder struct {
	next    ports.Embedder
	metrics *Metrics
}

// InstrumentEmbedder wraps e so every call is timed, counted and traced.
func InstrumentEmbedder(e ports.Embedder, m *Metrics) ports.Embedder {
	return &instrumentedEmbedder{next: e, metrics: m}
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := startSpan(ctx, "embed", attribute.String("ulcerrag.model", e.next.ModelInfo()))
	start := time.Now()
	vec, err := e.next.Embed(ctx, text)
	e.metrics.ObserveCapability(CapabilityEmbed, time.Since(start), err)
	endSpan(span, err)
	return vec, err
}

func (e *instrumentedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := startSpan(ctx, "embed_batch",
		attribute.String("ulcerrag.model", e.next.ModelInfo()),
		attribute.Int("ulcerrag.batch_size", len(texts)))
	start := time.Now()
	vecs, err := e.next.EmbedBatch(ctx, texts)
	e.metrics.ObserveCapability(CapabilityEmbed, time.Since(start), err)
	endSpan(span, err)
	return vecs, err
}

func (e *instrumentedEmbedder) ModelInfo() string {
	return e.next.ModelInfo()
}

type instrumentedGenerator struct {
	next    ports.Generator
	metrics *Metrics
}

// InstrumentGenerator wraps g so every call is timed, counted and traced.
func InstrumentGenerator(g ports.Generator, m *Metrics) ports.Generator {
	return &instrumentedGenerator{next: g, metrics: m}
}

func (g *instrumentedGenerator) Generate(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	ctx, span := startSpan(ctx, "generate",
		attribute.Int("ulcerrag.prompt_chars", len(prompt)),
		attribute.Int("ulcerrag.max_tokens", opts.MaxTokens))
	start := time.Now()
	out, err := g.next.Generate(ctx, prompt, opts)
	g.metrics.ObserveCapability(CapabilityGenerate, time.Since(start), err)
	endSpan(span, err)
	return out, err
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
