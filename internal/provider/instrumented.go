package provider

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joshuamtm/compas-navigator/internal/observability"
	metrics "github.com/joshuamtm/compas-navigator/pkg/observability"
)

// InstrumentedCompleter wraps a Completer with tracing and metrics. Every
// upstream call gets a span, a duration/status counter, and token counters.
type InstrumentedCompleter struct {
	completer Completer
}

// NewInstrumentedCompleter wraps a completer with automatic observability.
func NewInstrumentedCompleter(completer Completer) *InstrumentedCompleter {
	return &InstrumentedCompleter{completer: completer}
}

// Name returns the wrapped provider's name.
func (p *InstrumentedCompleter) Name() string {
	return p.completer.Name()
}

// Complete calls the wrapped provider and records the outcome.
func (p *InstrumentedCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, span := observability.StartSpan(ctx, fmt.Sprintf("llm.%s.completion", p.completer.Name()),
		trace.WithAttributes(
			attribute.String("llm.provider", p.completer.Name()),
			attribute.String("llm.model", req.Model),
			attribute.Float64("llm.temperature", req.Temperature),
			attribute.Int("llm.max_tokens", req.MaxTokens),
			attribute.Int("llm.messages_count", len(req.Messages)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := p.completer.Complete(ctx, req)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
		attribute.Bool("llm.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		metrics.RecordLLMRequest(p.completer.Name(), req.Model, "error", duration)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", resp.Usage.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", resp.Usage.TotalTokens),
		attribute.String("llm.finish_reason", resp.FinishReason),
	)
	metrics.RecordLLMRequest(p.completer.Name(), req.Model, "success", duration)
	metrics.RecordLLMTokens(p.completer.Name(), req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp, nil
}

// InstrumentedAnalyzer wraps an Analyzer with tracing and failure metrics.
type InstrumentedAnalyzer struct {
	analyzer Analyzer
}

// NewInstrumentedAnalyzer wraps an analyzer with automatic observability.
func NewInstrumentedAnalyzer(analyzer Analyzer) *InstrumentedAnalyzer {
	return &InstrumentedAnalyzer{analyzer: analyzer}
}

// Analyze calls the wrapped analyzer and records the outcome.
func (a *InstrumentedAnalyzer) Analyze(ctx context.Context, sc StageContext) (*AnalysisResult, error) {
	ctx, span := observability.StartSpan(ctx, "llm.analysis",
		trace.WithAttributes(
			attribute.String("analysis.stage", string(sc.Stage)),
			attribute.Int("analysis.history_len", len(sc.RecentHistory)),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := a.analyzer.Analyze(ctx, sc)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int64("analysis.duration_ms", duration.Milliseconds()),
		attribute.Bool("analysis.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		metrics.RecordAnalysisFailure(string(sc.Stage))
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("analysis.should_progress", result.ShouldProgress),
		attribute.Int("analysis.completion_percentage", result.CompletionPercentage),
	)

	return result, nil
}
