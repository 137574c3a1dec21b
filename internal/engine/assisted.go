package engine

import (
	"context"
	"log"

	"github.com/joshuamtm/compas-navigator/internal/provider"
	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

const defaultHistoryWindow = 6

// AssistedPolicy delegates the progression decision to an analysis
// collaborator. One extra round-trip per turn buys structured extraction:
// the verdict carries field values to merge alongside the advance decision.
// A failed or malformed analysis degrades to a no-op decision so the turn
// still completes.
type AssistedPolicy struct {
	analyzer      provider.Analyzer
	historyWindow int
}

// AssistedOption configures an AssistedPolicy.
type AssistedOption func(*AssistedPolicy)

// WithHistoryWindow bounds how many recent turns accompany each analysis.
func WithHistoryWindow(n int) AssistedOption {
	return func(p *AssistedPolicy) { p.historyWindow = n }
}

// NewAssistedPolicy creates the extraction policy over the given analyzer.
func NewAssistedPolicy(analyzer provider.Analyzer, opts ...AssistedOption) *AssistedPolicy {
	p := &AssistedPolicy{
		analyzer:      analyzer,
		historyWindow: defaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the policy.
func (p *AssistedPolicy) Name() string { return "assisted" }

// Decide runs one analysis round-trip and maps its verdict to a Decision.
func (p *AssistedPolicy) Decide(ctx context.Context, ex Exchange, snap session.Snapshot) Decision {
	if snap.Stage.Terminal() {
		return Decision{Reason: "session already complete"}
	}

	criteria, ok := stage.CriteriaFor(snap.Stage)
	if !ok {
		return Decision{Reason: "no criteria for stage " + string(snap.Stage)}
	}

	sc := provider.StageContext{
		Stage:             snap.Stage,
		Criteria:          criteria,
		UserMessage:       ex.UserMessage,
		AssistantResponse: ex.AssistantResponse,
		RecentHistory:     p.recentHistory(snap),
	}
	if record, ok := snap.StageData[snap.Stage]; ok {
		sc.StageData = record.Fields
	}

	result, err := p.analyzer.Analyze(ctx, sc)
	if err != nil {
		log.Printf("analysis failed for session %s stage %s: %v", snap.ID, snap.Stage, err)
		return failedDecision(err.Error())
	}

	return Decision{
		Merge:      result.ExtractedData,
		Advance:    result.ShouldProgress,
		Reason:     result.ProgressReason,
		Completion: result.CompletionPercentage,
		Missing:    result.MissingInformation,
	}
}

// recentHistory returns the last historyWindow messages before the current
// exchange. At decision time the snapshot's final history entry is the
// just-appended user message, which the StageContext already carries.
func (p *AssistedPolicy) recentHistory(snap session.Snapshot) []provider.Message {
	history := snap.History
	if len(history) >= 1 {
		history = history[:len(history)-1]
	}
	if len(history) > p.historyWindow {
		history = history[len(history)-p.historyWindow:]
	}

	msgs := make([]provider.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}
