package engine

import (
	"context"
	"strings"

	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

// KeywordPolicy advances stages by scanning the assistant's latest response
// for stage-specific trigger phrases. Matching is case-insensitive substring
// search; a phrase inside a negation still matches. The policy never
// extracts data, it only flips the stage.
type KeywordPolicy struct{}

// NewKeywordPolicy creates the deterministic trigger-phrase policy.
func NewKeywordPolicy() *KeywordPolicy {
	return &KeywordPolicy{}
}

// Name identifies the policy.
func (p *KeywordPolicy) Name() string { return "keyword" }

// Decide scans the assistant response for the current stage's triggers.
func (p *KeywordPolicy) Decide(_ context.Context, ex Exchange, snap session.Snapshot) Decision {
	response := strings.ToLower(ex.AssistantResponse)

	advance := false
	switch snap.Stage {
	case stage.ContextDiscovery:
		advance = strings.Contains(response, "yes, that's right") ||
			strings.Contains(response, "correct")
	case stage.ObjectiveDefinition:
		advance = strings.Contains(response, "root cause") ||
			strings.Contains(response, "problem statement")
	case stage.MethodIdeation:
		advance = strings.Contains(response, "method") &&
			(strings.Contains(response, "1.") ||
				strings.Contains(response, "2.") ||
				strings.Contains(response, "3."))
	case stage.MethodSelection:
		advance = strings.Contains(response, "implementation plan")
	case stage.ImplementationPlan:
		advance = strings.Contains(response, "performance measures") &&
			strings.Contains(response, "learning questions")
	case stage.Complete:
		// Terminal, never advances.
	}

	d := Decision{Advance: advance}
	if advance {
		d.Reason = "trigger phrase matched for " + string(snap.Stage)
	} else {
		d.Reason = "no trigger phrase in assistant response"
	}
	return d
}
