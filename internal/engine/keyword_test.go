package engine

import (
	"context"
	"testing"

	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

func snapshotAt(t *testing.T, target stage.Stage) session.Snapshot {
	t.Helper()
	sess := session.New("keyword-test")
	for sess.Stage() != target {
		if !sess.AdvanceStage() {
			t.Fatalf("cannot reach stage %s", target)
		}
	}
	return sess.Snapshot()
}

func TestKeywordPolicy_Triggers(t *testing.T) {
	policy := NewKeywordPolicy()

	tests := []struct {
		name     string
		stage    stage.Stage
		response string
		advance  bool
	}{
		{
			name:     "context confirmation phrase",
			stage:    stage.ContextDiscovery,
			response: "Yes, that's right, this matches my situation.",
			advance:  true,
		},
		{
			name:     "context correct alone",
			stage:    stage.ContextDiscovery,
			response: "Correct! Let me summarize what I heard.",
			advance:  true,
		},
		{
			name:     "context no trigger",
			stage:    stage.ContextDiscovery,
			response: "Let's explore options.",
			advance:  false,
		},
		{
			name:     "objective root cause",
			stage:    stage.ObjectiveDefinition,
			response: "It sounds like the root cause is unclear onboarding.",
			advance:  true,
		},
		{
			name:     "objective problem statement",
			stage:    stage.ObjectiveDefinition,
			response: "Here is a draft problem statement for you.",
			advance:  true,
		},
		{
			name:     "objective no trigger",
			stage:    stage.ObjectiveDefinition,
			response: "Tell me more about what you want to achieve.",
			advance:  false,
		},
		{
			name:     "ideation numbered methods",
			stage:    stage.MethodIdeation,
			response: "Here are some methods:\n1. Peer mentoring\n2. Group onboarding",
			advance:  true,
		},
		{
			name:     "ideation method without list",
			stage:    stage.MethodIdeation,
			response: "One method could be peer mentoring.",
			advance:  false,
		},
		{
			name:     "ideation list without method word",
			stage:    stage.MethodIdeation,
			response: "Consider:\n1. Mentoring\n2. Onboarding",
			advance:  false,
		},
		{
			name:     "selection implementation plan",
			stage:    stage.MethodSelection,
			response: "Great choice. Let's build the implementation plan.",
			advance:  true,
		},
		{
			name:     "plan both phrases",
			stage:    stage.ImplementationPlan,
			response: "Your plan now has performance measures and learning questions.",
			advance:  true,
		},
		{
			name:     "plan one phrase only",
			stage:    stage.ImplementationPlan,
			response: "We still need performance measures for each step.",
			advance:  false,
		},
		{
			name:     "complete never advances",
			stage:    stage.Complete,
			response: "Correct, your implementation plan covers performance measures and learning questions.",
			advance:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotAt(t, tt.stage)
			d := policy.Decide(context.Background(), Exchange{AssistantResponse: tt.response}, snap)
			if d.Advance != tt.advance {
				t.Errorf("Advance = %v, want %v", d.Advance, tt.advance)
			}
			if d.Failed {
				t.Error("keyword policy reported failure")
			}
			if len(d.Merge) != 0 {
				t.Error("keyword policy must never extract data")
			}
		})
	}
}

func TestKeywordPolicy_CaseInsensitive(t *testing.T) {
	policy := NewKeywordPolicy()
	snap := snapshotAt(t, stage.MethodSelection)

	d := policy.Decide(context.Background(),
		Exchange{AssistantResponse: "Now for the IMPLEMENTATION PLAN."}, snap)
	if !d.Advance {
		t.Error("matching must be case-insensitive")
	}
}
