package prompt

import (
	"strings"
	"testing"

	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

func buildTestSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New("test-session")
	sess.AppendMessage(session.RoleUser, "Our volunteer program is struggling.")
	sess.AppendMessage(session.RoleAssistant, "Tell me more about the program.")
	sess.MergeStageData(stage.ContextDiscovery, map[string]any{
		"currentSituation": "volunteer attrition rising",
		"stakeholders":     []any{"program director", "volunteers"},
	})
	return sess
}

func TestBuildTurn_IncludesStageRequirements(t *testing.T) {
	sess := buildTestSession(t)

	system, turns := BuildTurn(sess.Snapshot())

	for _, want := range []string{"currentSituation", "stakeholders", "constraints"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing required field %q", want)
		}
	}
	if !strings.Contains(system, stage.ContextDiscovery.Title()) {
		t.Errorf("system prompt missing stage title %q", stage.ContextDiscovery.Title())
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Errorf("turn roles = %q, %q", turns[0].Role, turns[1].Role)
	}
}

func TestBuildTurn_IncludesKnownData(t *testing.T) {
	sess := buildTestSession(t)

	system, _ := BuildTurn(sess.Snapshot())

	if !strings.Contains(system, "volunteer attrition rising") {
		t.Error("system prompt missing gathered stage data")
	}
	if !strings.Contains(system, "do not re-ask") {
		t.Error("system prompt missing re-ask guard")
	}
}

func TestBuildTurn_PriorStageDataCarriesForward(t *testing.T) {
	sess := buildTestSession(t)
	sess.MergeStageData(stage.ContextDiscovery, map[string]any{"constraints": "small budget"})
	if !sess.AdvanceStage() {
		t.Fatal("AdvanceStage() = false")
	}
	sess.MergeStageData(stage.ObjectiveDefinition, map[string]any{"rootProblem": "no onboarding"})

	system, _ := BuildTurn(sess.Snapshot())

	// Current and prior stage data both appear.
	if !strings.Contains(system, "no onboarding") {
		t.Error("system prompt missing current stage data")
	}
	if !strings.Contains(system, "volunteer attrition rising") {
		t.Error("system prompt missing prior stage data")
	}
	// Later stages never leak in.
	if strings.Contains(system, stage.MethodIdeation.Title()) {
		t.Error("system prompt mentions a future stage's data section")
	}
}

func TestBuildTurn_Deterministic(t *testing.T) {
	sess := buildTestSession(t)
	sess.MergeStageData(stage.ContextDiscovery, map[string]any{
		"constraints": "small budget",
		"aArtifact":   "zFile",
	})
	snap := sess.Snapshot()

	first, _ := BuildTurn(snap)
	for i := 0; i < 10; i++ {
		again, _ := BuildTurn(snap)
		if again != first {
			t.Fatal("BuildTurn is not deterministic for the same snapshot")
		}
	}
}
