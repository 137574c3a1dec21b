package report

import (
	"strings"
	"testing"

	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

func TestRender_EmptySessionHasPlaceholders(t *testing.T) {
	sess := session.New("empty")
	out := Render(sess.Snapshot())

	for _, s := range stage.All() {
		if s.Terminal() {
			continue
		}
		if !strings.Contains(out, "## "+s.Title()) {
			t.Errorf("report missing section for %s", s)
		}
	}
	if !strings.Contains(out, "_not yet provided_") {
		t.Error("report missing placeholder for absent fields")
	}
	if strings.Contains(out, "Attached Artifacts") {
		t.Error("artifact section rendered with no artifacts")
	}
}

func TestRender_SectionsInStageOrder(t *testing.T) {
	sess := session.New("order")
	out := Render(sess.Snapshot())

	last := -1
	for _, s := range stage.All() {
		if s.Terminal() {
			continue
		}
		idx := strings.Index(out, "## "+s.Title())
		if idx <= last {
			t.Fatalf("section %s out of order", s)
		}
		last = idx
	}
}

func TestRender_FilledFieldsAppear(t *testing.T) {
	sess := session.New("filled")
	sess.MergeStageData(stage.ContextDiscovery, map[string]any{
		"currentSituation": "volunteer attrition rising",
		"stakeholders":     []any{"director", "volunteers"},
		"surveyNotes":      "collected in March",
	})
	out := Render(sess.Snapshot())

	if !strings.Contains(out, "volunteer attrition rising") {
		t.Error("report missing string field")
	}
	if !strings.Contains(out, "director; volunteers") {
		t.Error("report missing joined list field")
	}
	// Extra extracted fields render after the required ones.
	if !strings.Contains(out, "surveyNotes") {
		t.Error("report missing extra extracted field")
	}
}

func TestRender_Idempotent(t *testing.T) {
	sess := session.New("idempotent")
	sess.AppendMessage(session.RoleUser, "hello")
	sess.MergeStageData(stage.ContextDiscovery, map[string]any{"constraints": "small budget"})
	snap := sess.Snapshot()

	before := sess.HistoryLen()
	first := Render(snap)
	second := Render(snap)

	if first != second {
		t.Error("rendering the same snapshot twice produced different output")
	}
	if sess.HistoryLen() != before {
		t.Error("rendering mutated the session")
	}
	if sess.Stage() != stage.ContextDiscovery {
		t.Error("rendering advanced the stage")
	}
}

func TestRender_CompletedStageMarked(t *testing.T) {
	sess := session.New("completed")
	if !sess.AdvanceStage() {
		t.Fatal("AdvanceStage() = false")
	}
	out := Render(sess.Snapshot())

	if !strings.Contains(out, stage.ContextDiscovery.Title()+" ✓") {
		t.Error("completed stage not marked")
	}
}

func TestRender_ActiveArtifactsOnly(t *testing.T) {
	sess := session.New("artifacts")
	keep := sess.AddArtifact(session.Artifact{Filename: "budget.xlsx", Sensitivity: "internal", Size: 2048})
	removed := sess.AddArtifact(session.Artifact{Filename: "draft.docx", Sensitivity: "internal", Size: 1024})
	_ = keep
	if !sess.RemoveArtifact(removed) {
		t.Fatal("RemoveArtifact() = false")
	}

	out := Render(sess.Snapshot())
	if !strings.Contains(out, "budget.xlsx") {
		t.Error("report missing active artifact")
	}
	if strings.Contains(out, "draft.docx") {
		t.Error("report lists removed artifact")
	}
}
