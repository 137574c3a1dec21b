// Package prompt renders the stage-aware instruction a completion
// collaborator receives each turn. Building is pure: the same session
// snapshot always yields the same prompt.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/joshuamtm/compas-navigator/internal/provider"
	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

// persona is the fixed coaching voice. It never varies per call.
const persona = `You are a workflow coach guiding a nonprofit professional through a ` +
	`structured problem-solving conversation. You work through five stages in order: ` +
	`understanding the context, defining the objective, brainstorming methods, selecting ` +
	`a method, and building an implementation plan. You ask focused questions, reflect ` +
	`back what you heard, and never skip ahead to a later stage. You never re-ask a ` +
	`question the user has already answered.`

// responseStyle is a global constraint, deliberately a constant rather than
// configuration.
const responseStyle = `Keep every response under 250 words. Prefer short paragraphs and ` +
	`numbered lists. Ask at most two questions per response.`

// stageGuidance describes, per stage, what the coach works toward and what
// counts as satisfying the stage.
var stageGuidance = map[stage.Stage]string{
	stage.ContextDiscovery: `Draw out the user's current situation, the people involved, and the ` +
		`constraints they operate under. Summarize your understanding and ask the user to confirm ` +
		`it. The stage is satisfied once the situation, stakeholders, and constraints are captured ` +
		`and the user has confirmed your summary is correct.`,
	stage.ObjectiveDefinition: `Help the user dig past symptoms to the root cause, then shape a clear ` +
		`problem statement with a desired outcome and success criteria. The stage is satisfied once ` +
		`the root problem, desired outcome, and success criteria are all stated.`,
	stage.MethodIdeation: `Brainstorm candidate methods together. Present options as a numbered list ` +
		`so the user can compare them. The stage is satisfied once at least two distinct candidate ` +
		`methods are on the table.`,
	stage.MethodSelection: `Help the user weigh the candidate methods and commit to one, with an ` +
		`explicit rationale for the choice. The stage is satisfied once a method is chosen and the ` +
		`rationale recorded; then move toward the implementation plan.`,
	stage.ImplementationPlan: `Turn the chosen method into concrete plan steps, and make sure the plan ` +
		`includes performance measures and learning questions. The stage is satisfied once steps, ` +
		`performance measures, and learning questions all exist.`,
	stage.Complete: `The coaching conversation is complete. Answer follow-up questions about the ` +
		`plan, and offer to walk through the final report.`,
}

// BuildTurn renders the system instruction and ordered prior turns for one
// completion call. The snapshot already contains the just-appended user
// message as its final history entry.
func BuildTurn(snap session.Snapshot) (string, []provider.Message) {
	var b strings.Builder

	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(responseStyle)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Current stage: %s.\n", snap.Stage.Title())
	b.WriteString(stageGuidance[snap.Stage])
	b.WriteString("\n")

	if criteria, ok := stage.CriteriaFor(snap.Stage); ok {
		fmt.Fprintf(&b, "\nInformation this stage must capture: %s.\n",
			strings.Join(criteria.RequiredFields, ", "))
		for field, min := range criteria.MinCounts {
			fmt.Fprintf(&b, "At least %d entries are needed for %s.\n", min, field)
		}
	}

	if known := renderKnownData(snap); known != "" {
		b.WriteString("\nWhat is already known (do not re-ask):\n")
		b.WriteString(known)
	}

	turns := make([]provider.Message, 0, len(snap.History))
	for _, m := range snap.History {
		turns = append(turns, provider.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	return b.String(), turns
}

// renderKnownData serializes gathered fields for the current stage and every
// stage before it, in stage order, with fields sorted for determinism.
func renderKnownData(snap session.Snapshot) string {
	var b strings.Builder

	for _, s := range stage.All() {
		if s != snap.Stage && !s.Before(snap.Stage) {
			break
		}
		record, ok := snap.StageData[s]
		if !ok || len(record.Fields) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s:\n", s.Title())
		fields := make([]string, 0, len(record.Fields))
		for k := range record.Fields {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		for _, k := range fields {
			val, err := json.Marshal(record.Fields[k])
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", k, val)
		}
	}

	return b.String()
}
