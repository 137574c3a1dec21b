// Package report renders a session into a markdown summary. Projection is
// pure: the same snapshot always renders the same text, and rendering never
// touches the session.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

const notYetProvided = "_not yet provided_"

// Render projects a session snapshot into markdown. Every stage gets a
// section in stage order; fields the conversation has not yet filled render
// as placeholders.
func Render(snap session.Snapshot) string {
	var b strings.Builder

	b.WriteString("# Workflow Coaching Report\n\n")
	fmt.Fprintf(&b, "Session: %s\n\n", snap.ID)
	fmt.Fprintf(&b, "Current stage: %s\n\n", snap.Stage.Title())

	for _, s := range stage.All() {
		if s.Terminal() {
			continue
		}
		renderStage(&b, snap, s)
	}

	if artifacts := activeArtifacts(snap); len(artifacts) > 0 {
		b.WriteString("## Attached Artifacts\n\n")
		for _, a := range artifacts {
			fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", a.Filename, a.Sensitivity, a.Size)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderStage(b *strings.Builder, snap session.Snapshot, s stage.Stage) {
	fmt.Fprintf(b, "## %s", s.Title())
	record, hasRecord := snap.StageData[s]
	if hasRecord && record.Completed {
		b.WriteString(" ✓")
	}
	b.WriteString("\n\n")

	criteria, _ := stage.CriteriaFor(s)

	var fields map[string]any
	if hasRecord {
		fields = record.Fields
	}

	// Required fields first, in criteria order, with placeholders.
	seen := make(map[string]bool, len(criteria.RequiredFields))
	for _, field := range criteria.RequiredFields {
		seen[field] = true
		value, ok := fields[field]
		if !ok {
			fmt.Fprintf(b, "- **%s**: %s\n", field, notYetProvided)
			continue
		}
		fmt.Fprintf(b, "- **%s**: %s\n", field, renderValue(value))
	}

	// Then any extra fields the analysis extracted, sorted for determinism.
	extras := make([]string, 0, len(fields))
	for field := range fields {
		if !seen[field] {
			extras = append(extras, field)
		}
	}
	sort.Strings(extras)
	for _, field := range extras {
		fmt.Fprintf(b, "- **%s**: %s\n", field, renderValue(fields[field]))
	}

	b.WriteString("\n")
}

// renderValue flattens a field value to a single markdown fragment. Lists
// render as semicolon-joined items so the report stays line-oriented.
func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return notYetProvided
	case string:
		if v == "" {
			return notYetProvided
		}
		return v
	case []any:
		if len(v) == 0 {
			return notYetProvided
		}
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, renderValue(item))
		}
		return strings.Join(parts, "; ")
	case []string:
		if len(v) == 0 {
			return notYetProvided
		}
		return strings.Join(v, "; ")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, renderValue(v[k])))
		}
		return strings.Join(parts, "; ")
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func activeArtifacts(snap session.Snapshot) []session.Artifact {
	var out []session.Artifact
	for _, a := range snap.Artifacts {
		if !a.Removed {
			out = append(out, a)
		}
	}
	return out
}
