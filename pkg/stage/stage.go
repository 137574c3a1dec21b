// Package stage defines the fixed COMPAS coaching stages and the static
// criteria table that drives stage progression. The stage order is total
// and forward-only: sessions enter at ContextDiscovery, advance one stage
// at a time, and terminate at Complete.
package stage

// Stage identifies one phase of the coaching workflow.
type Stage string

const (
	// ContextDiscovery gathers the user's situation, stakeholders, and constraints.
	ContextDiscovery Stage = "context_discovery"
	// ObjectiveDefinition pins down the root problem and desired outcome.
	ObjectiveDefinition Stage = "objective_definition"
	// MethodIdeation brainstorms candidate methods.
	MethodIdeation Stage = "method_ideation"
	// MethodSelection commits to one method with a rationale.
	MethodSelection Stage = "method_selection"
	// ImplementationPlan produces plan steps, performance measures, and learning questions.
	ImplementationPlan Stage = "implementation_plan"
	// Complete is the terminal stage. No transition leaves it.
	Complete Stage = "complete"
)

// order is the fixed total order of stages. Adding or reordering stages is a
// single edit here plus the matching criteria entry.
var order = []Stage{
	ContextDiscovery,
	ObjectiveDefinition,
	MethodIdeation,
	MethodSelection,
	ImplementationPlan,
	Complete,
}

var indexOf = func() map[Stage]int {
	m := make(map[Stage]int, len(order))
	for i, s := range order {
		m[s] = i
	}
	return m
}()

// All returns every stage in progression order.
func All() []Stage {
	out := make([]Stage, len(order))
	copy(out, order)
	return out
}

// Initial returns the stage every new session starts in.
func Initial() Stage {
	return ContextDiscovery
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	_, ok := indexOf[s]
	return ok
}

// Terminal reports whether s is the terminal stage.
func (s Stage) Terminal() bool {
	return s == Complete
}

// Index returns the position of s in the fixed order, or -1 for an unknown stage.
func (s Stage) Index() int {
	i, ok := indexOf[s]
	if !ok {
		return -1
	}
	return i
}

// Next returns the successor of s. ok is false for the terminal stage and for
// unknown stages.
func (s Stage) Next() (next Stage, ok bool) {
	i, found := indexOf[s]
	if !found || i == len(order)-1 {
		return "", false
	}
	return order[i+1], true
}

// Before reports whether s precedes other in the fixed order. Unknown stages
// compare as not-before.
func (s Stage) Before(other Stage) bool {
	si, so := s.Index(), other.Index()
	return si >= 0 && so >= 0 && si < so
}

// Title returns the human-readable stage name used in prompts and reports.
func (s Stage) Title() string {
	switch s {
	case ContextDiscovery:
		return "Context Discovery"
	case ObjectiveDefinition:
		return "Objective Definition"
	case MethodIdeation:
		return "Method Ideation"
	case MethodSelection:
		return "Method Selection"
	case ImplementationPlan:
		return "Implementation Plan"
	case Complete:
		return "Complete"
	}
	return string(s)
}
