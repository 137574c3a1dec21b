package stage

// Criteria describes what a stage needs before the session may leave it.
// The table is static: per-session progress lives in the session's stage
// records, never here.
type Criteria struct {
	// RequiredFields are the structured field names the stage should capture.
	RequiredFields []string

	// MinCounts holds minimum element counts for list-valued fields,
	// keyed by field name.
	MinCounts map[string]int

	// Trigger is the human-readable description of what satisfies the stage.
	// It is surfaced to the coaching model inside the system prompt.
	Trigger string

	// Next is the stage entered when this one completes. Empty for the
	// terminal stage.
	Next Stage
}

var criteria = map[Stage]Criteria{
	ContextDiscovery: {
		RequiredFields: []string{"currentSituation", "stakeholders", "constraints"},
		Trigger:        "the user confirms that the summarized situation accurately reflects their context",
		Next:           ObjectiveDefinition,
	},
	ObjectiveDefinition: {
		RequiredFields: []string{"rootProblem", "desiredOutcome", "successCriteria"},
		Trigger:        "a clear root-cause problem statement and a desired outcome have been agreed with the user",
		Next:           MethodIdeation,
	},
	MethodIdeation: {
		RequiredFields: []string{"candidateMethods"},
		MinCounts:      map[string]int{"candidateMethods": 2},
		Trigger:        "at least two distinct candidate methods have been generated and presented back to the user",
		Next:           MethodSelection,
	},
	MethodSelection: {
		RequiredFields: []string{"chosenMethod", "selectionRationale"},
		Trigger:        "the user has committed to one method and the rationale for choosing it is captured",
		Next:           ImplementationPlan,
	},
	ImplementationPlan: {
		RequiredFields: []string{"planSteps", "performanceMeasures", "learningQuestions"},
		Trigger:        "the plan includes concrete steps plus performance measures and learning questions",
		Next:           Complete,
	},
	Complete: {
		Trigger: "the workflow is finished; no further progression occurs",
	},
}

// CriteriaFor returns the static criteria for a stage. ok is false for
// unknown stages.
func CriteriaFor(s Stage) (Criteria, bool) {
	c, ok := criteria[s]
	return c, ok
}
