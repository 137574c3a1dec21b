// Package engine drives the coaching conversation: one turn in, one
// assistant response out, with a pluggable policy deciding whether the
// session's current stage is satisfied and what data the exchange yielded.
package engine

import (
	"context"

	"github.com/joshuamtm/compas-navigator/pkg/session"
)

// Exchange is one completed user/assistant pair, the unit a policy judges.
type Exchange struct {
	UserMessage       string
	AssistantResponse string
}

// Decision is a policy's verdict for one exchange. Merge is applied to the
// current stage's record before Advance is acted on; both always derive
// from the same session snapshot.
type Decision struct {
	// Merge holds extracted field values to merge into the current
	// stage's record. Nil means nothing to merge.
	Merge map[string]any

	// Advance requests a transition to the next stage.
	Advance bool

	// Reason explains the verdict, for logs and the turn result.
	Reason string

	// Completion estimates how much of the stage is satisfied (0-100).
	// Only the assisted policy populates it.
	Completion int

	// Missing lists required fields the stage still lacks.
	Missing []string

	// Failed marks a decision that could not be made (collaborator error
	// or malformed output). A failed decision is a no-op: no merge, no
	// advance, but the turn itself still succeeds.
	Failed bool

	// FailureReason carries the failure detail when Failed is set.
	FailureReason string
}

// ProgressionPolicy judges one exchange against the session state captured
// at decision time. Implementations must not mutate the snapshot.
type ProgressionPolicy interface {
	Decide(ctx context.Context, ex Exchange, snap session.Snapshot) Decision

	// Name identifies the policy in logs and config ("keyword", "assisted").
	Name() string
}

// failedDecision is the no-op a policy degrades to when it cannot judge
// the exchange.
func failedDecision(reason string) Decision {
	return Decision{Failed: true, FailureReason: reason}
}
