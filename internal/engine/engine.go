package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/joshuamtm/compas-navigator/internal/prompt"
	"github.com/joshuamtm/compas-navigator/internal/provider"
	metrics "github.com/joshuamtm/compas-navigator/pkg/observability"
	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

// TurnResult is what a caller gets back from one successful turn.
type TurnResult struct {
	// AssistantMessage is the coach's response text.
	AssistantMessage string `json:"assistantMessage"`

	// Stage is the session's stage after the turn.
	Stage stage.Stage `json:"stage"`

	// StageAdvanced reports whether this turn crossed a stage boundary.
	StageAdvanced bool `json:"stageAdvanced"`

	// CompletionPercentage estimates current-stage completeness (assisted
	// policy only; zero under the keyword policy).
	CompletionPercentage int `json:"completionPercentage,omitempty"`

	// MissingInformation lists required fields still missing.
	MissingInformation []string `json:"missingInformation,omitempty"`

	// AnalysisFailed is set when the progression analysis could not run.
	// The turn itself still succeeded; the stage simply did not move.
	AnalysisFailed bool `json:"analysisFailed,omitempty"`

	// AnalysisError carries the failure detail when AnalysisFailed is set.
	AnalysisError string `json:"analysisError,omitempty"`
}

// Engine serializes turns per session and runs the turn pipeline: append
// the user message, build the prompt, call the completion collaborator,
// apply the progression decision, append the assistant message, persist.
type Engine struct {
	store     session.Store
	completer provider.Completer
	policy    ProgressionPolicy

	// locks holds one mutex per session ID. Turns for the same session
	// run strictly one at a time; different sessions never block each other.
	locks sync.Map

	model       string
	temperature float64
	maxTokens   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithModel sets the completion model.
func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

// WithTemperature sets the completion sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Engine) { e.temperature = t }
}

// WithMaxTokens caps completion response length.
func WithMaxTokens(n int) Option {
	return func(e *Engine) { e.maxTokens = n }
}

// New creates an engine over a store, a completion collaborator, and a
// progression policy.
func New(store session.Store, completer provider.Completer, policy ProgressionPolicy, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		completer:   completer,
		policy:      policy,
		temperature: 0.7,
		maxTokens:   1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateSession starts a new coaching session.
func (e *Engine) CreateSession(ctx context.Context) (session.Snapshot, error) {
	sess, err := e.store.Create(ctx)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("create session: %w", err)
	}
	return sess.Snapshot(), nil
}

// GetSession returns a point-in-time snapshot of a session.
func (e *Engine) GetSession(ctx context.Context, id string) (session.Snapshot, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// DeleteSession removes a session and its lock.
func (e *Engine) DeleteSession(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		return err
	}
	e.locks.Delete(id)
	return nil
}

// ListSessions returns the IDs of all live sessions.
func (e *Engine) ListSessions(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// AddArtifact attaches an uploaded artifact to a session.
func (e *Engine) AddArtifact(ctx context.Context, id string, artifact session.Artifact) (string, error) {
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	artifactID := sess.AddArtifact(artifact)
	if err := e.store.Save(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return artifactID, nil
}

// SubmitTurn processes one user message end to end. Turns for the same
// session are mutually exclusive; the lock is held across the completion
// call so a second turn can never interleave between this turn's data merge
// and stage advance.
//
// On completion failure the user message is kept but nothing else changes,
// and the caller gets the error. On analysis failure the turn succeeds with
// AnalysisFailed set.
func (e *Engine) SubmitTurn(ctx context.Context, sessionID, userMessage string) (*TurnResult, error) {
	mu := e.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	startStage := sess.Stage()

	sess.AppendMessage(session.RoleUser, userMessage)

	// One snapshot feeds both the prompt and the progression decision.
	snap := sess.Snapshot()
	system, turns := prompt.BuildTurn(snap)

	resp, err := e.completer.Complete(ctx, provider.CompletionRequest{
		System:      system,
		Messages:    turns,
		Model:       e.model,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		// The user message stays; no synthetic assistant message, no
		// merge, no advance.
		if saveErr := e.store.Save(ctx, sess); saveErr != nil {
			log.Printf("save session %s after completion failure: %v", sessionID, saveErr)
		}
		metrics.RecordTurn(string(startStage), "completion_error", time.Since(start))
		return nil, fmt.Errorf("completion: %w", err)
	}

	exchange := Exchange{UserMessage: userMessage, AssistantResponse: resp.Content}
	decision := e.policy.Decide(ctx, exchange, snap)

	advanced := false
	if !decision.Failed {
		if len(decision.Merge) > 0 {
			sess.MergeStageData(snap.Stage, decision.Merge)
		}
		if decision.Advance {
			advanced = sess.AdvanceStage()
			if advanced {
				metrics.RecordStageTransition(string(startStage), string(sess.Stage()))
			}
		}
	}

	sess.AppendMessage(session.RoleAssistant, resp.Content)

	if err := e.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	status := "ok"
	if decision.Failed {
		status = "analysis_failed"
	}
	metrics.RecordTurn(string(startStage), status, time.Since(start))

	return &TurnResult{
		AssistantMessage:     resp.Content,
		Stage:                sess.Stage(),
		StageAdvanced:        advanced,
		CompletionPercentage: decision.Completion,
		MissingInformation:   decision.Missing,
		AnalysisFailed:       decision.Failed,
		AnalysisError:        decision.FailureReason,
	}, nil
}

func (e *Engine) lockFor(sessionID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
