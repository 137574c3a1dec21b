package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

// Session is one user's end-to-end run through the COMPAS workflow.
// Methods are safe for concurrent use; the progression engine additionally
// serializes whole turns per session so that analysis and mutation happen
// against a single consistent state.
type Session struct {
	mu        sync.RWMutex
	id        string
	stage     stage.Stage
	stageData map[stage.Stage]*StageRecord
	history   []Message
	metrics   ProgressMetrics
	artifacts []Artifact
}

// New creates a session in the initial stage with empty records for every
// stage. The id must be unique; pass NewID() unless restoring.
func New(id string) *Session {
	now := time.Now().UTC()
	data := make(map[stage.Stage]*StageRecord, len(stage.All()))
	for _, s := range stage.All() {
		data[s] = &StageRecord{Fields: make(map[string]any)}
	}
	return &Session{
		id:        id,
		stage:     stage.Initial(),
		stageData: data,
		metrics: ProgressMetrics{
			StartedAt:      now,
			StageEnteredAt: map[stage.Stage]time.Time{stage.Initial(): now},
		},
	}
}

// NewID generates a fresh session identifier. Identifiers are never reused.
func NewID() string {
	return uuid.New().String()
}

// ID returns the immutable session identifier.
func (s *Session) ID() string {
	return s.id
}

// Stage returns the current stage.
func (s *Session) Stage() stage.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// AppendMessage appends one transcript entry with a generated timestamp.
// It never fails and never reorders existing entries.
func (s *Session) AppendMessage(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now().UTC()
	// Wall-clock regressions must not break transcript monotonicity.
	if n := len(s.history); n > 0 && ts.Before(s.history[n-1].Timestamp) {
		ts = s.history[n-1].Timestamp
	}
	s.history = append(s.history, Message{Role: role, Content: content, Timestamp: ts})
}

// MergeStageData shallow-merges fields into the record for st, overwriting
// same-named fields and leaving others untouched. This is the only mutation
// path for stage content. Unknown stages are ignored.
func (s *Session) MergeStageData(st stage.Stage, fields map[string]any) {
	if len(fields) == 0 || !st.Valid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.stageData[st]
	if rec == nil {
		rec = &StageRecord{Fields: make(map[string]any)}
		s.stageData[st] = rec
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
}

// AdvanceStage marks the current stage completed and moves to its successor,
// stamping the successor's first-entry time. At the terminal stage it is a
// silent no-op and returns false. The stage never moves backward.
func (s *Session) AdvanceStage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.stage.Next()
	if !ok {
		return false
	}

	s.stageData[s.stage].Completed = true
	s.stage = next
	if _, seen := s.metrics.StageEnteredAt[next]; !seen {
		s.metrics.StageEnteredAt[next] = time.Now().UTC()
	}
	return true
}

// AddArtifact records an uploaded-document descriptor and returns its ID.
// An empty ID is assigned one; the upload timestamp is stamped if unset.
func (s *Session) AddArtifact(a Artifact) string {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
	return a.ID
}

// RemoveArtifact logically removes an artifact. The descriptor stays in the
// underlying sequence; only the filtered view changes. Returns false if no
// live artifact has that ID.
func (s *Session) RemoveArtifact(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.artifacts {
		if s.artifacts[i].ID == id && !s.artifacts[i].Removed {
			s.artifacts[i].Removed = true
			return true
		}
	}
	return false
}

// Artifacts returns the filtered view of live (non-removed) artifacts.
func (s *Session) Artifacts() []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		if !a.Removed {
			out = append(out, a)
		}
	}
	return out
}

// HistoryLen returns the current transcript length.
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Snapshot returns a deep copy of the full session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make(map[stage.Stage]StageRecord, len(s.stageData))
	for st, rec := range s.stageData {
		fields := make(map[string]any, len(rec.Fields))
		for k, v := range rec.Fields {
			fields[k] = v
		}
		data[st] = StageRecord{Fields: fields, Completed: rec.Completed}
	}

	history := make([]Message, len(s.history))
	copy(history, s.history)

	entered := make(map[stage.Stage]time.Time, len(s.metrics.StageEnteredAt))
	for st, t := range s.metrics.StageEnteredAt {
		entered[st] = t
	}

	artifacts := make([]Artifact, len(s.artifacts))
	copy(artifacts, s.artifacts)

	return Snapshot{
		ID:        s.id,
		Stage:     s.stage,
		StageData: data,
		History:   history,
		Metrics:   ProgressMetrics{StartedAt: s.metrics.StartedAt, StageEnteredAt: entered},
		Artifacts: artifacts,
	}
}

// FromSnapshot rebuilds a live session from a stored snapshot. Used by
// persistent stores; the in-memory store never needs it.
func FromSnapshot(snap Snapshot) *Session {
	data := make(map[stage.Stage]*StageRecord, len(stage.All()))
	for _, st := range stage.All() {
		rec := &StageRecord{Fields: make(map[string]any)}
		if stored, ok := snap.StageData[st]; ok {
			rec.Completed = stored.Completed
			for k, v := range stored.Fields {
				rec.Fields[k] = v
			}
		}
		data[st] = rec
	}

	entered := make(map[stage.Stage]time.Time, len(snap.Metrics.StageEnteredAt))
	for st, t := range snap.Metrics.StageEnteredAt {
		entered[st] = t
	}

	history := make([]Message, len(snap.History))
	copy(history, snap.History)

	artifacts := make([]Artifact, len(snap.Artifacts))
	copy(artifacts, snap.Artifacts)

	cur := snap.Stage
	if !cur.Valid() {
		cur = stage.Initial()
	}

	return &Session{
		id:        snap.ID,
		stage:     cur,
		stageData: data,
		history:   history,
		metrics:   ProgressMetrics{StartedAt: snap.Metrics.StartedAt, StageEnteredAt: entered},
		artifacts: artifacts,
	}
}
