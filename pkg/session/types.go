// Package session holds the per-session state of a COMPAS coaching run:
// the current stage, the structured data captured per stage, the append-only
// conversation transcript, progress timestamps, and uploaded-artifact
// descriptors. Sessions are ephemeral by design; the Store interface lets the
// surrounding process choose where they live for the lifetime of the service.
package session

import (
	"time"

	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message written by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the coaching model.
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation transcript. Messages are
// append-only and never mutated or reordered once written.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StageRecord holds the structured data captured for one stage.
type StageRecord struct {
	// Fields are free-form key/value pairs populated incrementally as the
	// conversation surfaces them. Keys follow the stage criteria field names.
	Fields map[string]any `json:"fields"`

	// Completed flips to true at the moment the session advances past this
	// stage and never resets.
	Completed bool `json:"completed"`
}

// ProgressMetrics tracks when the session started and when each stage was
// first entered. Entry timestamps are set exactly once.
type ProgressMetrics struct {
	StartedAt      time.Time                 `json:"startedAt"`
	StageEnteredAt map[stage.Stage]time.Time `json:"stageEnteredAt"`
}

// Artifact describes an uploaded document. The blob itself lives in an
// external artifact store; the session records only the descriptor and
// sensitivity tag. Descriptors are append-only; removal is logical.
type Artifact struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StorageRef  string    `json:"storageRef"`
	Owner       string    `json:"owner"`
	Sensitivity string    `json:"sensitivity"`
	Source      string    `json:"source"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Removed     bool      `json:"removed"`
}

// Snapshot is a deep, detached copy of a session's state. It is safe to hold
// across turns and to serialize; mutating it never affects the live session.
type Snapshot struct {
	ID        string                        `json:"id"`
	Stage     stage.Stage                   `json:"stage"`
	StageData map[stage.Stage]StageRecord   `json:"stageData"`
	History   []Message                     `json:"conversationHistory"`
	Metrics   ProgressMetrics               `json:"progressMetrics"`
	Artifacts []Artifact                    `json:"artifacts"`
}
