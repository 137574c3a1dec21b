// Package provider holds the external collaborator interfaces the coaching
// core depends on: a Completer that turns a prompt into assistant text, and
// an Analyzer that inspects one exchange and proposes extraction/progression.
// The core consumes these interfaces; it never implements them itself.
package provider

import (
	"context"
	"errors"

	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

// Sentinel errors for the collaborator failure taxonomy. Implementations
// wrap these in a CollaboratorError so callers can branch with errors.Is.
var (
	// ErrUnavailable covers network failures, timeouts, and upstream 5xx.
	ErrUnavailable = errors.New("collaborator unavailable")
	// ErrMalformedOutput covers responses that parsed but violated the
	// expected shape, and responses that did not parse at all.
	ErrMalformedOutput = errors.New("collaborator returned malformed output")
)

// Message is one prior conversation turn submitted as model context.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest asks a Completer for assistant text.
type CompletionRequest struct {
	// System is the system instruction, kept separate from the turns
	// because providers wire it differently.
	System string

	// Messages is the ordered conversation context.
	Messages []Message

	// Model selects the upstream model; providers apply a default when empty.
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the generated length (0 = provider default).
	MaxTokens int
}

// Usage reports token consumption for a single call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the assistant text plus call metadata.
type CompletionResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Completer produces assistant text for a chat turn.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g. "openai", "gemini", "bedrock").
	Name() string
}

// StageContext is everything the analysis collaborator needs to judge one
// exchange: where the session is, what the stage requires, what is already
// known, and the latest user/assistant pair with a bounded history window.
type StageContext struct {
	Stage             stage.Stage
	Criteria          stage.Criteria
	StageData         map[string]any
	UserMessage       string
	AssistantResponse string
	RecentHistory     []Message
}

// AnalysisResult is the structured verdict of the analysis collaborator.
type AnalysisResult struct {
	ShouldProgress       bool           `json:"shouldProgress"`
	ProgressReason       string         `json:"progressReason"`
	ExtractedData        map[string]any `json:"extractedData"`
	CompletionPercentage int            `json:"completionPercentage"`
	MissingInformation   []string       `json:"missingInformation"`
}

// Analyzer judges one exchange against the current stage's criteria.
// A non-JSON or schema-violating upstream result is a failure
// (ErrMalformedOutput), never a partial success.
type Analyzer interface {
	Analyze(ctx context.Context, sc StageContext) (*AnalysisResult, error)
}

// Common error codes carried by CollaboratorError.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeAuthentication = "authentication_error"
	ErrorCodeRateLimit      = "rate_limit_exceeded"
	ErrorCodeServerError    = "server_error"
	ErrorCodeTimeout        = "timeout"
	ErrorCodeModelNotFound  = "model_not_found"
	ErrorCodeMalformed      = "malformed_output"
	ErrorCodeUnknown        = "unknown_error"
)

// CollaboratorError is a typed wrapper around a collaborator failure. It
// always wraps one of the sentinel errors above so errors.Is works.
type CollaboratorError struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	StatusCode  int    `json:"status_code,omitempty"`
	IsRetryable bool   `json:"is_retryable"`
	Err         error  `json:"-"`
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	return e.Provider + " error: " + e.Message
}

// Unwrap returns the wrapped sentinel (or cause chain).
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewUnavailable builds a CollaboratorError wrapping ErrUnavailable.
func NewUnavailable(providerName, code, message string) *CollaboratorError {
	return &CollaboratorError{
		Provider:    providerName,
		Code:        code,
		Message:     message,
		IsRetryable: isRetryableCode(code),
		Err:         ErrUnavailable,
	}
}

// NewMalformed builds a CollaboratorError wrapping ErrMalformedOutput.
func NewMalformed(providerName, message string) *CollaboratorError {
	return &CollaboratorError{
		Provider: providerName,
		Code:     ErrorCodeMalformed,
		Message:  message,
		Err:      ErrMalformedOutput,
	}
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrorCodeRateLimit, ErrorCodeServerError, ErrorCodeTimeout:
		return true
	default:
		return false
	}
}
