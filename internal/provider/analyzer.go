package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// analysisSchema is the shape an analysis verdict must satisfy. Anything the
// model returns outside this shape is a malformed-output failure.
var analysisSchema = &Schema{
	Type:     "object",
	Required: []string{"shouldProgress"},
	Properties: map[string]*Schema{
		"shouldProgress": {Type: "boolean"},
		"progressReason": {Type: "string"},
		"extractedData":  {Type: "object"},
		"completionPercentage": {
			Type:    "number",
			Minimum: float64Ptr(0),
			Maximum: float64Ptr(100),
		},
		"missingInformation": {
			Type:  "array",
			Items: &Schema{Type: "string"},
		},
	},
}

func float64Ptr(v float64) *float64 { return &v }

// LLMAnalyzer implements Analyzer by asking a Completer for a structured
// JSON verdict and validating it before use.
type LLMAnalyzer struct {
	completer Completer
	validator *SchemaValidator

	model       string
	temperature float64
	maxTokens   int
}

// AnalyzerOption configures an LLMAnalyzer.
type AnalyzerOption func(*LLMAnalyzer)

// WithAnalyzerModel overrides the model used for analysis calls.
func WithAnalyzerModel(model string) AnalyzerOption {
	return func(a *LLMAnalyzer) { a.model = model }
}

// WithAnalyzerMaxTokens caps the analysis response length.
func WithAnalyzerMaxTokens(n int) AnalyzerOption {
	return func(a *LLMAnalyzer) { a.maxTokens = n }
}

// NewLLMAnalyzer creates an analyzer backed by the given completer. Analysis
// calls run at temperature zero so verdicts stay stable across retries.
func NewLLMAnalyzer(completer Completer, opts ...AnalyzerOption) *LLMAnalyzer {
	a := &LLMAnalyzer{
		completer: completer,
		validator: NewSchemaValidator(),
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze asks the model to judge one exchange against the current stage's
// criteria. Exactly one upstream call is made per invocation.
func (a *LLMAnalyzer) Analyze(ctx context.Context, sc StageContext) (*AnalysisResult, error) {
	req := CompletionRequest{
		System:      analysisSystemPrompt,
		Messages:    []Message{{Role: "user", Content: a.buildAnalysisPrompt(sc)}},
		Model:       a.model,
		Temperature: 0,
		MaxTokens:   a.maxTokens,
	}

	resp, err := a.completer.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analysis completion: %w", err)
	}

	return a.parseVerdict(resp.Content)
}

const analysisSystemPrompt = `You are an analysis assistant for a structured coaching conversation. ` +
	`You judge whether the current coaching stage has gathered enough information to move on, ` +
	`and you extract structured data from the latest exchange. ` +
	`Respond with a single JSON object and nothing else.`

func (a *LLMAnalyzer) buildAnalysisPrompt(sc StageContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current stage: %s\n", sc.Stage)
	fmt.Fprintf(&b, "Required fields for this stage: %s\n", strings.Join(sc.Criteria.RequiredFields, ", "))
	for field, min := range sc.Criteria.MinCounts {
		fmt.Fprintf(&b, "Field %q must contain at least %d entries.\n", field, min)
	}

	b.WriteString("\nData gathered so far:\n")
	if len(sc.StageData) == 0 {
		b.WriteString("(none)\n")
	} else {
		keys := make([]string, 0, len(sc.StageData))
		for k := range sc.StageData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val, _ := json.Marshal(sc.StageData[k])
			fmt.Fprintf(&b, "- %s: %s\n", k, val)
		}
	}

	if len(sc.RecentHistory) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range sc.RecentHistory {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	b.WriteString("\nLatest exchange:\n")
	fmt.Fprintf(&b, "user: %s\n", sc.UserMessage)
	fmt.Fprintf(&b, "assistant: %s\n", sc.AssistantResponse)

	b.WriteString(`
Respond with JSON matching this shape:
{
  "shouldProgress": boolean,        // true only if every required field is satisfied
  "progressReason": string,         // one sentence explaining the verdict
  "extractedData": object,          // required-field values found in the exchange
  "completionPercentage": number,   // 0-100 estimate of stage completeness
  "missingInformation": [string]    // required fields still missing
}
`)

	return b.String()
}

// parseVerdict decodes and validates the model's JSON verdict.
func (a *LLMAnalyzer) parseVerdict(content string) (*AnalysisResult, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, NewMalformed(a.completer.Name(), "no JSON object in analysis response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, NewMalformed(a.completer.Name(), fmt.Sprintf("analysis response is not valid JSON: %v", err))
	}

	if violations := a.validator.Validate(analysisSchema, data); len(violations) > 0 {
		return nil, NewMalformed(a.completer.Name(),
			fmt.Sprintf("analysis response violates schema: %s", strings.Join(violations, "; ")))
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, NewMalformed(a.completer.Name(), fmt.Sprintf("decode analysis result: %v", err))
	}
	return &result, nil
}
