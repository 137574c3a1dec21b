package provider

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiDefaultModel = "gemini-2.0-flash"
	geminiMaxRetries   = 3
	geminiBaseDelay    = 1 * time.Second
	geminiMaxDelay     = 16 * time.Second
)

func init() {
	RegisterFactory("gemini", func(ctx context.Context, config map[string]any) (Completer, error) {
		apiKey := configString(config, "api_key")
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		return NewGemini(ctx, apiKey)
	})
}

// GeminiProvider implements Completer over the Gemini API via the Gen AI SDK.
type GeminiProvider struct {
	client *genai.Client
}

// NewGemini creates a Gemini provider using an API key.
func NewGemini(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete produces assistant text for a chat turn, retrying transient
// upstream failures with exponential backoff.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = geminiDefaultModel
	}

	config := &genai.GenerateContentConfig{}
	config.Temperature = genai.Ptr(float32(req.Temperature))
	if req.MaxTokens > 0 && req.MaxTokens <= math.MaxInt32 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < geminiMaxRetries; attempt++ {
		if attempt > 0 {
			delay := geminiBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, NewUnavailable("gemini", ErrorCodeTimeout, ctx.Err().Error())
			case <-time.After(delay):
			}
		}

		resp, err = p.client.Models.GenerateContent(ctx, model, contents, config)
		if err == nil {
			break
		}
		if !isRetryableGenAIError(err) {
			return nil, p.wrapError(err)
		}
	}
	if err != nil {
		return nil, p.wrapError(err)
	}

	return p.parseResponse(resp)
}

func (p *GeminiProvider) parseResponse(resp *genai.GenerateContentResponse) (*CompletionResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, NewMalformed("gemini", "no candidates in response")
	}

	candidate := resp.Candidates[0]
	var content strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			content.WriteString(part.Text)
		}
	}

	finishReason := string(candidate.FinishReason)
	if finishReason == "STOP" || finishReason == "" {
		finishReason = "stop"
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &CompletionResponse{
		Content:      content.String(),
		FinishReason: finishReason,
		Usage:        usage,
	}, nil
}

// wrapError maps Gen AI errors onto the collaborator taxonomy. The SDK does
// not expose typed errors, so classification is message-based.
func (p *GeminiProvider) wrapError(err error) error {
	code := ErrorCodeUnknown
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		code = ErrorCodeAuthentication
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		code = ErrorCodeRateLimit
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		code = ErrorCodeModelNotFound
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "400"):
		code = ErrorCodeInvalidRequest
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		code = ErrorCodeTimeout
	case strings.Contains(msg, "500") || strings.Contains(msg, "503") || strings.Contains(msg, "server"):
		code = ErrorCodeServerError
	}

	return NewUnavailable("gemini", code, err.Error())
}

func isRetryableGenAIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "unavailable")
}

func geminiBackoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 31 {
		shift = 31
	}
	delay := time.Duration(1<<uint(shift)) * geminiBaseDelay
	if delay > geminiMaxDelay {
		delay = geminiMaxDelay
	}
	return delay
}
