package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const openaiDefaultModel = "gpt-4o-mini"

func init() {
	RegisterFactory("openai", func(ctx context.Context, config map[string]any) (Completer, error) {
		apiKey := configString(config, "api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return NewOpenAI(apiKey, configString(config, "base_url")), nil
	})
}

// openAIChatClient is the subset of the OpenAI client the provider uses.
// Declared as an interface for testability.
type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider implements Completer over the OpenAI chat completions API.
type OpenAIProvider struct {
	client openAIChatClient
}

// NewOpenAI creates an OpenAI provider. An empty baseURL uses the default
// endpoint; a custom one supports OpenAI-compatible gateways.
func NewOpenAI(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}
}

// NewOpenAIWithClient creates a provider with a custom client (useful for testing).
func NewOpenAIWithClient(client openAIChatClient) *OpenAIProvider {
	return &OpenAIProvider{client: client}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete produces assistant text for a chat turn.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = openaiDefaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, p.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewMalformed("openai", "no choices in response")
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// wrapError maps go-openai errors onto the collaborator taxonomy.
func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ErrorCodeUnknown
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			code = ErrorCodeAuthentication
		case apiErr.HTTPStatusCode == 404:
			code = ErrorCodeModelNotFound
		case apiErr.HTTPStatusCode == 429:
			code = ErrorCodeRateLimit
		case apiErr.HTTPStatusCode == 400:
			code = ErrorCodeInvalidRequest
		case apiErr.HTTPStatusCode >= 500:
			code = ErrorCodeServerError
		}
		cerr := NewUnavailable("openai", code, apiErr.Message)
		cerr.StatusCode = apiErr.HTTPStatusCode
		return cerr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewUnavailable("openai", ErrorCodeTimeout, err.Error())
	}
	return NewUnavailable("openai", ErrorCodeUnknown, err.Error())
}
