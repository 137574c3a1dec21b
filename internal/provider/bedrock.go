package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const bedrockDefaultModel = "anthropic.claude-3-5-haiku-20241022-v1:0"

func init() {
	RegisterFactory("bedrock", func(ctx context.Context, config map[string]any) (Completer, error) {
		return NewBedrock(ctx, configString(config, "region"))
	})
}

// bedrockConverseClient is the subset of the Bedrock runtime client the
// provider uses. Declared as an interface for testability.
type bedrockConverseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider implements Completer over the AWS Bedrock Converse API.
type BedrockProvider struct {
	client bedrockConverseClient
}

// NewBedrock creates a Bedrock provider using the default AWS credential
// chain. An empty region falls back to the environment/shared config.
func NewBedrock(ctx context.Context, region string) (*BedrockProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

// NewBedrockWithClient creates a provider with a custom client (useful for testing).
func NewBedrockWithClient(client bedrockConverseClient) *BedrockProvider {
	return &BedrockProvider{client: client}
}

// Name returns the provider name.
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// Complete produces assistant text for a chat turn.
func (p *BedrockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = bedrockDefaultModel
	}

	messages := make([]types.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, p.wrapError(err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, NewMalformed("bedrock", "unexpected converse output type")
	}

	var content strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			content.WriteString(text.Value)
		}
	}

	var usage Usage
	if out.Usage != nil {
		usage.PromptTokens = int(aws.ToInt32(out.Usage.InputTokens))
		usage.CompletionTokens = int(aws.ToInt32(out.Usage.OutputTokens))
		usage.TotalTokens = int(aws.ToInt32(out.Usage.TotalTokens))
	}

	return &CompletionResponse{
		Content:      content.String(),
		FinishReason: string(out.StopReason),
		Usage:        usage,
	}, nil
}

// wrapError maps Bedrock service exceptions onto the collaborator taxonomy.
func (p *BedrockProvider) wrapError(err error) error {
	var (
		throttle    *types.ThrottlingException
		validation  *types.ValidationException
		denied      *types.AccessDeniedException
		notFound    *types.ResourceNotFoundException
		unavailable *types.ServiceUnavailableException
		modelTO     *types.ModelTimeoutException
		internal    *types.InternalServerException
	)

	code := ErrorCodeUnknown
	switch {
	case errors.As(err, &throttle):
		code = ErrorCodeRateLimit
	case errors.As(err, &validation):
		code = ErrorCodeInvalidRequest
	case errors.As(err, &denied):
		code = ErrorCodeAuthentication
	case errors.As(err, &notFound):
		code = ErrorCodeModelNotFound
	case errors.As(err, &unavailable), errors.As(err, &internal):
		code = ErrorCodeServerError
	case errors.As(err, &modelTO), errors.Is(err, context.DeadlineExceeded):
		code = ErrorCodeTimeout
	}

	return NewUnavailable("bedrock", code, err.Error())
}
