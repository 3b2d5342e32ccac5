package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/ollama/ollama/api"
)

const DefaultBedrockModel = "anthropic.claude-3-haiku-20240307-v1:0"

// converseAPI is the subset of the Bedrock Runtime client used here.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient talks to foundation models through the Bedrock Converse API.
type BedrockClient struct {
	client converseAPI
	model  string
}

func NewBedrockClient(cfg aws.Config, model string) LLMClient {
	if model == "" {
		model = DefaultBedrockModel
	}

	return &BedrockClient{
		client: bedrockruntime.NewFromConfig(cfg),
		model:  model,
	}
}

func (c *BedrockClient) Capabilities() Capability {
	// Model families that support tool use through Converse
	toolSupportedModels := []string{
		"anthropic.claude-3",
		"anthropic.claude-sonnet",
		"anthropic.claude-opus",
		"anthropic.claude-haiku",
		"amazon.nova",
		"meta.llama3-1",
		"meta.llama3-2",
		"mistral.mistral-large",
		"cohere.command-r",
	}

	for _, supportedModel := range toolSupportedModels {
		if strings.Contains(c.model, supportedModel) {
			return NativeToolCalling
		}
	}

	return 0
}

func (c *BedrockClient) GetModel() string {
	return c.model
}

func (c *BedrockClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	settings := defaultSettings(c.model)
	applyOptions(&settings, opts)
	settings.tools = nil

	text, _, err := c.converse(ctx, messages, settings)
	if err != nil {
		return err
	}

	if text == "" {
		return errors.New("no content in response")
	}

	return callback(text)
}

func (c *BedrockClient) GenerateInferenceWithTools(
	ctx context.Context,
	messages []Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []ToolCall) error,
	opts ...LLMOption,
) error {
	settings := defaultSettings(c.model)
	applyOptions(&settings, opts)

	text, toolCalls, err := c.converse(ctx, messages, settings)
	if err != nil {
		return err
	}

	if len(toolCalls) > 0 && toolCallback != nil {
		return toolCallback(toolCalls)
	}

	if text != "" && contentCallback != nil {
		return contentCallback(text)
	}

	return nil
}

func (c *BedrockClient) converse(ctx context.Context, messages []Message, settings LLMSettings) (string, []ToolCall, error) {
	system := settings.system
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = strings.TrimSpace(system + "\n\n" + m.Content)
		}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(settings.model),
		Messages: toBedrockMessages(messages),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(settings.maxTokens)),
			Temperature: aws.Float32(float32(settings.temperature)),
		},
	}

	if system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}

	if len(settings.tools) > 0 {
		tools, err := toBedrockTools(settings.tools)
		if err != nil {
			return "", nil, err
		}
		input.ToolConfig = &types.ToolConfiguration{Tools: tools}
	}

	out, err := c.client.Converse(ctx, input)
	if err != nil {
		return "", nil, fmt.Errorf("error calling bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", nil, fmt.Errorf("unexpected bedrock output type %T", out.Output)
	}

	return parseBedrockContent(msg.Value.Content)
}

func parseBedrockContent(blocks []types.ContentBlock) (string, []ToolCall, error) {
	var text strings.Builder
	var toolCalls []ToolCall

	for _, block := range blocks {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			text.WriteString(b.Value)

		case *types.ContentBlockMemberToolUse:
			args := map[string]any{}
			if b.Value.Input != nil {
				raw, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return "", nil, fmt.Errorf("error reading tool input: %w", err)
				}
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", nil, fmt.Errorf("error parsing tool input: %w", err)
				}
			}

			toolCalls = append(toolCalls, ToolCall{
				ID: aws.ToString(b.Value.ToolUseId),
				ToolCall: api.ToolCall{
					Function: api.ToolCallFunction{
						Name:      aws.ToString(b.Value.Name),
						Arguments: args,
					},
				},
			})
		}
	}

	return text.String(), toolCalls, nil
}

// toBedrockMessages converts the conversation into Converse messages. Tool
// results travel as user content and consecutive messages of the same role are
// merged, since Converse expects roles to alternate.
func toBedrockMessages(messages []Message) []types.Message {
	out := make([]types.Message, 0, len(messages))

	for _, m := range messages {
		var role types.ConversationRole
		var content []types.ContentBlock

		switch m.Role {
		case RoleSystem:
			continue

		case RoleAssistant:
			role = types.ConversationRoleAssistant
			if m.Content != "" {
				content = append(content, &types.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any(tc.Function.Arguments)
				if args == nil {
					args = map[string]any{}
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Function.Name),
						Input:     document.NewLazyDocument(args),
					},
				})
			}

		case RoleTool:
			role = types.ConversationRoleUser
			content = append(content, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(m.ToolCallID),
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: m.Content},
					},
				},
			})

		default:
			role = types.ConversationRoleUser
			content = append(content, &types.ContentBlockMemberText{Value: m.Content})
		}

		if len(content) == 0 {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, content...)
			continue
		}

		out = append(out, types.Message{Role: role, Content: content})
	}

	return out
}

func toBedrockTools(tools []api.Tool) ([]types.Tool, error) {
	out := make([]types.Tool, 0, len(tools))

	for _, tool := range tools {
		raw, err := json.Marshal(tool.Function.Parameters)
		if err != nil {
			return nil, fmt.Errorf("error marshaling tool schema: %w", err)
		}

		schema := map[string]any{}
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("error unmarshaling tool schema: %w", err)
		}
		if schema["required"] == nil {
			delete(schema, "required")
		}

		out = append(out, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Function.Name),
				Description: aws.String(tool.Function.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		})
	}

	return out, nil
}
