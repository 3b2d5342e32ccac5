package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaClient runs models served by a local Ollama instance. The host is
// taken from OLLAMA_HOST.
type OllamaClient struct {
	client *api.Client
	model  string
}

func NewOllamaClient(model string) LLMClient {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		logger.Fatal("Failed to create Ollama client", zap.Error(err))
		return nil
	}

	return &OllamaClient{client: client, model: model}
}

func (c *OllamaClient) Capabilities() Capability {
	return NativeToolCalling
}

func (c *OllamaClient) GetModel() string {
	return c.model
}

func (c *OllamaClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	settings := defaultSettings(c.model)
	applyOptions(&settings, opts)
	settings.tools = nil

	msg, err := c.chat(ctx, messages, settings)
	if err != nil {
		return err
	}

	return callback(msg.Content)
}

func (c *OllamaClient) GenerateInferenceWithTools(
	ctx context.Context,
	messages []Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []ToolCall) error,
	opts ...LLMOption,
) error {
	settings := defaultSettings(c.model)
	applyOptions(&settings, opts)

	msg, err := c.chat(ctx, messages, settings)
	if err != nil {
		return err
	}

	if len(msg.ToolCalls) > 0 && toolCallback != nil {
		// Ollama does not assign call ids, so derive stable ones from the position
		toolCalls := make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			toolCalls[i] = ToolCall{ID: fmt.Sprintf("call_%d", i), ToolCall: tc}
		}
		return toolCallback(toolCalls)
	}

	if msg.Content != "" && contentCallback != nil {
		return contentCallback(msg.Content)
	}

	return nil
}

func (c *OllamaClient) chat(ctx context.Context, messages []Message, settings LLMSettings) (*api.Message, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    settings.model,
		Messages: toOllamaMessages(settings.system, messages),
		Stream:   &stream,
		Tools:    settings.tools,
		Options: map[string]any{
			"temperature": settings.temperature,
			"num_predict": settings.maxTokens,
		},
	}

	var final api.Message
	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		final.ToolCalls = append(final.ToolCalls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error calling ollama chat: %w", err)
	}

	final.Role = RoleAssistant
	final.Content = content.String()
	return &final, nil
}

func toOllamaMessages(system string, messages []Message) []api.Message {
	out := make([]api.Message, 0, len(messages)+1)
	if system != "" {
		out = append(out, api.Message{Role: RoleSystem, Content: system})
	}

	for _, m := range messages {
		om := api.Message{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, tc.ToolCall)
		}
		out = append(out, om)
	}

	return out
}
