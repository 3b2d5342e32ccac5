package agentboot

import (
	"context"
	"slices"

	"github.com/ollama/ollama/api"
)

// MCPTool wraps an api.Tool and provides a handler for execution
type MCPTool struct {
	api.Tool
	Handler func(ctx context.Context, params api.ToolCallFunctionArguments) <-chan *ToolResultChunk
}

// MCPTool builder to define MCP tool schema.
type MCPToolBuilder struct {
	tool MCPTool
}

func NewMCPToolBuilder(name, description string) *MCPToolBuilder {
	b := &MCPToolBuilder{
		tool: MCPTool{
			Tool: api.Tool{
				Type: "function",
				Function: api.ToolFunction{
					Name:        name,
					Description: description,
				},
			},
		},
	}

	b.tool.Function.Parameters.Type = "object"
	b.tool.Function.Parameters.Properties = make(map[string]api.ToolProperty, 4)
	return b
}

func (b *MCPToolBuilder) StringParam(name, desc string, required bool) *MCPToolBuilder {
	b.setProp(name, api.ToolProperty{
		Type:        api.PropertyType{"string"},
		Description: desc,
	}, required)
	return b
}

func (b *MCPToolBuilder) StringSliceParam(name, desc string, required bool) *MCPToolBuilder {
	b.setProp(name, api.ToolProperty{
		Type:        api.PropertyType{"array"},
		Items:       map[string]any{"type": "string"},
		Description: desc,
	}, required)
	return b
}

func (b *MCPToolBuilder) IntParam(name, desc string, required bool) *MCPToolBuilder {
	b.setProp(name, api.ToolProperty{
		Type:        api.PropertyType{"integer"},
		Description: desc,
	}, required)
	return b
}

func (b *MCPToolBuilder) NumberParam(name, desc string, required bool) *MCPToolBuilder {
	b.setProp(name, api.ToolProperty{
		Type:        api.PropertyType{"number"},
		Description: desc,
	}, required)
	return b
}

func (b *MCPToolBuilder) WithHandler(fn func(ctx context.Context, params api.ToolCallFunctionArguments) <-chan *ToolResultChunk) *MCPToolBuilder {
	b.tool.Handler = fn
	return b
}

func (b *MCPToolBuilder) Build() MCPTool {
	return b.tool
}

func (b *MCPToolBuilder) setProp(name string, p api.ToolProperty, required bool) {
	b.tool.Function.Parameters.Properties[name] = p
	if required && !slices.Contains(b.tool.Function.Parameters.Required, name) {
		b.tool.Function.Parameters.Required = append(b.tool.Function.Parameters.Required, name)
	}
}
