package agentboot

import (
	"context"
	"testing"

	"github.com/SaiNageswarS/repo-advisor/llm"
	"github.com/SaiNageswarS/repo-advisor/retrieval"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentResult(t *testing.T) {
	chunk := NewDocumentResult(retrieval.Document{
		Text:  "Repository: owner/api\n\nDescription: REST starter\n",
		Score: 0.8123,
		Metadata: map[string]any{
			"repository": "owner/api",
			"url":        "https://github.com/owner/api",
			"source":     "s3://bucket/repos/owner_api.json",
		},
	})

	assert.Equal(t, "owner/api", chunk.Title)
	assert.Equal(t, "https://github.com/owner/api", chunk.Attribution)
	assert.Equal(t, []string{"Repository: owner/api", "Description: REST starter"}, chunk.Sentences)
	assert.Equal(t, "0.81", chunk.Metadata["score"])
	assert.Equal(t, "s3://bucket/repos/owner_api.json", chunk.Metadata["source"])
}

func TestFormatToolResultToMD(t *testing.T) {
	assert.Equal(t, "", formatToolResultToMD(nil))

	md := formatToolResultToMD(&ToolResultChunk{
		Title:       "owner/api",
		ToolName:    KnowledgeBaseToolName,
		Sentences:   []string{"Repository: owner/api", "Description: REST starter"},
		Attribution: "https://github.com/owner/api",
		Metadata:    map[string]string{"score": "0.81"},
	})

	assert.Equal(t, "### owner/api\n\n"+
		"_via `search_knowledge_base`_\n\n"+
		"- Repository: owner/api\n"+
		"- Description: REST starter\n\n"+
		"| Key | Value |\n|---|---|\n"+
		"| score | 0.81 |\n\n"+
		"**Attribution**: https://github.com/owner/api", md)

	errMD := formatToolResultToMD(&ToolResultChunk{ToolName: "search", Error: "down"})
	assert.Equal(t, "### search\n\n> **Error:** down", errMD)

	single := formatToolResultToMD(&ToolResultChunk{Sentences: []string{" only line "}})
	assert.Equal(t, "only line", single)
}

func TestRenderToolResults(t *testing.T) {
	ch := make(chan *ToolResultChunk, 3)
	ch <- NewToolResultChunk().Title("first").Build()
	ch <- nil
	ch <- NewToolResultChunk().Sentences("second").Build()
	close(ch)

	blocks, err := renderToolResults(context.Background(), "tool", ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"### first\n\n_via `tool`_", "### tool\n\nsecond"}, blocks)
}

func TestRunTool(t *testing.T) {
	tools := []MCPTool{newKnowledgeBaseTool(NewKnowledgeBase(catalog(), 10, 0.5, 0))}

	out := runTool(context.Background(), tools, searchCall("c1", "lambda dynamodb"))
	assert.Contains(t, out, "Tool: `search\\_knowledge\\_base`")
	assert.Contains(t, out, "- **query**: lambda dynamodb")
	assert.Contains(t, out, "### owner/serverless-api")

	missing := runTool(context.Background(), tools, llm.ToolCall{ToolCall: api.ToolCall{Function: api.ToolCallFunction{Name: "nope"}}})
	assert.Contains(t, missing, "does not exist")
	assert.Contains(t, missing, KnowledgeBaseToolName)
}

func TestFormatToolInputsToMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		toolName string
		params   api.ToolCallFunctionArguments
		expected []string
	}{
		{
			name:     "empty parameters",
			toolName: "search",
			params:   api.ToolCallFunctionArguments{},
			expected: []string{"Tool: `search` (no parameters)"},
		},
		{
			name:     "sorted parameters",
			toolName: "search",
			params: api.ToolCallFunctionArguments{
				"query":       "serverless",
				"max_results": 3,
			},
			expected: []string{
				"Tool: `search`",
				"Parameters:",
				"- **max\\_results**: 3\n- **query**: serverless",
			},
		},
		{
			name:     "slice parameter",
			toolName: "search",
			params: api.ToolCallFunctionArguments{
				"related_queries": []any{"lambda", "api gateway"},
			},
			expected: []string{"- **related\\_queries**: lambda, api gateway"},
		},
		{
			name:     "special characters",
			toolName: "test<>",
			params:   api.ToolCallFunctionArguments{"input": "a*b"},
			expected: []string{"Tool: `test&lt;&gt;`", "- **input**: a\\*b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatToolInputsToMarkdown(tt.toolName, tt.params)
			for _, exp := range tt.expected {
				assert.Contains(t, result, exp)
			}
		})
	}
}

func TestMdEscape(t *testing.T) {
	assert.Equal(t, "", mdEscape(""))
	assert.Equal(t, `a\|b \*c\* \_d\_ \#e \[f\] &lt;g&gt; \\`, mdEscape(`a|b *c* _d_ #e [f] <g> \`))
}
