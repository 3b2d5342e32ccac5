package agentboot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/llm"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// runTool executes one tool call and returns the text handed back to the
// model. Tool failures are reported to the model rather than to the caller.
func runTool(ctx context.Context, tools []MCPTool, call llm.ToolCall) string {
	name := call.Function.Name

	tool := findMCPToolByName(tools, name)
	if tool == nil || tool.Handler == nil {
		logger.Error("Model requested unknown tool", zap.String("tool", name))
		return fmt.Sprintf("Tool `%s` does not exist. Available tools: %s.", mdEscape(name), strings.Join(toolNames(tools), ", "))
	}

	logger.Info("Running tool", zap.String("tool", name), zap.Any("arguments", call.Function.Arguments))

	chunks, err := renderToolResults(ctx, name, tool.Handler(ctx, call.Function.Arguments))
	if err != nil {
		logger.Error("Error rendering tool result", zap.String("tool", name), zap.Error(err))
		return fmt.Sprintf("Tool `%s` failed: %s", mdEscape(name), err.Error())
	}

	inputs := formatToolInputsToMarkdown(name, call.Function.Arguments)
	if len(chunks) == 0 {
		return inputs + "\n\nThe tool returned no results."
	}

	return inputs + "\n\n" + strings.Join(chunks, "\n\n")
}

// formatToolInputsToMarkdown echoes the call parameters so the model can tell
// results of different calls apart.
func formatToolInputsToMarkdown(toolName string, params api.ToolCallFunctionArguments) string {
	if len(params) == 0 {
		return fmt.Sprintf("Tool: `%s` (no parameters)", mdEscape(toolName))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Tool: `%s`\n\n", mdEscape(toolName)))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("Parameters:\n")
	for _, k := range keys {
		var valueStr string
		switch v := params[k].(type) {
		case string:
			valueStr = v
		case []string:
			valueStr = strings.Join(v, ", ")
		case []any:
			strs := make([]string, len(v))
			for i, item := range v {
				strs[i] = fmt.Sprintf("%v", item)
			}
			valueStr = strings.Join(strs, ", ")
		default:
			valueStr = fmt.Sprintf("%v", v)
		}

		b.WriteString(fmt.Sprintf("- **%s**: %s\n", mdEscape(k), mdEscape(valueStr)))
	}

	return strings.TrimRight(b.String(), "\n")
}

// Minimal Markdown escaper for headings, lists, and table cells.
func mdEscape(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "*", `\*`)
	s = strings.ReplaceAll(s, "_", `\_`)
	s = strings.ReplaceAll(s, "~", `\~`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "[", `\[`)
	s = strings.ReplaceAll(s, "]", `\]`)
	s = strings.ReplaceAll(s, "#", `\#`)
	// angle brackets as entities so they never autolink
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
