package agentboot

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ollama/ollama/api"
)

// findMCPToolByName finds an MCPTool by its function name
func findMCPToolByName(tools []MCPTool, name string) *MCPTool {
	for _, tool := range tools {
		if tool.Function.Name == name {
			return &tool
		}
	}
	return nil
}

// toAPITools converts MCPTools to api.Tools for native tool calling
func toAPITools(tools []MCPTool) []api.Tool {
	apiTools := make([]api.Tool, len(tools))
	for i, tool := range tools {
		apiTools[i] = tool.Tool
	}
	return apiTools
}

func toolNames(tools []MCPTool) []string {
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Function.Name
	}
	return names
}

// truncate shortens s to at most n runes for logging.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Tool arguments arrive decoded from JSON by different backends, so numbers
// may be float64, json.Number or plain strings.

func stringArg(params api.ToolCallFunctionArguments, key string) string {
	s, _ := params[key].(string)
	return strings.TrimSpace(s)
}

func stringSliceArg(params api.ToolCallFunctionArguments, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		// some models send the array JSON-encoded
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return out
		}
		return []string{v}
	}
	return nil
}

func floatArg(params api.ToolCallFunctionArguments, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func intArg(params api.ToolCallFunctionArguments, key string) (int, bool) {
	f, ok := floatArg(params, key)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
