package agentboot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/llm"
	"github.com/SaiNageswarS/repo-advisor/metrics"
	"github.com/SaiNageswarS/repo-advisor/prompts"
	"go.uber.org/zap"
)

const DefaultMaxTurns = 5

var errEmptyAnswer = errors.New("model returned an empty answer")

// LLMCompleter produces answers with an llm.LLMClient. Models with native tool
// calling search the knowledge base themselves through a bounded turn loop;
// other models get one search for the user's message inlined into the system
// prompt.
type LLMCompleter struct {
	client   llm.LLMClient
	maxTurns int
}

func NewLLMCompleter(client llm.LLMClient, maxTurns int) *LLMCompleter {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return &LLMCompleter{client: client, maxTurns: maxTurns}
}

func (c *LLMCompleter) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	start := time.Now()

	var answer string
	var err error
	if req.Search != nil && c.client.Capabilities()&llm.NativeToolCalling != 0 {
		answer, err = c.completeWithTools(ctx, req)
	} else {
		answer, err = c.completeInline(ctx, req)
	}

	answer = strings.TrimSpace(answer)
	if err == nil && answer == "" {
		err = errEmptyAnswer
	}

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordCompletion(c.client.GetModel(), status, time.Since(start))

	if err != nil {
		return "", err
	}
	return answer, nil
}

func (c *LLMCompleter) completeWithTools(ctx context.Context, req *CompletionRequest) (string, error) {
	tools := []MCPTool{newKnowledgeBaseTool(req.Search)}
	messages := []llm.Message{{Role: llm.RoleUser, Content: req.Context}}

	for turn := 0; turn < c.maxTurns; turn++ {
		lastTurn := turn == c.maxTurns-1

		systemPrompt := req.SystemPrompt
		if lastTurn {
			systemPrompt += prompts.ForceAnswerSuffix
		}

		var answer strings.Builder
		var toolCalls []llm.ToolCall
		err := c.client.GenerateInferenceWithTools(
			ctx, messages,
			func(chunk string) error {
				answer.WriteString(chunk)
				return nil
			},
			func(calls []llm.ToolCall) error {
				toolCalls = append(toolCalls, calls...)
				return nil
			},
			llm.WithTools(toAPITools(tools)),
			llm.WithSystemPrompt(systemPrompt),
			llm.WithMaxTokens(req.MaxTokens),
			llm.WithTemperature(req.Temperature),
		)
		if err != nil {
			return "", err
		}

		if len(toolCalls) == 0 {
			return answer.String(), nil
		}

		if lastTurn {
			logger.Error("Model kept calling tools on the last turn", zap.Int("turns", c.maxTurns))
			break
		}

		for i := range toolCalls {
			if toolCalls[i].ID == "" {
				toolCalls[i].ID = fmt.Sprintf("call_%d_%d", turn, i)
			}
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   answer.String(),
			ToolCalls: toolCalls,
		})

		for _, call := range toolCalls {
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    runTool(ctx, tools, call),
				ToolCallID: call.ID,
			})
		}
	}

	return "", fmt.Errorf("no answer after %d turns", c.maxTurns)
}

func (c *LLMCompleter) completeInline(ctx context.Context, req *CompletionRequest) (string, error) {
	systemPrompt := req.SystemPrompt

	if req.Search != nil {
		docs, err := req.Search.Search(ctx, req.Query)
		if err != nil {
			// answer without knowledge base context
			logger.Error("Continuing without knowledge base results", zap.Error(err))
		} else {
			systemPrompt, err = prompts.RenderKnowledgeContext(req.SystemPrompt, renderDocuments(docs))
			if err != nil {
				return "", internalError(fmt.Errorf("error rendering knowledge context: %w", err))
			}
		}
	}

	var answer strings.Builder
	err := c.client.GenerateInference(
		ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: req.Context}},
		func(chunk string) error {
			answer.WriteString(chunk)
			return nil
		},
		llm.WithSystemPrompt(systemPrompt),
		llm.WithMaxTokens(req.MaxTokens),
		llm.WithTemperature(req.Temperature),
	)

	return answer.String(), err
}
