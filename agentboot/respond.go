package agentboot

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/memory"
	"github.com/SaiNageswarS/repo-advisor/metrics"
	"github.com/SaiNageswarS/repo-advisor/prompts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Respond runs one conversational turn for sessionID. An empty sessionID
// starts a new session under a generated id.
//
// The user turn is recorded before the completer runs and is kept when it
// fails; the assistant turn is only recorded on success. Invalid input leaves
// the store untouched.
func (a *Agent) Respond(ctx context.Context, sessionID, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}
	if n := utf8.RuneCountInString(message); n > a.config.MaxMessageLength {
		return nil, invalidRequest("message is %d characters long, the limit is %d", n, a.config.MaxMessageLength)
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger.Info("Processing chat message",
		zap.String("session_id", sessionID),
		zap.String("message", truncate(message, 100)))

	store := a.config.Store
	store.GetOrCreate(sessionID)

	// history as it was before this message
	prior := store.GetRecent(sessionID, a.config.ContextWindow)
	store.AppendTurn(sessionID, memory.RoleUser, message)
	metrics.SetActiveSessions(store.Len())

	completionCtx, cancel := context.WithTimeout(ctx, a.config.UpstreamTimeout)
	defer cancel()

	start := time.Now()
	answer, err := a.config.Completer.Complete(completionCtx, &CompletionRequest{
		Query:        message,
		Context:      prompts.AssembleContext(prior, message, a.config.ContextWindow),
		SystemPrompt: a.config.SystemPrompt,
		Search:       a.config.Search,
		MaxTokens:    a.config.MaxTokens,
		Temperature:  a.config.Temperature,
	})
	if err != nil {
		logger.Error("Completion failed",
			zap.String("session_id", sessionID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, toResponderError(err)
	}

	store.AppendTurn(sessionID, memory.RoleAssistant, answer)

	logger.Info("Chat response generated",
		zap.String("session_id", sessionID),
		zap.Int("response_length", len(answer)),
		zap.Duration("duration", time.Since(start)))

	return &Reply{Response: answer, SessionID: sessionID}, nil
}
