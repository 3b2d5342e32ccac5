package agentboot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SaiNageswarS/repo-advisor/llm"
	"github.com/SaiNageswarS/repo-advisor/memory"
	"github.com/SaiNageswarS/repo-advisor/retrieval"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Mock LLM client with configurable responses
type testLLMClient struct {
	model            string
	nativeTools      bool
	response         string
	responses        []string
	toolCallsPerTurn [][]llm.ToolCall
	err              error

	mu        sync.Mutex
	callCount int
	messages  [][]llm.Message
}

func (m *testLLMClient) next(messages []llm.Message) (string, []llm.ToolCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, append([]llm.Message(nil), messages...))
	turn := m.callCount
	m.callCount++

	if m.err != nil {
		return "", nil, m.err
	}

	response := m.response
	if turn < len(m.responses) {
		response = m.responses[turn]
	}

	var toolCalls []llm.ToolCall
	if turn < len(m.toolCallsPerTurn) {
		toolCalls = m.toolCallsPerTurn[turn]
	}
	return response, toolCalls, nil
}

func (m *testLLMClient) GenerateInference(ctx context.Context, messages []llm.Message, callback func(chunk string) error, opts ...llm.LLMOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	response, _, err := m.next(messages)
	if err != nil {
		return err
	}
	return callback(response)
}

func (m *testLLMClient) GenerateInferenceWithTools(
	ctx context.Context,
	messages []llm.Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []llm.ToolCall) error,
	opts ...llm.LLMOption,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	response, toolCalls, err := m.next(messages)
	if err != nil {
		return err
	}
	if len(toolCalls) > 0 {
		return toolCallback(toolCalls)
	}
	return contentCallback(response)
}

func (m *testLLMClient) Capabilities() llm.Capability {
	if m.nativeTools {
		return llm.NativeToolCalling
	}
	return 0
}

func (m *testLLMClient) GetModel() string {
	return m.model
}

func (m *testLLMClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// stubCompleter records requests and answers from a script.
type stubCompleter struct {
	mu       sync.Mutex
	requests []*CompletionRequest
	answer   string
	errs     []error
	wait     bool
}

func (s *stubCompleter) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	s.mu.Unlock()

	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return s.answer, nil
}

type failingSearcher struct{}

func (failingSearcher) Search(ctx context.Context, query string, opts ...retrieval.SearchOption) ([]retrieval.Document, error) {
	return nil, retrieval.ErrUnavailable
}

// hangingSearcher blocks until the search is cancelled.
type hangingSearcher struct{}

func (hangingSearcher) Search(ctx context.Context, query string, opts ...retrieval.SearchOption) ([]retrieval.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func turnPairs(turns []memory.Turn) [][2]string {
	out := make([][2]string, len(turns))
	for i, t := range turns {
		out[i] = [2]string{t.Role, t.Content}
	}
	return out
}

func TestRespondEndToEnd(t *testing.T) {
	completer := &stubCompleter{answer: "Sure, tell me more."}
	agent := NewAgentBuilder().WithCompleter(completer).Build()

	reply, err := agent.Respond(context.Background(), "s1", "I need a serverless API")
	require.NoError(t, err)

	assert.Equal(t, &Reply{Response: "Sure, tell me more.", SessionID: "s1"}, reply)
	assert.Equal(t, [][2]string{
		{"user", "I need a serverless API"},
		{"assistant", "Sure, tell me more."},
	}, turnPairs(agent.SessionStore().GetRecent("s1", 10)))

	// cold session: the context is the message itself
	require.Len(t, completer.requests, 1)
	assert.Equal(t, "I need a serverless API", completer.requests[0].Context)
	assert.Equal(t, "I need a serverless API", completer.requests[0].Query)
	assert.Equal(t, DefaultMaxTokens, completer.requests[0].MaxTokens)
	assert.Equal(t, DefaultTemperature, completer.requests[0].Temperature)
	assert.Contains(t, completer.requests[0].SystemPrompt, "knowledge base")
}

func TestRespondWarmContext(t *testing.T) {
	completer := &stubCompleter{answer: "b"}
	agent := NewAgentBuilder().WithCompleter(completer).Build()

	_, err := agent.Respond(context.Background(), "s1", "a")
	require.NoError(t, err)
	_, err = agent.Respond(context.Background(), "s1", "c")
	require.NoError(t, err)

	require.Len(t, completer.requests, 2)
	assert.Equal(t, "user: a\nassistant: b\nc", completer.requests[1].Context)
}

func TestRespondContextWindow(t *testing.T) {
	completer := &stubCompleter{answer: "ok"}
	agent := NewAgentBuilder().WithCompleter(completer).WithContextWindow(2).Build()

	for _, msg := range []string{"one", "two", "three"} {
		_, err := agent.Respond(context.Background(), "s1", msg)
		require.NoError(t, err)
	}

	assert.Equal(t, "user: two\nassistant: ok\nthree", completer.requests[2].Context)
}

func TestRespondHistoryBound(t *testing.T) {
	agent := NewAgentBuilder().WithCompleter(&stubCompleter{answer: "ok"}).Build()

	for i := 0; i < 8; i++ {
		_, err := agent.Respond(context.Background(), "s1", "msg")
		require.NoError(t, err)
	}

	assert.Len(t, agent.SessionStore().GetRecent("s1", 100), memory.DefaultMaxHistory)
}

func TestRespondInvalidInput(t *testing.T) {
	completer := &stubCompleter{answer: "unused"}
	agent := NewAgentBuilder().WithCompleter(completer).WithMaxMessageLength(10).Build()

	tests := []struct {
		name    string
		message string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
		{"too long", "this message is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := agent.Respond(context.Background(), "s1", tt.message)
			assert.Nil(t, reply)
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
			assert.Equal(t, KindInvalidRequest, ErrorKind(err))
		})
	}

	assert.Empty(t, completer.requests)
	assert.Equal(t, 0, agent.SessionStore().Len())
}

func TestRespondGeneratesSessionID(t *testing.T) {
	agent := NewAgentBuilder().WithCompleter(&stubCompleter{answer: "hi"}).Build()

	reply, err := agent.Respond(context.Background(), "", "hello")
	require.NoError(t, err)

	_, err = uuid.Parse(reply.SessionID)
	assert.NoError(t, err)
	assert.Len(t, agent.SessionStore().GetRecent(reply.SessionID, 10), 2)
}

func TestRespondCompletionFailureAndRetry(t *testing.T) {
	completer := &stubCompleter{
		answer: "Here are some options.",
		errs:   []error{errors.New("ServiceUnavailableException")},
	}
	agent := NewAgentBuilder().WithCompleter(completer).Build()

	_, err := agent.Respond(context.Background(), "s1", "data lake")
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, KindUpstreamUnavailable, ErrorKind(err))

	// the user turn stays, no assistant turn
	assert.Equal(t, [][2]string{{"user", "data lake"}}, turnPairs(agent.SessionStore().GetRecent("s1", 10)))

	reply, err := agent.Respond(context.Background(), "s1", "data lake please")
	require.NoError(t, err)
	assert.Equal(t, "Here are some options.", reply.Response)

	assert.Equal(t, [][2]string{
		{"user", "data lake"},
		{"user", "data lake please"},
		{"assistant", "Here are some options."},
	}, turnPairs(agent.SessionStore().GetRecent("s1", 10)))

	// the retry carries the orphaned user turn in its context
	assert.Equal(t, "user: data lake\ndata lake please", completer.requests[1].Context)
}

func TestRespondTimeout(t *testing.T) {
	completer := &stubCompleter{wait: true}
	agent := NewAgentBuilder().
		WithCompleter(completer).
		WithUpstreamTimeout(20 * time.Millisecond).
		Build()

	start := time.Now()
	_, err := agent.Respond(context.Background(), "s1", "hello")

	require.Error(t, err)
	assert.Equal(t, KindUpstreamUnavailable, ErrorKind(err))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, agent.SessionStore().GetRecent("s1", 10), 1)
}

func TestRespondKeepsStatusErrors(t *testing.T) {
	completer := &stubCompleter{errs: []error{internalError(errors.New("template broke"))}}
	agent := NewAgentBuilder().WithCompleter(completer).Build()

	_, err := agent.Respond(context.Background(), "s1", "hello")
	assert.Equal(t, KindInternalError, ErrorKind(err))
}

func TestRespondCompleterStatusErrorsAreUpstream(t *testing.T) {
	completer := &stubCompleter{errs: []error{status.Error(codes.InvalidArgument, "ValidationException: bad tool schema")}}
	agent := NewAgentBuilder().WithCompleter(completer).Build()

	_, err := agent.Respond(context.Background(), "s1", "hello")
	require.Error(t, err)
	assert.Equal(t, KindUpstreamUnavailable, ErrorKind(err))
	assert.Len(t, agent.SessionStore().GetRecent("s1", 10), 1)
}

func TestRespondSlowRetrieval(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		client := &testLLMClient{model: "plain", response: "Answer without the catalog"}
		agent := NewAgentBuilder().
			WithLLM(client).
			WithSearcher(hangingSearcher{}).
			WithUpstreamTimeout(300 * time.Millisecond).
			WithRetrievalTimeout(time.Minute).
			Build()

		reply, err := agent.Respond(context.Background(), "s1", "serverless api")
		require.NoError(t, err)
		assert.Equal(t, "Answer without the catalog", reply.Response)
	})

	t.Run("tool calling", func(t *testing.T) {
		client := &testLLMClient{
			model:       "tools",
			nativeTools: true,
			responses:   []string{"", "The catalog did not answer in time."},
			toolCallsPerTurn: [][]llm.ToolCall{
				{searchCall("c1", "serverless api")},
			},
		}
		agent := NewAgentBuilder().
			WithLLM(client).
			WithSearcher(hangingSearcher{}).
			WithUpstreamTimeout(300 * time.Millisecond).
			Build()

		reply, err := agent.Respond(context.Background(), "s1", "serverless api")
		require.NoError(t, err)
		assert.Equal(t, "The catalog did not answer in time.", reply.Response)
		assert.Equal(t, 2, client.calls())
	})
}

func TestRespondRetrievalDegradation(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		client := &testLLMClient{model: "plain", response: "Answer without the catalog"}
		agent := NewAgentBuilder().WithLLM(client).WithSearcher(failingSearcher{}).Build()

		reply, err := agent.Respond(context.Background(), "s1", "serverless api")
		require.NoError(t, err)
		assert.Equal(t, "Answer without the catalog", reply.Response)
	})

	t.Run("tool calling", func(t *testing.T) {
		client := &testLLMClient{
			model:       "tools",
			nativeTools: true,
			responses:   []string{"", "The catalog is unavailable right now."},
			toolCallsPerTurn: [][]llm.ToolCall{
				{searchCall("c1", "serverless api")},
			},
		}
		agent := NewAgentBuilder().WithLLM(client).WithSearcher(failingSearcher{}).Build()

		reply, err := agent.Respond(context.Background(), "s1", "serverless api")
		require.NoError(t, err)
		assert.Equal(t, "The catalog is unavailable right now.", reply.Response)

		require.Len(t, client.messages, 2)
		last := client.messages[1][len(client.messages[1])-1]
		assert.Equal(t, llm.RoleTool, last.Role)
		assert.Contains(t, last.Content, "currently unavailable")
	})
}

func TestAgentBuilderDefaults(t *testing.T) {
	client := &testLLMClient{model: "m"}
	agent := NewAgentBuilder().WithLLM(client).WithSearcher(failingSearcher{}).Build()

	cfg := agent.config
	assert.Equal(t, 4000, cfg.MaxTokens)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 5, cfg.ContextWindow)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 10*time.Second, cfg.RetrievalTimeout)
	assert.Equal(t, 4000, cfg.MaxMessageLength)
	assert.Equal(t, 10, cfg.Store.GetMaxHistory())
	assert.NotEmpty(t, cfg.SystemPrompt)

	completer, ok := cfg.Completer.(*LLMCompleter)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxTurns, completer.maxTurns)

	kb, ok := cfg.Search.(*KnowledgeBase)
	require.True(t, ok)
	assert.Equal(t, 10, kb.maxResults)
	assert.Equal(t, 0.5, kb.minScore)
	assert.Equal(t, 10*time.Second, kb.timeout)
}

func TestAgentBuilderZeroValues(t *testing.T) {
	agent := NewAgentBuilder().
		WithCompleter(&stubCompleter{}).
		WithContextWindow(0).
		WithMaxTokens(0).
		WithTemperature(0).
		WithUpstreamTimeout(0).
		WithRetrievalTimeout(0).
		WithMaxMessageLength(0).
		Build()

	cfg := agent.config
	assert.Equal(t, 5, cfg.ContextWindow)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultTemperature, cfg.Temperature)
	assert.Equal(t, DefaultUpstreamTimeout, cfg.UpstreamTimeout)
	assert.Equal(t, DefaultRetrievalTimeout, cfg.RetrievalTimeout)
	assert.Equal(t, DefaultMaxMessageLength, cfg.MaxMessageLength)
}

func TestAgentBuilderRetrievalTimeoutBelowUpstream(t *testing.T) {
	agent := NewAgentBuilder().
		WithCompleter(&stubCompleter{}).
		WithSearcher(failingSearcher{}).
		WithUpstreamTimeout(3 * time.Second).
		WithRetrievalTimeout(5 * time.Second).
		Build()

	assert.Equal(t, time.Second, agent.config.RetrievalTimeout)
	assert.Equal(t, time.Second, agent.config.Search.(*KnowledgeBase).timeout)
}

func TestAgentBuilderOverrides(t *testing.T) {
	store := memory.NewSessionStore(4)
	agent := NewAgentBuilder().
		WithCompleter(&stubCompleter{}).
		WithSessionStore(store).
		WithSystemPrompt("custom persona").
		WithMaxTokens(512).
		WithTemperature(0.1).
		Build()

	assert.Same(t, store, agent.SessionStore())
	assert.Equal(t, "custom persona", agent.config.SystemPrompt)
	assert.Equal(t, 512, agent.config.MaxTokens)
	assert.Equal(t, 0.1, agent.config.Temperature)
	assert.Nil(t, agent.config.Search)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, KindInvalidRequest, ErrorKind(ErrMessageRequired))
	assert.Equal(t, KindUpstreamUnavailable, ErrorKind(upstreamUnavailable(errors.New("x"))))
	assert.Equal(t, KindUpstreamUnavailable, ErrorKind(status.Error(codes.DeadlineExceeded, "slow")))
	assert.Equal(t, KindInternalError, ErrorKind(errors.New("plain")))
	assert.Equal(t, KindUpstreamUnavailable, ErrorKind(toResponderError(context.DeadlineExceeded)))
}
