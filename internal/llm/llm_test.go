// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/pdiddy/deep-research/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit", genai.APIError{Code: 429, Message: "quota"}, KindRateLimit},
		{"rate limit pointer", &genai.APIError{Code: 429, Message: "quota"}, KindRateLimit},
		{"bad key", genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key."}, KindInvalidAPIKey},
		{"bad request", genai.APIError{Code: 400, Message: "invalid argument"}, KindBadRequest},
		{"forbidden", genai.APIError{Code: 403, Message: "denied"}, KindInvalidAPIKey},
		{"model", genai.APIError{Code: 404, Message: "models/nope is not found"}, KindModelNotFound},
		{"gateway timeout", genai.APIError{Code: 504, Message: "slow"}, KindTimeout},
		{"server", genai.APIError{Code: 500, Message: "boom"}, KindUnexpected},
		{"deadline", fmt.Errorf("calling: %w", context.DeadlineExceeded), KindTimeout},
		{"transport", errors.New("dial tcp: connection refused"), KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.True(t, strings.HasPrefix(got.Error(), Prefix(tt.want)))
			assert.Equal(t, tt.want, KindOf(got.Error()))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindBlocked, KindOf("  LLM_ERROR[BLOCKED]: nope"))
	assert.Equal(t, Kind(""), KindOf("ordinary text"))
	assert.False(t, IsSentinel("# Executive Summary"))
	assert.True(t, IsSentinel(Prefix(KindRateLimit)+"slow down"))
}

func TestSessionMissingConfig(t *testing.T) {
	s := NewSession(types.LLMConfig{Model: "gemini-2.5-flash"}, nil)
	_, err := s.GenerateOnce(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, Is(err, KindMissingConfig))

	s = NewSession(types.LLMConfig{APIKey: "k"}, nil)
	_, err = s.GenerateWithTools(context.Background(), nil, nil, "")
	assert.True(t, Is(err, KindMissingConfig))
}

func TestBlockedError(t *testing.T) {
	assert.Nil(t, blockedError(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}
	got := blockedError(resp)
	require.NotNil(t, got)
	assert.Equal(t, KindBlocked, got.Kind)

	resp = &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}
	assert.Equal(t, KindBlocked, blockedError(resp).Kind)

	resp = &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
	}
	assert.Nil(t, blockedError(resp))
}

func TestReplyFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "Let me search. "},
				{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "web_search", Args: map[string]any{"query": "transit"}}},
			}},
		}},
	}
	reply := replyFromResponse(resp)
	assert.Equal(t, "Let me search. ", reply.Text)
	require.True(t, reply.HasToolCalls())
	assert.Equal(t, "web_search", reply.ToolCalls[0].Name)
	assert.Equal(t, "transit", reply.ToolCalls[0].StringArg("query"))
	assert.Equal(t, "", reply.ToolCalls[0].StringArg("missing"))

	assert.Equal(t, Reply{}, replyFromResponse(&genai.GenerateContentResponse{}))
}

func TestToGenaiContents(t *testing.T) {
	conv := []Message{
		{Role: RoleUser, Text: "research this"},
		{Role: RoleModel, ToolCalls: []ToolCall{{ID: "1", Name: "scrape_url", Args: map[string]any{"url": "https://x"}}}},
		{Role: RoleUser, ToolResults: []ToolResult{{ID: "1", Name: "scrape_url", Response: map[string]any{"type": "html"}}}},
		{Role: RoleModel},
	}
	got := toGenaiContents(conv)
	require.Len(t, got, 3)
	assert.Equal(t, "user", string(got[0].Role))
	assert.Equal(t, "model", string(got[1].Role))
	require.NotNil(t, got[1].Parts[0].FunctionCall)
	assert.Equal(t, "scrape_url", got[1].Parts[0].FunctionCall.Name)
	require.NotNil(t, got[2].Parts[0].FunctionResponse)
	assert.Equal(t, "html", got[2].Parts[0].FunctionResponse.Response["type"])
}

func TestToGenaiTool(t *testing.T) {
	tool := toGenaiTool([]ToolDecl{{
		Name:        "web_search",
		Description: "Search the web",
		Params:      []Param{{Name: "query", Description: "search terms"}},
	}})
	require.Len(t, tool.FunctionDeclarations, 1)
	decl := tool.FunctionDeclarations[0]
	assert.Equal(t, "web_search", decl.Name)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"query"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["query"].Type)
}

func TestSessionGenerateOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"hello back"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	s := NewSession(types.LLMConfig{APIKey: "k", Model: "gemini-test"}, nil)
	s.baseURL = srv.URL

	text, err := s.GenerateOnce(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", text)

	// The client handle is reused.
	c1, err := s.Client(context.Background())
	require.NoError(t, err)
	_, err = s.GenerateOnce(context.Background(), "again")
	require.NoError(t, err)
	c2, err := s.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, 2, calls)
}

func TestSessionRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	s := NewSession(types.LLMConfig{APIKey: "k", Model: "gemini-test"}, nil)
	s.baseURL = srv.URL

	_, err := s.GenerateOnce(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, Is(err, KindRateLimit), "got %v", err)
}
