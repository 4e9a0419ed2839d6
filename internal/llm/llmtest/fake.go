// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides scripted llm.Model fakes for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/pdiddy/deep-research/internal/llm"
)

// Response is one scripted answer. Err takes precedence over Text.
type Response struct {
	Text string
	Err  error
}

// Rule answers prompts containing Match. Rules are tried in order and the
// first match wins; a Rule with an empty Match matches everything.
type Rule struct {
	Match    string
	Response Response
}

// Model answers GenerateOnce from Rules and GenerateWithTools from Turn.
// It records every prompt it receives and is safe for concurrent use.
type Model struct {
	Rules []Rule

	// Turn handles tool-augmented generation. Nil returns empty text.
	Turn func(ctx context.Context, conversation []llm.Message, tools []llm.ToolDecl, systemPrompt string) (llm.Reply, error)

	mu      sync.Mutex
	prompts []string
	turns   int
}

// GenerateOnce implements llm.Model.
func (m *Model) GenerateOnce(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	for _, r := range m.Rules {
		if r.Match == "" || strings.Contains(prompt, r.Match) {
			if r.Response.Err != nil {
				return "", r.Response.Err
			}
			return r.Response.Text, nil
		}
	}
	return "", &llm.Error{Kind: llm.KindUnexpected, Message: "no scripted response"}
}

// GenerateWithTools implements llm.Model.
func (m *Model) GenerateWithTools(ctx context.Context, conversation []llm.Message, tools []llm.ToolDecl, systemPrompt string) (llm.Reply, error) {
	m.mu.Lock()
	m.turns++
	m.mu.Unlock()
	if m.Turn == nil {
		return llm.Reply{}, nil
	}
	return m.Turn(ctx, conversation, tools, systemPrompt)
}

// Prompts returns the GenerateOnce prompts received so far.
func (m *Model) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Turns returns the number of GenerateWithTools calls received so far.
func (m *Model) Turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turns
}
