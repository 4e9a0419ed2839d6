// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the gateway to the generative AI backend. It exposes
// single-shot generation and one round of tool-augmented generation; callers
// that use tools run their own loop and feed results back as conversation
// turns.
package llm

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one conversation turn. A model turn may carry tool calls; the
// user turn that follows carries the matching tool results.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a model-initiated request to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// StringArg returns a string argument, or "" when absent or not a string.
func (c ToolCall) StringArg(name string) string {
	s, _ := c.Args[name].(string)
	return s
}

// ToolResult is the response to one ToolCall.
type ToolResult struct {
	ID       string
	Name     string
	Response map[string]any
}

// Param is a string parameter of a tool declaration.
type Param struct {
	Name        string
	Description string
}

// ToolDecl declares a tool the model may call. All parameters are required
// strings.
type ToolDecl struct {
	Name        string
	Description string
	Params      []Param
}

// Reply is the outcome of one tool-augmented generation round: either final
// text or a set of tool calls to execute.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model asked for tools to run.
func (r Reply) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Model is the gateway contract consumed by planning, research, synthesis,
// and assembly. Errors returned are *Error values.
type Model interface {
	// GenerateOnce sends a single prompt and returns the response text.
	GenerateOnce(ctx context.Context, prompt string) (string, error)

	// GenerateWithTools runs one round of generation over conversation with
	// the given tools available. It never executes tools itself.
	GenerateWithTools(ctx context.Context, conversation []Message, tools []ToolDecl, systemPrompt string) (Reply, error)
}

// DocumentModel generates text from a prompt plus an inline document.
type DocumentModel interface {
	GenerateFromDocument(ctx context.Context, prompt string, data []byte, mimeType string) (string, error)
}
