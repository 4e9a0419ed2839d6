// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research resolves one research objective into formatted source
// records by letting the model drive web_search and scrape_url calls.
//
// The tool loop is explicit: each model round either returns final text or a
// batch of tool calls, which are dispatched through a lookup table and fed
// back as function-response turns. The loop is bounded and checks the
// cancellation token before every model call.
package research

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/cancel"
	"github.com/pdiddy/deep-research/internal/extract"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	defaultMaxIterations = 8
	rawPreviewChars      = 500
)

// Tools is the tool surface offered to the model.
type Tools interface {
	Declarations() []llm.ToolDecl
	Dispatch(ctx context.Context, call llm.ToolCall) map[string]any
}

type state int

const (
	awaitingModel state = iota
	executingTools
	done
)

func (s state) String() string {
	switch s {
	case awaitingModel:
		return "awaiting_model"
	case executingTools:
		return "executing_tools"
	case done:
		return "done"
	}
	return "unknown"
}

var systemPrompt = `You are a meticulous web researcher. You gather evidence for one research objective using the web_search and scrape_url tools.

Work in this order:
1. Issue two or three web_search calls with distinct, specific queries.
2. Call scrape_url on the most promising links from the results.
3. If a link is a PDF, scrape_url returns its transcription. Never try to read or reproduce raw PDF bytes yourself.
4. When you have enough evidence, stop calling tools and answer.

Your final answer must be only a JSON list of strings, one string per source, each string in exactly this form:
"Title: <page title>\nLink: <url>\nSnippet: <search snippet>\nContent: <relevant extracted content>"
If scraping a link failed or returned no content, keep the source and write the failure note as its Content.`

var objectivePromptTmpl = template.Must(template.New("objective").Parse(`Research objective:
{{.Objective}}

Gather evidence for this objective and answer with the JSON list of source strings.`))

const finalTurnPrompt = `The tool budget for this objective is exhausted. Do not call any more tools. Answer now with the JSON list of source strings, using only the evidence gathered so far.`

// Executor runs research steps. It is safe for concurrent use when its
// model and tools are.
type Executor struct {
	model         llm.Model
	tools         Tools
	token         cancel.Token
	maxIterations int
	log           *zap.Logger
}

// New returns an Executor. A nil token is never cancelled.
func New(model llm.Model, tools Tools, token cancel.Token, cfg types.ResearchConfig, log *zap.Logger) *Executor {
	if token == nil {
		token = cancel.Never
	}
	if log == nil {
		log = zap.NewNop()
	}
	maxIter := cfg.MaxToolIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	return &Executor{model: model, tools: tools, token: token, maxIterations: maxIter, log: log}
}

// Run resolves objective into formatted source strings. It never fails: a
// cancelled, erroring, or malformed step yields a one-item list holding a
// system error.
func (e *Executor) Run(ctx context.Context, objective string) (records []string) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("research step panicked", zap.String("objective", objective), zap.Any("panic", rec))
			records = []string{types.SystemError("research step failed unexpectedly: %v", rec)}
		}
	}()

	text, err := e.converse(ctx, objective)
	if err != nil {
		e.log.Warn("research step failed", zap.String("objective", objective), zap.Error(err))
		return []string{types.SystemError("research step failed: %v", err)}
	}

	list, ok := extract.StringList(text)
	if !ok {
		e.log.Warn("research step returned malformed output", zap.String("objective", objective))
		return []string{types.SystemError("research step returned malformed output. Raw response: %s", preview(text))}
	}
	for i, item := range list {
		list[i] = normalize(item)
	}
	return list
}

// normalize rewrites a labelled source string into the canonical
// Title/Link/Snippet/Content block. Error items and unlabelled text pass
// through trimmed.
func normalize(item string) string {
	if types.IsSystemError(item) {
		return item
	}
	rec := types.ParseSourceRecord(item)
	if rec.Title == "" && rec.Link == "" {
		return strings.TrimSpace(item)
	}
	return rec.Format()
}

var errCancelled = errors.New("research step cancelled before completion")

// converse runs the tool loop and returns the model's final text.
func (e *Executor) converse(ctx context.Context, objective string) (string, error) {
	var prompt bytes.Buffer
	if err := objectivePromptTmpl.Execute(&prompt, struct{ Objective string }{objective}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	conversation := []llm.Message{{Role: llm.RoleUser, Text: prompt.String()}}
	decls := e.tools.Declarations()

	var (
		st      = awaitingModel
		reply   llm.Reply
		rounds  int
		err     error
		toolUse int
	)
	for st != done {
		switch st {
		case awaitingModel:
			if rounds >= e.maxIterations {
				return e.finalTurn(ctx, conversation)
			}
			if e.token.IsCancelled() {
				return "", errCancelled
			}
			rounds++
			reply, err = e.model.GenerateWithTools(ctx, conversation, decls, systemPrompt)
			if err != nil {
				return "", err
			}
			if reply.HasToolCalls() {
				st = executingTools
			} else {
				st = done
			}

		case executingTools:
			conversation = append(conversation, llm.Message{Role: llm.RoleModel, Text: reply.Text, ToolCalls: reply.ToolCalls})
			results := make([]llm.ToolResult, len(reply.ToolCalls))
			for i, call := range reply.ToolCalls {
				results[i] = llm.ToolResult{ID: call.ID, Name: call.Name, Response: e.tools.Dispatch(ctx, call)}
			}
			toolUse += len(results)
			conversation = append(conversation, llm.Message{Role: llm.RoleUser, ToolResults: results})
			st = awaitingModel
		}
		e.log.Debug("research loop transition",
			zap.String("state", st.String()), zap.Int("round", rounds), zap.Int("tool_calls", toolUse))
	}
	return reply.Text, nil
}

// finalTurn asks for an answer with no tools offered.
func (e *Executor) finalTurn(ctx context.Context, conversation []llm.Message) (string, error) {
	if e.token.IsCancelled() {
		return "", errCancelled
	}
	e.log.Info("tool budget exhausted, requesting final answer", zap.Int("max_iterations", e.maxIterations))
	conversation = append(conversation, llm.Message{Role: llm.RoleUser, Text: finalTurnPrompt})
	reply, err := e.model.GenerateWithTools(ctx, conversation, nil, systemPrompt)
	if err != nil {
		return "", err
	}
	if reply.HasToolCalls() {
		return "", fmt.Errorf("model requested tools after the budget of %d rounds", e.maxIterations)
	}
	return reply.Text, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= rawPreviewChars {
		return s
	}
	return string(r[:rawPreviewChars])
}
