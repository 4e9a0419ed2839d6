// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Session is a Model backed by the Gemini API. It owns one client handle,
// created on first use and reused for every call of one research run.
// Create a Session per run; do not share it across runs.
type Session struct {
	cfg types.LLMConfig
	log *zap.Logger

	// baseURL overrides the API endpoint. Empty uses the SDK default.
	baseURL string

	mu     sync.Mutex
	client *genai.Client
}

// NewSession returns a Session for cfg. No network activity happens until
// the first generation call.
func NewSession(cfg types.LLMConfig, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{cfg: cfg, log: log}
}

// Model returns the configured model identifier.
func (s *Session) Model() string {
	return s.cfg.Model
}

// Client returns the session's client handle, creating it on first use.
// A missing API key or model yields a KindMissingConfig error.
func (s *Session) Client(ctx context.Context) (*genai.Client, error) {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return nil, newError(KindMissingConfig, nil, "API_KEY is not configured")
	}
	if strings.TrimSpace(s.cfg.Model) == "" {
		return nil, newError(KindMissingConfig, nil, "DEFAULT_MODEL is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  s.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, newError(KindUnexpected, err, "creating client: %v", err)
	}
	s.log.Debug("llm client created", zap.String("model", s.cfg.Model))
	s.client = client
	return client, nil
}

// GenerateOnce sends prompt as a single user turn without tools.
func (s *Session) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := s.generate(ctx, contents, nil)
	if err != nil {
		return "", err
	}
	return replyFromResponse(resp).Text, nil
}

// GenerateWithTools runs one generation round with tools declared. The
// returned Reply holds either final text or tool calls.
func (s *Session) GenerateWithTools(ctx context.Context, conversation []Message, tools []ToolDecl, systemPrompt string) (Reply, error) {
	gc := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if len(tools) > 0 {
		gc.Tools = []*genai.Tool{toGenaiTool(tools)}
	}
	resp, err := s.generate(ctx, toGenaiContents(conversation), gc)
	if err != nil {
		return Reply{}, err
	}
	return replyFromResponse(resp), nil
}

// GenerateFromDocument sends prompt together with an inline document.
func (s *Session) GenerateFromDocument(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)}
	resp, err := s.generate(ctx, contents, nil)
	if err != nil {
		return "", err
	}
	return replyFromResponse(resp).Text, nil
}

func (s *Session) generate(ctx context.Context, contents []*genai.Content, gc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	client, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := client.Models.GenerateContent(ctx, s.cfg.Model, contents, gc)
	if err != nil {
		gwErr := classify(err)
		s.log.Warn("llm call failed", zap.String("kind", string(gwErr.Kind)), zap.Error(err))
		return nil, gwErr
	}
	if blocked := blockedError(resp); blocked != nil {
		s.log.Warn("llm response blocked", zap.String("reason", blocked.Message))
		return nil, blocked
	}
	return resp, nil
}

// blockedError reports a safety block on the prompt or the first candidate.
func blockedError(resp *genai.GenerateContentResponse) *Error {
	if resp == nil {
		return newError(KindUnexpected, nil, "empty response")
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" && pf.BlockReason != genai.BlockedReasonUnspecified {
		return newError(KindBlocked, nil, "prompt blocked by safety filter (%s)", pf.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil
	}
	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist, genai.FinishReasonSPII:
		return newError(KindBlocked, nil, "response blocked by safety filter (%s)", reason)
	}
	return nil
}

func toGenaiTool(tools []ToolDecl) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Params))
		required := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			props[p.Name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
			required = append(required, p.Name)
		}
		decls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		}
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func toGenaiContents(conversation []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(conversation))
	for _, m := range conversation {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		if m.Text != "" {
			parts = append(parts, genai.NewPartFromText(m.Text))
		}
		for _, c := range m.ToolCalls {
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: c.ID, Name: c.Name, Args: c.Args}})
		}
		for _, r := range m.ToolResults {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{ID: r.ID, Name: r.Name, Response: r.Response}})
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, genai.NewContentFromParts(parts, role))
	}
	return out
}

// replyFromResponse collects text and function calls from the first
// candidate. Thought parts are skipped.
func replyFromResponse(resp *genai.GenerateContentResponse) Reply {
	var reply Reply
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return reply
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	reply.Text = text.String()
	return reply
}
