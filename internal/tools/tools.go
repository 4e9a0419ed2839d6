// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools declares the web research tools offered to the model and
// dispatches the model's tool calls through a lookup table.
package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/scrape"
	"github.com/pdiddy/deep-research/internal/search"
)

// Name identifies a tool.
type Name string

const (
	WebSearch Name = "web_search"
	ScrapeURL Name = "scrape_url"
)

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string) []search.Result
}

// Scraper fetches and extracts URLs.
type Scraper interface {
	Scrape(ctx context.Context, url string) scrape.Result
}

type handler struct {
	decl llm.ToolDecl
	run  func(ctx context.Context, call llm.ToolCall) map[string]any
}

// Registry maps tool names to their declarations and handlers.
type Registry struct {
	order    []Name
	handlers map[Name]handler
	log      *zap.Logger
}

// NewRegistry returns a registry offering web_search and scrape_url.
func NewRegistry(searcher Searcher, scraper Scraper, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{handlers: make(map[Name]handler), log: log}

	r.register(WebSearch, llm.ToolDecl{
		Name:        string(WebSearch),
		Description: "Search the web and return a list of results, each with a title, link, and snippet.",
		Params:      []llm.Param{{Name: "query", Description: "The search query."}},
	}, func(ctx context.Context, call llm.ToolCall) map[string]any {
		query := call.StringArg("query")
		if query == "" {
			return errorResponse("web_search requires a non-empty query argument")
		}
		results := searcher.Search(ctx, query)
		if len(results) == 1 && search.IsErrorResult(results[0]) {
			r.log.Warn("web search failed", zap.String("query", query), zap.String("error", results[0].Snippet))
		}
		return map[string]any{"results": searchResults(results)}
	})

	r.register(ScrapeURL, llm.ToolDecl{
		Name:        string(ScrapeURL),
		Description: "Fetch a web page or PDF and return its extracted text content.",
		Params:      []llm.Param{{Name: "url", Description: "The absolute http(s) URL to fetch. An arXiv id or DOI is also accepted."}},
	}, func(ctx context.Context, call llm.ToolCall) map[string]any {
		url := call.StringArg("url")
		if url == "" {
			return errorResponse("scrape_url requires a non-empty url argument")
		}
		res := scraper.Scrape(ctx, url)
		return map[string]any{
			"type":     res.Type,
			"content":  res.Content,
			"filename": res.Filename,
		}
	})
	return r
}

func (r *Registry) register(name Name, decl llm.ToolDecl, run func(context.Context, llm.ToolCall) map[string]any) {
	r.order = append(r.order, name)
	r.handlers[name] = handler{decl: decl, run: run}
}

// Declarations returns the tool declarations in registration order.
func (r *Registry) Declarations() []llm.ToolDecl {
	decls := make([]llm.ToolDecl, len(r.order))
	for i, n := range r.order {
		decls[i] = r.handlers[n].decl
	}
	return decls
}

// Dispatch runs one tool call and returns its function response. Unknown
// tools and panics inside a handler produce an error response.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) (resp map[string]any) {
	h, ok := r.handlers[Name(call.Name)]
	if !ok {
		return errorResponse(fmt.Sprintf("unknown tool %q", call.Name))
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("tool panicked", zap.String("tool", call.Name), zap.Any("panic", rec))
			resp = errorResponse(fmt.Sprintf("tool %s failed: %v", call.Name, rec))
		}
	}()
	r.log.Debug("dispatching tool", zap.String("tool", call.Name), zap.Any("args", call.Args))
	return h.run(ctx, call)
}

func searchResults(results []search.Result) []any {
	out := make([]any, len(results))
	for i, res := range results {
		out[i] = map[string]any{"title": res.Title, "link": res.Link, "snippet": res.Snippet}
	}
	return out
}

func errorResponse(msg string) map[string]any {
	return map[string]any{"error": msg}
}
