// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search implements the web_search tool: it queries web search
// backends and returns ordered, deduplicated results. Failures never reach
// the caller as errors; they come back as a single synthetic result so a
// tool-calling model always sees something it can read.
package search

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/pkg/types"
)

// ErrMissingCredentials is returned by backends that lack an API key or
// engine id.
var ErrMissingCredentials = errors.New("search credentials are not configured")

// Result is one search hit.
type Result struct {
	Title   string `json:"title" yaml:"title"`
	Link    string `json:"link" yaml:"link"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// Backend searches one web search API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// Searcher queries its backends in order and merges their results.
type Searcher struct {
	backends []Backend
	log      *zap.Logger
}

// New returns a Searcher over backends.
func New(log *zap.Logger, backends ...Backend) *Searcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{backends: backends, log: log}
}

// Search runs query against every backend. Results keep backend order and
// duplicate links are dropped. When no backend produced results and at
// least one failed, the first failure is reported as a synthetic result.
// An empty slice means the search succeeded with zero hits.
func (s *Searcher) Search(ctx context.Context, query string) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{errorResult("search query is empty")}
	}
	if len(s.backends) == 0 {
		return []Result{errorResult(ErrMissingCredentials.Error())}
	}

	var (
		all      []Result
		firstErr error
	)
	for _, b := range s.backends {
		results, err := b.Search(ctx, query)
		if err != nil {
			s.log.Warn("search backend failed",
				zap.String("backend", b.Name()), zap.String("query", query), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		all = append(all, results...)
	}

	if len(all) == 0 && firstErr != nil {
		return []Result{errorResult(firstErr.Error())}
	}
	deduped, dups := deduplicate(all)
	s.log.Debug("search complete",
		zap.String("query", query), zap.Int("results", len(deduped)), zap.Int("duplicates", dups))
	return deduped
}

func errorResult(msg string) Result {
	return Result{
		Title:   "Search Error",
		Snippet: types.SystemError("web search failed: %s", msg),
	}
}

// IsErrorResult reports whether r is a synthetic failure result.
func IsErrorResult(r Result) bool {
	return r.Link == "" && types.IsSystemError(r.Snippet)
}

// deduplicate drops results whose normalized link was already seen.
func deduplicate(results []Result) ([]Result, int) {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		key := normalizeLink(r.Link)
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out, len(results) - len(out)
}

// normalizeLink lowercases the host and drops the scheme, fragment, and
// trailing slash.
func normalizeLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(link)
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	key := strings.ToLower(strings.TrimPrefix(u.Host, "www.")) + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
