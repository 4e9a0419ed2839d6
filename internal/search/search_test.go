// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func withEndpoint(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	old := googleSearchEndpoint
	googleSearchEndpoint = srv.URL
	t.Cleanup(func() {
		googleSearchEndpoint = old
		srv.Close()
	})
}

func testConfig() types.SearchConfig {
	return types.SearchConfig{APIKey: "key", EngineID: "cx", MaxResults: 3}
}

func TestGoogleBackend_Search(t *testing.T) {
	withEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", r.Header.Get("X-goog-api-key"))
		assert.Empty(t, q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		assert.Equal(t, "remote work transit", q.Get("q"))
		assert.Equal(t, "3", q.Get("num"))
		fmt.Fprint(w, `{"items":[
			{"title":"Transit ridership","link":"https://example.com/a","snippet":"Ridership fell."},
			{"title":"Remote work","link":"https://example.org/b","snippet":"More people work from home."}
		]}`)
	})

	results, err := NewGoogleBackend(testConfig(), nil).Search(context.Background(), "remote work transit")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "Transit ridership", Link: "https://example.com/a", Snippet: "Ridership fell."}, results[0])
}

func TestGoogleBackend_NoItems(t *testing.T) {
	withEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"searchInformation":{"totalResults":"0"}}`)
	})

	results, err := NewGoogleBackend(testConfig(), nil).Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGoogleBackend_APIError(t *testing.T) {
	withEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"API key not valid"}}`)
	})

	_, err := NewGoogleBackend(testConfig(), nil).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestSearcher_TransportErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	old := googleSearchEndpoint
	googleSearchEndpoint = addr + "/customsearch/v1"
	t.Cleanup(func() { googleSearchEndpoint = old })

	cfg := types.SearchConfig{APIKey: "SUPERSECRETKEY", EngineID: "cx1"}
	_, err := NewGoogleBackend(cfg, nil).Search(context.Background(), "q")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
	assert.NotContains(t, err.Error(), "customsearch/v1?")

	got := New(nil, NewGoogleBackend(cfg, nil)).Search(context.Background(), "q")
	require.Len(t, got, 1)
	assert.True(t, IsErrorResult(got[0]))
	assert.NotContains(t, got[0].Snippet, "SUPERSECRETKEY")
}

func TestGoogleBackend_MissingCredentials(t *testing.T) {
	_, err := NewGoogleBackend(types.SearchConfig{APIKey: "key"}, nil).Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

type stubBackend struct {
	results []Result
	err     error
}

func (s stubBackend) Name() string { return "stub" }

func (s stubBackend) Search(context.Context, string) ([]Result, error) {
	return s.results, s.err
}

func TestSearcher_Search(t *testing.T) {
	tests := []struct {
		name      string
		backends  []Backend
		query     string
		wantLen   int
		wantError bool
	}{
		{
			name: "dedups links across backends",
			backends: []Backend{
				stubBackend{results: []Result{{Link: "https://www.example.com/a/"}, {Link: "https://b.com"}}},
				stubBackend{results: []Result{{Link: "http://example.com/a"}}},
			},
			query:   "q",
			wantLen: 2,
		},
		{
			name:     "zero results is empty, not an error",
			backends: []Backend{stubBackend{}},
			query:    "q",
			wantLen:  0,
		},
		{
			name:      "failure becomes synthetic result",
			backends:  []Backend{stubBackend{err: errors.New("HTTP 500")}},
			query:     "q",
			wantLen:   1,
			wantError: true,
		},
		{
			name: "partial failure keeps good results",
			backends: []Backend{
				stubBackend{err: errors.New("HTTP 500")},
				stubBackend{results: []Result{{Link: "https://ok.com"}}},
			},
			query:   "q",
			wantLen: 1,
		},
		{
			name:      "no backends",
			query:     "q",
			wantLen:   1,
			wantError: true,
		},
		{
			name:      "empty query",
			backends:  []Backend{stubBackend{}},
			query:     "  ",
			wantLen:   1,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(nil, tt.backends...).Search(context.Background(), tt.query)
			require.Len(t, got, tt.wantLen)
			if tt.wantError {
				assert.True(t, IsErrorResult(got[0]))
				assert.True(t, types.IsSystemError(got[0].Snippet))
			}
		})
	}
}

func TestSearcher_MissingCredentialsSurfacesInSnippet(t *testing.T) {
	got := New(nil, NewGoogleBackend(types.SearchConfig{}, nil)).Search(context.Background(), "q")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Snippet, "GOOGLE_API_KEY")
}
