// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// googleSearchEndpoint is the Custom Search JSON API endpoint. Declared as
// a var so tests can substitute an httptest server.
var googleSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

const (
	apiKeyHeader         = "X-goog-api-key"
	defaultGoogleResults = 5
	maxGoogleResults     = 10
)

// GoogleBackend queries Google Programmable Search (Custom Search JSON API).
type GoogleBackend struct {
	Client *http.Client
	Config types.SearchConfig
	Log    *zap.Logger
}

// NewGoogleBackend returns a backend for cfg.
func NewGoogleBackend(cfg types.SearchConfig, log *zap.Logger) *GoogleBackend {
	return &GoogleBackend{
		Client: httputil.NewClient(cfg.HTTPConfig, 15*time.Second),
		Config: cfg,
		Log:    log,
	}
}

// Name returns the backend identifier.
func (b *GoogleBackend) Name() string { return "google_cse" }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search queries the API. Missing credentials return ErrMissingCredentials
// without a network call.
func (b *GoogleBackend) Search(ctx context.Context, query string) ([]Result, error) {
	if b.Config.APIKey == "" || b.Config.EngineID == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY and GOOGLE_CSE_ID are required: %w", ErrMissingCredentials)
	}

	num := b.Config.MaxResults
	if num <= 0 {
		num = defaultGoogleResults
	}
	num = min(num, maxGoogleResults)

	// The key travels in a header so it never appears in a request URL,
	// and so never in transport error text.
	params := url.Values{
		"cx":  {b.Config.EngineID},
		"q":   {query},
		"num": {strconv.Itoa(num)},
	}
	req, err := httputil.NewRequest(ctx, googleSearchEndpoint+"?"+params.Encode(), b.Config.HTTPConfig, "application/json")
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(apiKeyHeader, b.Config.APIKey)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, b.Config.MaxRetries, b.Log)
	if err != nil {
		return nil, fmt.Errorf("custom search request: %w", withoutURL(err))
	}
	defer resp.Body.Close()

	var gr googleResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&gr)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && gr.Error != nil && gr.Error.Message != "" {
			return nil, fmt.Errorf("custom search returned HTTP %d: %s", resp.StatusCode, gr.Error.Message)
		}
		return nil, fmt.Errorf("custom search returned HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("parsing custom search response: %w", decodeErr)
	}

	results := make([]Result, 0, len(gr.Items))
	for _, item := range gr.Items {
		results = append(results, Result{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}

// withoutURL drops the request URL from transport errors, keeping the
// operation and the cause.
func withoutURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
