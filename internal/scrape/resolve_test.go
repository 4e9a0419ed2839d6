// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/pkg/types"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2301.07041", "https://arxiv.org/pdf/2301.07041"},
		{"arXiv:2301.07041v2", "https://arxiv.org/pdf/2301.07041v2"},
		{" https://arxiv.org/abs/2301.07041 ", "https://arxiv.org/pdf/2301.07041"},
		{"https://www.arxiv.org/abs/2301.07041v3/", "https://arxiv.org/pdf/2301.07041v3"},
		{"10.1145/1234567.1234568", "https://doi.org/10.1145/1234567.1234568"},
		{"doi:10.1038/nature12373", "https://doi.org/10.1038/nature12373"},
		{"US7654321B2", "https://patentimages.storage.googleapis.com/pdfs/US7654321B2.pdf"},
		{"US20230012345A1", "https://patentimages.storage.googleapis.com/pdfs/US20230012345A1.pdf"},
		{"https://example.com/page", "https://example.com/page"},
		{"https://arxiv.org/list/cs.AI/recent", "https://arxiv.org/list/cs.AI/recent"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTarget(tt.in))
		})
	}
}

func TestScrape_ArxivIDFetchesPDF(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	old := arxivPDFBase
	arxivPDFBase = srv.URL + "/pdf/"
	t.Cleanup(func() { arxivPDFBase = old })

	tr := &fakeTranscriber{text: "Attention is all you need."}
	s := New(types.ScrapeConfig{}, tr, nil, nil)

	res := s.Scrape(context.Background(), "arXiv:1706.03762")
	require.Equal(t, TypePDF, res.Type, res.Content)
	assert.Equal(t, "/pdf/1706.03762", gotPath)
	assert.Contains(t, res.Content, "Attention is all you need.")
}
