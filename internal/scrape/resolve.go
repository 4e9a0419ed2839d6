// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"net/url"
	"regexp"
	"strings"
)

// Document hosts that identifiers resolve against. Vars so tests can point
// them at an httptest server.
var (
	arxivPDFBase  = "https://arxiv.org/pdf/"
	doiBase       = "https://doi.org/"
	patentPDFBase = "https://patentimages.storage.googleapis.com/pdfs/"
)

var (
	// "2301.07041", "arXiv:2301.07041", "2301.07041v2".
	arxivIDPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

	// "10.1145/1234567.1234568", optionally prefixed "doi:".
	doiPattern = regexp.MustCompile(`^(?i:doi:)?(10\.\d{4,9}/\S+)$`)

	// "US7654321", "US7654321B2", "US20230012345A1".
	patentPattern = regexp.MustCompile(`^US(\d{6,11}(?:[A-Z]\d{0,2})?)$`)

	// arxiv.org/abs/<id> landing pages.
	arxivAbsPath = regexp.MustCompile(`^/abs/(\d{4}\.\d{4,5}(?:v\d+)?)/?$`)
)

// resolveTarget turns what the model asked to scrape into a fetchable URL.
// Bare arXiv ids, DOIs, and US patent numbers map to their document
// endpoints, and arXiv abstract pages map to the paper PDF so the full text
// is transcribed instead of the abstract. Anything else is returned
// trimmed and unchanged.
func resolveTarget(raw string) string {
	raw = strings.TrimSpace(raw)

	if m := arxivIDPattern.FindStringSubmatch(raw); m != nil {
		return arxivPDFBase + m[1]
	}
	if m := doiPattern.FindStringSubmatch(raw); m != nil {
		return doiBase + m[1]
	}
	if m := patentPattern.FindStringSubmatch(raw); m != nil {
		return patentPDFBase + "US" + m[1] + ".pdf"
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host == "arxiv.org" {
		if m := arxivAbsPath.FindStringSubmatch(u.Path); m != nil {
			return arxivPDFBase + m[1]
		}
	}
	return raw
}
