// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape implements the scrape_url tool. It fetches a URL, turns
// HTML pages into clean text and PDFs into transcripts, persists what it
// extracted as a file artifact, and reports every failure as a result of
// type "error" rather than returning an error.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/convert"
	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Result types.
const (
	TypeHTML  = "html"
	TypePDF   = "transcribed_pdf_text"
	TypeError = "error"
)

const (
	defaultTimeout         = 20 * time.Second
	defaultMaxContentChars = 20000
	defaultMaxBodyBytes    = 25 << 20
	acceptHeader           = "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.5"
)

// Result is the outcome of scraping one URL.
type Result struct {
	Type       string `json:"type" yaml:"type"`
	Content    string `json:"content" yaml:"content"`
	Filename   string `json:"filename,omitempty" yaml:"filename,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty" yaml:"artifact_id,omitempty"`
}

// FileSaver persists extracted content and returns a stable artifact id.
type FileSaver interface {
	SaveFileArtifact(ctx context.Context, filename string, data []byte, mimetype string, size int64) (string, error)
}

// Scraper fetches and extracts web content.
type Scraper struct {
	client      *http.Client
	cfg         types.ScrapeConfig
	transcriber convert.Transcriber
	saver       FileSaver
	log         *zap.Logger
}

// New returns a Scraper. saver may be nil, in which case nothing is
// persisted and results carry no artifact id.
func New(cfg types.ScrapeConfig, transcriber convert.Transcriber, saver FileSaver, log *zap.Logger) *Scraper {
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = defaultMaxContentChars
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{
		client:      httputil.NewClient(cfg.HTTPConfig, defaultTimeout),
		cfg:         cfg,
		transcriber: transcriber,
		saver:       saver,
		log:         log,
	}
}

// Scrape fetches rawURL and extracts its content. Paper identifiers such as
// arXiv ids and DOIs are accepted in place of a URL.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) Result {
	u, err := url.Parse(resolveTarget(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errorResult("", "invalid URL %q", rawURL)
	}

	req, err := httputil.NewRequest(ctx, u.String(), s.cfg.HTTPConfig, acceptHeader)
	if err != nil {
		return errorResult("", "building request for %s: %v", u, err)
	}
	resp, err := httputil.DoWithRetry(ctx, s.client, req, s.cfg.MaxRetries, s.log)
	if err != nil {
		if isTimeout(err) {
			return errorResult("", "request to %s timed out", u)
		}
		return errorResult("", "fetching %s: %v", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorResult("", "fetching %s: HTTP %d", u, resp.StatusCode)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL
	}

	mediaType := contentType(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(mediaType, "pdf"):
		return s.scrapePDF(ctx, u, resp)
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return s.scrapeHTML(ctx, u, resp)
	default:
		return errorResult("", "unsupported content type %q at %s", mediaType, u)
	}
}

func (s *Scraper) scrapePDF(ctx context.Context, u *url.URL, resp *http.Response) Result {
	filename := withExtension(deriveFilename(resp.Header.Get("Content-Disposition"), u), ".pdf")
	body, err := s.readBody(resp)
	if err != nil {
		return errorResult(filename, "reading %s: %v", u, err)
	}
	if s.transcriber == nil {
		return errorResult(filename, "no PDF transcriber configured for %s", filename)
	}

	transcript := s.transcriber.Transcribe(ctx, body, filename)
	if convert.IsError(transcript) {
		s.log.Warn("pdf transcription failed", zap.String("url", u.String()), zap.String("error", transcript))
		return Result{Type: TypeError, Content: types.SystemError("PDF transcription failed: %s", transcript), Filename: filename}
	}

	id := s.save(ctx, withExtension(filename, ".md"), transcript, "text/markdown")
	return Result{Type: TypePDF, Content: s.truncate(transcript), Filename: filename, ArtifactID: id}
}

func (s *Scraper) scrapeHTML(ctx context.Context, u *url.URL, resp *http.Response) Result {
	body, err := s.readBody(resp)
	if err != nil {
		if isTimeout(err) {
			return errorResult("", "reading %s timed out", u)
		}
		return errorResult("", "reading %s: %v", u, err)
	}
	text := ExtractText(body, u)
	if text == "" {
		return errorResult("", "no content extracted from %s", u)
	}

	filename := pageFilename(u)
	id := s.save(ctx, filename, text, "text/plain")
	return Result{Type: TypeHTML, Content: s.truncate(text), Filename: filename, ArtifactID: id}
}

func (s *Scraper) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", s.cfg.MaxBodyBytes)
	}
	return body, nil
}

// save persists text and returns its artifact id. Persistence failures are
// logged and leave the id empty; the scraped content is still returned.
func (s *Scraper) save(ctx context.Context, filename, text, mimetype string) string {
	if s.saver == nil {
		return ""
	}
	data := []byte(text)
	id, err := s.saver.SaveFileArtifact(ctx, filename, data, mimetype, int64(len(data)))
	if err != nil {
		s.log.Warn("saving scraped artifact failed", zap.String("filename", filename), zap.Error(err))
		return ""
	}
	return id
}

func (s *Scraper) truncate(text string) string {
	if len(text) <= s.cfg.MaxContentChars {
		return text
	}
	cut := s.cfg.MaxContentChars
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n[content truncated]"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func contentType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return mt
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func errorResult(filename, format string, args ...any) Result {
	return Result{Type: TypeError, Content: types.SystemError("scraping failed: "+format, args...), Filename: filename}
}
