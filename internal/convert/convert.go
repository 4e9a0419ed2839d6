// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert transcribes PDF documents to Markdown text with pluggable
// backends. Transcription never fails with an error: a failed transcription
// returns text starting with ErrorPrefix.
package convert

import (
	"context"
	"fmt"
	"strings"
)

// ErrorPrefix starts every failed transcription.
const ErrorPrefix = "TRANSCRIPTION_ERROR: "

// IsError reports whether text is a failed transcription.
func IsError(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}

// Transcriber turns PDF bytes into Markdown text.
type Transcriber interface {
	Transcribe(ctx context.Context, pdf []byte, filename string) string
}

// backend is the error-returning form each transcriber implements.
type backend interface {
	transcribe(ctx context.Context, pdf []byte, filename string) (string, error)
}

// run adapts a backend to the Transcriber contract.
func run(ctx context.Context, b backend, pdf []byte, filename string) string {
	if len(pdf) == 0 {
		return ErrorPrefix + fmt.Sprintf("%s is empty", filename)
	}
	text, err := b.transcribe(ctx, pdf, filename)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrorPrefix + fmt.Sprintf("no text extracted from %s", filename)
	}
	return text
}
