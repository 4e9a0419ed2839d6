// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/deep-research/internal/llm"
)

var transcribePromptTmpl = template.Must(template.New("transcribe").Parse(`Transcribe the attached PDF document "{{.Filename}}" into clean Markdown.

Preserve headings, lists, tables, and the reading order of the original. Keep every number, name, and citation exactly as written. Omit page headers, footers, and page numbers. Do not summarize and do not add commentary: output only the transcription.
`))

// ModelTranscriber sends the PDF inline to a document-capable model.
type ModelTranscriber struct {
	model llm.DocumentModel
}

// NewModelTranscriber returns a transcriber backed by model.
func NewModelTranscriber(model llm.DocumentModel) *ModelTranscriber {
	return &ModelTranscriber{model: model}
}

// Transcribe implements Transcriber.
func (m *ModelTranscriber) Transcribe(ctx context.Context, pdf []byte, filename string) string {
	return run(ctx, m, pdf, filename)
}

func (m *ModelTranscriber) transcribe(ctx context.Context, pdf []byte, filename string) (string, error) {
	var prompt bytes.Buffer
	if err := transcribePromptTmpl.Execute(&prompt, struct{ Filename string }{filename}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return m.model.GenerateFromDocument(ctx, prompt.String(), pdf, "application/pdf")
}
