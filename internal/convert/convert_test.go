// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/pdiddy/deep-research/internal/llm"
)

// fakeDocumentModel implements llm.DocumentModel with a canned answer.
type fakeDocumentModel struct {
	output   string
	err      error
	gotMime  string
	gotBytes int
	prompt   string
}

func (f *fakeDocumentModel) GenerateFromDocument(_ context.Context, prompt string, data []byte, mimeType string) (string, error) {
	f.prompt, f.gotMime, f.gotBytes = prompt, mimeType, len(data)
	return f.output, f.err
}

// fakeRuntime implements container.Runtime.
type fakeRuntime struct {
	imageErr error
	output   string
	err      error
}

func (f *fakeRuntime) Name() string { return "docker" }

func (f *fakeRuntime) Available(context.Context) bool { return true }

func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }

func (f *fakeRuntime) Filter(_ context.Context, _ string, stdin io.Reader, stdout io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, _ = io.ReadAll(stdin)
	_, err := stdout.Write([]byte(f.output))
	return err
}

func TestModelTranscriber(t *testing.T) {
	tests := []struct {
		name      string
		model     *fakeDocumentModel
		pdf       []byte
		wantError bool
		want      string
	}{
		{
			name:  "success",
			model: &fakeDocumentModel{output: "  # Report\n\nBody.\n"},
			pdf:   []byte("%PDF-1.7"),
			want:  "# Report\n\nBody.",
		},
		{
			name:      "model failure",
			model:     &fakeDocumentModel{err: &llm.Error{Kind: llm.KindRateLimit, Message: "quota"}},
			pdf:       []byte("%PDF-1.7"),
			wantError: true,
		},
		{
			name:      "blank output",
			model:     &fakeDocumentModel{output: "   "},
			pdf:       []byte("%PDF-1.7"),
			wantError: true,
		},
		{
			name:      "empty input",
			model:     &fakeDocumentModel{output: "unused"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewModelTranscriber(tt.model).Transcribe(context.Background(), tt.pdf, "report.pdf")
			if IsError(got) != tt.wantError {
				t.Fatalf("IsError(%q) = %v, want %v", got, IsError(got), tt.wantError)
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModelTranscriber_SendsPDF(t *testing.T) {
	m := &fakeDocumentModel{output: "text"}
	NewModelTranscriber(m).Transcribe(context.Background(), []byte("%PDF-1.7"), "annual-report.pdf")
	if m.gotMime != "application/pdf" {
		t.Errorf("mime = %q", m.gotMime)
	}
	if m.gotBytes != 8 {
		t.Errorf("bytes = %d, want 8", m.gotBytes)
	}
	if !strings.Contains(m.prompt, "annual-report.pdf") {
		t.Error("prompt should name the file")
	}
}

func TestMarkitdownTranscriber(t *testing.T) {
	ctx := context.Background()

	if _, err := NewMarkitdownTranscriber(ctx, &fakeRuntime{imageErr: errors.New("missing")}); err == nil {
		t.Fatal("expected error when the image is missing")
	}

	tr, err := NewMarkitdownTranscriber(ctx, &fakeRuntime{output: "# Converted"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.Transcribe(ctx, []byte("%PDF"), "a.pdf"); got != "# Converted" {
		t.Errorf("got %q", got)
	}

	tr, _ = NewMarkitdownTranscriber(ctx, &fakeRuntime{err: errors.New("container crashed")})
	got := tr.Transcribe(ctx, []byte("%PDF"), "a.pdf")
	if !IsError(got) || !strings.Contains(got, "container crashed") {
		t.Errorf("got %q, want transcription error", got)
	}
}
