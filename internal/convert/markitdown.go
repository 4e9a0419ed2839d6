// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdiddy/deep-research/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownTranscriber pipes PDFs through the markitdown container image.
type MarkitdownTranscriber struct {
	runtime container.Runtime
}

// NewMarkitdownTranscriber verifies that the markitdown image exists in rt
// and returns a transcriber that uses it.
func NewMarkitdownTranscriber(ctx context.Context, rt container.Runtime) (*MarkitdownTranscriber, error) {
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownTranscriber{runtime: rt}, nil
}

// Transcribe implements Transcriber.
func (m *MarkitdownTranscriber) Transcribe(ctx context.Context, pdf []byte, filename string) string {
	return run(ctx, m, pdf, filename)
}

func (m *MarkitdownTranscriber) transcribe(ctx context.Context, pdf []byte, filename string) (string, error) {
	var out bytes.Buffer
	if err := m.runtime.Filter(ctx, imageMarkitdown, bytes.NewReader(pdf), &out); err != nil {
		return "", fmt.Errorf("converting %s with markitdown: %w", filename, err)
	}
	return out.String(), nil
}
