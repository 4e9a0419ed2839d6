// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// SessionExport is the YAML shape of one session's history.
type SessionExport struct {
	SessionID string    `yaml:"session_id"`
	Messages  []Message `yaml:"messages"`
	Files     []File    `yaml:"files,omitempty"`
}

// ExportYAML writes a session's messages and file metadata to w.
func (s *Store) ExportYAML(ctx context.Context, sessionID string, w io.Writer) error {
	msgs, err := s.Messages(ctx, sessionID)
	if err != nil {
		return err
	}
	files, err := s.Files(ctx, sessionID)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(SessionExport{SessionID: sessionID, Messages: msgs, Files: files}); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
