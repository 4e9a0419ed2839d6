// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	reportFile   = "report.md"
	manifestFile = "run.yaml"
)

// Manifest is the YAML record of one run.
type Manifest struct {
	SessionID   string        `yaml:"session_id"`
	Query       string        `yaml:"query"`
	State       State         `yaml:"state"`
	Error       string        `yaml:"error,omitempty"`
	StartedAt   time.Time     `yaml:"started_at"`
	FinishedAt  time.Time     `yaml:"finished_at"`
	InitialPlan types.Plan    `yaml:"initial_plan"`
	ReportPlan  types.Plan    `yaml:"report_plan,omitempty"`
	Sources     []SourceGroup `yaml:"sources,omitempty"`
}

// SourceGroup lists the evidence collected under one step or section name.
type SourceGroup struct {
	Name    string               `yaml:"name"`
	Records []types.SourceRecord `yaml:"records"`
}

// NewManifest summarizes out.
func NewManifest(out Outcome) Manifest {
	m := Manifest{
		SessionID:   out.SessionID,
		Query:       out.Query,
		State:       out.State,
		StartedAt:   out.StartedAt,
		FinishedAt:  out.FinishedAt,
		InitialPlan: out.InitialPlan,
		ReportPlan:  out.ReportPlan,
	}
	if out.Err != nil {
		m.Error = out.Err.Error()
	}
	if out.Sources != nil {
		for _, name := range out.Sources.Names() {
			g := SourceGroup{Name: name, Records: []types.SourceRecord{}}
			for _, rec := range out.Sources.Get(name) {
				g.Records = append(g.Records, types.ParseSourceRecord(rec))
			}
			m.Sources = append(m.Sources, g)
		}
	}
	return m
}

// WriteOutcome writes report.md (when the run produced a report) and
// run.yaml into dir, creating it if needed.
func WriteOutcome(dir string, out Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if out.Report != "" {
		if err := os.WriteFile(filepath.Join(dir, reportFile), []byte(out.Report), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	data, err := yaml.Marshal(NewManifest(out))
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
