// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan produces the initial research plan for a query and refines it
// into a report plan once research has been collected. Both plans are
// ordered lists of (name, description) pairs decoded from model output.
package plan

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/extract"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultMaxRecordChars = 4000

var initialPromptTmpl = template.Must(template.New("initial").Parse(`You are planning a deep research task.

User query:
{{.Query}}

Break the query into three to six research steps. Each step is one focused objective that can be answered by searching the web and reading the results. Steps must not overlap, and together they must cover the whole query.

Respond with only a JSON list of two-item lists, one per step, in the order the research should run:
[["<short unique step name>", "<what to find out in this step>"], ...]`))

var refinePromptTmpl = template.Must(template.New("refine").Parse(`You are organizing collected research into the sections of a report.

User query:
{{.Query}}

Collected research, grouped by research step:
{{.Dump}}

Design the report sections. Cover the full breadth of the collected research and do not merge distinct findings into one section. Reuse a research step's name as the section name when the section draws on that step. Introduce a new name only for a section that needs research not collected yet.

Respond with only a JSON list of two-item lists, one per section, in reading order:
[["<unique section name>", "<key points the section must cover>"], ...]`))

// Planner generates research and report plans.
type Planner struct {
	model          llm.Model
	maxRecordChars int
	log            *zap.Logger
}

// New returns a Planner. maxRecordChars bounds each record in the research
// dump given to refinement; zero selects the default.
func New(model llm.Model, maxRecordChars int, log *zap.Logger) *Planner {
	if maxRecordChars <= 0 {
		maxRecordChars = defaultMaxRecordChars
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{model: model, maxRecordChars: maxRecordChars, log: log}
}

// Initial returns the research plan for query. A gateway failure is
// returned as the error; an invalid answer yields an empty plan and no error.
func (p *Planner) Initial(ctx context.Context, query string) (types.Plan, error) {
	prompt, err := render(initialPromptTmpl, map[string]string{"Query": query})
	if err != nil {
		return nil, fmt.Errorf("rendering initial plan prompt: %w", err)
	}
	return p.generate(ctx, "initial", prompt)
}

// Refined returns the report plan for query given the research collected so
// far. Results mean the same as for Initial.
func (p *Planner) Refined(ctx context.Context, query string, research *types.CollectedResearch) (types.Plan, error) {
	prompt, err := render(refinePromptTmpl, map[string]string{
		"Query": query,
		"Dump":  Dump(research, p.maxRecordChars),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering refine prompt: %w", err)
	}
	return p.generate(ctx, "refined", prompt)
}

func (p *Planner) generate(ctx context.Context, kind, prompt string) (types.Plan, error) {
	text, err := p.model.GenerateOnce(ctx, prompt)
	if err != nil {
		p.log.Warn("plan generation failed", zap.String("plan", kind), zap.Error(err))
		return nil, err
	}
	pairs, ok := extract.Pairs(text)
	if !ok {
		p.log.Warn("plan output has invalid shape", zap.String("plan", kind), zap.Int("chars", len(text)))
		return nil, nil
	}
	out := toPlan(pairs)
	p.log.Info("plan generated", zap.String("plan", kind), zap.Strings("names", out.Names()))
	return out, nil
}

// toPlan keeps the first entry for each name.
func toPlan(pairs [][2]string) types.Plan {
	seen := make(map[string]bool, len(pairs))
	out := make(types.Plan, 0, len(pairs))
	for _, pr := range pairs {
		if seen[pr[0]] {
			continue
		}
		seen[pr[0]] = true
		out = append(out, types.PlanEntry{Name: pr[0], Description: pr[1]})
	}
	return out
}

// Dump renders collected research as one "## <name>" section per key in
// insertion order, each record cut to maxChars runes. Keys with no records
// say so. A zero maxChars disables truncation.
func Dump(research *types.CollectedResearch, maxChars int) string {
	if research == nil || len(research.Names()) == 0 {
		return "(no research collected)"
	}
	var b strings.Builder
	for _, name := range research.Names() {
		fmt.Fprintf(&b, "## %s\n\n", name)
		records := research.Get(name)
		if len(records) == 0 {
			b.WriteString("(no sources)\n\n")
			continue
		}
		for _, r := range records {
			b.WriteString(truncate(r, maxChars))
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
