// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize writes one report section from its source records with
// inline numbered citations.
package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/extract"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

var sectionPromptTmpl = template.Must(template.New("section").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`You are writing one section of a research report.

Section name: {{.Name}}
Key points to cover: {{.Description}}

Sources:
{{range $i, $r := .Records}}
Source {{inc $i}}:
{{$r}}
{{end}}
Rules:
- Write only from the sources above. Do not add outside knowledge.
- Start with the level-2 heading "## {{.Name}}".
- Cite every factual claim inline as [[N]](URL) immediately after the clause it supports, where N is the source number and URL is the exact value of that source's Link: field. If a source has no valid link, cite it as [[N]]().
- Skip sources whose content reports a failure.

Respond with only a JSON object:
{"report_section": "<the section in Markdown>", "references": ["Source N", ...]}
where references lists every source you cited, in order of first citation.`))

var sourceIDPattern = regexp.MustCompile(`(?i)^\s*source\s+(\d+)\s*$`)

// Synthesizer turns source records into report sections.
type Synthesizer struct {
	model llm.Model
	log   *zap.Logger
}

// New returns a Synthesizer.
func New(model llm.Model, log *zap.Logger) *Synthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{model: model, log: log}
}

// Section writes the section named name. It always returns a section with a
// non-empty body; model failures produce an inline error note.
func (s *Synthesizer) Section(ctx context.Context, name, description string, records []string) (section types.ReportSection) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("section synthesis panicked", zap.String("section", name), zap.Any("panic", rec))
			section = errorSection(name, fmt.Sprintf("unexpected failure: %v", rec), "")
		}
	}()

	if len(records) == 0 {
		return types.ReportSection{
			Name: name,
			Body: fmt.Sprintf("## %s\n\n*No evidence was collected for this section.*", name),
		}
	}

	var prompt bytes.Buffer
	err := sectionPromptTmpl.Execute(&prompt, struct {
		Name, Description string
		Records           []string
	}{name, description, records})
	if err != nil {
		return errorSection(name, fmt.Sprintf("rendering prompt: %v", err), "")
	}

	text, err := s.model.GenerateOnce(ctx, prompt.String())
	if err != nil {
		s.log.Warn("section synthesis failed", zap.String("section", name), zap.Error(err))
		return errorSection(name, err.Error(), "")
	}

	obj, ok := extract.Object(text, "report_section", "references")
	body, _ := obj["report_section"].(string)
	if !ok || strings.TrimSpace(body) == "" {
		s.log.Warn("section output malformed", zap.String("section", name))
		return errorSection(name, "the model response could not be parsed", text)
	}

	refs := extract.Strings(obj["references"])
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "#") {
		body = fmt.Sprintf("## %s\n\n%s", name, body)
	}
	if list := referenceList(refs, records); list != "" {
		body += "\n\n" + list
	}
	return types.ReportSection{Name: name, Body: body, References: refs}
}

func errorSection(name, reason, raw string) types.ReportSection {
	body := fmt.Sprintf("## %s\n\n*Error generating this section: %s*", name, reason)
	if strings.TrimSpace(raw) != "" {
		body += "\n\n" + strings.TrimSpace(raw)
	}
	return types.ReportSection{Name: name, Body: body}
}

// referenceList renders cited "Source N" identifiers as a bullet list labelled
// [N], matching the inline citations even when numbers skip. Identifiers that
// do not name a supplied source are skipped.
func referenceList(refs, records []string) string {
	var b strings.Builder
	seen := make(map[int]bool)
	for _, ref := range refs {
		m := sourceIDPattern.FindStringSubmatch(ref)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(records) || seen[n] {
			continue
		}
		seen[n] = true
		rec := types.ParseSourceRecord(records[n-1])
		title := rec.Title
		if title == "" {
			title = rec.Link
		}
		if title == "" {
			title = fmt.Sprintf("Source %d", n)
		}
		if rec.Link != "" {
			fmt.Fprintf(&b, "- [%d] [%s](%s)\n", n, title, rec.Link)
		} else {
			fmt.Fprintf(&b, "- [%d] %s\n", n, title)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "**References**\n\n" + strings.TrimRight(b.String(), "\n")
}
