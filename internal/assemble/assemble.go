// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble produces the executive summary and next-steps sections
// and merges them with the report body into the final document.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/llm"
)

// Separator joins the parts of a report when the final formatting call
// fails.
const Separator = "\n\n---\n\n"

const (
	summaryHeading   = "# Executive Summary"
	nextStepsHeading = "# Next Steps"
)

var summaryPromptTmpl = template.Must(template.New("summary").Parse(`Write the executive summary of the research report below.

Summarize the most important findings in three to five short paragraphs or a tight bulleted list. Keep the inline citations [[N]](URL) exactly as they appear when you repeat a cited claim. Start with the level-1 heading "# Executive Summary". Output only Markdown.

Report:
{{.}}`))

var nextStepsPromptTmpl = template.Must(template.New("next").Parse(`Based on the research report below, suggest next steps for further research.

List open questions, gaps in the evidence, and concrete follow-up investigations. Start with the level-1 heading "# Next Steps". Output only Markdown.

Report:
{{.}}`))

var finalizePromptTmpl = template.Must(template.New("finalize").Parse(`Merge the three parts below into one well-formatted Markdown research report.

Keep the order: executive summary, report body, next steps. Make heading levels consistent: level 1 for the three parts, level 2 for body sections. Bold a few key terms and figures where it helps the reader. Do not remove content, citations, or reference lists, and do not add new facts. Output only the Markdown document, without a code fence.

=== EXECUTIVE SUMMARY ===
{{.Summary}}

=== REPORT BODY ===
{{.Body}}

=== NEXT STEPS ===
{{.NextSteps}}`))

var (
	outerFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")
	leadingHashes     = regexp.MustCompile(`^#+\s*`)
)

// Assembler runs the final report stages.
type Assembler struct {
	model llm.Model
	log   *zap.Logger
}

// New returns an Assembler.
func New(model llm.Model, log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{model: model, log: log}
}

// Summarize returns the executive summary of body under a level-1 heading.
func (a *Assembler) Summarize(ctx context.Context, body string) string {
	return a.part(ctx, "summary", summaryPromptTmpl, summaryHeading, body)
}

// NextSteps returns further-research suggestions under a level-1 heading.
func (a *Assembler) NextSteps(ctx context.Context, body string) string {
	return a.part(ctx, "next_steps", nextStepsPromptTmpl, nextStepsHeading, body)
}

func (a *Assembler) part(ctx context.Context, kind string, tmpl *template.Template, heading, body string) string {
	var prompt bytes.Buffer
	if err := tmpl.Execute(&prompt, body); err != nil {
		return errorPart(heading, fmt.Sprintf("rendering prompt: %v", err))
	}
	text, err := a.model.GenerateOnce(ctx, prompt.String())
	if err != nil {
		a.log.Warn("report part failed", zap.String("part", kind), zap.Error(err))
		return errorPart(heading, err.Error())
	}
	text = StripFence(text)
	if text == "" {
		return errorPart(heading, "the model returned no text")
	}
	return withHeading(text, heading)
}

// Finalize merges the three parts into one document. When the model call
// fails or returns an error string, it returns the parts joined by Separator.
func (a *Assembler) Finalize(ctx context.Context, summary, body, nextSteps string) string {
	fallback := Join(summary, body, nextSteps)

	var prompt bytes.Buffer
	err := finalizePromptTmpl.Execute(&prompt, struct{ Summary, Body, NextSteps string }{summary, body, nextSteps})
	if err != nil {
		return fallback
	}
	text, err := a.model.GenerateOnce(ctx, prompt.String())
	if err != nil {
		a.log.Warn("final formatting failed, concatenating parts", zap.Error(err))
		return fallback
	}
	if llm.IsSentinel(text) {
		a.log.Warn("final formatting returned an error string, concatenating parts")
		return fallback
	}
	text = StripFence(text)
	if text == "" {
		return fallback
	}
	return text
}

// Join concatenates the report parts with Separator.
func Join(summary, body, nextSteps string) string {
	return summary + Separator + body + Separator + nextSteps
}

// StripFence removes a Markdown code fence wrapping the whole text.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if m := outerFencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// withHeading makes heading the first line of text. A first line naming the
// same heading at any level is normalized; any other first line, headings
// included, is kept below it.
func withHeading(text, heading string) string {
	first, rest, _ := strings.Cut(text, "\n")
	if strings.HasPrefix(first, "#") &&
		strings.EqualFold(leadingHashes.ReplaceAllString(first, ""), strings.TrimPrefix(heading, "# ")) {
		return heading + "\n" + rest
	}
	return heading + "\n\n" + text
}

func errorPart(heading, reason string) string {
	return fmt.Sprintf("%s\n\n*Could not generate this part: %s*", heading, reason)
}
