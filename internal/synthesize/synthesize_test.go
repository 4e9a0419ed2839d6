// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/llm/llmtest"
	"github.com/pdiddy/deep-research/pkg/types"
)

var records = []string{
	types.SourceRecord{Title: "Ridership Report", Link: "https://transit.example/report", Snippet: "s", Content: "Ridership fell 30%."}.Format(),
	types.SourceRecord{Title: "Office Survey", Link: "https://survey.example", Snippet: "s", Content: "Two office days a week."}.Format(),
}

func TestSection(t *testing.T) {
	model := &llmtest.Model{Rules: []llmtest.Rule{{Response: llmtest.Response{Text: "```json\n" +
		`{"report_section": "## Baseline Trends\n\nRidership fell [[1]](https://transit.example/report).", "references": ["Source 1", "Source 7", "Source 1"]}` +
		"\n```"}}}}

	got := New(model, nil).Section(context.Background(), "Baseline Trends", "ridership", records)

	assert.Equal(t, "Baseline Trends", got.Name)
	assert.Equal(t, []string{"Source 1", "Source 7", "Source 1"}, got.References)
	assert.Equal(t,
		"## Baseline Trends\n\nRidership fell [[1]](https://transit.example/report).\n\n**References**\n\n- [1] [Ridership Report](https://transit.example/report)",
		got.Body)

	prompt := model.Prompts()[0]
	assert.Contains(t, prompt, "Source 1:\nTitle: Ridership Report")
	assert.Contains(t, prompt, "Source 2:\nTitle: Office Survey")
	assert.Contains(t, prompt, `## Baseline Trends`)
}

func TestSection_AddsMissingHeading(t *testing.T) {
	model := &llmtest.Model{Rules: []llmtest.Rule{{Response: llmtest.Response{
		Text: `{"report_section": "Plain prose.", "references": []}`,
	}}}}
	got := New(model, nil).Section(context.Background(), "Case Studies", "", records)
	assert.Equal(t, "## Case Studies\n\nPlain prose.", got.Body)
	assert.Empty(t, got.References)
}

func TestSection_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		reply    llmtest.Response
		contains []string
	}{
		{
			name:     "model error",
			reply:    llmtest.Response{Err: &llm.Error{Kind: llm.KindBlocked, Message: "safety"}},
			contains: []string{"## Policy\n\n*Error generating this section:", "LLM_ERROR[BLOCKED]: safety"},
		},
		{
			name:     "missing key",
			reply:    llmtest.Response{Text: `{"report_section": "text"}`},
			contains: []string{"could not be parsed", `{"report_section": "text"}`},
		},
		{
			name:     "not json",
			reply:    llmtest.Response{Text: "Here is the section about policy."},
			contains: []string{"could not be parsed", "Here is the section about policy."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &llmtest.Model{Rules: []llmtest.Rule{{Response: tt.reply}}}
			got := New(model, nil).Section(context.Background(), "Policy", "", records)
			assert.Empty(t, got.References)
			for _, want := range tt.contains {
				assert.Contains(t, got.Body, want)
			}
		})
	}
}

func TestSection_NoRecordsSkipsModel(t *testing.T) {
	model := &llmtest.Model{}
	got := New(model, nil).Section(context.Background(), "Empty", "", nil)
	assert.Equal(t, "## Empty\n\n*No evidence was collected for this section.*", got.Body)
	assert.Empty(t, model.Prompts())
}

func TestReferenceList(t *testing.T) {
	noLink := []string{"Content: only text"}
	assert.Equal(t, "**References**\n\n- [1] Source 1", referenceList([]string{"source 1"}, noLink))
	assert.Empty(t, referenceList([]string{"Source 0", "S2", "Source 3"}, records))

	got := referenceList([]string{" Source 2 ", "Source 1"}, records)
	require.Equal(t,
		"**References**\n\n- [2] [Office Survey](https://survey.example)\n- [1] [Ridership Report](https://transit.example/report)",
		got)
}

func TestReferenceList_KeepsSourceNumbersWithGaps(t *testing.T) {
	five := make([]string, 5)
	for i := range five {
		five[i] = types.SourceRecord{Title: fmt.Sprintf("Doc %d", i+1), Link: fmt.Sprintf("https://doc%d.example", i+1)}.Format()
	}
	got := referenceList([]string{"Source 2", "Source 5"}, five)
	assert.Equal(t, "**References**\n\n- [2] [Doc 2](https://doc2.example)\n- [5] [Doc 5](https://doc5.example)", got)
	assert.NotContains(t, got, "\n1. ")
}
