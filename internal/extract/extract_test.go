// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		keys []string
		want any
	}{
		{
			name: "fenced list with trailing comma",
			raw:  "```json\n[[\"a\",\"b\"],]\n```",
			want: []any{[]any{"a", "b"}},
		},
		{
			name: "not json",
			raw:  "not json",
			want: nil,
		},
		{
			name: "bare object with keys",
			raw:  `{"report_section": "## A", "references": ["Source 1"]}`,
			keys: []string{"report_section", "references"},
			want: map[string]any{"report_section": "## A", "references": []any{"Source 1"}},
		},
		{
			name: "object missing key",
			raw:  `{"report_section": "## A"}`,
			keys: []string{"report_section", "references"},
			want: nil,
		},
		{
			name: "list of objects checks first element",
			raw:  `[{"name": "x"}, {"other": 1}]`,
			keys: []string{"name"},
			want: []any{map[string]any{"name": "x"}, map[string]any{"other": float64(1)}},
		},
		{
			name: "list of objects missing key",
			raw:  `[{"other": 1}]`,
			keys: []string{"name"},
			want: nil,
		},
		{
			name: "list of scalars ignores keys",
			raw:  `["one", "two"]`,
			keys: []string{"name"},
			want: []any{"one", "two"},
		},
		{
			name: "prose around fence",
			raw:  "Here is the plan:\n```JSON\n{\"a\": 1,}\n```\nThanks.",
			keys: []string{"a"},
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "empty",
			raw:  "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw, tt.keys...))
		})
	}
}

func TestStringList(t *testing.T) {
	got, ok := StringList("```json\n[\"Title: A\\nLink: x\", \"Title: B\",]\n```")
	assert.True(t, ok)
	assert.Equal(t, []string{"Title: A\nLink: x", "Title: B"}, got)

	_, ok = StringList(`{"a": 1}`)
	assert.False(t, ok)

	_, ok = StringList(`[["nested"]]`)
	assert.False(t, ok)
}

func TestPairs(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   [][2]string
		wantOK bool
	}{
		{
			name:   "valid",
			raw:    `[["Baseline Trends", "ridership data"], ["Case Studies", "cities"]]`,
			want:   [][2]string{{"Baseline Trends", "ridership data"}, {"Case Studies", "cities"}},
			wantOK: true,
		},
		{name: "three items", raw: `[["a", "b", "c"]]`},
		{name: "object element", raw: `[{"name": "a"}]`},
		{name: "empty name", raw: `[["", "b"]]`},
		{name: "non-string", raw: `[["a", 2]]`},
		{name: "empty list", raw: `[]`, want: [][2]string{}, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Pairs(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestObject(t *testing.T) {
	obj, ok := Object(`{"report_section": "x", "references": [],}`, "report_section", "references")
	assert.True(t, ok)
	assert.Equal(t, "x", obj["report_section"])
	assert.Empty(t, Strings(obj["references"]))

	_, ok = Object(`["x"]`, "report_section")
	assert.False(t, ok)
}
