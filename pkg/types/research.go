// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// SystemErrorPrefix marks an inline error item in research output. Items
// carrying it stand in for a failed unit of work so downstream stages
// always receive well-formed data.
const SystemErrorPrefix = "System Error: "

// IsSystemError reports whether s is an inline error item.
func IsSystemError(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), strings.TrimSpace(SystemErrorPrefix))
}

// SystemError formats an inline error item.
func SystemError(format string, args ...any) string {
	return SystemErrorPrefix + fmt.Sprintf(format, args...)
}

// PlanEntry is one step of a research plan or one section of a report plan.
// Name is the join key between plans, collected research, and synthesized
// sections.
type PlanEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Plan is an ordered list of plan entries. A research plan and a report plan
// share this shape.
type Plan []PlanEntry

// Names returns the entry names in plan order.
func (p Plan) Names() []string {
	names := make([]string, len(p))
	for i, e := range p {
		names[i] = e.Name
	}
	return names
}

// Has reports whether the plan contains an entry named name.
func (p Plan) Has(name string) bool {
	for _, e := range p {
		if e.Name == name {
			return true
		}
	}
	return false
}

// CollectedResearch maps step or section names to formatted source strings.
// Keys remember insertion order and values are append-only.
type CollectedResearch struct {
	order   []string
	records map[string][]string
}

// NewCollectedResearch returns an empty collection.
func NewCollectedResearch() *CollectedResearch {
	return &CollectedResearch{records: make(map[string][]string)}
}

// Ensure creates an empty entry for name if none exists.
func (c *CollectedResearch) Ensure(name string) {
	if _, ok := c.records[name]; ok {
		return
	}
	c.order = append(c.order, name)
	c.records[name] = nil
}

// Append adds records under name, creating the key if needed.
func (c *CollectedResearch) Append(name string, records ...string) {
	c.Ensure(name)
	c.records[name] = append(c.records[name], records...)
}

// Get returns the records for name, or nil.
func (c *CollectedResearch) Get(name string) []string {
	return c.records[name]
}

// Has reports whether name has an entry, even an empty one.
func (c *CollectedResearch) Has(name string) bool {
	_, ok := c.records[name]
	return ok
}

// Names returns the keys in insertion order.
func (c *CollectedResearch) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the total number of records across all keys.
func (c *CollectedResearch) Len() int {
	n := 0
	for _, r := range c.records {
		n += len(r)
	}
	return n
}

// SourceRecord is one piece of evidence. It travels through prompts as the
// delimited text block produced by Format.
type SourceRecord struct {
	Title   string `json:"title" yaml:"title"`
	Link    string `json:"link" yaml:"link"`
	Snippet string `json:"snippet" yaml:"snippet"`
	Content string `json:"content" yaml:"content"`
}

var sourceFields = []string{"Title:", "Link:", "Snippet:", "Content:"}

// Format renders the record as a Title/Link/Snippet/Content block.
func (r SourceRecord) Format() string {
	return fmt.Sprintf("Title: %s\nLink: %s\nSnippet: %s\nContent: %s",
		r.Title, r.Link, r.Snippet, r.Content)
}

// ParseSourceRecord reads a formatted source string. Missing fields stay
// empty, and Content runs to the end of the text. Text that carries none of
// the field labels is returned as Content.
func ParseSourceRecord(s string) SourceRecord {
	var (
		rec     SourceRecord
		current *string
		found   bool
		content []string
	)
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if current == &rec.Content {
			content = append(content, line)
			continue
		}
		label := ""
		for _, f := range sourceFields {
			if strings.HasPrefix(trimmed, f) {
				label = f
				break
			}
		}
		value := strings.TrimSpace(strings.TrimPrefix(trimmed, label))
		switch label {
		case "Title:":
			current, rec.Title = &rec.Title, value
		case "Link:":
			current, rec.Link = &rec.Link, value
		case "Snippet:":
			current, rec.Snippet = &rec.Snippet, value
		case "Content:":
			current = &rec.Content
			content = append(content, value)
		default:
			if current != nil && trimmed != "" {
				*current += " " + trimmed
			}
			continue
		}
		found = true
	}
	if !found {
		return SourceRecord{Content: strings.TrimSpace(s)}
	}
	rec.Content = strings.TrimSpace(strings.Join(content, "\n"))
	return rec
}

// ReportSection is the synthesized Markdown for one report plan entry.
// References lists the "Source N" identifiers cited by Body.
type ReportSection struct {
	Name       string   `json:"name" yaml:"name"`
	Body       string   `json:"body" yaml:"body"`
	References []string `json:"references" yaml:"references"`
}
