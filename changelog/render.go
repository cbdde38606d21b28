package changelog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Internal DTOs for JSON and YAML export.
type exportBullet struct {
	Section string   `json:"section,omitempty" yaml:"section,omitempty"`
	Text    string   `json:"text" yaml:"text"`
	Items   []string `json:"items,omitempty" yaml:"items,omitempty"`
}

type exportEntry struct {
	Source         string            `json:"source" yaml:"source"`
	Version        string            `json:"version" yaml:"version"`
	Distributions  []string          `json:"distributions" yaml:"distributions"`
	Urgency        string            `json:"urgency" yaml:"urgency"`
	UrgencyComment string            `json:"urgency_comment,omitempty" yaml:"urgency_comment,omitempty"`
	Keywords       map[string]string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Changes        []exportBullet    `json:"changes" yaml:"changes"`
	Closes         []int             `json:"closes,omitempty" yaml:"closes,omitempty"`
	Maintainer     string            `json:"maintainer" yaml:"maintainer"`
	Email          string            `json:"email" yaml:"email"`
	Date           string            `json:"date" yaml:"date"`
}

// Map from business object to DTO.
func toExport(entries []*Entry) []exportEntry {
	out := make([]exportEntry, len(entries))
	for i, e := range entries {
		x := exportEntry{
			Source:         e.Source,
			Version:        e.Version,
			Distributions:  e.Distributions,
			Urgency:        string(e.Urgency),
			UrgencyComment: e.UrgencyComment,
			Closes:         e.Closes(),
			Maintainer:     e.Maintainer,
			Email:          e.Email,
			Date:           e.FormattedDate(),
		}
		if !e.Date.IsZero() {
			x.Date = e.Date.Format(time.RFC3339)
		}
		if len(e.Keywords) > 0 {
			x.Keywords = make(map[string]string, len(e.Keywords))
			for _, kw := range e.Keywords {
				x.Keywords[kw.Key] = kw.Value
			}
		}
		x.Changes = []exportBullet{}
		for _, b := range e.Bullets() {
			x.Changes = append(x.Changes, exportBullet{Section: b.Section, Text: b.Text, Items: b.Items})
		}
		out[i] = x
	}
	return out
}

// RenderJSON writes entries as an indented JSON array.
func RenderJSON(entries []*Entry, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toExport(entries))
}

// RenderYAML writes entries as a YAML sequence.
func RenderYAML(entries []*Entry, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toExport(entries)); err != nil {
		return err
	}
	return enc.Close()
}

// RenderMarkdown writes release notes: one section per entry with its
// bullets, closed bugs and signoff.
//
// The output is deterministic: given the same entries it is byte identical.
func RenderMarkdown(entries []*Entry, w io.Writer) error {
	cw := &countingWriter{w: w}
	for i, e := range entries {
		if i > 0 {
			cw.printf("\n")
		}
		cw.printf("## %s %s (%s, urgency %s)\n\n", e.Source, e.Version, e.Distribution(), e.Urgency)

		section := ""
		for j, b := range e.Bullets() {
			if b.Section != section {
				section = b.Section
				if j > 0 {
					cw.printf("\n")
				}
				cw.printf("### %s\n\n", section)
			}
			cw.printf("- %s\n", markdownEscape(b.Text))
			for _, item := range b.Items {
				cw.printf("  - %s\n", markdownEscape(item))
			}
		}

		if closes := e.Closes(); len(closes) > 0 {
			refs := make([]string, len(closes))
			for i, bug := range closes {
				refs[i] = fmt.Sprintf("[#%d](https://bugs.debian.org/%d)", bug, bug)
			}
			cw.printf("\nCloses: %s\n", strings.Join(refs, ", "))
		}
		cw.printf("\n_%s, %s_\n", e.Maintainer, e.FormattedDate())
	}
	return cw.err
}

// markdownEscape escapes the characters that would otherwise start Markdown emphasis.
func markdownEscape(s string) string {
	r := strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`")
	return r.Replace(s)
}
