package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/fatih/color"
)

// Format selects how lint issues are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// IssuePrinter writes lint issues.
type IssuePrinter struct {
	Format Format
	// Color enables ANSI colors in text output.
	Color bool
}

// Print writes the issues found in the changelog at path.
func (p IssuePrinter) Print(w io.Writer, path string, issues []changelog.Issue) error {
	switch p.Format {
	case FormatJSON:
		return printJSON(w, path, issues)
	case FormatText, "":
		return p.printText(w, path, issues)
	}
	return fmt.Errorf("unknown format %q", p.Format)
}

func (p IssuePrinter) printText(w io.Writer, path string, issues []changelog.Issue) error {
	errColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow)
	dim := color.New(color.Faint)
	for _, c := range []*color.Color{errColor, warnColor, dim} {
		if p.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var errors, warnings int
	for _, i := range issues {
		sev := warnColor.Sprint(i.Severity)
		if i.Severity == changelog.SeverityError {
			sev = errColor.Sprint(i.Severity)
			errors++
		} else {
			warnings++
		}
		loc := path
		if i.Line > 0 {
			loc = fmt.Sprintf("%s:%d", path, i.Line)
		}
		if _, err := fmt.Fprintf(w, "%s: %s: %s %s\n", loc, sev, i.Message, dim.Sprintf("[%s]", i.Code)); err != nil {
			return err
		}
	}
	if len(issues) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "%s: %d error(s), %d warning(s)\n", path, errors, warnings)
	return err
}

type issueReport struct {
	Path   string            `json:"path"`
	Issues []changelog.Issue `json:"issues"`
}

func printJSON(w io.Writer, path string, issues []changelog.Issue) error {
	if issues == nil {
		issues = []changelog.Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(issueReport{Path: path, Issues: issues})
}
