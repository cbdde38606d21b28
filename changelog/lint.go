package changelog

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Severity classifies a lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single lint finding.
type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	// Code is a stable identifier of the check, e.g. "version-order".
	Code    string `json:"code" yaml:"code"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%d: %s: %s [%s]", i.Line, i.Severity, i.Message, i.Code)
	}
	return fmt.Sprintf("%s: %s [%s]", i.Severity, i.Message, i.Code)
}

// Check codes reported by Lint.
const (
	CodeVersionOrder        = "version-order"
	CodeDuplicateVersion    = "duplicate-version"
	CodeVersionSyntax       = "version-syntax"
	CodeUrgencyInvalid      = "urgency-invalid"
	CodeUrgencyCritical     = "urgency-critical"
	CodeTrailerDate         = "trailer-date"
	CodeTrailerWeekday      = "trailer-weekday"
	CodeTrailerSpacing      = "trailer-spacing"
	CodeTrailerEmail        = "trailer-email"
	CodeDateOrder           = "date-order"
	CodeSourceMismatch      = "source-mismatch"
	CodeDistributionUnknown = "distribution-unknown"
	CodeEmptyEntry          = "empty-entry"
	CodeLineTooLong         = "line-too-long"
	CodeTrailingWhitespace  = "trailing-whitespace"
)

// LintOptions tunes Lint.
type LintOptions struct {
	// MaxLineLength is the longest change line accepted, in characters. Zero disables the check.
	MaxLineLength int
	// Distributions is the allow-list of target distributions. Empty disables the check.
	Distributions []string
	// Disabled lists check codes to skip.
	Disabled []string
}

// DefaultLintOptions returns the options used when none are configured.
func DefaultLintOptions() LintOptions {
	return LintOptions{MaxLineLength: 80}
}

// strictDateRe is the RFC 2822 date grammar required in trailers:
// "Day, dd Mon yyyy hh:mm:ss +zzzz", with an optional "(ZONE)" comment.
var strictDateRe = regexp.MustCompile(`^(Mon|Tue|Wed|Thu|Fri|Sat|Sun), [0-9]{1,2} (Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) [0-9]{4} [0-9]{2}:[0-9]{2}:[0-9]{2} [+-][0-9]{4}( \([^()]*\))?$`)

// Lint checks c and returns the issues found, ordered by line.
func Lint(c *Changelog, opts LintOptions) []Issue {
	l := &linter{opts: opts, disabled: make(map[string]bool)}
	for _, code := range opts.Disabled {
		l.disabled[code] = true
	}

	seen := make(map[string]*Entry)
	for i, e := range c.Entries {
		l.entry(e)

		if i > 0 {
			newer := c.Entries[i-1]
			if e.Source != c.Entries[0].Source {
				l.add(SeverityWarning, CodeSourceMismatch, e.Line, e.Version,
					fmt.Sprintf("source %q differs from %q", e.Source, c.Entries[0].Source))
			}
			if !newer.Date.IsZero() && !e.Date.IsZero() && e.Date.After(newer.Date) {
				l.add(SeverityWarning, CodeDateOrder, e.TrailerLine, e.Version,
					fmt.Sprintf("date %s is later than %s of version %s", e.FormattedDate(), newer.FormattedDate(), newer.Version))
			}
			if cmp, err := CompareVersions(newer.Version, e.Version); err == nil && cmp < 0 {
				l.add(SeverityError, CodeVersionOrder, e.Line, e.Version,
					fmt.Sprintf("version %s is newer than %s listed above it", e.Version, newer.Version))
			}
		}

		if ValidVersion(e.Version) != nil {
			continue
		}
		key := canonicalVersion(e.Version)
		if first, ok := seen[key]; ok {
			l.add(SeverityError, CodeDuplicateVersion, e.Line, e.Version,
				fmt.Sprintf("version %s already used by the entry at line %d", e.Version, first.Line))
		} else {
			seen[key] = e
		}
	}

	sort.SliceStable(l.issues, func(i, j int) bool {
		return l.issues[i].Line < l.issues[j].Line
	})
	return l.issues
}

// HasErrors reports whether issues contains at least one error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

type linter struct {
	opts     LintOptions
	disabled map[string]bool
	issues   []Issue
}

func (l *linter) add(sev Severity, code string, line int, version, msg string) {
	if l.disabled[code] {
		return
	}
	l.issues = append(l.issues, Issue{Severity: sev, Code: code, Line: line, Version: version, Message: msg})
}

// entry runs the checks that only need a single entry.
func (l *linter) entry(e *Entry) {
	if err := ValidVersion(e.Version); err != nil {
		l.add(SeverityError, CodeVersionSyntax, e.Line, e.Version, err.Error())
	}

	switch {
	case e.Urgency == UrgencyCritical:
		l.add(SeverityWarning, CodeUrgencyCritical, e.Line, e.Version,
			"urgency \"critical\" is a legacy synonym of \"emergency\"")
	case !e.Urgency.Valid():
		l.add(SeverityError, CodeUrgencyInvalid, e.Line, e.Version,
			fmt.Sprintf("urgency %q is not one of low, medium, high, emergency", e.Urgency))
	}

	if len(l.opts.Distributions) > 0 {
		for _, d := range e.Distributions {
			if d != Unreleased && !contains(l.opts.Distributions, d) {
				l.add(SeverityWarning, CodeDistributionUnknown, e.Line, e.Version,
					fmt.Sprintf("unknown distribution %q", d))
			}
		}
	}

	if len(e.Bullets()) == 0 {
		l.add(SeverityError, CodeEmptyEntry, e.Line, e.Version, "entry has no changes")
	}

	for i, line := range e.Changes {
		n := 0
		if e.changesLine > 0 {
			n = e.changesLine + i
		}
		if l.opts.MaxLineLength > 0 && utf8.RuneCountInString(line) > l.opts.MaxLineLength {
			l.add(SeverityWarning, CodeLineTooLong, n, e.Version,
				fmt.Sprintf("line is %d characters long (max %d)", utf8.RuneCountInString(line), l.opts.MaxLineLength))
		}
		if line != strings.TrimRight(line, " \t") {
			l.add(SeverityWarning, CodeTrailingWhitespace, n, e.Version, "trailing whitespace")
		}
	}

	l.trailer(e)
}

func (l *linter) trailer(e *Entry) {
	line := e.TrailerLine
	if _, err := mail.ParseAddress(e.Signoff()); err != nil || e.Maintainer == "" {
		l.add(SeverityError, CodeTrailerEmail, line, e.Version,
			fmt.Sprintf("invalid maintainer %q", e.Signoff()))
	}

	if line > 0 && e.trailerGap != "  " {
		l.add(SeverityWarning, CodeTrailerSpacing, line, e.Version,
			"expected exactly two spaces between the e-mail address and the date")
	}

	raw := e.FormattedDate()
	if e.Date.IsZero() || !strictDateRe.MatchString(raw) {
		l.add(SeverityError, CodeTrailerDate, line, e.Version,
			fmt.Sprintf("date %q does not match \"Day, dd Mon yyyy hh:mm:ss +zzzz\"", raw))
		return
	}
	if day := raw[:3]; day != e.Date.Weekday().String()[:3] {
		l.add(SeverityWarning, CodeTrailerWeekday, line, e.Version,
			fmt.Sprintf("%s is a %s, not %s", e.Date.Format("02 Jan 2006"), e.Date.Weekday(), day))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
