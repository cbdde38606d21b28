package changelog

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
)

// ParseError reports a line that breaks the changelog grammar.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Text)
}

var (
	// headerRe follows dpkg's Dpkg::Changelog::Entry::Debian header regexp.
	headerRe = regexp.MustCompile(`^(\w[-+0-9a-z.]*) \(([^()\s]+)\)((?:\s+[-+0-9a-zA-Z.]+)+);(.*?)\s*$`)
	// trailerRe is lenient on the gap before the date; Lint checks it.
	trailerRe = regexp.MustCompile(`^ -- (.*?) ?<([^>]*)>(\s*)(.*?)\s*$`)
	// terminatorRe matches lines after which dpkg stops reading entries.
	terminatorRe = regexp.MustCompile(`(?i)^(?:;;\s*)?(?:local variables:|old changelog:|#?\s*vim:)`)
	// dateCommentRe strips a zone comment such as "(CET)".
	dateCommentRe = regexp.MustCompile(`\s*\([^()]*\)$`)
)

// dateLayouts are tried in order when parsing a trailer date.
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// ParseFile reads the changelog at path.
func ParseFile(path string) (*Changelog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening changelog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// ParseString parses a changelog held in memory.
func ParseString(s string) (*Changelog, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a changelog from r. Gzip compressed input is detected and
// decompressed transparently.
func Parse(r io.Reader) (*Changelog, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gzr.Close()
		return parseLines(gzr)
	}
	return parseLines(br)
}

func parseLines(r io.Reader) (*Changelog, error) {
	c := &Changelog{}
	var current *Entry

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		blank := strings.TrimSpace(line) == ""

		if current == nil {
			switch {
			case blank:
				continue
			case terminatorRe.MatchString(line):
				c.Tail = append(c.Tail, line)
				for sc.Scan() {
					c.Tail = append(c.Tail, strings.TrimRight(sc.Text(), "\r"))
				}
				if err := sc.Err(); err != nil {
					return nil, fmt.Errorf("reading changelog: %w", err)
				}
				return finish(c)
			case headerRe.MatchString(line):
				e, err := parseHeader(line, n)
				if err != nil {
					return nil, err
				}
				current = e
			case strings.HasPrefix(line, " -- "):
				return nil, &ParseError{Line: n, Text: line, Msg: "trailer outside of an entry"}
			case line[0] == ' ' || line[0] == '\t':
				return nil, &ParseError{Line: n, Text: line, Msg: "change line outside of an entry"}
			default:
				return nil, &ParseError{Line: n, Text: line, Msg: "expected an entry header"}
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, " -- "):
			if err := parseTrailer(current, line, n); err != nil {
				return nil, err
			}
			current.Changes = trimBlankLines(current.Changes)
			c.Entries = append(c.Entries, current)
			current = nil
		case blank:
			current.Changes = append(current.Changes, line)
		case line[0] == ' ' || line[0] == '\t':
			if current.changesLine == 0 {
				current.changesLine = n
			}
			current.Changes = append(current.Changes, line)
		case headerRe.MatchString(line):
			return nil, &ParseError{Line: n, Text: line, Msg: fmt.Sprintf("entry %s (line %d) has no trailer", current.Version, current.Line)}
		default:
			return nil, &ParseError{Line: n, Text: line, Msg: "unexpected unindented line in entry body"}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}
	if current != nil {
		return nil, &ParseError{Line: current.Line, Text: current.Header(), Msg: fmt.Sprintf("entry %s is not terminated by a trailer", current.Version)}
	}
	return finish(c)
}

func finish(c *Changelog) (*Changelog, error) {
	if len(c.Entries) == 0 {
		return nil, &ParseError{Msg: "no changelog entries found"}
	}
	return c, nil
}

// parseHeader parses "source (version) dist; urgency=level, key=value".
func parseHeader(line string, n int) (*Entry, error) {
	m := headerRe.FindStringSubmatch(line)
	if m == nil {
		return nil, &ParseError{Line: n, Text: line, Msg: "malformed entry header"}
	}
	e := &Entry{
		Source:        m[1],
		Version:       m[2],
		Distributions: strings.Fields(m[3]),
		Line:          n,
	}

	foundUrgency := false
	for _, kv := range strings.Split(m[4], ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, &ParseError{Line: n, Text: line, Msg: fmt.Sprintf("bad header keyword %q", kv)}
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		if key != "urgency" {
			e.Keywords = append(e.Keywords, Keyword{Key: key, Value: value})
			continue
		}
		if foundUrgency {
			return nil, &ParseError{Line: n, Text: line, Msg: "repeated urgency keyword"}
		}
		foundUrgency = true
		level, comment, _ := strings.Cut(value, " ")
		e.Urgency = Urgency(strings.ToLower(level))
		comment = strings.TrimSpace(comment)
		if strings.HasPrefix(comment, "(") && strings.HasSuffix(comment, ")") {
			comment = comment[1 : len(comment)-1]
		}
		e.UrgencyComment = comment
	}
	if !foundUrgency {
		return nil, &ParseError{Line: n, Text: line, Msg: "missing urgency keyword"}
	}
	return e, nil
}

// parseTrailer fills the signoff fields of e. An unparseable date is kept in
// RawDate and left for Lint to report.
func parseTrailer(e *Entry, line string, n int) error {
	m := trailerRe.FindStringSubmatch(line)
	if m == nil {
		return &ParseError{Line: n, Text: line, Msg: "malformed trailer"}
	}
	e.Maintainer = strings.TrimSpace(m[1])
	e.Email = m[2]
	e.trailerGap = m[3]
	e.RawDate = m[4]
	e.TrailerLine = n
	if e.RawDate == "" {
		return &ParseError{Line: n, Text: line, Msg: "trailer has no date"}
	}
	if t, err := parseDate(e.RawDate); err == nil {
		e.Date = t
	}
	return nil
}

// parseDate parses an RFC 2822 date as found in trailers. A trailing
// parenthesised zone comment is ignored.
func parseDate(s string) (time.Time, error) {
	s = dateCommentRe.ReplaceAllString(strings.TrimSpace(s), "")
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
