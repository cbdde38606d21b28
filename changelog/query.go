package changelog

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// VersionNotFoundError is returned when a requested version is not in the changelog.
type VersionNotFoundError struct {
	Version           string
	AvailableVersions []string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found (available: %s)",
		e.Version, strings.Join(e.AvailableVersions, ", "))
}

// Latest returns the newest entry, or nil for an empty changelog.
func (c *Changelog) Latest() *Entry {
	if len(c.Entries) == 0 {
		return nil
	}
	return c.Entries[0]
}

// Versions lists the entry versions, newest first.
func (c *Changelog) Versions() []string {
	versions := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		versions[i] = e.Version
	}
	return versions
}

// Find returns the entry for version. Versions equal under dpkg ordering
// ("0:1.0-1" and "1.0-1") match.
func (c *Changelog) Find(version string) (*Entry, error) {
	want := canonicalVersion(version)
	for _, e := range c.Entries {
		if e.Version == version || canonicalVersion(e.Version) == want {
			return e, nil
		}
	}
	return nil, &VersionNotFoundError{Version: version, AvailableVersions: c.Versions()}
}

// SelectOptions restricts the entries returned by Select. Empty fields are ignored.
// The semantics follow dpkg-parsechangelog.
type SelectOptions struct {
	// Since keeps entries strictly newer than this version.
	Since string
	// Until keeps entries strictly older than this version.
	Until string
	// From keeps entries newer than or equal to this version.
	From string
	// To keeps entries older than or equal to this version.
	To string
	// Offset skips the first Offset entries of the result.
	Offset int
	// Count limits the result size when positive.
	Count int
}

// Select returns the entries matching opts, newest first.
func (c *Changelog) Select(opts SelectOptions) ([]*Entry, error) {
	type bound struct {
		version string
		keep    func(cmp int) bool
	}
	var bounds []bound
	if opts.Since != "" {
		bounds = append(bounds, bound{opts.Since, func(cmp int) bool { return cmp > 0 }})
	}
	if opts.Until != "" {
		bounds = append(bounds, bound{opts.Until, func(cmp int) bool { return cmp < 0 }})
	}
	if opts.From != "" {
		bounds = append(bounds, bound{opts.From, func(cmp int) bool { return cmp >= 0 }})
	}
	if opts.To != "" {
		bounds = append(bounds, bound{opts.To, func(cmp int) bool { return cmp <= 0 }})
	}

	var selected []*Entry
	for _, e := range c.Entries {
		keep := true
		for _, b := range bounds {
			cmp, err := CompareVersions(e.Version, b.version)
			if err != nil {
				return nil, err
			}
			if !b.keep(cmp) {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, e)
		}
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(selected) {
			return nil, nil
		}
		selected = selected[opts.Offset:]
	}
	if opts.Count > 0 && opts.Count < len(selected) {
		selected = selected[:opts.Count]
	}
	return selected, nil
}

// Fields is the dpkg-parsechangelog summary of a set of entries.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/dpkg-parsechangelog.1.en.html
type Fields struct {
	Source       string
	Version      string
	Distribution string
	Urgency      Urgency
	Maintainer   string
	Timestamp    int64
	Date         string
	Closes       []int
	// Changes holds the header and change lines of every entry.
	Changes []string
}

// Summarize builds the Fields of entries. Identity fields come from the
// newest entry; the urgency is the highest one; Closes are merged.
func Summarize(entries []*Entry) (Fields, error) {
	if len(entries) == 0 {
		return Fields{}, fmt.Errorf("no entries selected")
	}
	top := entries[0]
	f := Fields{
		Source:       top.Source,
		Version:      top.Version,
		Distribution: top.Distribution(),
		Urgency:      top.Urgency,
		Maintainer:   top.Signoff(),
		Date:         top.FormattedDate(),
	}
	if !top.Date.IsZero() {
		f.Timestamp = top.Date.Unix()
	}

	seen := make(map[int]bool)
	for i, e := range entries {
		if e.Urgency.Rank() > f.Urgency.Rank() {
			f.Urgency = e.Urgency
		}
		for _, bug := range e.Closes() {
			if !seen[bug] {
				seen[bug] = true
				f.Closes = append(f.Closes, bug)
			}
		}
		if i > 0 {
			f.Changes = append(f.Changes, "")
		}
		f.Changes = append(f.Changes, e.Header(), "")
		f.Changes = append(f.Changes, e.Changes...)
	}
	sort.Ints(f.Closes)
	return f, nil
}

// Get returns the value of a field by its control name, case-insensitively.
func (f Fields) Get(name string) (string, error) {
	switch strings.ToLower(name) {
	case "source":
		return f.Source, nil
	case "version":
		return f.Version, nil
	case "distribution":
		return f.Distribution, nil
	case "urgency":
		return string(f.Urgency), nil
	case "maintainer":
		return f.Maintainer, nil
	case "timestamp":
		return strconv.FormatInt(f.Timestamp, 10), nil
	case "date":
		return f.Date, nil
	case "closes":
		return f.closes(), nil
	case "changes":
		return strings.Join(f.Changes, "\n"), nil
	}
	return "", fmt.Errorf("unknown field %q", name)
}

func (f Fields) closes() string {
	s := make([]string, len(f.Closes))
	for i, bug := range f.Closes {
		s[i] = strconv.Itoa(bug)
	}
	return strings.Join(s, " ")
}

// WriteTo writes the fields as a deb822 stanza. Changes is folded with
// one leading space per line and "." for blank lines.
func (f Fields) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writeField := func(key, value string) {
		if value != "" {
			cw.printf("%s: %s\n", key, value)
		}
	}
	writeField("Source", f.Source)
	writeField("Version", f.Version)
	writeField("Distribution", f.Distribution)
	writeField("Urgency", string(f.Urgency))
	writeField("Maintainer", f.Maintainer)
	if f.Timestamp != 0 {
		writeField("Timestamp", strconv.FormatInt(f.Timestamp, 10))
	}
	writeField("Date", f.Date)
	writeField("Closes", f.closes())
	if len(f.Changes) > 0 {
		cw.printf("Changes:\n")
		for _, line := range f.Changes {
			if strings.TrimSpace(line) == "" {
				cw.printf(" .\n")
			} else {
				cw.printf(" %s\n", line)
			}
		}
	}
	return cw.n, cw.err
}
