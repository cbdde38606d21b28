package changelog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrReleased is returned when trying to modify an entry that has been released.
	ErrReleased = errors.New("entry is already released")
	// ErrUnreleasedPending is returned when prepending on top of an UNRELEASED entry.
	ErrUnreleasedPending = errors.New("top entry is still UNRELEASED")
	// ErrVersionNotNewer is returned when a new entry does not sort after the current top entry.
	ErrVersionNotNewer = errors.New("version is not newer than the top entry")
	// ErrSourceMismatch is returned when a new entry names another source package.
	ErrSourceMismatch = errors.New("source package does not match the changelog")
	// ErrEmpty is returned by operations that need at least one entry.
	ErrEmpty = errors.New("changelog has no entries")
)

// sourceRe is the source package name grammar.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-source
var sourceRe = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// NewEntry returns an entry without changes nor signoff. It validates the
// header fields; the entry still needs changes and a trailer before being written.
func NewEntry(source, version string, distributions []string, urgency Urgency) (*Entry, error) {
	if !sourceRe.MatchString(source) {
		return nil, fmt.Errorf("invalid source package name %q", source)
	}
	if err := ValidVersion(version); err != nil {
		return nil, err
	}
	if len(distributions) == 0 {
		distributions = []string{Unreleased}
	}
	if urgency == "" {
		urgency = UrgencyMedium
	}
	if !urgency.Valid() {
		return nil, fmt.Errorf("invalid urgency %q", urgency)
	}
	return &Entry{
		Source:        source,
		Version:       version,
		Distributions: distributions,
		Urgency:       urgency,
	}, nil
}

// Sign sets the maintainer trailer of e.
func (e *Entry) Sign(maintainer, email string, when time.Time) {
	e.Maintainer = maintainer
	e.Email = email
	e.Date = when
	e.RawDate = ""
}

// Prepend adds e as the newest entry. Released history is never touched:
// e must name the same source and sort strictly after the current top
// entry, which must itself be released.
func (c *Changelog) Prepend(e *Entry) error {
	if top := c.Latest(); top != nil {
		if e.Source != top.Source {
			return fmt.Errorf("%w: %q, changelog is for %q", ErrSourceMismatch, e.Source, top.Source)
		}
		if !top.IsReleased() {
			return fmt.Errorf("%w: %s", ErrUnreleasedPending, top.Version)
		}
		cmp, err := CompareVersions(e.Version, top.Version)
		if err != nil {
			return err
		}
		if cmp <= 0 {
			return fmt.Errorf("%w: %s <= %s", ErrVersionNotNewer, e.Version, top.Version)
		}
	}
	c.Entries = append([]*Entry{e}, c.Entries...)
	return nil
}

// AddChange appends a bullet to the UNRELEASED top entry. When maintainer
// is not the one who signed the entry, changes are grouped in "[ Name ]"
// sections, as dch does for team uploads.
func (c *Changelog) AddChange(text, maintainer string, width int) error {
	top := c.Latest()
	if top == nil {
		return ErrEmpty
	}
	if top.IsReleased() {
		return fmt.Errorf("%w: %s (%s)", ErrReleased, top.Version, top.Distribution())
	}

	bullet := WrapBullet(text, width)
	sections := sectionNames(top.Changes)

	switch {
	case maintainer == "" || (len(sections) == 0 && (maintainer == top.Maintainer || len(top.Bullets()) == 0)):
		top.Changes = append(top.Changes, bullet...)
	case len(sections) > 0 && sections[len(sections)-1] == maintainer:
		top.Changes = append(top.Changes, bullet...)
	default:
		if len(sections) == 0 && len(top.Changes) > 0 {
			owner := top.Maintainer
			if owner == "" {
				owner = "Unknown"
			}
			top.Changes = append([]string{sectionLine(owner)}, top.Changes...)
			top.changesLine = 0
		}
		if len(top.Changes) > 0 {
			top.Changes = append(top.Changes, "")
		}
		top.Changes = append(top.Changes, sectionLine(maintainer))
		top.Changes = append(top.Changes, bullet...)
	}
	return nil
}

// Release finalizes the UNRELEASED top entry for distribution and signs it.
func (c *Changelog) Release(distribution, maintainer, email string, when time.Time) error {
	top := c.Latest()
	if top == nil {
		return ErrEmpty
	}
	if top.IsReleased() {
		return fmt.Errorf("%w: %s (%s)", ErrReleased, top.Version, top.Distribution())
	}
	if distribution == "" || distribution == Unreleased {
		return fmt.Errorf("cannot release to distribution %q", distribution)
	}
	if len(top.Bullets()) == 0 {
		return fmt.Errorf("entry %s has no changes", top.Version)
	}
	top.Distributions = []string{distribution}
	top.Sign(maintainer, email, when)
	return nil
}

func sectionLine(name string) string {
	return "  [ " + name + " ]"
}

func sectionNames(lines []string) []string {
	var names []string
	for _, line := range lines {
		t := strings.TrimSpace(line)
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent <= 2 && strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
			names = append(names, strings.TrimSpace(t[1:len(t)-1]))
		}
	}
	return names
}

// WrapBullet formats text as a "  * " bullet folded at width characters,
// continuation lines being indented by four spaces. A width of zero or
// less disables folding.
func WrapBullet(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	const first, cont = "  * ", "    "
	var lines []string
	line := first + words[0]
	for _, w := range words[1:] {
		if width > 0 && utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
			lines = append(lines, line)
			line = cont + w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}
