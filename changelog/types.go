package changelog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Unreleased is the placeholder distribution of an entry that is still being edited.
const Unreleased = "UNRELEASED"

// DateLayout is the RFC 2822 layout used in maintainer trailers.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-source.html#debian-changelog-debian-changelog
const DateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// Urgency is the upload urgency declared in an entry header.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-urgency
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
	// UrgencyCritical is accepted by dpkg as a synonym of UrgencyEmergency.
	UrgencyCritical Urgency = "critical"
)

// Urgencies returns the allowed urgency values from the least to the most urgent.
func Urgencies() []Urgency {
	return []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency}
}

// Valid reports whether u is one of the enumerated urgencies.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return true
	}
	return false
}

// Rank orders urgencies, higher is more urgent. Unknown values rank 0.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyEmergency, UrgencyCritical:
		return 4
	}
	return 0
}

// Keyword is an extra key=value pair of an entry header, such as "binary-only=yes".
type Keyword struct {
	Key   string
	Value string
}

// Changelog is a parsed changelog. Entries are ordered newest first.
type Changelog struct {
	Entries []*Entry

	// Tail holds the text following the last entry when it starts with an
	// editor or history terminator ("Local variables:", "Old Changelog:").
	// It is written back verbatim.
	Tail []string
}

// Entry is one release record of the changelog.
type Entry struct {
	// Source is the source package name.
	Source string
	// Version is the full Debian version: [epoch:]upstream[-revision].
	Version string
	// Distributions lists the target suites, usually a single one.
	Distributions []string

	// Urgency is stored lowercase, even when it is not a known value.
	Urgency Urgency
	// UrgencyComment is the optional parenthesised text following the urgency.
	UrgencyComment string
	// Keywords holds the other header pairs, in order.
	Keywords []Keyword

	// Changes holds the body lines verbatim, including their indentation.
	// Leading and trailing blank lines are not kept.
	Changes []string

	// Maintainer and Email identify who signed the entry off.
	Maintainer string
	Email      string
	// Date is the signoff time. It is zero when RawDate could not be parsed.
	Date time.Time
	// RawDate is the date as written in the file. When empty, Date is formatted with DateLayout.
	RawDate string

	// Line and TrailerLine are the 1-based positions of the header and the
	// trailer in the source, zero for entries built in memory.
	Line        int
	TrailerLine int
	// trailerGap is the whitespace found between '>' and the date.
	trailerGap string
	// changesLine is the source line of Changes[0], zero when unknown.
	changesLine int
}

// IsReleased reports whether the entry targets a real distribution.
func (e *Entry) IsReleased() bool {
	for _, d := range e.Distributions {
		if d == Unreleased {
			return false
		}
	}
	return len(e.Distributions) > 0
}

// Distribution returns the distributions as written in the header.
func (e *Entry) Distribution() string {
	return strings.Join(e.Distributions, " ")
}

// Signoff returns "Name <email>".
func (e *Entry) Signoff() string {
	return e.Maintainer + " <" + e.Email + ">"
}

// Bullet is a top-level change item with its nested items.
type Bullet struct {
	// Section is the name of the "[ Name ]" block the bullet belongs to, if any.
	Section string
	Text    string
	Items   []string
}

// Bullets groups the change lines into bullets. Continuation lines are
// joined to the item they continue.
func (e *Entry) Bullets() []Bullet {
	var bullets []Bullet
	var section string

	appendText := func(dst *string, s string) {
		if *dst == "" {
			*dst = s
		} else {
			*dst += " " + s
		}
	}

	for _, line := range e.Changes {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		switch {
		case indent <= 2 && strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			section = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		case strings.HasPrefix(trimmed, "* ") || trimmed == "*":
			bullets = append(bullets, Bullet{
				Section: section,
				Text:    strings.TrimSpace(strings.TrimPrefix(trimmed, "*")),
			})
		case indent > 2 && len(bullets) > 0 && (strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "+ ")):
			last := &bullets[len(bullets)-1]
			last.Items = append(last.Items, strings.TrimSpace(trimmed[1:]))
		case len(bullets) == 0 || indent <= 2:
			bullets = append(bullets, Bullet{Section: section, Text: trimmed})
		default:
			last := &bullets[len(bullets)-1]
			if n := len(last.Items); n > 0 {
				appendText(&last.Items[n-1], trimmed)
			} else {
				appendText(&last.Text, trimmed)
			}
		}
	}
	return bullets
}

var (
	closesRe = regexp.MustCompile(`(?i)closes:\s*(?:bug)?#?\s?\d+(?:,\s*(?:bug)?#?\s?\d+)*`)
	lpRe     = regexp.MustCompile(`(?i)lp:\s+#\d+(?:,\s*#\d+)*`)
	numRe    = regexp.MustCompile(`\d+`)
)

// Closes returns the Debian bug numbers closed by the entry, sorted and deduplicated.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-source.html#debian-changelog-debian-changelog
func (e *Entry) Closes() []int {
	return bugRefs(closesRe, strings.Join(e.Changes, "\n"))
}

// LPBugs returns the Launchpad bug numbers referenced with "LP: #n".
func (e *Entry) LPBugs() []int {
	return bugRefs(lpRe, strings.Join(e.Changes, "\n"))
}

func bugRefs(re *regexp.Regexp, text string) []int {
	seen := make(map[int]bool)
	var bugs []int
	for _, m := range re.FindAllString(text, -1) {
		for _, n := range numRe.FindAllString(m, -1) {
			i, err := strconv.Atoi(n)
			if err != nil || seen[i] {
				continue
			}
			seen[i] = true
			bugs = append(bugs, i)
		}
	}
	sort.Ints(bugs)
	return bugs
}
