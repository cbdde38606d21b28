package changelog

import (
	"fmt"
	"strconv"
	"strings"

	"pault.ag/go/debian/version"
)

// CompareVersions compares two Debian versions using dpkg ordering rules.
// It returns a negative number when a < b, zero when they are equal and a
// positive number when a > b.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-version
func CompareVersions(a, b string) (int, error) {
	va, err := version.Parse(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	vb, err := version.Parse(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return version.Compare(va, vb), nil
}

// ValidVersion checks that v is a syntactically valid Debian version.
func ValidVersion(v string) error {
	if v == "" {
		return fmt.Errorf("empty version")
	}
	if strings.ContainsAny(v, " \t()") {
		return fmt.Errorf("version %q contains whitespace or parentheses", v)
	}
	if _, err := version.Parse(v); err != nil {
		return fmt.Errorf("invalid version %q: %w", v, err)
	}
	return nil
}

// canonicalVersion returns a form of v where versions that compare equal
// under dpkg rules map to the same string (the "0:" epoch is dropped).
func canonicalVersion(v string) string {
	parsed, err := version.Parse(v)
	if err != nil {
		return v
	}
	return parsed.String()
}

// UpstreamVersion returns the upstream part of v, without epoch nor revision.
func UpstreamVersion(v string) string {
	if i := strings.Index(v, ":"); i != -1 {
		v = v[i+1:]
	}
	if i := strings.LastIndex(v, "-"); i != -1 {
		v = v[:i]
	}
	return v
}

// Revision returns the Debian revision of v (everything after the last hyphen).
func Revision(v string) string {
	i := strings.LastIndex(v, "-")
	if i == -1 {
		return ""
	}
	return v[i+1:]
}

// IsNative reports whether v has no Debian revision.
func IsNative(v string) bool {
	return !strings.Contains(v, "-")
}

// NextVersion increments the Debian revision of v so that the result sorts
// after v. Native versions get their last number increased.
//
// Strategy:
//  1. If no revision (no hyphen), bump the native version ("1.0" -> "1.1").
//  2. If the revision is purely numeric, increment it ("1.0-1" -> "1.0-2").
//  3. Otherwise bump the last alphanumeric character of the revision in the
//     range 0-9, a-z ("1.0-1ubuntu1" -> "1.0-1ubuntu2", "1.0-1.9" -> "1.0-1.a").
//     A trailing 'z' gets a '1' appended ("1.0-z" -> "1.0-z1").
func NextVersion(v string) string {
	idx := strings.LastIndex(v, "-")
	if idx == -1 {
		return bumpNative(v)
	}
	prefix := v[:idx+1]
	rev := v[idx+1:]
	if rev == "" {
		return prefix + "1"
	}

	if i, err := strconv.Atoi(rev); err == nil {
		return prefix + strconv.Itoa(i+1)
	}
	if bumped, ok := bumpTrailingNumber(rev); ok {
		return prefix + bumped
	}

	runes := []rune(rev)
	for i := len(runes) - 1; i >= 0; i-- {
		c := runes[i]
		switch {
		case c >= '0' && c < '9', c >= 'a' && c < 'z':
			runes[i]++
			return prefix + string(runes)
		case c == '9':
			runes[i] = 'a'
			return prefix + string(runes)
		case c == 'z':
			return prefix + string(runes[:i+1]) + "1" + string(runes[i+1:])
		}
	}
	return v + "1"
}

// bumpNative increments the trailing number of a native version, or appends ".1".
func bumpNative(v string) string {
	if bumped, ok := bumpTrailingNumber(v); ok {
		return bumped
	}
	return v + ".1"
}

// bumpTrailingNumber increments the run of digits ending s, as in
// "1ubuntu9" to "1ubuntu10". It reports false when s does not end with one.
func bumpTrailingNumber(s string) (string, bool) {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end {
		return "", false
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return "", false
	}
	return s[:start] + strconv.Itoa(n+1), true
}
