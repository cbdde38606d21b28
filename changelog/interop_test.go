package changelog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	debchangelog "pault.ag/go/debian/changelog"
)

// TestInterop_DebianParser checks that what WriteTo produces reads back
// identically with the pault.ag/go/debian parser.
func TestInterop_DebianParser(t *testing.T) {
	c := mustParse(t, sample)
	e, err := NewEntry("python-securesystemslib", NextVersion(c.Latest().Version), nil, UrgencyHigh)
	require.NoError(t, err)
	e.Sign("Jane Doe", "jane@example.org", releaseTime)
	require.NoError(t, c.Prepend(e))
	require.NoError(t, c.AddChange("Fix CVE-2019-0001 in key import. (Closes: #920000)", "John Roe", 80))
	require.NoError(t, c.Release("unstable", "Jane Doe", "jane@example.org", releaseTime))

	theirs, err := debchangelog.Parse(strings.NewReader(c.String()))
	require.NoError(t, err)
	require.Len(t, theirs, len(c.Entries))

	for i, want := range c.Entries {
		got := theirs[i]
		assert.Equal(t, want.Source, got.Source)
		assert.Equal(t, want.Version, got.Version.String())
		assert.Equal(t, want.Distribution(), got.Target)
		assert.Equal(t, string(want.Urgency), got.Arguments["urgency"])
		assert.Equal(t, want.Signoff(), got.ChangedBy)
		assert.True(t, want.Date.Equal(got.When), "entry %s: %v != %v", want.Version, want.Date, got.When)
	}
}
