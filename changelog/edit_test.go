package changelog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var releaseTime = time.Date(2019, time.January, 8, 12, 0, 0, 0, time.FixedZone("", 3600))

func TestNewEntry(t *testing.T) {
	e, err := NewEntry("python-securesystemslib", "0.12.0-1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{Unreleased}, e.Distributions)
	assert.Equal(t, UrgencyMedium, e.Urgency)
	assert.False(t, e.IsReleased())

	_, err = NewEntry("Foo", "1.0", nil, "")
	assert.Error(t, err)
	_, err = NewEntry("foo", "1.0 beta", nil, "")
	assert.Error(t, err)
	_, err = NewEntry("foo", "1.0", nil, UrgencyCritical)
	assert.Error(t, err)
}

func TestPrepend(t *testing.T) {
	c := mustParse(t, sample)

	e, err := NewEntry("python-securesystemslib", "0.12.0-1", nil, UrgencyLow)
	require.NoError(t, err)
	require.NoError(t, c.Prepend(e))
	assert.Same(t, e, c.Latest())
	assert.Len(t, c.Entries, 3)

	next, err := NewEntry("python-securesystemslib", "0.13.0-1", nil, UrgencyLow)
	require.NoError(t, err)
	err = c.Prepend(next)
	assert.True(t, errors.Is(err, ErrUnreleasedPending), err)
}

func TestPrepend_Rejected(t *testing.T) {
	tests := map[string]struct {
		source, version string
		want            error
	}{
		"same version":   {"python-securesystemslib", "0.11.3-1", ErrVersionNotNewer},
		"equal by epoch": {"python-securesystemslib", "0:0.11.3-1", ErrVersionNotNewer},
		"older version":  {"python-securesystemslib", "0.10-1", ErrVersionNotNewer},
		"other source":   {"python-other", "1.0-1", ErrSourceMismatch},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := mustParse(t, sample)
			e, err := NewEntry(tt.source, tt.version, nil, "")
			require.NoError(t, err)

			err = c.Prepend(e)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Len(t, c.Entries, 2, "history must not change")
		})
	}
}

func TestPrepend_Empty(t *testing.T) {
	c := &Changelog{}
	e, err := NewEntry("foo", "1.0", nil, "")
	require.NoError(t, err)
	require.NoError(t, c.Prepend(e))
	assert.Len(t, c.Entries, 1)
}

func TestAddChange_Sections(t *testing.T) {
	c := mustParse(t, sample)
	e, err := NewEntry("python-securesystemslib", "0.12.0-1", nil, "")
	require.NoError(t, err)
	e.Sign("Jane Doe", "jane@example.org", releaseTime)
	require.NoError(t, c.Prepend(e))

	require.NoError(t, c.AddChange("first", "Jane Doe", 80))
	assert.Equal(t, []string{"  * first"}, e.Changes)

	require.NoError(t, c.AddChange("second", "John Roe", 80))
	require.NoError(t, c.AddChange("third", "John Roe", 80))
	require.NoError(t, c.AddChange("fourth", "Jane Doe", 80))

	assert.Equal(t, []string{
		"  [ Jane Doe ]",
		"  * first",
		"",
		"  [ John Roe ]",
		"  * second",
		"  * third",
		"",
		"  [ Jane Doe ]",
		"  * fourth",
	}, e.Changes)

	bullets := e.Bullets()
	require.Len(t, bullets, 4)
	assert.Equal(t, "John Roe", bullets[2].Section)
}

func TestAddChange_Errors(t *testing.T) {
	err := mustParse(t, sample).AddChange("x", "Jane Doe", 80)
	assert.True(t, errors.Is(err, ErrReleased), err)

	err = (&Changelog{}).AddChange("x", "Jane Doe", 80)
	assert.True(t, errors.Is(err, ErrEmpty), err)
}

func TestRelease(t *testing.T) {
	c := mustParse(t, sample)
	e, err := NewEntry("python-securesystemslib", "0.12.0-1", nil, "")
	require.NoError(t, err)
	require.NoError(t, c.Prepend(e))

	assert.Error(t, c.Release("unstable", "Jane Doe", "jane@example.org", releaseTime), "no changes yet")

	require.NoError(t, c.AddChange("New upstream release.", "", 80))
	assert.Error(t, c.Release("", "Jane Doe", "jane@example.org", releaseTime))
	assert.Error(t, c.Release(Unreleased, "Jane Doe", "jane@example.org", releaseTime))

	require.NoError(t, c.Release("unstable", "Jane Doe", "jane@example.org", releaseTime))
	assert.True(t, e.IsReleased())
	assert.Equal(t, `python-securesystemslib (0.12.0-1) unstable; urgency=medium

  * New upstream release.

 -- Jane Doe <jane@example.org>  Tue, 08 Jan 2019 12:00:00 +0100
`, e.String())

	err = c.Release("unstable", "Jane Doe", "jane@example.org", releaseTime)
	assert.True(t, errors.Is(err, ErrReleased), err)

	// the whole file is still well formed and lint clean
	again := mustParse(t, c.String())
	assert.Equal(t, []string{"0.12.0-1", "0.11.3-1", "0.11.2-1"}, again.Versions())
	assert.Empty(t, Lint(again, DefaultLintOptions()))
}

func TestWrapBullet(t *testing.T) {
	assert.Equal(t, []string{
		"  * one two three",
		"    four five six",
	}, WrapBullet("one two three four five six", 20))

	assert.Equal(t, []string{"  * one two three four five six"}, WrapBullet("one  two three four five six", 0))
	assert.Nil(t, WrapBullet("   ", 80))

	// width counts characters, as the line-too-long check does
	assert.Equal(t, []string{
		"  * héllo wörld",
		"    ünïcode",
	}, WrapBullet("héllo wörld ünïcode", 15))
}
