// Package changelog reads, checks and edits Debian package changelogs
// (debian/changelog and the installed changelog.Debian.gz).
//
// # Format
//
// A changelog is a sequence of entries, newest first. Each entry is made of
// a header line, a block of change lines indented by two spaces and a
// maintainer trailer:
//
//	python-securesystemslib (0.11.3-1) unstable; urgency=medium
//
//	  * New upstream release.
//
//	 -- Jane Doe <jane@example.org>  Mon, 07 Jan 2019 10:00:00 +0100
//
// Reference: https://www.debian.org/doc/debian-policy/ch-source.html#debian-changelog-debian-changelog
//
// # Features
//
// Reading and writing:
//   - Parse from any io.Reader, gzip compressed or not.
//   - Write back the canonical text; a canonical file round-trips byte for byte.
//
// Checking:
//   - Lint reports version ordering, urgency, trailer grammar and layout issues.
//
// Editing:
//   - Entries are append-only: new entries are prepended, released entries
//     are never modified. Only an UNRELEASED top entry accepts more changes.
//
// Exporting:
//   - dpkg-parsechangelog style field summaries, Markdown, JSON, YAML and
//     text/template rendering.
package changelog
