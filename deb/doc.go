// Package deb reads and writes Debian binary packages in memory, with just
// enough structure to get at the changelog they ship.
//
// # Design Philosophy
//
// A .deb is treated as a structured object read from an io.Reader and
// written to an io.Writer. No dpkg-deb, no temporary files. Everything the
// package does not need to understand is carried over untouched: control
// fields keep their order, unknown control members and every data entry
// (files, directories, symlinks) are written back as read.
//
// # Features
//
//   - Read .deb archives whose members are gzip compressed or uncompressed.
//   - Locate the installed changelog (changelog.Debian.gz or changelog.gz),
//     following a symlinked documentation directory.
//   - Replace the embedded changelog and align the control Version with its
//     newest entry.
//   - Regenerate md5sums and Installed-Size when writing.
package deb
