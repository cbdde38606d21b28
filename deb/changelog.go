package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/etnz/deb-changelog/changelog"
)

// maxSymlinks bounds symlink resolution, like the kernel's ELOOP limit.
const maxSymlinks = 40

// ChangelogPath returns where the package installs its changelog:
// the existing changelog.Debian.gz or changelog.gz of its documentation
// directory, or the one policy mandates for its version when there is none.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-docs.html#changelog-files-and-release-notes
func (p *Package) ChangelogPath() string {
	dir := path.Join(DocDir, p.Name())
	for _, name := range []string{ChangelogDebian, ChangelogNative} {
		if _, err := p.lookup(path.Join(dir, name)); err == nil {
			return path.Join(dir, name)
		}
	}
	if changelog.IsNative(p.Version()) {
		return path.Join(dir, ChangelogNative)
	}
	return path.Join(dir, ChangelogDebian)
}

// Changelog returns the changelog shipped by the package.
func (p *Package) Changelog() (*changelog.Changelog, error) {
	name := p.ChangelogPath()
	f, err := p.lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c, err := changelog.Parse(bytes.NewReader(f.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return c, nil
}

// SetChangelog replaces the changelog shipped by the package and sets the
// package version to the newest entry's.
func (p *Package) SetChangelog(c *changelog.Changelog) error {
	top := c.Latest()
	if top == nil {
		return changelog.ErrEmpty
	}
	if src := p.SourceName(); top.Source != src {
		return fmt.Errorf("%w: changelog is for %q, package is built from %q", changelog.ErrSourceMismatch, top.Source, src)
	}

	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := gw.Write([]byte(c.String())); err != nil {
		return err
	}
	if err := gw.Close(); err != nil {
		return err
	}

	name := p.ChangelogPath()
	p.Set(FieldVersion, top.Version)

	if f, err := p.lookup(name); err == nil {
		f.Body = buf.Bytes()
		if !top.Date.IsZero() {
			f.ModTime = top.Date
		}
		return nil
	}

	modTime := top.Date
	if modTime.IsZero() {
		modTime = p.ModTime
	}
	target, err := p.resolve(name)
	if err != nil {
		return err
	}
	p.mkdirAll(path.Dir(target), modTime)
	p.Files = append(p.Files, File{
		Name:    "." + target,
		Type:    tar.TypeReg,
		Mode:    0644,
		Body:    buf.Bytes(),
		ModTime: modTime,
	})
	return nil
}

// lookup returns the regular file at abs, following symlinks.
func (p *Package) lookup(abs string) (*File, error) {
	target, err := p.resolve(abs)
	if err != nil {
		return nil, err
	}
	f := p.file(target)
	if f == nil {
		return nil, fs.ErrNotExist
	}
	if f.Type != tar.TypeReg {
		return nil, fmt.Errorf("%s is not a regular file", target)
	}
	return f, nil
}

// resolve expands the symlinks found in any component of abs. The result
// may not exist.
func (p *Package) resolve(abs string) (string, error) {
	abs = path.Clean(abs)
	for hops := 0; hops < maxSymlinks; hops++ {
		next, ok := p.followFirstLink(abs)
		if !ok {
			return abs, nil
		}
		abs = next
	}
	return "", fmt.Errorf("%s: too many levels of symbolic links", abs)
}

// followFirstLink replaces the shortest symlinked prefix of abs by its target.
func (p *Package) followFirstLink(abs string) (string, bool) {
	parts := strings.Split(strings.TrimPrefix(abs, "/"), "/")
	for i := range parts {
		prefix := "/" + strings.Join(parts[:i+1], "/")
		f := p.file(prefix)
		if f == nil || f.Type != tar.TypeSymlink {
			continue
		}
		target := f.Linkname
		if !strings.HasPrefix(target, "/") {
			target = path.Join(path.Dir(prefix), target)
		}
		rest := parts[i+1:]
		return path.Clean(path.Join(append([]string{target}, rest...)...)), true
	}
	return abs, false
}

// mkdirAll adds the directory entries missing for dir.
func (p *Package) mkdirAll(dir string, modTime time.Time) {
	if dir == "/" || dir == "." {
		return
	}
	p.mkdirAll(path.Dir(dir), modTime)
	if p.file(dir) != nil {
		return
	}
	p.Files = append(p.Files, File{
		Name:    "." + dir + "/",
		Type:    tar.TypeDir,
		Mode:    0755,
		ModTime: modTime,
	})
}
