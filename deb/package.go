package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// Package is a Debian binary package held in memory.
type Package struct {
	// Control holds the fields of the control file, in order.
	Control []Field

	// ControlFiles holds the other members of the control archive
	// (maintainer scripts, conffiles, triggers...). md5sums is regenerated
	// on write and never stored here.
	ControlFiles []Member

	// Files holds the data archive entries, in archive order.
	Files []File

	// ModTime is used for the archive members that have no time of their
	// own. If zero, the current time is used.
	ModTime time.Time
}

// Field is a control field. Multi-line values keep their continuation
// lines, each starting with a space.
type Field struct {
	Name  string
	Value string
}

// Member is a file of the control archive.
type Member struct {
	Name string
	Mode int64
	Body []byte
}

// File is an entry of the data archive.
type File struct {
	// Name is the path as stored in the archive, e.g. "./usr/bin/app".
	Name string
	// Type is the tar type flag: tar.TypeReg, tar.TypeDir, tar.TypeSymlink or tar.TypeLink.
	Type     byte
	Mode     int64
	Linkname string
	Body     []byte
	ModTime  time.Time
}

// Path returns the absolute installation path of f, e.g. "/usr/bin/app".
func (f *File) Path() string {
	return cleanPath(f.Name)
}

func cleanPath(name string) string {
	return path.Clean("/" + strings.TrimPrefix(name, "./"))
}

// Get returns the value of a control field, or "" when absent. Names are
// case-insensitive.
func (p *Package) Get(name ControlField) string {
	for _, f := range p.Control {
		if strings.EqualFold(f.Name, string(name)) {
			return f.Value
		}
	}
	return ""
}

// Set updates a control field in place, or appends it.
func (p *Package) Set(name ControlField, value string) {
	for i, f := range p.Control {
		if strings.EqualFold(f.Name, string(name)) {
			p.Control[i].Value = value
			return
		}
	}
	p.Control = append(p.Control, Field{Name: string(name), Value: value})
}

// Name returns the binary package name.
func (p *Package) Name() string {
	return p.Get(FieldPackage)
}

// Version returns the package version.
func (p *Package) Version() string {
	return p.Get(FieldVersion)
}

// SourceName returns the source package name: the Source field without its
// optional "(version)", or the binary name when the field is absent.
func (p *Package) SourceName() string {
	if src := strings.Fields(p.Get(FieldSource)); len(src) > 0 {
		return src[0]
	}
	return p.Name()
}

// StandardFilename returns the canonical filename for the package.
// Format: {Package}_{Version}_{Architecture}.deb, the epoch being dropped.
//
// Reference: https://www.debian.org/doc/manuals/debian-faq/ch-pkg_basics.en.html#s-pkgname
func (p *Package) StandardFilename() string {
	v := p.Version()
	if i := strings.Index(v, ":"); i != -1 {
		v = v[i+1:]
	}
	return fmt.Sprintf("%s_%s_%s.deb", p.Name(), v, p.Get(FieldArchitecture))
}

// file returns the data entry installed at abs, or nil.
func (p *Package) file(abs string) *File {
	for i := range p.Files {
		if p.Files[i].Path() == abs {
			return &p.Files[i]
		}
	}
	return nil
}

// NewPackage reads a .deb from r.
func NewPackage(r io.Reader) (*Package, error) {
	pkg := &Package{}
	var sawBinary, sawControl bool

	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}
		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")

		switch {
		case name == string(PkgDebianBinary):
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, arR); err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			if !strings.HasPrefix(buf.String(), "2.") {
				return nil, fmt.Errorf("unsupported deb format version %q", strings.TrimSpace(buf.String()))
			}
			sawBinary = true

		case strings.HasPrefix(name, "control.tar"):
			tr, closer, err := openTar(name, arR)
			if err != nil {
				return nil, err
			}
			err = pkg.readControlArchive(tr)
			closer()
			if err != nil {
				return nil, err
			}
			if pkg.ModTime.IsZero() {
				pkg.ModTime = header.ModTime
			}
			sawControl = true

		case strings.HasPrefix(name, "data.tar"):
			tr, closer, err := openTar(name, arR)
			if err != nil {
				return nil, err
			}
			err = pkg.readDataArchive(tr)
			closer()
			if err != nil {
				return nil, err
			}
		}
	}

	if !sawBinary {
		return nil, fmt.Errorf("not a debian package: missing %s", PkgDebianBinary)
	}
	if !sawControl {
		return nil, fmt.Errorf("not a debian package: missing control archive")
	}
	if pkg.Name() == "" {
		return nil, fmt.Errorf("control file has no %s field", FieldPackage)
	}
	return pkg, nil
}

// openTar returns a tar reader for an ar member named like "data.tar.gz".
func openTar(name string, r io.Reader) (*tar.Reader, func(), error) {
	switch path.Ext(name) {
	case ".tar":
		return tar.NewReader(r), func() {}, nil
	case ".gz":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", name, err)
		}
		return tar.NewReader(gzr), func() { gzr.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%s: unsupported compression %q", name, path.Ext(name))
}

func (p *Package) readControlArchive(tr *tar.Reader) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading control tar header: %w", err)
		}
		if th.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Base(th.Name)
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}

		switch ControlFile(name) {
		case FileControl:
			fields, err := parseControl(buf.String())
			if err != nil {
				return fmt.Errorf("parsing control file: %w", err)
			}
			p.Control = fields
		case FileMd5sums:
			// regenerated on write
		default:
			p.ControlFiles = append(p.ControlFiles, Member{Name: name, Mode: th.Mode, Body: buf.Bytes()})
		}
	}
}

func (p *Package) readDataArchive(tr *tar.Reader) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading data tar header: %w", err)
		}
		f := File{
			Name:     th.Name,
			Type:     th.Typeflag,
			Mode:     th.Mode,
			Linkname: th.Linkname,
			ModTime:  th.ModTime,
		}
		switch th.Typeflag {
		case tar.TypeReg:
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, tr); err != nil {
				return fmt.Errorf("reading file %s: %w", th.Name, err)
			}
			f.Body = buf.Bytes()
		case tar.TypeDir, tar.TypeSymlink, tar.TypeLink:
		default:
			return fmt.Errorf("%s: unsupported tar entry type %q", th.Name, th.Typeflag)
		}
		p.Files = append(p.Files, f)
	}
}

// WriteTo generates the .deb package and writes it to w.
// It returns the total number of bytes written and any error encountered.
// This satisfies the io.WriterTo interface.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	modTime := p.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	// data first: md5sums and Installed-Size depend on it.
	dataBuf := new(bytes.Buffer)
	md5sums, installedSize, err := p.buildDataArchive(dataBuf, modTime)
	if err != nil {
		return cw.n, fmt.Errorf("building data archive: %w", err)
	}
	p.Set(FieldInstalledSize, strconv.FormatInt((installedSize+1023)/1024, 10))

	controlBuf := new(bytes.Buffer)
	if err := p.buildControlArchive(controlBuf, md5sums, modTime); err != nil {
		return cw.n, fmt.Errorf("building control archive: %w", err)
	}

	arW := ar.NewWriter(cw)
	if err := arW.WriteGlobalHeader(); err != nil {
		return cw.n, fmt.Errorf("writing ar global header: %w", err)
	}
	// member order is mandated by deb(5)
	members := []struct {
		name PackageFile
		body []byte
	}{
		{PkgDebianBinary, []byte(formatVersion)},
		{PkgControlTarGz, controlBuf.Bytes()},
		{PkgDataTarGz, dataBuf.Bytes()},
	}
	for _, m := range members {
		if err := addBufferToAr(arW, string(m.name), m.body, modTime); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", m.name, err)
		}
	}
	return cw.n, nil
}

// buildDataArchive writes data.tar.gz. It returns the md5sums file content
// and the installed size in bytes.
func (p *Package) buildDataArchive(w io.Writer, modTime time.Time) ([]byte, int64, error) {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	var md5sums bytes.Buffer
	var installedSize int64
	for _, f := range p.Files {
		header := &tar.Header{
			Typeflag: f.Type,
			Name:     f.Name,
			Mode:     f.Mode,
			Linkname: f.Linkname,
			ModTime:  f.ModTime,
			Uname:    "root",
			Gname:    "root",
		}
		if header.ModTime.IsZero() {
			header.ModTime = modTime
		}
		if f.Type == tar.TypeReg {
			header.Size = int64(len(f.Body))
			installedSize += header.Size
			sum := md5.Sum(f.Body)
			fmt.Fprintf(&md5sums, "%s  %s\n", hex.EncodeToString(sum[:]), strings.TrimPrefix(f.Path(), "/"))
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, 0, err
		}
		if f.Type == tar.TypeReg {
			if _, err := tw.Write(f.Body); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, 0, err
	}
	if err := gw.Close(); err != nil {
		return nil, 0, err
	}
	return md5sums.Bytes(), installedSize, nil
}

// buildControlArchive writes control.tar.gz: control, md5sums, then the other members.
func (p *Package) buildControlArchive(w io.Writer, md5sums []byte, modTime time.Time) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	writeEntry := func(name string, content []byte, mode int64) error {
		header := &tar.Header{
			Name:    "./" + name,
			Size:    int64(len(content)),
			Mode:    mode,
			ModTime: modTime,
			Uname:   "root",
			Gname:   "root",
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		_, err := tw.Write(content)
		return err
	}

	if err := writeEntry(string(FileControl), []byte(formatControl(p.Control)), 0644); err != nil {
		return fmt.Errorf("writing control: %w", err)
	}
	if len(md5sums) > 0 {
		if err := writeEntry(string(FileMd5sums), md5sums, 0644); err != nil {
			return fmt.Errorf("writing md5sums: %w", err)
		}
	}
	for _, m := range p.ControlFiles {
		switch ControlFile(m.Name) {
		case FileControl, FileMd5sums:
			continue
		}
		if err := writeEntry(m.Name, m.Body, m.Mode); err != nil {
			return fmt.Errorf("writing %s: %w", m.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}
