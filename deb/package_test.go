package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
)

var testTime = time.Date(2019, time.January, 7, 10, 0, 0, 0, time.UTC)

// newTestPackage returns a small package with a conffile, a maintainer
// script and a documentation directory.
func newTestPackage() *Package {
	return &Package{
		Control: []Field{
			{Name: "Package", Value: "python3-securesystemslib"},
			{Name: "Source", Value: "python-securesystemslib"},
			{Name: "Version", Value: "0.11.3-1"},
			{Name: "Architecture", Value: "all"},
			{Name: "Maintainer", Value: "Jane Doe <jane@example.org>"},
			{Name: "Depends", Value: "python3:any"},
			{Name: "Description", Value: "cryptographic routines\n Common routines for TUF and in-toto.\n .\n Second paragraph."},
		},
		ControlFiles: []Member{
			{Name: "postinst", Mode: 0755, Body: []byte("#!/bin/sh\nexit 0\n")},
			{Name: "conffiles", Mode: 0644, Body: []byte("/etc/securesystemslib.conf\n")},
		},
		Files: []File{
			{Name: "./", Type: tar.TypeDir, Mode: 0755},
			{Name: "./etc/", Type: tar.TypeDir, Mode: 0755},
			{Name: "./etc/securesystemslib.conf", Type: tar.TypeReg, Mode: 0644, Body: []byte("strict = true\n")},
			{Name: "./usr/", Type: tar.TypeDir, Mode: 0755},
			{Name: "./usr/lib/", Type: tar.TypeDir, Mode: 0755},
			{Name: "./usr/lib/python3/", Type: tar.TypeDir, Mode: 0755},
			{Name: "./usr/lib/python3/keys.py", Type: tar.TypeReg, Mode: 0644, Body: []byte("KEYS = {}\n")},
			{Name: "./usr/lib/python3/formats.py", Type: tar.TypeSymlink, Mode: 0777, Linkname: "keys.py"},
		},
		ModTime: testTime,
	}
}

// roundTrip writes p and reads it back.
func roundTrip(t *testing.T, p *Package) (*Package, []byte) {
	t.Helper()
	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}
	data := buf.Bytes()
	got, err := NewPackage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewPackage failed: %v", err)
	}
	return got, data
}

// controlMember returns a member of the control archive of a written deb.
func controlMember(t *testing.T, deb []byte, name string) string {
	t.Helper()
	arR := ar.NewReader(bytes.NewReader(deb))
	for {
		h, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading ar: %v", err)
		}
		if strings.TrimSpace(h.Name) != string(PkgControlTarGz) {
			continue
		}
		gzr, err := gzip.NewReader(arR)
		if err != nil {
			t.Fatalf("opening control archive: %v", err)
		}
		tr := tar.NewReader(gzr)
		for {
			th, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("reading control archive: %v", err)
			}
			if th.Name == "./"+name {
				b, _ := io.ReadAll(tr)
				return string(b)
			}
		}
	}
	t.Fatalf("control member %s not found", name)
	return ""
}

func TestRoundTrip(t *testing.T) {
	p := newTestPackage()
	got, data := roundTrip(t, p)

	if got.Name() != "python3-securesystemslib" || got.Version() != "0.11.3-1" {
		t.Errorf("unexpected identity %s %s", got.Name(), got.Version())
	}
	if got.SourceName() != "python-securesystemslib" {
		t.Errorf("expected source python-securesystemslib, got %s", got.SourceName())
	}

	// field order is kept, Installed-Size is appended
	var names []string
	for _, f := range got.Control {
		names = append(names, f.Name)
	}
	want := "Package Source Version Architecture Maintainer Depends Description Installed-Size"
	if strings.Join(names, " ") != want {
		t.Errorf("field order:\nwant %s\ngot  %s", want, strings.Join(names, " "))
	}
	if got.Get(FieldDescription) != p.Get(FieldDescription) {
		t.Errorf("description changed: %q", got.Get(FieldDescription))
	}
	if got.Get(FieldInstalledSize) != "1" {
		t.Errorf("expected Installed-Size 1, got %q", got.Get(FieldInstalledSize))
	}

	if len(got.ControlFiles) != 2 || got.ControlFiles[0].Name != "postinst" || got.ControlFiles[0].Mode != 0755 {
		t.Errorf("unexpected control files %+v", got.ControlFiles)
	}

	if len(got.Files) != len(p.Files) {
		t.Fatalf("expected %d files, got %d", len(p.Files), len(got.Files))
	}
	link := got.Files[7]
	if link.Type != tar.TypeSymlink || link.Linkname != "keys.py" {
		t.Errorf("symlink not preserved: %+v", link)
	}
	if !link.ModTime.Equal(testTime) {
		t.Errorf("expected package time on entries without one, got %s", link.ModTime)
	}

	sum := md5.Sum([]byte("KEYS = {}\n"))
	md5sums := controlMember(t, data, string(FileMd5sums))
	if !strings.Contains(md5sums, hex.EncodeToString(sum[:])+"  usr/lib/python3/keys.py\n") {
		t.Errorf("md5sums missing keys.py:\n%s", md5sums)
	}
	if strings.Contains(md5sums, "formats.py") {
		t.Errorf("md5sums must only list regular files:\n%s", md5sums)
	}
}

func TestRoundTrip_Deterministic(t *testing.T) {
	_, a := roundTrip(t, newTestPackage())
	_, b := roundTrip(t, newTestPackage())
	if !bytes.Equal(a, b) {
		t.Errorf("two writes of the same package differ")
	}
}

func TestRoundTrip_NoModTime(t *testing.T) {
	p := newTestPackage()
	p.ModTime = time.Time{}
	got, _ := roundTrip(t, p)
	for _, f := range got.Files {
		if !f.ModTime.After(testTime) {
			t.Errorf("%s: expected the current time, got %s", f.Name, f.ModTime)
		}
	}
}

func TestNewPackage_Errors(t *testing.T) {
	build := func(members map[string][]byte, order ...string) []byte {
		var buf bytes.Buffer
		arW := ar.NewWriter(&buf)
		if err := arW.WriteGlobalHeader(); err != nil {
			t.Fatal(err)
		}
		for _, name := range order {
			if err := addBufferToAr(arW, name, members[name], testTime); err != nil {
				t.Fatal(err)
			}
		}
		return buf.Bytes()
	}

	tests := map[string][]byte{
		"not an archive":   []byte("hello world"),
		"no control":       build(map[string][]byte{"debian-binary": []byte("2.0\n")}, "debian-binary"),
		"format 3":         build(map[string][]byte{"debian-binary": []byte("3.0\n")}, "debian-binary"),
		"xz control":       build(map[string][]byte{"debian-binary": []byte("2.0\n"), "control.tar.xz": []byte("x")}, "debian-binary", "control.tar.xz"),
		"no debian-binary": build(map[string][]byte{"control.tar": {}}, "control.tar"),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewPackage(bytes.NewReader(data)); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestStandardFilename(t *testing.T) {
	p := &Package{Control: []Field{
		{Name: "Package", Value: "foo"},
		{Name: "Version", Value: "1:1.0.0-2"},
		{Name: "Architecture", Value: "arm64"},
	}}
	if got := p.StandardFilename(); got != "foo_1.0.0-2_arm64.deb" {
		t.Errorf("expected foo_1.0.0-2_arm64.deb, got %s", got)
	}
}

func TestSet(t *testing.T) {
	p := &Package{Control: []Field{{Name: "Package", Value: "foo"}, {Name: "version", Value: "1.0"}}}
	p.Set(FieldVersion, "2.0")
	p.Set(FieldArchitecture, "all")
	if len(p.Control) != 3 || p.Control[1].Value != "2.0" || p.Get("ARCHITECTURE") != "all" {
		t.Errorf("unexpected control %+v", p.Control)
	}
	if p.SourceName() != "foo" {
		t.Errorf("source defaults to the binary name, got %q", p.SourceName())
	}
	p.Set(FieldSource, "foo-src (1.0-1)")
	if p.SourceName() != "foo-src" {
		t.Errorf("expected foo-src, got %q", p.SourceName())
	}
}

func TestIntegrationDebGeneration(t *testing.T) {
	if _, err := exec.LookPath("dpkg-deb"); err != nil {
		t.Skip("dpkg-deb not found, skipping integration test")
	}

	debPath := filepath.Join(t.TempDir(), "test.deb")
	f, err := os.Create(debPath)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if _, err := newTestPackage().WriteTo(f); err != nil {
		f.Close()
		t.Fatalf("WriteTo failed: %v", err)
	}
	f.Close()

	out, err := exec.Command("dpkg-deb", "--info", debPath).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --info failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "Package: python3-securesystemslib") {
		t.Errorf("missing Package field in info:\n%s", out)
	}

	out, err = exec.Command("dpkg-deb", "--contents", debPath).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --contents failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "./usr/lib/python3/formats.py -> keys.py") {
		t.Errorf("missing symlink in contents:\n%s", out)
	}
}
