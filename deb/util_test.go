package deb

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/blakesmith/ar"
)

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &countingWriter{w: &buf}

	for _, s := range []string{"debian", "-binary"} {
		if _, err := cw.Write([]byte(s)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if cw.n != 13 {
		t.Errorf("expected count 13, got %d", cw.n)
	}
	if buf.String() != "debian-binary" {
		t.Errorf("buffer mismatch: %q", buf.String())
	}
}

func TestAddBufferToAr(t *testing.T) {
	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	if err := w.WriteGlobalHeader(); err != nil {
		t.Fatalf("WriteGlobalHeader failed: %v", err)
	}
	if err := addBufferToAr(w, string(PkgDebianBinary), []byte(formatVersion), testTime); err != nil {
		t.Fatalf("addBufferToAr failed: %v", err)
	}

	r := ar.NewReader(&buf)
	hdr, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if hdr.Size != int64(len(formatVersion)) {
		t.Errorf("expected size %d, got %d", len(formatVersion), hdr.Size)
	}
	if !hdr.ModTime.Equal(testTime) {
		t.Errorf("expected time %v, got %v", testTime, hdr.ModTime)
	}
	body, _ := io.ReadAll(r)
	if string(body) != formatVersion {
		t.Errorf("body mismatch: %q", body)
	}
}

func TestParseControl(t *testing.T) {
	content := `Package: python3-securesystemslib
Source: python-securesystemslib (0.11.3-1)
Depends: python3:any,
 python3-cryptography
Description: cryptographic routines
 Common routines for TUF and in-toto.
 .
 Second paragraph.
`
	fields, err := parseControl(content)
	if err != nil {
		t.Fatalf("parseControl failed: %v", err)
	}
	want := []Field{
		{Name: "Package", Value: "python3-securesystemslib"},
		{Name: "Source", Value: "python-securesystemslib (0.11.3-1)"},
		{Name: "Depends", Value: "python3:any,\n python3-cryptography"},
		{Name: "Description", Value: "cryptographic routines\n Common routines for TUF and in-toto.\n .\n Second paragraph."},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("fields mismatch:\n got %#v\nwant %#v", fields, want)
	}
	if got := formatControl(fields); got != content {
		t.Errorf("formatControl mismatch:\n got %q\nwant %q", got, content)
	}
}

func TestParseControl_Errors(t *testing.T) {
	tests := map[string]string{
		"leading continuation": " orphan\nPackage: foo\n",
		"missing colon":        "Package foo\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseControl(content); err == nil {
				t.Errorf("expected an error for %q", content)
			}
		})
	}
}
