package deb

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// countingWriter wraps an io.Writer and counts the bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

// Write writes p to the underlying io.Writer and increments the byte count.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// addBufferToAr writes a named byte slice as a file entry to the AR archive.
func addBufferToAr(w *ar.Writer, name string, body []byte, modTime time.Time) error {
	header := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// parseControl parses a control file into its fields, in order. Folded
// values keep their continuation lines.
func parseControl(content string) ([]Field, error) {
	var fields []Field
	for i, line := range strings.Split(content, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case line[0] == ' ' || line[0] == '\t':
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d: continuation line before any field", i+1)
			}
			fields[len(fields)-1].Value += "\n" + line
		default:
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("line %d: expected \"Field: value\", got %q", i+1, line)
			}
			fields = append(fields, Field{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
		}
	}
	return fields, nil
}

// formatControl is the inverse of parseControl.
func formatControl(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Value == "" {
			fmt.Fprintf(&b, "%s:\n", f.Name)
			continue
		}
		if strings.HasPrefix(f.Value, "\n") {
			fmt.Fprintf(&b, "%s:%s\n", f.Name, f.Value)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	return b.String()
}
