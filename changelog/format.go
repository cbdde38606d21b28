package changelog

import (
	"fmt"
	"io"
	"strings"
)

// countingWriter wraps an io.Writer and counts the bytes written, so that
// WriteTo can report its total.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

// printf writes to the underlying writer unless a previous write failed.
func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}

// Header returns the entry header line.
func (e *Entry) Header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) %s; urgency=%s", e.Source, e.Version, e.Distribution(), e.Urgency)
	if e.UrgencyComment != "" {
		fmt.Fprintf(&b, " (%s)", e.UrgencyComment)
	}
	for _, kw := range e.Keywords {
		fmt.Fprintf(&b, ", %s=%s", kw.Key, kw.Value)
	}
	return b.String()
}

// FormattedDate returns the trailer date: RawDate when set, Date in DateLayout otherwise.
func (e *Entry) FormattedDate() string {
	if e.RawDate != "" {
		return e.RawDate
	}
	return e.Date.Format(DateLayout)
}

// Trailer returns the maintainer signoff line.
func (e *Entry) Trailer() string {
	return fmt.Sprintf(" -- %s  %s", e.Signoff(), e.FormattedDate())
}

// WriteTo writes the entry in canonical form, ending with the trailer line.
// It satisfies the io.WriterTo interface.
func (e *Entry) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	e.write(cw)
	return cw.n, cw.err
}

func (e *Entry) write(cw *countingWriter) {
	cw.printf("%s\n\n", e.Header())
	for _, line := range e.Changes {
		cw.printf("%s\n", line)
	}
	cw.printf("\n%s\n", e.Trailer())
}

// String returns the entry text.
func (e *Entry) String() string {
	var b strings.Builder
	e.WriteTo(&b)
	return b.String()
}

// WriteTo writes the whole changelog, entries separated by a blank line.
// It satisfies the io.WriterTo interface.
func (c *Changelog) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for i, e := range c.Entries {
		if i > 0 {
			cw.printf("\n")
		}
		e.write(cw)
	}
	if len(c.Tail) > 0 {
		cw.printf("\n")
		for _, line := range c.Tail {
			cw.printf("%s\n", line)
		}
	}
	return cw.n, cw.err
}

// String returns the changelog text.
func (c *Changelog) String() string {
	var b strings.Builder
	c.WriteTo(&b)
	return b.String()
}
