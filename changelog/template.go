package changelog

import (
	"io"
	"strings"
	"text/template"
	"time"
)

// Template renders entries through a text/template, for release notes or
// any other derived document.
//
// The template data has two fields: Entries (newest first) and Latest.
// Besides the builtins, the following functions are available:
//
//	bullets  (*Entry) []Bullet
//	closes   (*Entry) []int
//	rfc2822  (time.Time) string
//	join     ([]string, sep) string
//	indent   (n int, s string) string
type Template struct {
	tmpl *template.Template
}

// templateData is the root object handed to templates.
type templateData struct {
	Entries []*Entry
	Latest  *Entry
}

// templateFuncs returns the helpers available to templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"bullets": func(e *Entry) []Bullet { return e.Bullets() },
		"closes":  func(e *Entry) []int { return e.Closes() },
		"rfc2822": func(t time.Time) string { return t.Format(DateLayout) },
		"join":    strings.Join,
		"indent": func(n int, s string) string {
			pad := strings.Repeat(" ", n)
			return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
		},
	}
}

// ParseTemplate compiles text. Missing map keys are errors.
func ParseTemplate(name, text string) (*Template, error) {
	t, err := template.New(name).Funcs(templateFuncs()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, err
	}
	return &Template{tmpl: t}, nil
}

// Execute renders entries to w.
func (t *Template) Execute(w io.Writer, entries []*Entry) error {
	data := templateData{Entries: entries}
	if len(entries) > 0 {
		data.Latest = entries[0]
	}
	return t.tmpl.Execute(w, data)
}

// RenderTemplate is a convenience wrapper that parses text and renders entries to a string.
func RenderTemplate(name, text string, entries []*Entry) (string, error) {
	t, err := ParseTemplate(name, text)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := t.Execute(&buf, entries); err != nil {
		return "", err
	}
	return buf.String(), nil
}
