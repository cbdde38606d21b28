package main

import (
	"fmt"
	"io"
	"os"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/etnz/deb-changelog/report"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLintCmd(a *app) *cobra.Command {
	var (
		format   string
		strict   bool
		maxLine  int
		disabled []string
	)
	cmd := &cobra.Command{
		Use:   "lint [file]",
		Short: "Check a changelog against Debian policy",
		Long: `Check version ordering, urgencies, signoff dates and addresses, and the
layout of change lines. Exits with status 1 when an error is found, or any
issue with --strict.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := report.Format(format)
			if f != report.FormatText && f != report.FormatJSON {
				return usageError("unknown format %q", format)
			}
			path := a.path(args)
			c, err := a.load(cmd, path)
			if err != nil {
				return err
			}

			opts := a.cfg.LintOptions()
			if cmd.Flags().Changed("max-line-length") {
				opts.MaxLineLength = maxLine
			}
			opts.Disabled = append(opts.Disabled, disabled...)
			issues := changelog.Lint(c, opts)

			p := report.IssuePrinter{Format: f, Color: useColor(cmd.OutOrStdout())}
			if err := p.Print(cmd.OutOrStdout(), path, issues); err != nil {
				return err
			}
			if changelog.HasErrors(issues) || (strict && len(issues) > 0) {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(report.FormatText), "output format: text or json")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warnings too")
	cmd.Flags().IntVar(&maxLine, "max-line-length", 0, "maximum change line length, 0 disables the check")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "issue codes to skip")
	return cmd
}

// useColor reports whether w is a terminal that accepts colours.
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func newParseCmd(a *app) *cobra.Command {
	var (
		opts   changelog.SelectOptions
		all    bool
		field  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Summarize entries like dpkg-parsechangelog",
		Long: `Print the control stanza of the selected entries: Source, Version,
Distribution, Urgency, Maintainer, Timestamp, Date, Closes and Changes.

Without selection options only the newest entry is used. The urgency of a
multi-entry selection is the highest one.`,
		Example: `  deb-changelog parse -S Version
  deb-changelog parse --since 0.11.1-1
  deb-changelog parse --all --format yaml`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "control" && field != "" {
				return usageError("--show-field only applies to the control format")
			}
			c, err := a.load(cmd, a.path(args))
			if err != nil {
				return err
			}
			if !all && opts == (changelog.SelectOptions{}) {
				opts.Count = 1
			}
			entries, err := c.Select(opts)
			if err != nil {
				return usageError("%v", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "control":
				fields, err := changelog.Summarize(entries)
				if err != nil {
					return err
				}
				if field == "" {
					_, err = fields.WriteTo(out)
					return err
				}
				v, err := fields.Get(field)
				if err != nil {
					return usageError("%v", err)
				}
				_, err = fmt.Fprintln(out, v)
				return err
			case "json":
				return changelog.RenderJSON(entries, out)
			case "yaml":
				return changelog.RenderYAML(entries, out)
			default:
				return usageError("unknown format %q", format)
			}
		},
	}
	f := cmd.Flags()
	f.StringVarP(&field, "show-field", "S", "", "print only the value of this field")
	f.StringVarP(&opts.Since, "since", "s", "", "entries strictly newer than this version")
	f.StringVarP(&opts.Until, "until", "u", "", "entries strictly older than this version")
	f.StringVar(&opts.From, "from", "", "entries newer than or equal to this version")
	f.StringVarP(&opts.To, "to", "t", "", "entries older than or equal to this version")
	f.IntVarP(&opts.Offset, "offset", "o", 0, "skip this many entries")
	f.IntVarP(&opts.Count, "count", "c", 0, "number of entries")
	f.BoolVar(&all, "all", false, "select every entry")
	f.StringVar(&format, "format", "control", "output format: control, json or yaml")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [version]",
		Short: "Print one entry, the newest by default",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load(cmd, a.file)
			if err != nil {
				return err
			}
			e := c.Latest()
			if len(args) == 1 {
				if e, err = c.Find(args[0]); err != nil {
					return err
				}
			}
			if e == nil {
				return changelog.ErrEmpty
			}
			_, err = e.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		format   string
		tmplPath string
		opts     changelog.SelectOptions
	)
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render entries as release notes",
		Long: `Render entries as Markdown, JSON or YAML, or through a Go text/template.

Templates receive .Entries (newest first) and .Latest, and may use the
functions bullets, closes, rfc2822, join and indent.`,
		Example: `  deb-changelog render --count 3
  deb-changelog render --template notes.tmpl --since 0.11.1-1`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tmpl *changelog.Template
			if tmplPath != "" {
				text, err := os.ReadFile(tmplPath)
				if err != nil {
					return usageError("reading template: %v", err)
				}
				if tmpl, err = changelog.ParseTemplate(tmplPath, string(text)); err != nil {
					return usageError("parsing template: %v", err)
				}
			}
			c, err := a.load(cmd, a.path(args))
			if err != nil {
				return err
			}
			entries, err := c.Select(opts)
			if err != nil {
				return usageError("%v", err)
			}

			out := cmd.OutOrStdout()
			if tmpl != nil {
				return tmpl.Execute(out, entries)
			}
			switch format {
			case "markdown":
				return changelog.RenderMarkdown(entries, out)
			case "json":
				return changelog.RenderJSON(entries, out)
			case "yaml":
				return changelog.RenderYAML(entries, out)
			default:
				return usageError("unknown format %q", format)
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&format, "format", "markdown", "output format: markdown, json or yaml")
	f.StringVar(&tmplPath, "template", "", "render through this text/template file")
	f.StringVar(&opts.Since, "since", "", "entries strictly newer than this version")
	f.StringVar(&opts.From, "from", "", "entries newer than or equal to this version")
	f.IntVarP(&opts.Count, "count", "c", 0, "number of entries, 0 for all")
	return cmd
}
