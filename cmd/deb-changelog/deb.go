package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/etnz/deb-changelog/changelog"
	"github.com/etnz/deb-changelog/deb"
	"github.com/etnz/deb-changelog/report"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newDebCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deb",
		Short: "Read or replace the changelog of a .deb package",
	}
	cmd.AddCommand(newDebExtractCmd(a), newDebInjectCmd(a))
	return cmd
}

func newDebExtractCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "extract <file.deb|url>",
		Short: "Print the changelog shipped in a package",
		Long: `Print the changelog installed by a package under /usr/share/doc, following
a symlinked documentation directory.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := a.readDeb(cmd, args[0])
			if err != nil {
				return err
			}
			c, err := pkg.Changelog()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = c.WriteTo(cmd.OutOrStdout())
				return err
			}
			return a.save(cmd, out, c)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of standard output")
	return cmd
}

func newDebInjectCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "inject <file.deb|url>",
		Short: "Replace the changelog shipped in a package",
		Long: `Embed the changelog given by --file in a package, gzip compressed, and set
the package Version to the one of its top entry. The top entry must name the
source package of the .deb.

A local package is rewritten in place unless --output is given; a
downloaded one is written to the current directory under its standard name.`,
		Example: `  deb-changelog deb inject build/python3-securesystemslib_0.11.3-1_all.deb
  deb-changelog -f debian/changelog deb inject https://example.org/foo_1.0-1_amd64.deb -o foo.deb`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load(cmd, a.file)
			if err != nil {
				return err
			}
			pkg, err := a.readDeb(cmd, args[0])
			if err != nil {
				return err
			}
			if err := pkg.SetChangelog(c); err != nil {
				return err
			}

			dest := out
			switch {
			case dest != "":
			case isURL(args[0]):
				dest = pkg.StandardFilename()
			default:
				dest = args[0]
			}
			var buf bytes.Buffer
			if _, err := pkg.WriteTo(&buf); err != nil {
				return fmt.Errorf("writing package: %w", err)
			}
			if err := writeFileAtomic(dest, buf.Bytes(), 0o644); err != nil {
				return err
			}
			a.listener(report.EventPackageWritten{Path: dest, Package: pkg.Name(), Version: pkg.Version()})
			fmt.Fprintln(cmd.OutOrStdout(), dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the package to this file")
	return cmd
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// readDeb reads a .deb package from a local file path or a URL.
func (a *app) readDeb(cmd *cobra.Command, src string) (*deb.Package, error) {
	if isURL(src) {
		stop := a.spin(cmd, "downloading "+filepath.Base(src))
		defer stop()
		return a.remoteClient().FetchDeb(cmd.Context(), src)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pkg, err := deb.NewPackage(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	return pkg, nil
}

// spin shows a spinner on standard error while a download runs, when it is
// a terminal. The returned function stops it.
func (a *app) spin(cmd *cobra.Command, msg string) func() {
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

func newFetchCmd(a *app) *cobra.Command {
	var (
		url    string
		out    string
		format string
		count  int
	)
	cmd := &cobra.Command{
		Use:   "fetch [source [version]]",
		Short: "Download a published changelog",
		Long: `Download the changelog of a source package from the Debian archive
metadata server, or from any URL with --url. Without a version, the
changelog of the unstable suite is fetched.`,
		Example: `  deb-changelog fetch python-securesystemslib 0.11.3-1
  deb-changelog fetch dpkg --count 1 --format markdown
  deb-changelog fetch --url https://example.org/changelog.Debian.gz`,
		Args: usageArgs(cobra.RangeArgs(0, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (url == "") == (len(args) == 0) {
				return usageError("give either a source package or --url")
			}
			client := a.remoteClient()
			if url == "" {
				version := ""
				if len(args) == 2 {
					version = args[1]
				}
				url = client.PackageURL(args[0], version)
			}
			c, err := fetch(cmd.Context(), a, cmd, url)
			if err != nil {
				return err
			}
			entries, err := c.Select(changelog.SelectOptions{Count: count})
			if err != nil {
				return err
			}
			selected := &changelog.Changelog{Entries: entries}
			if count == 0 {
				selected.Tail = c.Tail
			}

			switch format {
			case "text":
				if out != "" {
					return a.save(cmd, out, selected)
				}
				_, err = selected.WriteTo(cmd.OutOrStdout())
				return err
			case "markdown":
				return changelog.RenderMarkdown(entries, cmd.OutOrStdout())
			case "json":
				return changelog.RenderJSON(entries, cmd.OutOrStdout())
			case "yaml":
				return changelog.RenderYAML(entries, cmd.OutOrStdout())
			default:
				return usageError("unknown format %q", format)
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&url, "url", "", "download this URL instead of the archive changelog")
	f.StringVarP(&out, "output", "o", "", "save the changelog to this file")
	f.StringVar(&format, "format", "text", "output format: text, markdown, json or yaml")
	f.IntVarP(&count, "count", "c", 0, "number of entries, 0 for all")
	return cmd
}

func fetch(ctx context.Context, a *app, cmd *cobra.Command, url string) (*changelog.Changelog, error) {
	stop := a.spin(cmd, "fetching "+url)
	defer stop()
	return a.remoteClient().Fetch(ctx, url)
}
