package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/etnz/deb-changelog/gitlog"
	"github.com/etnz/deb-changelog/report"
	"github.com/spf13/cobra"
)

// autoSince is the --from-git value that starts after the tag of the top entry.
const autoSince = "auto"

// gitFlags are the options harvesting change messages from git history.
type gitFlags struct {
	since string
	dir   string
	max   int
}

func (g *gitFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&g.since, "from-git", "", "add the subjects of the commits after this revision; alone, after the tag of the previous entry")
	f.Lookup("from-git").NoOptDefVal = autoSince
	f.StringVar(&g.dir, "git-dir", ".", "repository to read commits from")
	f.IntVar(&g.max, "max-commits", 0, "maximum number of commits, 0 for all")
}

// messages returns the commit subjects selected by g, oldest first so that
// bullets read in the order the work was done.
func (g *gitFlags) messages(ctx context.Context, a *app, previous *changelog.Entry) ([]string, error) {
	if g.since == "" {
		return nil, nil
	}
	since := g.since
	if since == autoSince {
		since = ""
		if previous != nil {
			upstream := changelog.UpstreamVersion(previous.Version)
			rev, err := gitlog.FirstRevision(g.dir, gitlog.DEP14Tag(previous.Version), "v"+upstream, upstream)
			if err != nil {
				return nil, fmt.Errorf("no tag for %s: %w", previous.Version, err)
			}
			since = rev
		}
	}
	commits, err := gitlog.Collect(ctx, g.dir, gitlog.Options{Since: since, Max: g.max})
	if err != nil {
		return nil, err
	}
	a.logger.Info("collected commits", "since", since, "count", len(commits))
	msgs := make([]string, len(commits))
	for i, c := range commits {
		msgs[len(commits)-1-i] = c.Subject
	}
	return msgs, nil
}

// addChanges appends msgs to the UNRELEASED top entry of c.
func (a *app) addChanges(c *changelog.Changelog, maintainer string, msgs []string) error {
	top := c.Latest()
	for _, m := range msgs {
		if err := c.AddChange(m, maintainer, a.cfg.Lint.MaxLineLength); err != nil {
			return err
		}
		a.listener(report.EventChangeAdded{Version: top.Version, Maintainer: maintainer, Text: m})
	}
	return nil
}

func (a *app) release(c *changelog.Changelog, distribution, name, email string) error {
	if err := c.Release(distribution, name, email, a.now()); err != nil {
		return err
	}
	a.listener(report.EventEntryReleased{Version: c.Latest().Version, Distribution: distribution, Maintainer: name})
	return nil
}

func newNewCmd(a *app) *cobra.Command {
	var (
		source       string
		version      string
		distribution string
		urgency      string
		msgs         []string
		git          gitFlags
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Add a new entry on top of the changelog",
		Long: `Add a new entry on top of the changelog, signed by the configured
maintainer. The version defaults to the next Debian revision of the
previous entry. The entry stays UNRELEASED unless --distribution names a
suite, in which case it is released at once.

A missing changelog is created when --source and --version are given.`,
		Example: `  deb-changelog new -m "New upstream release." -m "Bump Standards-Version."
  deb-changelog new --version 0.12.0-1 --from-git
  deb-changelog new --source foo --version 1.0-1 -m "Initial release. (Closes: #123456)"`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, email, err := a.maintainer()
			if err != nil {
				return err
			}
			c, err := a.load(cmd, a.file)
			switch {
			case errors.Is(err, os.ErrNotExist) && source != "":
				c = &changelog.Changelog{}
			case err != nil:
				return err
			}

			previous := c.Latest()
			if source == "" && previous != nil {
				source = previous.Source
			}
			if version == "" {
				if previous == nil {
					return usageError("--version is required for the first entry")
				}
				version = changelog.NextVersion(previous.Version)
			}
			if !cmd.Flags().Changed("distribution") {
				distribution = a.cfg.New.Distribution
			}
			if !cmd.Flags().Changed("urgency") {
				urgency = a.cfg.New.Urgency
			}

			e, err := changelog.NewEntry(source, version, []string{changelog.Unreleased}, changelog.Urgency(strings.ToLower(urgency)))
			if err != nil {
				return usageError("%v", err)
			}
			e.Sign(name, email, a.now())

			harvested, err := git.messages(cmd.Context(), a, previous)
			if err != nil {
				return err
			}
			msgs = append(msgs, harvested...)

			if err := c.Prepend(e); err != nil {
				return err
			}
			a.listener(report.EventEntryPrepended{Source: source, Version: version, Distribution: distribution, Changes: len(msgs)})
			if err := a.addChanges(c, name, msgs); err != nil {
				return err
			}
			if distribution != changelog.Unreleased {
				if err := a.release(c, distribution, name, email); err != nil {
					return err
				}
			}
			return a.save(cmd, a.file, c)
		},
	}
	f := cmd.Flags()
	f.StringVar(&source, "source", "", "source package name, defaults to the one of the previous entry")
	f.StringVar(&version, "version", "", "version of the new entry")
	f.StringVarP(&distribution, "distribution", "D", changelog.Unreleased, "target distribution")
	f.StringVarP(&urgency, "urgency", "u", string(changelog.UrgencyMedium), "urgency: low, medium, high or emergency")
	f.StringArrayVarP(&msgs, "message", "m", nil, "change text, may be repeated")
	git.register(cmd)
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var (
		msgs []string
		git  gitFlags
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add changes to the UNRELEASED top entry",
		Long: `Append change bullets to the top entry, which must still be UNRELEASED.
Changes by another maintainer than the one who opened the entry are grouped
under "[ Name ]" sections.`,
		Example: `  deb-changelog add -m "Fix FTBFS with GCC 14. (Closes: #1012345)"`,
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _, err := a.maintainer()
			if err != nil {
				return err
			}
			c, err := a.load(cmd, a.file)
			if err != nil {
				return err
			}
			var previous *changelog.Entry
			if len(c.Entries) > 1 {
				previous = c.Entries[1]
			}
			harvested, err := git.messages(cmd.Context(), a, previous)
			if err != nil {
				return err
			}
			msgs = append(msgs, harvested...)
			if len(msgs) == 0 {
				return usageError("nothing to add: use --message or --from-git")
			}
			if err := a.addChanges(c, name, msgs); err != nil {
				if errors.Is(err, changelog.ErrReleased) {
					return fmt.Errorf("%w; open a new entry with \"deb-changelog new\"", err)
				}
				return err
			}
			return a.save(cmd, a.file, c)
		},
	}
	cmd.Flags().StringArrayVarP(&msgs, "message", "m", nil, "change text, may be repeated")
	git.register(cmd)
	return cmd
}

func newReleaseCmd(a *app) *cobra.Command {
	var distribution string
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release the UNRELEASED top entry",
		Long: `Set the distribution of the UNRELEASED top entry and sign it with the
configured maintainer and the current time.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, email, err := a.maintainer()
			if err != nil {
				return err
			}
			c, err := a.load(cmd, a.file)
			if err != nil {
				return err
			}
			if err := a.release(c, distribution, name, email); err != nil {
				return err
			}
			return a.save(cmd, a.file, c)
		},
	}
	cmd.Flags().StringVarP(&distribution, "distribution", "D", "unstable", "target distribution")
	return cmd
}
