package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/etnz/deb-changelog/config"
	"github.com/etnz/deb-changelog/remote"
	"github.com/etnz/deb-changelog/report"
	"github.com/spf13/cobra"
)

// defaultFile is the changelog of a source package tree.
const defaultFile = "debian/changelog"

// app holds what the commands share: flags of the root command and the
// state set up before any command runs.
type app struct {
	configPath string
	file       string
	verbose    bool

	cfg      *config.Config
	logger   *slog.Logger
	listener report.Listener

	now        func() time.Time
	httpClient *http.Client
}

func newApp() *app {
	return &app{
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		listener: report.Nop,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "deb-changelog",
		Short: "Parse, lint and edit Debian changelogs",
		Long: `deb-changelog reads and writes debian/changelog files.

It checks them against Debian policy, extracts dpkg-parsechangelog style
summaries, renders release notes, adds entries the way dch does, and moves
changelogs in and out of .deb packages.

Examples:
  deb-changelog lint
  deb-changelog parse -S Version
  deb-changelog new -m "New upstream release." --from-git
  deb-changelog release --distribution unstable
  deb-changelog deb inject build/foo_1.0-1_amd64.deb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (default "+config.ProjectFile+")")
	pf.StringVarP(&a.file, "file", "f", defaultFile, "changelog file, - for standard input")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log progress to standard error")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ExitError{Code: ExitInvalidArguments, Err: err}
	})

	root.AddCommand(
		newLintCmd(a),
		newParseCmd(a),
		newShowCmd(a),
		newRenderCmd(a),
		newNewCmd(a),
		newAddCmd(a),
		newReleaseCmd(a),
		newDebCmd(a),
		newFetchCmd(a),
		newCompareCmd(a),
		newConfigCmd(a),
	)
	return root
}

// skipProjectConfig annotates commands that must run whatever the project
// configuration holds.
const skipProjectConfig = "skip-project-config"

// setup loads the configuration and the logger.
func (a *app) setup(cmd *cobra.Command) error {
	opts := config.LoadOptions{ProjectConfigPath: a.configPath}
	if _, ok := cmd.Annotations[skipProjectConfig]; ok {
		opts.SkipProjectConfig = true
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return &ExitError{Code: ExitInvalidArguments, Err: err}
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.listener = report.SlogListener(a.logger)
	a.logger.Debug("configuration loaded", "config", a.configPath, "file", a.file)
	return nil
}

// usageArgs wraps a cobra argument validator so that its failures are usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: ExitInvalidArguments, Err: err}
		}
		return nil
	}
}

// path returns the changelog named by the optional positional argument,
// or the --file flag.
func (a *app) path(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.file
}

// load parses the changelog at path. Parse failures exit with ExitParseError.
func (a *app) load(cmd *cobra.Command, path string) (*changelog.Changelog, error) {
	var (
		c   *changelog.Changelog
		err error
	)
	if path == "-" {
		c, err = changelog.Parse(cmd.InOrStdin())
	} else {
		c, err = changelog.ParseFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	e := report.EventChangelogLoaded{Path: path, Entries: len(c.Entries)}
	if top := c.Latest(); top != nil {
		e.Source, e.Version = top.Source, top.Version
	}
	a.listener(e)
	return c, nil
}

// save writes c to path atomically.
func (a *app) save(cmd *cobra.Command, path string, c *changelog.Changelog) error {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return err
	}
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	a.listener(report.EventChangelogWritten{Path: path, Bytes: int64(buf.Len())})
	return nil
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory, keeping the mode of an existing file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// maintainer returns the configured identity, which editing commands require.
func (a *app) maintainer() (name, email string, err error) {
	m := a.cfg.Maintainer
	if m.Name == "" || m.Email == "" {
		return "", "", usageError("maintainer unknown: set DEBFULLNAME and DEBEMAIL, or maintainer.name and maintainer.email in %s", config.ProjectFile)
	}
	return m.Name, m.Email, nil
}

// remoteClient returns a client configured from the remote settings.
func (a *app) remoteClient() *remote.Client {
	return &remote.Client{
		HTTPClient: a.httpClient,
		BaseURL:    a.cfg.Remote.BaseURL,
		Component:  a.cfg.Remote.Component,
		Timeout:    a.cfg.Remote.Timeout,
		Listener:   a.listener,
	}
}
