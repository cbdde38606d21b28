package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/etnz/deb-changelog/config"
	"github.com/spf13/cobra"
)

// relations maps dpkg --compare-versions operators to the comparison results they accept.
var relations = map[string]func(int) bool{
	"lt": func(c int) bool { return c < 0 },
	"le": func(c int) bool { return c <= 0 },
	"eq": func(c int) bool { return c == 0 },
	"ne": func(c int) bool { return c != 0 },
	"ge": func(c int) bool { return c >= 0 },
	"gt": func(c int) bool { return c > 0 },
	"<<": func(c int) bool { return c < 0 },
	"<=": func(c int) bool { return c <= 0 },
	"=":  func(c int) bool { return c == 0 },
	">=": func(c int) bool { return c >= 0 },
	">>": func(c int) bool { return c > 0 },
}

func newCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <v1> [op] <v2>",
		Short: "Compare Debian versions",
		Long: `With two versions, print <, = or > between them.

With an operator (lt le eq ne ge gt, or << <= = >= >>), print nothing and
exit with status 0 when the relation holds, 1 otherwise, like
dpkg --compare-versions.`,
		Example: `  deb-changelog compare 1.0~rc1-1 1.0-1
  deb-changelog compare 1:0.9 gt 1.0`,
		Args: usageArgs(cobra.RangeArgs(2, 3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			v1, v2 := args[0], args[len(args)-1]
			cmp, err := changelog.CompareVersions(v1, v2)
			if err != nil {
				return usageError("%v", err)
			}
			if len(args) == 2 {
				sign := "="
				switch {
				case cmp < 0:
					sign = "<"
				case cmp > 0:
					sign = ">"
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", v1, sign, v2)
				return err
			}
			holds, ok := relations[args[1]]
			if !ok {
				return usageError("unknown operator %q", args[1])
			}
			if !holds(cmp) {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration file with the defaults",
		Long: `Write a configuration file holding the defaults, to --config or
` + config.ProjectFile + ` in the current directory.`,
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{skipProjectConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.ProjectFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := writeFileAtomic(path, []byte(config.Template()), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration files that are looked up",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := config.UserConfigPath()
			if err != nil {
				return err
			}
			project := a.configPath
			if project == "" {
				project = config.ProjectFile
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user: %s\nproject: %s\n", user, project)
			return nil
		},
	}

	cmd.AddCommand(show, initCmd, path)
	return cmd
}
