// Package config loads the settings of the deb-changelog command.
//
// Values are layered, later sources overriding earlier ones:
//
//   - built-in defaults
//   - the user file, $XDG_CONFIG_HOME/deb-changelog/config.yaml
//   - the project file, .deb-changelog.yaml (or an explicit path)
//   - the dch environment: DEBFULLNAME, NAME, DEBEMAIL, EMAIL
//   - DEB_CHANGELOG_* variables, "__" separating nested keys
//     (DEB_CHANGELOG_LINT__MAX_LINE_LENGTH=100)
package config

import (
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/etnz/deb-changelog/remote"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "DEB_CHANGELOG_"

// ProjectFile is the project configuration looked up in the current directory.
const ProjectFile = ".deb-changelog.yaml"

// Config holds every setting of the command.
type Config struct {
	Maintainer Maintainer `koanf:"maintainer" yaml:"maintainer"`
	LogLevel   string     `koanf:"log_level" yaml:"log_level"`
	Lint       Lint       `koanf:"lint" yaml:"lint"`
	New        New        `koanf:"new" yaml:"new"`
	Remote     Remote     `koanf:"remote" yaml:"remote"`
}

// Maintainer is the identity written in trailers.
type Maintainer struct {
	Name  string `koanf:"name" yaml:"name"`
	Email string `koanf:"email" yaml:"email"`
}

// Lint is the lint policy.
type Lint struct {
	MaxLineLength int      `koanf:"max_line_length" yaml:"max_line_length"`
	Distributions []string `koanf:"distributions" yaml:"distributions"`
	Disabled      []string `koanf:"disabled" yaml:"disabled"`
}

// New holds the defaults of new entries.
type New struct {
	Distribution string `koanf:"distribution" yaml:"distribution"`
	Urgency      string `koanf:"urgency" yaml:"urgency"`
}

// Remote configures downloads.
type Remote struct {
	BaseURL   string        `koanf:"base_url" yaml:"base_url"`
	Component string        `koanf:"component" yaml:"component"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout"`
}

// LoadOptions controls where Load looks for files.
type LoadOptions struct {
	// ProjectConfigPath overrides ProjectFile. It must exist when set.
	ProjectConfigPath string
	// SkipUserConfig ignores the user file.
	SkipUserConfig bool
	// SkipProjectConfig ignores the project file.
	SkipProjectConfig bool
}

// Load reads the configuration from every layer.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	loadDefaults(k)

	if !opts.SkipUserConfig {
		if path, err := UserConfigPath(); err == nil && fileExists(path) {
			if err := loadYAMLConfig(k, path, "user"); err != nil {
				return nil, err
			}
		}
	}

	project := opts.ProjectConfigPath
	switch {
	case opts.SkipProjectConfig:
		project = ""
	case project != "":
		if !fileExists(project) {
			return nil, fmt.Errorf("config file %s not found", project)
		}
	case fileExists(ProjectFile):
		project = ProjectFile
	}
	if project != "" {
		if err := loadYAMLConfig(k, project, "project"); err != nil {
			return nil, err
		}
	}

	loadMaintainerEnv(k)
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Lint: Lint{
			MaxLineLength: changelog.DefaultLintOptions().MaxLineLength,
		},
		New: New{
			Distribution: changelog.Unreleased,
			Urgency:      string(changelog.UrgencyMedium),
		},
		Remote: Remote{
			BaseURL:   remote.DefaultBaseURL,
			Component: remote.DefaultComponent,
			Timeout:   remote.DefaultTimeout,
		},
	}
}

func loadDefaults(k *koanf.Koanf) {
	d := Default()
	defaults := map[string]any{
		"log_level":            d.LogLevel,
		"maintainer.name":      "",
		"maintainer.email":     "",
		"lint.max_line_length": d.Lint.MaxLineLength,
		"lint.distributions":   []string{},
		"lint.disabled":        []string{},
		"new.distribution":     d.New.Distribution,
		"new.urgency":          d.New.Urgency,
		"remote.base_url":      d.Remote.BaseURL,
		"remote.component":     d.Remote.Component,
		"remote.timeout":       d.Remote.Timeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}
}

func loadYAMLConfig(k *koanf.Koanf, path, kind string) error {
	if err := ValidateYAMLFile(path); err != nil {
		return fmt.Errorf("validating %s config: %w", kind, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading %s config %s: %w", kind, path, err)
	}
	return nil
}

// loadMaintainerEnv applies the variables dch reads. DEBEMAIL may carry
// the whole "Name <address>" identity.
func loadMaintainerEnv(k *koanf.Koanf) {
	name := firstEnv("DEBFULLNAME", "NAME")
	email := os.Getenv("DEBEMAIL")
	if email != "" {
		if addr, err := mail.ParseAddress(email); err == nil {
			email = addr.Address
			if addr.Name != "" && os.Getenv("DEBFULLNAME") == "" {
				name = addr.Name
			}
		}
	} else {
		email = os.Getenv("EMAIL")
	}
	if name != "" {
		k.Set("maintainer.name", name)
	}
	if email != "" {
		k.Set("maintainer.email", email)
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// envTransform maps DEB_CHANGELOG_LINT__MAX_LINE_LENGTH to lint.max_line_length.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// UserConfigPath returns the path of the user configuration file.
func UserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "deb-changelog", "config.yaml"), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Validate checks the values that cannot be checked by decoding.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Lint.MaxLineLength < 0 {
		return fmt.Errorf("lint.max_line_length must not be negative, got %d", c.Lint.MaxLineLength)
	}
	if u := changelog.Urgency(strings.ToLower(c.New.Urgency)); !u.Valid() {
		return fmt.Errorf("new.urgency: invalid urgency %q", c.New.Urgency)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative, got %s", c.Remote.Timeout)
	}
	if c.Maintainer.Email != "" {
		if _, err := mail.ParseAddress(c.Maintainer.Email); err != nil {
			return fmt.Errorf("maintainer.email: %w", err)
		}
	}
	return nil
}

// LintOptions returns the lint policy as changelog options.
func (c *Config) LintOptions() changelog.LintOptions {
	return changelog.LintOptions{
		MaxLineLength: c.Lint.MaxLineLength,
		Distributions: c.Lint.Distributions,
		Disabled:      c.Lint.Disabled,
	}
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: invalid level %q", s)
	}
	return l, nil
}
