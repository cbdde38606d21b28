package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every source of configuration at empty temporary
// locations and returns the user config directory.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, key := range []string{"DEBFULLNAME", "NAME", "DEBEMAIL", "EMAIL"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
	return filepath.Join(xdg, "deb-changelog")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.LogLevel, cfg.LogLevel)
	assert.Equal(t, 80, cfg.Lint.MaxLineLength)
	assert.Empty(t, cfg.Lint.Distributions)
	assert.Empty(t, cfg.Lint.Disabled)
	assert.Equal(t, changelog.Unreleased, cfg.New.Distribution)
	assert.Equal(t, "medium", cfg.New.Urgency)
	assert.Equal(t, d.Remote, cfg.Remote)
	assert.Empty(t, cfg.Maintainer.Name)
}

func TestLoad_Layers(t *testing.T) {
	userDir := isolate(t)
	writeFile(t, filepath.Join(userDir, "config.yaml"), `
maintainer:
  name: Jane Doe
  email: jane@example.org
lint:
  max_line_length: 100
remote:
  timeout: 10s
`)
	writeFile(t, ProjectFile, `
lint:
  max_line_length: 120
  distributions: [unstable, experimental]
new:
  urgency: low
`)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", cfg.Maintainer.Name)
	assert.Equal(t, 120, cfg.Lint.MaxLineLength)
	assert.Equal(t, []string{"unstable", "experimental"}, cfg.Lint.Distributions)
	assert.Equal(t, "low", cfg.New.Urgency)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)

	t.Setenv("DEB_CHANGELOG_LINT__MAX_LINE_LENGTH", "90")
	t.Setenv("DEB_CHANGELOG_LOG_LEVEL", "debug")
	cfg, err = Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Lint.MaxLineLength)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = Load(LoadOptions{SkipUserConfig: true})
	require.NoError(t, err)
	assert.Empty(t, cfg.Maintainer.Name)
	assert.Equal(t, Default().Remote.Timeout, cfg.Remote.Timeout)
}

func TestLoad_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "ci.yaml")
	writeFile(t, path, "lint:\n  disabled: [line-too-long]\n")

	cfg, err := Load(LoadOptions{ProjectConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"line-too-long"}, cfg.Lint.Disabled)

	_, err = Load(LoadOptions{ProjectConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "not found")
}

func TestLoad_MaintainerEnv(t *testing.T) {
	tests := map[string]struct {
		env         map[string]string
		name, email string
	}{
		"debemail identity": {
			env:   map[string]string{"DEBEMAIL": "Jane Doe <jane@example.org>"},
			name:  "Jane Doe",
			email: "jane@example.org",
		},
		"debfullname wins": {
			env:   map[string]string{"DEBEMAIL": "Jane Doe <jane@example.org>", "DEBFULLNAME": "J. Doe"},
			name:  "J. Doe",
			email: "jane@example.org",
		},
		"debemail over name": {
			env:   map[string]string{"DEBEMAIL": "Jane Doe <jane@example.org>", "NAME": "login"},
			name:  "Jane Doe",
			email: "jane@example.org",
		},
		"generic variables": {
			env:   map[string]string{"NAME": "John Roe", "EMAIL": "john@example.org"},
			name:  "John Roe",
			email: "john@example.org",
		},
		"debemail over email": {
			env:   map[string]string{"DEBEMAIL": "jane@debian.org", "EMAIL": "jane@example.org"},
			email: "jane@debian.org",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(LoadOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.name, cfg.Maintainer.Name)
			assert.Equal(t, tt.email, cfg.Maintainer.Email)
		})
	}
}

func TestLoad_EnvironmentList(t *testing.T) {
	isolate(t)
	t.Setenv("DEB_CHANGELOG_LINT__DISABLED", "line-too-long,trailing-whitespace")
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"line-too-long", "trailing-whitespace"}, cfg.Lint.Disabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		content string
		want    string
	}{
		"syntax":     {"lint: [unclosed\n", "validating project config"},
		"not a map":  {"- a\n- b\n", "expected a mapping"},
		"log level":  {"log_level: loud\n", `invalid level "loud"`},
		"urgency":    {"new:\n  urgency: whenever\n", `invalid urgency "whenever"`},
		"line width": {"lint:\n  max_line_length: -1\n", "must not be negative"},
		"email":      {"maintainer:\n  email: not an address\n", "maintainer.email"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			writeFile(t, ProjectFile, tt.content)
			_, err := Load(LoadOptions{})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidateYAML(t *testing.T) {
	assert.NoError(t, ValidateYAML(nil, "empty.yaml"))
	assert.NoError(t, ValidateYAMLFile(filepath.Join(t.TempDir(), "missing.yaml")))

	err := ValidateYAML([]byte("a: 1\n---\n"), "x.yaml")
	assert.NoError(t, err)

	err = ValidateYAML([]byte("\n\njust a string\n"), "x.yaml")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, 3, ve.Line)
	assert.Equal(t, "x.yaml:3: expected a mapping of settings", err.Error())
}

func TestTemplate(t *testing.T) {
	isolate(t)
	require.NoError(t, ValidateYAML([]byte(Template()), "template"))
	writeFile(t, ProjectFile, Template())

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	d := Default()
	assert.Equal(t, d.Lint.MaxLineLength, cfg.Lint.MaxLineLength)
	assert.Equal(t, d.New, cfg.New)
	assert.Equal(t, d.Remote, cfg.Remote)
	assert.Equal(t, d.LogLevel, cfg.LogLevel)
}

func TestMarshal(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_line_length: 80")
	assert.Contains(t, string(out), "timeout: 30s")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	l, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestLintOptions(t *testing.T) {
	c := Default()
	c.Lint.Disabled = []string{changelog.CodeLineTooLong}
	opts := c.LintOptions()
	assert.Equal(t, 80, opts.MaxLineLength)
	assert.Equal(t, []string{changelog.CodeLineTooLong}, opts.Disabled)
}
