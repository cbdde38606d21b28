package config

import (
	"errors"
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

// ValidationError reports a configuration file that is not valid YAML.
type ValidationError struct {
	FilePath string
	Line     int
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// ValidateYAMLFile checks the syntax of the file at path. A missing or
// empty file is valid.
func ValidateYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &ValidationError{FilePath: path, Message: err.Error()}
	}
	return ValidateYAML(data, path)
}

// ValidateYAML checks that data is a YAML mapping.
func ValidateYAML(data []byte, path string) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) && len(te.Errors) > 0 {
			return &ValidationError{FilePath: path, Message: te.Errors[0]}
		}
		return &ValidationError{FilePath: path, Message: err.Error()}
	}
	if len(node.Content) == 0 {
		return nil
	}
	if doc := node.Content[0]; doc.Kind != yaml.MappingNode {
		return &ValidationError{FilePath: path, Line: doc.Line, Message: "expected a mapping of settings"}
	}
	return nil
}

// Marshal returns c as YAML, in the layout of the configuration files.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Template returns a commented configuration file holding the defaults.
func Template() string {
	d := Default()
	return fmt.Sprintf(`# deb-changelog configuration
# Environment variables DEB_CHANGELOG_<KEY> override these values, with "__"
# separating nested keys (DEB_CHANGELOG_LINT__MAX_LINE_LENGTH=100).

# Identity written in trailers. Defaults to DEBFULLNAME and DEBEMAIL.
maintainer:
  name: ""
  email: ""

# debug | info | warn | error
log_level: %s

lint:
  max_line_length: %d   # 0 disables the check
  distributions: []     # allowed distributions, empty allows any
  disabled: []          # issue codes to skip, e.g. [line-too-long]

new:
  distribution: %s
  urgency: %s

remote:
  base_url: %s
  component: %s
  timeout: %s
`, d.LogLevel, d.Lint.MaxLineLength, d.New.Distribution, d.New.Urgency,
		d.Remote.BaseURL, d.Remote.Component, d.Remote.Timeout)
}
