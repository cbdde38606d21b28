// Package remote downloads published changelogs and packages over HTTP.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/etnz/deb-changelog/changelog"
	"github.com/etnz/deb-changelog/deb"
	"github.com/etnz/deb-changelog/report"
)

const (
	// DefaultBaseURL serves the changelogs of the Debian archive.
	DefaultBaseURL = "https://metadata.ftp-master.debian.org/changelogs"
	// DefaultComponent is the archive area looked up by FetchPackage.
	DefaultComponent = "main"
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 30 * time.Second
)

// maxBodySize bounds what Fetch reads, changelogs are a few MB at most.
const maxBodySize = 64 << 20

// StatusError is returned when the server answers with a non 200 status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Client downloads changelogs. The zero value uses http.DefaultClient and
// the Debian archive defaults.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Component  string
	Timeout    time.Duration
	Listener   report.Listener
}

// PackageURL returns the URL of the changelog of source at version, in the
// layout of metadata.ftp-master.debian.org. An empty version selects the
// changelog of the unstable suite.
func (c *Client) PackageURL(source, version string) string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	component := c.Component
	if component == "" {
		component = DefaultComponent
	}
	name := "unstable_changelog"
	if version != "" {
		if i := strings.Index(version, ":"); i != -1 {
			version = version[i+1:]
		}
		name = fmt.Sprintf("%s_%s_changelog", source, version)
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", base, component, poolPrefix(source), source, name)
}

// poolPrefix is the archive pool directory of a source package: its first
// letter, or "lib" and the next letter for library packages.
func poolPrefix(source string) string {
	if strings.HasPrefix(source, "lib") && len(source) > 3 {
		return source[:4]
	}
	if source == "" {
		return ""
	}
	return source[:1]
}

// FetchPackage downloads and parses the changelog of source at version.
func (c *Client) FetchPackage(ctx context.Context, source, version string) (*changelog.Changelog, error) {
	return c.Fetch(ctx, c.PackageURL(source, version))
}

// Fetch downloads and parses the changelog at url. Gzip compressed
// documents are accepted.
func (c *Client) Fetch(ctx context.Context, url string) (*changelog.Changelog, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	cl, err := changelog.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return cl, nil
}

// FetchDeb downloads and reads the .deb at url.
func (c *Client) FetchDeb(ctx context.Context, url string) (*deb.Package, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	pkg, err := deb.NewPackage(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return pkg, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "deb-changelog")

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%s: response larger than %d bytes", url, maxBodySize)
	}
	if c.Listener != nil {
		c.Listener(report.EventFetched{URL: url, Status: resp.StatusCode, Bytes: len(body)})
	}
	return body, nil
}
