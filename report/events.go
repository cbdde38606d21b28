package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Listener is a callback function that receives events while a changelog
// is loaded, edited or published.
type Listener func(fmt.Stringer)

// Nop is a Listener that drops every event.
func Nop(fmt.Stringer) {}

// SlogListener returns a Listener that logs each event at info level. The
// event type is the message, its fields are attributes.
func SlogListener(logger *slog.Logger) Listener {
	return func(e fmt.Stringer) {
		logger.Info(fmt.Sprintf("%T", e), "event", json.RawMessage(e.String()))
	}
}

func jsonString(v any) string {
	b, _ := json.Marshal(map[string]any{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventChangelogLoaded is emitted when a changelog has been parsed.
type EventChangelogLoaded struct {
	Path    string `json:"path,omitempty"`
	Source  string `json:"source,omitempty"`
	Version string `json:"version,omitempty"`
	Entries int    `json:"entries"`
}

func (e EventChangelogLoaded) String() string { return jsonString(e) }

// EventEntryPrepended is emitted when a new entry is added on top of the changelog.
type EventEntryPrepended struct {
	Source       string `json:"source,omitempty"`
	Version      string `json:"version,omitempty"`
	Distribution string `json:"distribution,omitempty"`
	Changes      int    `json:"changes"`
}

func (e EventEntryPrepended) String() string { return jsonString(e) }

// EventChangeAdded is emitted when a change is appended to the UNRELEASED entry.
type EventChangeAdded struct {
	Version    string `json:"version,omitempty"`
	Maintainer string `json:"maintainer,omitempty"`
	Text       string `json:"text,omitempty"`
}

func (e EventChangeAdded) String() string { return jsonString(e) }

// EventEntryReleased is emitted when the top entry is finalized.
type EventEntryReleased struct {
	Version      string `json:"version,omitempty"`
	Distribution string `json:"distribution,omitempty"`
	Maintainer   string `json:"maintainer,omitempty"`
}

func (e EventEntryReleased) String() string { return jsonString(e) }

// EventChangelogWritten is emitted when a changelog is saved.
type EventChangelogWritten struct {
	Path  string `json:"path,omitempty"`
	Bytes int64  `json:"bytes"`
}

func (e EventChangelogWritten) String() string { return jsonString(e) }

// EventPackageWritten is emitted when a .deb is written with a new changelog.
type EventPackageWritten struct {
	Path    string `json:"path,omitempty"`
	Package string `json:"package,omitempty"`
	Version string `json:"version,omitempty"`
}

func (e EventPackageWritten) String() string { return jsonString(e) }

// EventFetched is emitted when a document has been downloaded.
type EventFetched struct {
	URL    string `json:"url,omitempty"`
	Status int    `json:"status"`
	Bytes  int    `json:"bytes"`
}

func (e EventFetched) String() string { return jsonString(e) }
