// Package credential loads and snapshots the session blob the agent logs in
// with. The blob is opaque: a JSON array of cookie-like objects obtained
// outside the agent and passed to the remote service unchanged.
package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/giantswarm/locksmith/pkg/fileutil"
	"github.com/giantswarm/locksmith/pkg/logging"

	"github.com/tidwall/jsonc"
)

const snapshotPerm = 0o600

// Blob is a validated session blob.
type Blob []json.RawMessage

// InvalidSessionError means no usable session blob is available. The
// session manager retries later rather than exiting.
type InvalidSessionError struct {
	Source string
	Reason string
	Err    error
}

func (e *InvalidSessionError) Error() string {
	msg := fmt.Sprintf("invalid session from %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidSessionError) Unwrap() error { return e.Err }

// Parse validates data as a non-empty array of JSON objects.
func Parse(source string, data []byte) (Blob, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &InvalidSessionError{Source: source, Reason: "empty"}
	}

	var blob Blob
	if err := json.Unmarshal(jsonc.ToJSON(data), &blob); err != nil {
		return nil, &InvalidSessionError{Source: source, Reason: "not a JSON array", Err: err}
	}
	if len(blob) == 0 {
		return nil, &InvalidSessionError{Source: source, Reason: "empty array"}
	}
	for i, entry := range blob {
		trimmed := bytes.TrimSpace(entry)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &InvalidSessionError{Source: source, Reason: fmt.Sprintf("entry %d is not an object", i)}
		}
	}
	return blob, nil
}

// Source says where the blob comes from. Inline wins over Path, except
// once a valid snapshot has been written to Path after Since: sessions
// refresh their cookies, and a re-login should use the refreshed ones.
type Source struct {
	Inline string
	Path   string
	Since  time.Time
}

// Load reads and validates the blob.
func (s Source) Load() (Blob, error) {
	if strings.TrimSpace(s.Inline) != "" {
		if blob, ok := s.freshSnapshot(); ok {
			return blob, nil
		}
		return Parse("environment", []byte(s.Inline))
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &InvalidSessionError{Source: s.Path, Reason: "file not found", Err: err}
		}
		return nil, &InvalidSessionError{Source: s.Path, Reason: "unreadable", Err: err}
	}
	return Parse(s.Path, data)
}

func (s Source) freshSnapshot() (Blob, bool) {
	if s.Since.IsZero() || s.Path == "" {
		return nil, false
	}
	fi, err := os.Stat(s.Path)
	if err != nil || !fi.ModTime().After(s.Since) {
		return nil, false
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, false
	}
	blob, err := Parse(s.Path, data)
	if err != nil {
		logging.Warn("Credential", "Ignoring unusable snapshot: %v", err)
		return nil, false
	}
	logging.Debug("Credential", "Using session snapshot from %s", fi.ModTime().Format(time.RFC3339))
	return blob, true
}

// SaveSnapshot atomically writes the blob to path. An empty blob is not
// written, so a broken session never overwrites a good snapshot.
func SaveSnapshot(path string, blob Blob) error {
	if len(blob) == 0 {
		logging.Warn("Credential", "Skipping empty session snapshot")
		return nil
	}
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, snapshotPerm); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	logging.Debug("Credential", "Session snapshot written to %s", path)
	return nil
}
