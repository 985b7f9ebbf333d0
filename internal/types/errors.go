package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetwork indicates a transport-level failure: connection, timeout or non-success status.
	ErrNetwork = errors.New("network failure")

	// ErrMalformedIdentifier indicates the input is neither a video code nor a detail-page URL.
	ErrMalformedIdentifier = errors.New("malformed identifier")

	// ErrStateMarkerNotFound indicates no inline script carries the expected state marker.
	ErrStateMarkerNotFound = errors.New("state marker not found")

	// ErrMalformedState indicates the embedded state could not be delimited or decoded.
	ErrMalformedState = errors.New("malformed state")

	// ErrMissingField indicates a structurally valid document lacks an expected node or key.
	ErrMissingField = errors.New("missing field")

	// ErrExternalTool indicates the remux backend failed.
	ErrExternalTool = errors.New("external tool failed")

	// ErrMissingPart indicates the part listing has gaps and the run is configured to refuse them.
	ErrMissingPart = errors.New("missing part")

	// ErrMuxerUnavailable indicates the configured remux backend cannot run on this host.
	ErrMuxerUnavailable = errors.New("muxer unavailable")
)

// NetworkError describes one failed HTTP exchange.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network failure: url=%s status=%d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("network failure: url=%s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// MalformedIdentifierError carries the rejected input.
type MalformedIdentifierError struct {
	Input string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed identifier: %q", e.Input)
}

func (e *MalformedIdentifierError) Is(target error) bool { return target == ErrMalformedIdentifier }

// StateMarkerNotFoundError names the marker that no script contained.
type StateMarkerNotFoundError struct {
	Marker string
}

func (e *StateMarkerNotFoundError) Error() string {
	return fmt.Sprintf("state marker not found: %s", e.Marker)
}

func (e *StateMarkerNotFoundError) Is(target error) bool { return target == ErrStateMarkerNotFound }

// MalformedStateError reports why embedded state could not be used.
type MalformedStateError struct {
	Marker string
	Reason string
	Err    error
}

func (e *MalformedStateError) Error() string {
	var b strings.Builder
	b.WriteString("malformed state")
	if e.Marker != "" {
		b.WriteString(" marker=")
		b.WriteString(e.Marker)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedStateError) Unwrap() error { return e.Err }

func (e *MalformedStateError) Is(target error) bool { return target == ErrMalformedState }

// MissingFieldError names the selector or JSON path that did not resolve.
type MissingFieldError struct {
	Field  string
	Detail string
}

func (e *MissingFieldError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("missing field %s: %s", e.Field, e.Detail)
	}
	return fmt.Sprintf("missing field %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// ExternalToolError describes a failed remux invocation.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(": exit=%d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

func (e *ExternalToolError) Is(target error) bool { return target == ErrExternalTool }

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
