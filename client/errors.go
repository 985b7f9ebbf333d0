package client

import (
	"errors"

	"github.com/famomatic/bvdl/internal/orchestrator"
	"github.com/famomatic/bvdl/internal/types"
)

var (
	// ErrNetwork indicates a connection failure, timeout or non-success status.
	ErrNetwork = types.ErrNetwork
	// ErrMalformedIdentifier indicates the input is neither a video code nor a detail-page URL.
	ErrMalformedIdentifier = types.ErrMalformedIdentifier
	// ErrStateMarkerNotFound indicates the page carries no expected inline state.
	ErrStateMarkerNotFound = types.ErrStateMarkerNotFound
	// ErrMalformedState indicates the inline state could not be delimited or decoded.
	ErrMalformedState = types.ErrMalformedState
	// ErrMissingField indicates an expected node or key is absent.
	ErrMissingField = types.ErrMissingField
	// ErrExternalTool indicates the remux step failed.
	ErrExternalTool = types.ErrExternalTool
	// ErrMissingPart indicates gaps in the part listing with the fail policy active.
	ErrMissingPart = types.ErrMissingPart
	// ErrMuxerUnavailable indicates the configured remux backend cannot run.
	ErrMuxerUnavailable = types.ErrMuxerUnavailable
)

type (
	NetworkError             = types.NetworkError
	MalformedIdentifierError = types.MalformedIdentifierError
	StateMarkerNotFoundError = types.StateMarkerNotFoundError
	MalformedStateError      = types.MalformedStateError
	MissingFieldError        = types.MissingFieldError
	ExternalToolError        = types.ExternalToolError
	PartError                = orchestrator.PartError
	PartsFailedError         = orchestrator.PartsFailedError
)

// ErrorCategory is a coarse, stable classification for callers that map
// failures to exit codes or messages.
type ErrorCategory string

const (
	ErrorCategoryNone                ErrorCategory = ""
	ErrorCategoryNetwork             ErrorCategory = "network"
	ErrorCategoryMalformedIdentifier ErrorCategory = "malformed_identifier"
	ErrorCategoryStateMarkerNotFound ErrorCategory = "state_marker_not_found"
	ErrorCategoryMalformedState      ErrorCategory = "malformed_state"
	ErrorCategoryMissingField        ErrorCategory = "missing_field"
	ErrorCategoryExternalTool        ErrorCategory = "external_tool"
	ErrorCategoryMissingPart         ErrorCategory = "missing_part"
	ErrorCategoryMuxerUnavailable    ErrorCategory = "muxer_unavailable"
	ErrorCategoryPartsFailed         ErrorCategory = "parts_failed"
	ErrorCategoryUnknown             ErrorCategory = "unknown"
)

// ClassifyError maps err onto an ErrorCategory. A run where some parts
// failed is reported as ErrorCategoryPartsFailed regardless of the causes.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}
	var parts *orchestrator.PartsFailedError
	if errors.As(err, &parts) {
		return ErrorCategoryPartsFailed
	}
	switch {
	case errors.Is(err, ErrMalformedIdentifier):
		return ErrorCategoryMalformedIdentifier
	case errors.Is(err, ErrNetwork):
		return ErrorCategoryNetwork
	case errors.Is(err, ErrStateMarkerNotFound):
		return ErrorCategoryStateMarkerNotFound
	case errors.Is(err, ErrMalformedState):
		return ErrorCategoryMalformedState
	case errors.Is(err, ErrMissingField):
		return ErrorCategoryMissingField
	case errors.Is(err, ErrExternalTool):
		return ErrorCategoryExternalTool
	case errors.Is(err, ErrMissingPart):
		return ErrorCategoryMissingPart
	case errors.Is(err, ErrMuxerUnavailable):
		return ErrorCategoryMuxerUnavailable
	default:
		return ErrorCategoryUnknown
	}
}
