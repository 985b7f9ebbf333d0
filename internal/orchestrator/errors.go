package orchestrator

import (
	"fmt"
	"strings"
)

// Stage names the step of a part pipeline that failed.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageDownload Stage = "download"
	StageMux      Stage = "mux"
	// StageCanceled marks parts that never started because the run was canceled.
	StageCanceled Stage = "canceled"
)

// PartError captures one part pipeline failure.
type PartError struct {
	Part  int
	Stage Stage
	Err   error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("part %d %s: %v", e.Part, e.Stage, e.Err)
}

func (e *PartError) Unwrap() error { return e.Err }

// PartsFailedError is returned when at least one part did not produce output.
type PartsFailedError struct {
	Failures []PartError
	Total    int
}

func (e *PartsFailedError) Error() string {
	if len(e.Failures) == 0 {
		return "parts failed"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("p%d", f.Part))
	}
	return fmt.Sprintf("%d of %d part(s) failed: %s: %v",
		len(e.Failures), e.Total, strings.Join(parts, ","), e.Failures[0].Err)
}

// Unwrap exposes every part failure to errors.Is and errors.As.
func (e *PartsFailedError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for i := range e.Failures {
		out = append(out, &e.Failures[i])
	}
	return out
}
