package strand

import (
	"errors"
	"fmt"

	"github.com/ppiankov/strandline/internal/model"
	"github.com/ppiankov/strandline/internal/resolve"
)

// Marker-level error taxonomy. None of these abort a run.
var (
	ErrReferenceMismatch = resolve.ErrReferenceMismatch
	ErrMalformedGenotype = resolve.ErrMalformedGenotype

	// ErrStrandUnresolved means a palindromic marker got no usable strand answer
	ErrStrandUnresolved = errors.New("strand unresolved")
	// ErrProviderUnavailable means the strand-truth provider failed after retries
	ErrProviderUnavailable = errors.New("strand provider unavailable")
)

// MarkerError attaches a marker rsid and detail to a taxonomy error
type MarkerError struct {
	RSID   string
	Err    error
	Detail string
}

func (e *MarkerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.RSID, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.RSID, e.Err, e.Detail)
}

func (e *MarkerError) Unwrap() error { return e.Err }

// Kind maps the error onto the report's issue kinds
func (e *MarkerError) Kind() model.IssueKind {
	switch {
	case errors.Is(e.Err, ErrReferenceMismatch):
		return model.IssueReferenceMismatch
	case errors.Is(e.Err, ErrMalformedGenotype):
		return model.IssueMalformedGenotype
	case errors.Is(e.Err, ErrProviderUnavailable):
		return model.IssueProviderUnavailable
	default:
		return model.IssueStrandUnresolved
	}
}

// Issue renders the error as a report issue
func (e *MarkerError) Issue() model.MarkerIssue {
	detail := e.Detail
	if detail == "" {
		detail = e.Err.Error()
	}
	return model.MarkerIssue{RSID: e.RSID, Kind: e.Kind(), Detail: detail}
}

func markerErr(rsid string, err error, format string, args ...any) *MarkerError {
	return &MarkerError{RSID: rsid, Err: err, Detail: fmt.Sprintf(format, args...)}
}
