package split

import (
	"errors"
	"fmt"
)

// ErrMalformedRequest rejects a whole job before any group is processed.
var ErrMalformedRequest = errors.New("malformed request")

// ErrMalformedClassification marks a classifier answer that failed schema
// validation. The batch reports it as a boundary inconsistency.
var ErrMalformedClassification = errors.New("malformed classification")

// InvalidRangeError reports a page range outside a document.
type InvalidRangeError struct {
	Source     string
	Start      int
	End        int
	TotalPages int
}

func (e *InvalidRangeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid page range %d-%d (total pages: %d)", e.Start, e.End, e.TotalPages)
	}
	return fmt.Sprintf("invalid page range %d-%d for file %s (total pages: %d)", e.Start, e.End, e.Source, e.TotalPages)
}

// BoundaryInconsistencyError reports classifier output that does not tile
// the document exactly once.
type BoundaryInconsistencyError struct {
	Source string
	Reason string
}

func (e *BoundaryInconsistencyError) Error() string {
	return fmt.Sprintf("boundary inconsistency in %s: %s", e.Source, e.Reason)
}

// ExtractionError reports a failed page extraction or write for one segment.
type ExtractionError struct {
	Source string
	Start  int
	End    int
	Target string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract pages %d-%d of %s into %s: %v", e.Start, e.End, e.Source, e.Target, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CleanupError reports a stale output that could not be deleted.
type CleanupError struct {
	Source string
	Path   string
	Err    error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("delete stale output %s of %s: %v", e.Path, e.Source, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// SourceError reports a group that could not be processed at all.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ErrorKind names the taxonomy bucket of err, for metrics and logs.
func ErrorKind(err error) string {
	var (
		ir *InvalidRangeError
		bi *BoundaryInconsistencyError
		ex *ExtractionError
		cl *CleanupError
		se *SourceError
	)
	switch {
	case errors.As(err, &ir):
		return "invalid_range"
	case errors.As(err, &bi):
		return "boundary_inconsistency"
	case errors.As(err, &ex):
		return "extraction"
	case errors.As(err, &cl):
		return "cleanup"
	case errors.As(err, &se):
		return "source"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed"
	}
	return "unknown"
}
