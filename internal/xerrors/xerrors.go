// Package xerrors defines the error kinds the core raises, each as a
// distinct type so callers can use errors.As to recover structured
// detail instead of parsing messages.
package xerrors

import "fmt"

// InvalidParametersError reports a TransitionParameters or job
// submission payload that failed static validation.
type InvalidParametersError struct {
	Field   string
	Reason  string
	Value   any
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid parameters: %s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// NewInvalidParameters constructs an InvalidParametersError.
func NewInvalidParameters(field, reason string, value any) error {
	return &InvalidParametersError{Field: field, Reason: reason, Value: value}
}

// StemsUnavailableError reports that a song's separated stems could
// not be located or were incomplete and the caller disallowed the
// whole-mixdown fallback.
type StemsUnavailableError struct {
	SongID string
	Reason string
}

func (e *StemsUnavailableError) Error() string {
	return fmt.Sprintf("stems unavailable for song %s: %s", e.SongID, e.Reason)
}

// SampleRateMismatchError reports that a concat or mix step received
// buffers at different sample rates.
type SampleRateMismatchError struct {
	Expected int
	Got      int
}

func (e *SampleRateMismatchError) Error() string {
	return fmt.Sprintf("sample rate mismatch: expected %d, got %d", e.Expected, e.Got)
}

// SourceMissingError reports that audio or lyrics could not be found
// at a referenced path or URL.
type SourceMissingError struct {
	Path string
}

func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("source missing: %s", e.Path)
}

// StoreError wraps a durable-store write failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DriverKind identifies which external driver produced a DriverError.
type DriverKind string

const (
	DriverAnalyzer DriverKind = "analyzer"
	DriverAligner  DriverKind = "aligner"
	DriverObjectStore DriverKind = "object_store"
)

// DriverError wraps an analyzer, aligner, or object-store adapter
// failure, preserving the driver's own message.
type DriverError struct {
	Kind DriverKind
	Err  error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s driver error: %v", e.Kind, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// TimeoutError reports a scheduler-imposed per-job timeout.
type TimeoutError struct {
	JobID   string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s timed out after %s", e.JobID, e.Timeout)
}
