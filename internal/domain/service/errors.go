package service

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable aborts a whole batch before any series is read.
	ErrCapabilityUnavailable = errors.New("estimation capability unavailable")
	// ErrSeriesNotFound means the requested column is not in the dataset.
	ErrSeriesNotFound = errors.New("series not found")
	// ErrSeriesMisaligned means a column holds more values than the index.
	ErrSeriesMisaligned = errors.New("series longer than index")
	// ErrMalformedResult means the engine claimed success with an unusable payload.
	ErrMalformedResult = errors.New("malformed estimation result")
	// ErrInvalidDataset rejects a dataset whose columns cannot be addressed.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrEstimationPanic wraps a recovered panic from a gateway call.
	ErrEstimationPanic = errors.New("estimation panicked")
)

// UnavailableError carries the startup reason; it matches ErrCapabilityUnavailable.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCapabilityUnavailable, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrCapabilityUnavailable }

// ExtractionError is a failure to turn a column into a series.
type ExtractionError struct {
	Name string
	Err  error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract %s: %v", e.Name, e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }

// EstimationError is the raised channel of a gateway call.
type EstimationError struct {
	Name string
	Err  error
}

func (e *EstimationError) Error() string { return fmt.Sprintf("estimate %s: %v", e.Name, e.Err) }
func (e *EstimationError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is, or wraps, ErrCapabilityUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrCapabilityUnavailable) }
