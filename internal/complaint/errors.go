package complaint

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("invalid complaint")
	ErrDuplicateComplaint  = errors.New("complaint already exists for this location")
	ErrNotFound            = errors.New("complaint not found")
	ErrSegmentationFailed  = errors.New("segmentation failed")
	ErrSegmentationTimeout = errors.New("segmentation timed out")
)

// ValidationError names the request field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateError carries the open complaint that blocked a submission.
type DuplicateError struct {
	ExistingID     string
	DistanceMeters float64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %.1f m from %s", ErrDuplicateComplaint, e.DistanceMeters, e.ExistingID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateComplaint }
