package submission

import (
	"errors"
	"fmt"
)

// ErrInvalidSubmission marks problems detected before any remote call.
var ErrInvalidSubmission = errors.New("invalid submission")

// UploadError means the binary never reached the object store. No record
// was written.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// PersistError means the binary was stored but the record write failed.
// The object under OrphanKey is left in place.
type PersistError struct {
	ReportID  string
	OrphanKey string
	Err       error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting report %s failed (orphaned object %s): %v", e.ReportID, e.OrphanKey, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSubmission, fmt.Sprintf(format, args...))
}
