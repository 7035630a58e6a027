package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/patchlib/internal/alloc"
)

// ErrExportBlocked is matched by errors.Is for exports refused because the
// session's allocation has an active alert or an invalid assignment.
var ErrExportBlocked = errors.New("export blocked")

// ExportError reports a failed export or session request.
type ExportError struct {
	// Code identifies the error category.
	Code ExportErrorCode

	// Message is a human-readable description.
	Message string

	// SessionID identifies the export session, when there is one.
	SessionID string

	// Alert is the allocation alert that blocked the export.
	Alert alloc.Alert

	// Err is the underlying cause.
	Err error
}

// ExportErrorCode categorizes export errors.
type ExportErrorCode string

const (
	// ErrCodeExportBlocked indicates the allocation is not exportable.
	ErrCodeExportBlocked ExportErrorCode = "EXPORT_BLOCKED"

	// ErrCodeExportFailed indicates the record source refused the writes.
	ErrCodeExportFailed ExportErrorCode = "EXPORT_FAILED"

	// ErrCodeUnknownCollection indicates a collection absent from the index.
	ErrCodeUnknownCollection ExportErrorCode = "UNKNOWN_COLLECTION"
)

// Error implements the error interface.
func (e *ExportError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.SessionID != "" {
		msg = fmt.Sprintf("%s (session=%s)", msg, e.SessionID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the cause. Blocked exports also match ErrExportBlocked.
func (e *ExportError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Code == ErrCodeExportBlocked {
		errs = append(errs, ErrExportBlocked)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsBlocked returns true if err is an export blocked by an alert or an
// invalid assignment.
func IsBlocked(err error) bool {
	return hasCode(err, ErrCodeExportBlocked)
}

// IsExportFailed returns true if the record source rejected the export.
func IsExportFailed(err error) bool {
	return hasCode(err, ErrCodeExportFailed)
}

// IsUnknownCollection returns true if err names a collection the index does
// not know.
func IsUnknownCollection(err error) bool {
	return hasCode(err, ErrCodeUnknownCollection)
}

func hasCode(err error, code ExportErrorCode) bool {
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func newBlockedError(sessionID string, alert alloc.Alert, cause error) *ExportError {
	msg := "allocation has conflicting destinations"
	if alert != alloc.AlertNone {
		msg = alert.Message()
	}
	return &ExportError{
		Code:      ErrCodeExportBlocked,
		Message:   msg,
		SessionID: sessionID,
		Alert:     alert,
		Err:       cause,
	}
}

func newUnknownCollectionError(sessionID string, id int64) *ExportError {
	return &ExportError{
		Code:      ErrCodeUnknownCollection,
		Message:   fmt.Sprintf("collection %d is not in the index", id),
		SessionID: sessionID,
	}
}
