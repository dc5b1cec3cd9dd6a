package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCancelled    ErrorCode = "CANCELLED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Fetch errors
	ErrNetwork          ErrorCode = "NETWORK"
	ErrChecksumMismatch ErrorCode = "CHECKSUM_MISMATCH"
	ErrNotFound         ErrorCode = "NOT_FOUND"

	// Installation errors
	ErrAlreadyInstalled   ErrorCode = "ALREADY_INSTALLED"
	ErrFormulaNotFound    ErrorCode = "FORMULA_NOT_FOUND"
	ErrExtractionFailed   ErrorCode = "EXTRACTION_FAILED"
	ErrSymlinkFailed      ErrorCode = "SYMLINK_FAILED"
	ErrInstallationFailed ErrorCode = "INSTALLATION_FAILED"
	ErrRepairFailed       ErrorCode = "REPAIR_FAILED"

	// FileSystem errors
	ErrPermission ErrorCode = "PERMISSION"
	ErrIO         ErrorCode = "IO"

	// Cache errors
	ErrCache ErrorCode = "CACHE"
)

// KegsError represents a structured error with code and details
type KegsError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *KegsError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *KegsError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *KegsError) Is(target error) bool {
	var targetErr *KegsError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new KegsError with the given code and message
func New(code ErrorCode, message string) *KegsError {
	return &KegsError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new KegsError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *KegsError {
	return &KegsError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a KegsError
func Wrap(err error, code ErrorCode, message string) *KegsError {
	if err == nil {
		return nil
	}
	return &KegsError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *KegsError {
	if err == nil {
		return nil
	}
	return &KegsError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *KegsError) WithDetail(key string, value interface{}) *KegsError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *KegsError) WithDetails(details map[string]interface{}) *KegsError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var kegsErr *KegsError
	if errors.As(err, &kegsErr) {
		return kegsErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a KegsError
func GetErrorCode(err error) ErrorCode {
	var kegsErr *KegsError
	if errors.As(err, &kegsErr) {
		return kegsErr.Code
	}
	return ErrUnknown
}

// IsKegsError reports whether err is or wraps a KegsError
func IsKegsError(err error) bool {
	var kegsErr *KegsError
	return errors.As(err, &kegsErr)
}

// GetErrorDetails returns the details from an error, or nil if not a KegsError
func GetErrorDetails(err error) map[string]interface{} {
	var kegsErr *KegsError
	if errors.As(err, &kegsErr) {
		return kegsErr.Details
	}
	return nil
}

// ChecksumMismatch reports an integrity failure for a fetched file.
func ChecksumMismatch(expected, actual string) *KegsError {
	return Newf(ErrChecksumMismatch, "checksum mismatch: expected %s, got %s", expected, actual).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// NotFound reports a missing remote source or local path.
func NotFound(location string) *KegsError {
	return Newf(ErrNotFound, "not found: %s", location).WithDetail("location", location)
}

// Network wraps a transport-level failure.
func Network(err error, url string) *KegsError {
	return Wrapf(err, ErrNetwork, "transfer of %s failed", url).WithDetail("url", url)
}

// AlreadyInstalled reports that the versioned directory already exists.
func AlreadyInstalled(name, version string) *KegsError {
	return Newf(ErrAlreadyInstalled, "%s %s is already installed", name, version).
		WithDetail("name", name).
		WithDetail("version", version)
}

// FormulaNotFound reports that no installed version of name exists.
func FormulaNotFound(name string) *KegsError {
	return Newf(ErrFormulaNotFound, "%s is not installed", name).WithDetail("name", name)
}

// ExtractionFailed wraps an archive extraction failure.
func ExtractionFailed(err error, reason string) *KegsError {
	if err == nil {
		return New(ErrExtractionFailed, reason).WithDetail("reason", reason)
	}
	return Wrap(err, ErrExtractionFailed, reason).WithDetail("reason", reason)
}

// SymlinkFailed wraps a failure to create or replace a link.
func SymlinkFailed(err error, from, to string) *KegsError {
	return Wrapf(err, ErrSymlinkFailed, "cannot link %s -> %s", from, to).
		WithDetail("from", from).
		WithDetail("to", to)
}

// InstallationFailed is the catch-all terminal install failure.
func InstallationFailed(err error, name, reason string) *KegsError {
	e := Newf(ErrInstallationFailed, "installation of %s failed: %s", name, reason)
	e.Wrapped = err
	return e.WithDetail("name", name).WithDetail("reason", reason)
}

// InsufficientPermissions reports a path the current user cannot modify.
func InsufficientPermissions(err error, path string) *KegsError {
	return Wrapf(err, ErrPermission, "insufficient permissions for %s", path).WithDetail("path", path)
}

// Cancelled wraps a context cancellation or deadline.
func Cancelled(err error, operation string) *KegsError {
	return Wrapf(err, ErrCancelled, "%s cancelled", operation).WithDetail("operation", operation)
}

// FromFS classifies a filesystem error. Existing KegsErrors pass through
// unchanged, permission and not-exist errors get their own codes and
// everything else becomes ErrIO.
func FromFS(err error, path string) error {
	if err == nil {
		return nil
	}
	if IsKegsError(err) {
		return err
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return InsufficientPermissions(err, path)
	case errors.Is(err, fs.ErrNotExist):
		return Wrapf(err, ErrNotFound, "not found: %s", path).WithDetail("location", path)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Cancelled(err, "filesystem operation")
	default:
		return Wrapf(err, ErrIO, "i/o error on %s", path).WithDetail("path", path)
	}
}

// ExitCode maps an error to a process exit status for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetErrorCode(err) {
	case ErrInvalidInput, ErrConfigLoad, ErrConfigParse, ErrConfigValid:
		return 2
	case ErrNetwork:
		return 3
	case ErrChecksumMismatch:
		return 4
	case ErrNotFound, ErrFormulaNotFound:
		return 5
	case ErrAlreadyInstalled:
		return 6
	case ErrPermission:
		return 77
	case ErrCancelled:
		return 130
	default:
		return 1
	}
}
