package extension

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an extension-subsystem error for handling and
// diagnostics. The classes mirror the failure taxonomy of the subsystem:
// nothing in it may abort host startup, so every class short of config
// degrades to a skipped manifest, a failed extension, or a fallback.
type ErrorClass string

const (
	// ErrorClassScan is a malformed or incomplete manifest found during
	// a directory scan. The offending directory is skipped and logged;
	// the scan continues.
	ErrorClassScan ErrorClass = "scan"

	// ErrorClassLoad is a fetch, parse, or execution failure for one
	// extension's code. The extension is marked failed; others load.
	ErrorClassLoad ErrorClass = "load"

	// ErrorClassConflict is a duplicate type identifier within one
	// registry. Resolved last-write-wins, logged, never fatal.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassResolution is a stored type identifier that does not
	// resolve to a registry entry. Rendered as a fallback, never thrown.
	ErrorClassResolution ErrorClass = "resolution"

	// ErrorClassConfig is a host-level misconfiguration, such as no
	// readable extension root at all. The only class surfaced as a
	// startup diagnostic.
	ErrorClassConfig ErrorClass = "config"
)

// HostError is a classified error with extension context.
type HostError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Extension is the extension ID involved, if applicable.
	Extension string `json:"extension,omitempty"`

	// Path is the file or directory that produced the error.
	Path string `json:"path,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *HostError) Error() string {
	switch {
	case e.Extension != "" && e.Path != "":
		return fmt.Sprintf("[%s] %s (extension=%s, path=%s)%s",
			e.Class, e.Message, e.Extension, e.Path, e.unwrapSuffix())
	case e.Extension != "":
		return fmt.Sprintf("[%s] %s (extension=%s)%s",
			e.Class, e.Message, e.Extension, e.unwrapSuffix())
	case e.Path != "":
		return fmt.Sprintf("[%s] %s (path=%s)%s",
			e.Class, e.Message, e.Path, e.unwrapSuffix())
	}
	return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
}

// Unwrap returns the underlying error for chain inspection.
func (e *HostError) Unwrap() error {
	return e.Err
}

func (e *HostError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality for errors.Is.
func (e *HostError) Is(target error) bool {
	t, ok := target.(*HostError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithExtension adds extension context to the error.
func (e *HostError) WithExtension(id string) *HostError {
	e.Extension = id
	return e
}

// WithPath adds path context to the error.
func (e *HostError) WithPath(path string) *HostError {
	e.Path = path
	return e
}

// WithCode adds an error code to the error.
func (e *HostError) WithCode(code string) *HostError {
	e.Code = code
	return e
}

// NewScanError creates a scan-classified error.
func NewScanError(message string, err error) *HostError {
	return &HostError{Class: ErrorClassScan, Message: message, Err: err}
}

// NewLoadError creates a load-classified error.
func NewLoadError(message string, err error) *HostError {
	return &HostError{Class: ErrorClassLoad, Message: message, Err: err}
}

// NewConflictError creates a conflict-classified error.
func NewConflictError(message string, err error) *HostError {
	return &HostError{Class: ErrorClassConflict, Message: message, Err: err}
}

// NewResolutionError creates a resolution-classified error.
func NewResolutionError(message string, err error) *HostError {
	return &HostError{Class: ErrorClassResolution, Message: message, Err: err}
}

// NewConfigError creates a config-classified error.
func NewConfigError(message string, err error) *HostError {
	return &HostError{Class: ErrorClassConfig, Message: message, Err: err}
}

// IsScan reports whether err is classified as a scan error.
func IsScan(err error) bool { return hasClass(err, ErrorClassScan) }

// IsLoad reports whether err is classified as a load error.
func IsLoad(err error) bool { return hasClass(err, ErrorClassLoad) }

// IsConflict reports whether err is classified as a conflict.
func IsConflict(err error) bool { return hasClass(err, ErrorClassConflict) }

// IsResolution reports whether err is classified as a resolution miss.
func IsResolution(err error) bool { return hasClass(err, ErrorClassResolution) }

// IsConfig reports whether err is classified as a host configuration error.
func IsConfig(err error) bool { return hasClass(err, ErrorClassConfig) }

func hasClass(err error, class ErrorClass) bool {
	var e *HostError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// Common error codes.
const (
	ErrCodeMissingField = "MISSING_FIELD"
	ErrCodeBadVersion   = "BAD_VERSION"
	ErrCodeBadID        = "BAD_ID"
	ErrCodeParse        = "PARSE_ERROR"
	ErrCodeBadPath      = "BAD_PATH"
	ErrCodeFetch        = "FETCH_ERROR"
	ErrCodeNoContract   = "NO_REGISTRATION_CONTRACT"
	ErrCodeBadUnit      = "BAD_UNIT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeNoRoots      = "NO_READABLE_ROOTS"
	ErrCodeUnknownKind  = "UNKNOWN_KIND"
)
