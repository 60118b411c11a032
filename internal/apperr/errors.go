// Package apperr defines the error taxonomy shared by every noter package.
package apperr

import (
	"errors"
	"strings"
)

// Sentinel errors for known conditions.
var (
	// ErrConfigCorrupt indicates the persisted config record could not be parsed.
	ErrConfigCorrupt = errors.New("config corrupt")

	// ErrUnsupportedSchema indicates the config was written by a newer noter.
	ErrUnsupportedSchema = errors.New("unsupported config schema")

	// ErrInvalidConfig indicates the config parsed but failed validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnknownCourse indicates a course id with no entry in config.courses (strict mode only).
	ErrUnknownCourse = errors.New("unknown course")

	// ErrInvalidCourseID indicates a course id that cannot be used as a path segment.
	ErrInvalidCourseID = errors.New("invalid course id")

	// ErrVersionNotFound indicates no installed template package version could be resolved.
	ErrVersionNotFound = errors.New("template version not found")

	// ErrManifestCorrupt indicates a template package manifest exists but cannot be read.
	ErrManifestCorrupt = errors.New("template manifest corrupt")

	// ErrUnknownTemplateType indicates a document type with no skeleton.
	ErrUnknownTemplateType = errors.New("unknown template type")

	// ErrMissingRequiredToken indicates a skeleton token with no value and no default.
	ErrMissingRequiredToken = errors.New("missing required token")

	// ErrUnusedCustomField indicates a custom field no skeleton token consumes (strict field checking only).
	ErrUnusedCustomField = errors.New("unused custom field")

	// ErrIO wraps filesystem failures.
	ErrIO = errors.New("io error")

	// ErrFetch indicates a template package download failed.
	ErrFetch = errors.New("fetch failed")

	// ErrCompile indicates the typst binary is missing or rejected a document.
	ErrCompile = errors.New("typst compile failed")
)

// Error carries the operation, path and field an error is about.
type Error struct {
	// Kind is one of the sentinels above.
	Kind error

	// Op is the operation that was attempted, e.g. "load config".
	Op string

	// Path is the filesystem path involved (optional).
	Path string

	// Field is the config field or token involved (optional).
	Field string

	// Hint is actionable guidance for the user (optional).
	Hint string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.Field != "" {
		b.WriteString(" [")
		b.WriteString(e.Field)
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IO wraps a filesystem failure, always recording the attempted path.
func IO(op, path string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Path: path, Err: err}
}

// HintOf returns the first hint found in err's chain.
func HintOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}
