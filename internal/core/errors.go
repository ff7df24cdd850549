package core

import (
	"errors"
	"fmt"
	"strings"
)

// Input errors. These abort a validate call before any row is processed.
var (
	ErrEmptyFile    = errors.New("empty file: no header line found")
	ErrNoFile       = errors.New("no file provided")
	ErrFileTooLarge = errors.New("file too large")
	ErrTooManyRows  = errors.New("too many rows")
)

// State errors. These abort a commit call before any row is processed.
var (
	ErrNoValidatedData  = errors.New("no validated data: validate a file before committing")
	ErrMissingCourse    = errors.New("missing course: a target course is required")
	ErrCommitInProgress = errors.New("commit already in progress for this session")
	ErrMissingSession   = errors.New("missing session id")
)

// Persistence errors. These fail a single row during commit.
var (
	// ErrDuplicateStudent is returned by stores when a unique index on the
	// student identity columns rejects an insert.
	ErrDuplicateStudent = errors.New("student already exists")

	// ErrEnrollmentExhausted is returned when no free enrollment number was
	// found within the allowed attempts, or the year's range is used up.
	ErrEnrollmentExhausted = errors.New("enrollment numbers exhausted")
)

// UnsupportedFormatError is returned for uploads whose extension has no parser.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return "unsupported file format: file has no extension"
	}
	return fmt.Sprintf("unsupported file format %q", e.Extension)
}

// MissingColumnsError lists required header names absent from an upload.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// ParseError is returned when the upload cannot be read as delimited text.
type ParseError struct {
	Line int // 0 when not tied to a line
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err describes a bad upload rather than a
// server-side failure.
func IsInputError(err error) bool {
	var (
		unsupported *UnsupportedFormatError
		missing     *MissingColumnsError
		parse       *ParseError
	)
	switch {
	case errors.As(err, &unsupported), errors.As(err, &missing), errors.As(err, &parse):
		return true
	case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrNoFile),
		errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrTooManyRows):
		return true
	}
	return false
}

// IsStateError reports whether err is a commit precondition failure.
func IsStateError(err error) bool {
	return errors.Is(err, ErrNoValidatedData) ||
		errors.Is(err, ErrMissingCourse) ||
		errors.Is(err, ErrCommitInProgress) ||
		errors.Is(err, ErrMissingSession)
}
