package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"no validated data", fmt.Errorf("commit: %w", ErrNoValidatedData), "IMP001"},
		{"missing course", ErrMissingCourse, "IMP002"},
		{"commit in progress", ErrCommitInProgress, "IMP003"},
		{"missing session", ErrMissingSession, "IMP004"},
		{"enrollment exhausted", fmt.Errorf("year 2026: %w", ErrEnrollmentExhausted), "IMP005"},
		{"duplicate student sentinel", fmt.Errorf("insert student: %w", ErrDuplicateStudent), "DB001"},
		{"duplicate key text", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"unique constraint text", errors.New("unique constraint violated"), "DB002"},
		{"foreign key", errors.New("violates foreign key constraint \"students_course_id_fkey\""), "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"timeout before deadline pattern", errors.New("context deadline exceeded (timeout)"), "DB006"},
		{"missing columns", &MissingColumnsError{Columns: []string{"dob"}}, "VAL001"},
		{"file too large", fmt.Errorf("11MB: %w", ErrFileTooLarge), "FILE001"},
		{"http body too large", errors.New("http: request body too large"), "FILE001"},
		{"parse error", &ParseError{Line: 3, Err: errors.New("bad quote")}, "FILE002"},
		{"no file", ErrNoFile, "FILE004"},
		{"empty file", ErrEmptyFile, "FILE005"},
		{"unsupported format", &UnsupportedFormatError{Extension: ".xlsx"}, "FILE006"},
		{"too many rows", ErrTooManyRows, "FILE007"},
		{"limiter busy", ErrTooManyImports, "UPL002"},
		{"cancelled", context.Canceled, "UPL004"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
		{"case insensitive matching", errors.New("DUPLICATE KEY value violates"), "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q (message %q)", got.Code, tt.wantCode, got.Message)
			}
		})
	}
}

func TestMapError_MissingColumnsNamesColumns(t *testing.T) {
	got := MapError(&MissingColumnsError{Columns: []string{"father_name", "dob"}})
	if want := "Missing required columns: father_name, dob"; got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoValidatedData)
	want := "There is no validated file to import (Code: IMP001). Validate a file before importing"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsInputError(&MissingColumnsError{Columns: []string{"dob"}}) {
		t.Error("MissingColumnsError should be an input error")
	}
	if !IsInputError(fmt.Errorf("wrap: %w", ErrTooManyRows)) {
		t.Error("ErrTooManyRows should be an input error")
	}
	if IsInputError(ErrNoValidatedData) {
		t.Error("ErrNoValidatedData should not be an input error")
	}
	if !IsStateError(ErrCommitInProgress) {
		t.Error("ErrCommitInProgress should be a state error")
	}
	if IsStateError(ErrEmptyFile) {
		t.Error("ErrEmptyFile should not be a state error")
	}
}
