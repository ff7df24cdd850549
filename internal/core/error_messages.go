// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Errors raised by this package are matched by identity first (errors.Is and
// errors.As), then by message pattern for errors coming from the database
// driver or the network.
//
// # Import State Errors (IMP001-IMP099)
//
//	IMP001 - No validated data: Nothing to import for this session
//	         Action: Validate a file before importing
//	IMP002 - Missing course: No target course was selected
//	         Action: Select a course and try again
//	IMP003 - Commit in progress: This import is already being processed
//	         Action: Wait for the running import to finish
//	IMP004 - Missing session: The request carried no session
//	         Action: Sign in again
//	IMP005 - Enrollment numbers exhausted: No free enrollment number was found
//	         Action: Please try again or contact support
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate student: A student with the same email, phone or Aadhaar exists
//	        Action: Remove the row or correct the identity fields
//	        Patterns: ErrDuplicateStudent, "duplicate key"
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: Referenced course, batch or training center does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing column: Required columns are missing from the file
//	         Action: Download the template and compare the header line
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	FILE002 - Invalid CSV: File could not be read as delimited text
//	FILE003 - Encoding error: File contains invalid characters
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The uploaded file is empty
//	FILE006 - Unsupported format: Only .csv files are accepted
//	FILE007 - Too many rows: File has more rows than one import allows
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many imports in progress
//	UPL004 - Request cancelled: Request was cancelled
//	UPL005 - Request timeout: Request timed out
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application logs
// for the original technical error when users report ERR000.

package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessage maps a sentinel error to its user message.
type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrNoValidatedData, UserMessage{
		Message: "There is no validated file to import",
		Action:  "Validate a file before importing",
		Code:    "IMP001",
	}},
	{ErrMissingCourse, UserMessage{
		Message: "No target course was selected",
		Action:  "Select a course and try again",
		Code:    "IMP002",
	}},
	{ErrCommitInProgress, UserMessage{
		Message: "This import is already being processed",
		Action:  "Wait for the running import to finish",
		Code:    "IMP003",
	}},
	{ErrMissingSession, UserMessage{
		Message: "Your session could not be identified",
		Action:  "Sign in again",
		Code:    "IMP004",
	}},
	{ErrEnrollmentExhausted, UserMessage{
		Message: "No free enrollment number could be allocated",
		Action:  "Please try again or contact support",
		Code:    "IMP005",
	}},
	{ErrDuplicateStudent, UserMessage{
		Message: msgDuplicateStudent,
		Action:  "Remove the row or correct the identity fields",
		Code:    "DB001",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}},
	{ErrEmptyFile, UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header line and data rows",
		Code:    "FILE005",
	}},
	{ErrTooManyRows, UserMessage{
		Message: "The file has more rows than one import allows",
		Action:  "Split the file into smaller files",
		Code:    "FILE007",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: msgDuplicateStudent,
			Action:  "Remove the row or correct the identity fields",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced course, batch or training center does not exist",
			Action:  "Check the selected course and batch",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced course, batch or training center does not exist",
			Action:  "Check the selected course and batch",
			Code:    "DB003",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// File errors raised outside this package
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},

	// Request lifecycle
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try importing a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// Typed and sentinel errors of this package are matched first, then the
// error text is searched for known driver and network patterns.
//
// Example:
//
//	msg := MapError(fmt.Errorf("commit: %w", ErrNoValidatedData))
//	// msg.Code == "IMP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		unsupported *UnsupportedFormatError
		missing     *MissingColumnsError
		parse       *ParseError
	)
	switch {
	case errors.As(err, &unsupported):
		return UserMessage{
			Message: "Unsupported file format. Only .csv files are accepted",
			Action:  "Save the file as CSV and upload it again",
			Code:    "FILE006",
		}
	case errors.As(err, &missing):
		return UserMessage{
			Message: "Missing required columns: " + strings.Join(missing.Columns, ", "),
			Action:  "Download the template and compare the header line",
			Code:    "VAL001",
		}
	case errors.As(err, &parse):
		return UserMessage{
			Message: "File could not be read as CSV",
			Action:  "Ensure the file is comma-separated text",
			Code:    "FILE002",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
