package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field names of the import file header.
const (
	FieldName       = "name"
	FieldFatherName = "father_name"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldAadhaar    = "aadhaar"
	FieldDOB        = "dob"
	FieldGender     = "gender"
	FieldEducation  = "education"
	FieldAddress    = "address"
	FieldCourseCode = "course_code"
	FieldBatchName  = "batch_name"
)

// UploadRow is one data record of an import file, keyed by header name.
// Values are raw text; nothing is coerced before validation.
//
// Number is the record's position among accepted rows plus one for the
// header, so the first data row is row 2 however many physical lines
// quoted cells or blank lines take up. Line is where the record starts in
// the file.
type UploadRow struct {
	Number int
	Line   int
	Fields map[string]string // lowercased header name -> raw cell
}

// Get returns the trimmed value of a field, or "" when the column is absent.
func (r UploadRow) Get(field string) string {
	return strings.TrimSpace(r.Fields[field])
}

// RowVerdict is the validation result for one row.
type RowVerdict struct {
	RowNumber int      `json:"row_number" yaml:"row_number"`
	Messages  []string `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Valid reports whether the row passed every rule.
func (v RowVerdict) Valid() bool {
	return len(v.Messages) == 0
}

// Display formats the verdict as "Row N: msg, msg" for people to read.
// Never parse it back; use RowNumber and Messages.
func (v RowVerdict) Display() string {
	return fmt.Sprintf("Row %d: %s", v.RowNumber, strings.Join(v.Messages, ", "))
}

// Gender values accepted by the validator. Matching is case-sensitive.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// StudentStatus is the lifecycle state of a persisted student.
type StudentStatus string

const (
	StudentActive   StudentStatus = "active"
	StudentInactive StudentStatus = "inactive"
	StudentDeleted  StudentStatus = "deleted"
)

// FeeStatus is the payment state of a fee ledger entry.
type FeeStatus string

const (
	FeePending   FeeStatus = "pending"
	FeePaid      FeeStatus = "paid"
	FeeCancelled FeeStatus = "cancelled"
)

// FeeTypeRegistration is the fee created for every imported student.
const FeeTypeRegistration = "registration"

// NewStudent is a student record ready to insert.
type NewStudent struct {
	EnrollmentNumber string
	Name             string
	FatherName       string
	Email            string // empty stores NULL
	Phone            string
	NationalID       string
	DateOfBirth      time.Time
	Gender           Gender
	Education        string
	Address          string
	CourseID         int64
	BatchID          *int64
	TrainingCenterID *int64
	CredentialHash   string
	Status           StudentStatus
}

// FeeEntry is a fee ledger row owned by a student.
type FeeEntry struct {
	StudentID int64
	Amount    decimal.Decimal
	FeeType   string
	DueDate   time.Time
	Status    FeeStatus
}

// DuplicateKey carries the identity fields checked for uniqueness.
// Empty fields are ignored.
type DuplicateKey struct {
	Email      string
	Phone      string
	NationalID string
}

// Empty reports whether no identity field is set.
func (k DuplicateKey) Empty() bool {
	return k.Email == "" && k.Phone == "" && k.NationalID == ""
}

func duplicateKeyOf(row UploadRow) DuplicateKey {
	return DuplicateKey{
		Email:      row.Get(FieldEmail),
		Phone:      row.Get(FieldPhone),
		NationalID: row.Get(FieldAadhaar),
	}
}

// ImportLogEntry is the durable record of one commit run.
type ImportLogEntry struct {
	ID                     int64     `json:"id" yaml:"id"`
	ImportID               uuid.UUID `json:"import_id" yaml:"import_id"`
	ActorID                int64     `json:"actor_id" yaml:"actor_id"`
	FileName               string    `json:"file_name" yaml:"file_name"`
	TotalRows              int       `json:"total_rows" yaml:"total_rows"`
	SuccessCount           int       `json:"success_count" yaml:"success_count"`
	FailureCount           int       `json:"failure_count" yaml:"failure_count"`
	TargetCourseID         int64     `json:"target_course_id" yaml:"target_course_id"`
	TargetBatchID          *int64    `json:"target_batch_id,omitempty" yaml:"target_batch_id,omitempty"`
	TargetTrainingCenterID *int64    `json:"target_training_center_id,omitempty" yaml:"target_training_center_id,omitempty"`
	SourceObject           string    `json:"source_object,omitempty" yaml:"source_object,omitempty"`
	CreatedAt              time.Time `json:"created_at" yaml:"created_at"`
}

// CommitRequest selects the target of a commit run.
type CommitRequest struct {
	CourseID         int64
	BatchID          *int64
	TrainingCenterID *int64
	ActorID          int64
}

// RowResult is the commit outcome of one row.
type RowResult struct {
	RowNumber        int    `json:"row_number" yaml:"row_number"`
	Name             string `json:"name" yaml:"name"`
	EnrollmentNumber string `json:"enrollment_number,omitempty" yaml:"enrollment_number,omitempty"`
	Success          bool   `json:"success" yaml:"success"`
	Error            string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ImportOutcome summarizes a commit run.
// SuccessCount + FailureCount always equals the number of rows in the session.
type ImportOutcome struct {
	ImportID     uuid.UUID   `json:"import_id" yaml:"import_id"`
	SuccessCount int         `json:"success_count" yaml:"success_count"`
	FailureCount int         `json:"failure_count" yaml:"failure_count"`
	Details      []RowResult `json:"details" yaml:"details"`
	Warnings     []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ValidateResult is returned to the caller of ValidateFile.
type ValidateResult struct {
	TotalRecords   int                 `json:"total_records" yaml:"total_records"`
	ValidRecords   int                 `json:"valid_records" yaml:"valid_records"`
	InvalidRecords int                 `json:"invalid_records" yaml:"invalid_records"`
	ErrorMessages  []string            `json:"error_messages" yaml:"error_messages"`
	Verdicts       []RowVerdict        `json:"verdicts" yaml:"verdicts"`
	PreviewRows    []map[string]string `json:"preview_rows" yaml:"preview_rows"`
	DroppedLines   []int               `json:"dropped_lines,omitempty" yaml:"dropped_lines,omitempty"`
}

// MaxPreviewRows bounds ValidateResult.PreviewRows.
const MaxPreviewRows = 5
