package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/enrollment/internal/logging"
)

// FeePolicy describes the registration fee created for each new student.
type FeePolicy struct {
	Amount  decimal.Decimal
	DueDays int
}

// DefaultFeePolicy is 500.00 due in 30 days.
var DefaultFeePolicy = FeePolicy{Amount: decimal.RequireFromString("500.00"), DueDays: 30}

// Archiver stores a copy of a committed upload and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, importID uuid.UUID, fileName string, data []byte) (string, error)
}

// Committer persists validated rows.
type Committer struct {
	store      Store
	allocator  *Allocator
	fee        FeePolicy
	bcryptCost int
	archiver   Archiver
	now        func() time.Time
}

// CommitterOption customizes a Committer.
type CommitterOption func(*Committer)

// WithArchiver stores each committed source file through a.
func WithArchiver(a Archiver) CommitterOption {
	return func(c *Committer) { c.archiver = a }
}

// WithClock overrides the time source used for enrollment years and due dates.
func WithClock(now func() time.Time) CommitterOption {
	return func(c *Committer) { c.now = now }
}

// NewCommitter creates a Committer writing to store.
func NewCommitter(store Store, allocator *Allocator, fee FeePolicy, bcryptCost int, opts ...CommitterOption) *Committer {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	c := &Committer{
		store:      store,
		allocator:  allocator,
		fee:        fee,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commit writes every valid row of sess to the target course.
//
// Invalid rows are counted as failures without touching the store. Each
// valid row runs in its own transaction; a failing row is rolled back and
// reported while the rest of the batch continues. One import log entry is
// written at the end. If that write fails the row results still stand and
// the failure is returned as a warning.
func (c *Committer) Commit(ctx context.Context, sess *ValidationSession, req CommitRequest) *ImportOutcome {
	start := c.now()
	out := &ImportOutcome{
		ImportID: uuid.New(),
		Details:  make([]RowResult, 0, len(sess.Rows)),
	}
	logger := logging.WithFields(ctx, "import_id", out.ImportID, "session_id", sess.ID, "actor_id", req.ActorID)
	logger.Info("commit started", "rows", len(sess.Rows), "valid", sess.ValidCount, "course_id", req.CourseID)

	for i, row := range sess.Rows {
		verdict := sess.Verdicts[i]
		name := row.Get(FieldName)

		if !verdict.Valid() {
			out.FailureCount++
			out.Details = append(out.Details, RowResult{
				RowNumber: verdict.RowNumber,
				Name:      name,
				Error:     strings.Join(verdict.Messages, ", "),
			})
			rowsCommitted.WithLabelValues("failure").Inc()
			continue
		}

		number, err := c.commitRow(ctx, row, req)
		if err != nil {
			logger.Warn("row commit failed", "row", verdict.RowNumber, "error", err)
			out.FailureCount++
			out.Details = append(out.Details, RowResult{
				RowNumber: verdict.RowNumber,
				Name:      name,
				Error:     rowErrorMessage(err),
			})
			rowsCommitted.WithLabelValues("failure").Inc()
			continue
		}

		out.SuccessCount++
		out.Details = append(out.Details, RowResult{
			RowNumber:        verdict.RowNumber,
			Name:             name,
			EnrollmentNumber: number,
			Success:          true,
		})
		rowsCommitted.WithLabelValues("success").Inc()
	}

	entry := ImportLogEntry{
		ImportID:               out.ImportID,
		ActorID:                req.ActorID,
		FileName:               sess.FileName,
		TotalRows:              len(sess.Rows),
		SuccessCount:           out.SuccessCount,
		FailureCount:           out.FailureCount,
		TargetCourseID:         req.CourseID,
		TargetBatchID:          req.BatchID,
		TargetTrainingCenterID: req.TrainingCenterID,
	}

	if c.archiver != nil && len(sess.Source) > 0 {
		key, err := c.archiver.Archive(ctx, out.ImportID, sess.FileName, sess.Source)
		if err != nil {
			logger.Warn("source file archive failed", "error", err)
			out.Warnings = append(out.Warnings, "source file was not archived")
		} else {
			entry.SourceObject = key
		}
	}

	if _, err := c.store.InsertImportLog(ctx, entry); err != nil {
		logger.Error("import log write failed", "error", err)
		out.Warnings = append(out.Warnings, "import log could not be written")
	}

	commitDuration.Observe(time.Since(start).Seconds())
	logger.Info("commit completed",
		"success", out.SuccessCount,
		"failure", out.FailureCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// commitRow allocates, inserts the student and its registration fee in one
// transaction, and returns the enrollment number.
func (c *Committer) commitRow(ctx context.Context, row UploadRow, req CommitRequest) (string, error) {
	student, err := c.buildStudent(row, req)
	if err != nil {
		return "", err
	}

	now := c.now()
	var number string
	err = c.store.InTx(ctx, func(tx Store) error {
		n, err := c.allocator.Allocate(ctx, tx, now.Year())
		if err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(n), c.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash initial credential: %w", err)
		}
		student.EnrollmentNumber = n
		student.CredentialHash = string(hash)

		id, err := tx.InsertStudent(ctx, student)
		if err != nil {
			return fmt.Errorf("insert student: %w", err)
		}

		fee := FeeEntry{
			StudentID: id,
			Amount:    c.fee.Amount,
			FeeType:   FeeTypeRegistration,
			DueDate:   now.AddDate(0, 0, c.fee.DueDays),
			Status:    FeePending,
		}
		if err := tx.InsertFeeEntry(ctx, fee); err != nil {
			return fmt.Errorf("insert registration fee: %w", err)
		}

		number = n
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

func (c *Committer) buildStudent(row UploadRow, req CommitRequest) (NewStudent, error) {
	dob, err := time.Parse(DateLayout, row.Get(FieldDOB))
	if err != nil {
		return NewStudent{}, fmt.Errorf("parse date of birth: %w", err)
	}
	return NewStudent{
		Name:             row.Get(FieldName),
		FatherName:       row.Get(FieldFatherName),
		Email:            row.Get(FieldEmail),
		Phone:            row.Get(FieldPhone),
		NationalID:       row.Get(FieldAadhaar),
		DateOfBirth:      dob,
		Gender:           Gender(row.Get(FieldGender)),
		Education:        row.Get(FieldEducation),
		Address:          row.Get(FieldAddress),
		CourseID:         req.CourseID,
		BatchID:          req.BatchID,
		TrainingCenterID: req.TrainingCenterID,
		Status:           StudentActive,
	}, nil
}

// rowErrorMessage renders a per-row persistence failure for the outcome report.
func rowErrorMessage(err error) string {
	if errors.Is(err, ErrDuplicateStudent) {
		return msgDuplicateStudent
	}
	msg := MapError(err)
	return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
}
