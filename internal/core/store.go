package core

import "context"

// Store is the persistence collaborator of the import pipeline.
// Implementations must consider only non-deleted students.
type Store interface {
	// FindDuplicate reports whether a student shares any non-empty field of key.
	FindDuplicate(ctx context.Context, key DuplicateKey) (bool, error)

	// CountCreatedInYear counts students created in the given calendar year.
	CountCreatedInYear(ctx context.Context, year int) (int, error)

	// ExistsEnrollmentNumber reports whether the enrollment number is taken.
	ExistsEnrollmentNumber(ctx context.Context, number string) (bool, error)

	// InsertStudent stores a student and returns its id. A unique index
	// violation must be reported as ErrDuplicateStudent.
	InsertStudent(ctx context.Context, s NewStudent) (int64, error)

	InsertFeeEntry(ctx context.Context, e FeeEntry) error

	InsertImportLog(ctx context.Context, e ImportLogEntry) (int64, error)

	// InTx runs fn against a Store bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// BatchDuplicateFinder is implemented by stores that can check many keys in
// one round trip. The result is index-aligned with keys.
type BatchDuplicateFinder interface {
	FindDuplicates(ctx context.Context, keys []DuplicateKey) ([]bool, error)
}

// EnrollmentSequencer is implemented by stores with an atomic per-year counter.
// NextEnrollmentSequence returns the next value for year; the first call for
// a year starts after the count of students already created in it.
type EnrollmentSequencer interface {
	NextEnrollmentSequence(ctx context.Context, year int) (int, error)
}

// ImportLogLister is implemented by stores that can list past imports,
// newest first.
type ImportLogLister interface {
	ListImportLogs(ctx context.Context, limit, offset int) ([]ImportLogEntry, error)
}
