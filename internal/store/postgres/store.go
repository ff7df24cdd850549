// Package postgres implements the import pipeline's Store on PostgreSQL
// using pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/enrollment/internal/core"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a core.Store backed by a pool or a single transaction.
type Store struct {
	db DBTX
}

var (
	_ core.Store                = (*Store)(nil)
	_ core.BatchDuplicateFinder = (*Store)(nil)
	_ core.EnrollmentSequencer  = (*Store)(nil)
	_ core.ImportLogLister      = (*Store)(nil)
)

// New returns a Store using db, typically a *pgxpool.Pool.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// InTx runs fn in a transaction. Calling InTx on a Store that is already
// bound to a transaction opens a savepoint.
func (s *Store) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) FindDuplicate(ctx context.Context, key core.DuplicateKey) (bool, error) {
	if key.Empty() {
		return false, nil
	}
	var exists bool
	err := s.db.QueryRow(ctx, findDuplicateSQL, key.Email, key.Phone, key.NationalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("find duplicate: %w", err)
	}
	return exists, nil
}

// FindDuplicates checks all keys in one query. The result is index-aligned
// with keys.
func (s *Store) FindDuplicates(ctx context.Context, keys []core.DuplicateKey) ([]bool, error) {
	found := make([]bool, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	emails := make([]string, len(keys))
	phones := make([]string, len(keys))
	ids := make([]string, len(keys))
	for i, k := range keys {
		emails[i], phones[i], ids[i] = k.Email, k.Phone, k.NationalID
	}

	rows, err := s.db.Query(ctx, findDuplicatesSQL, emails, phones, ids)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ord    int64
			exists bool
		)
		if err := rows.Scan(&ord, &exists); err != nil {
			return nil, fmt.Errorf("find duplicates: scan: %w", err)
		}
		if ord < 1 || int(ord) > len(found) {
			return nil, fmt.Errorf("find duplicates: ordinal %d out of range", ord)
		}
		found[ord-1] = exists
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	return found, nil
}

func (s *Store) CountCreatedInYear(ctx context.Context, year int) (int, error) {
	var n int64
	if err := s.db.QueryRow(ctx, countCreatedInYearSQL, year).Scan(&n); err != nil {
		return 0, fmt.Errorf("count students in %d: %w", year, err)
	}
	return int(n), nil
}

func (s *Store) ExistsEnrollmentNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, existsEnrollmentNumberSQL, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("check enrollment number: %w", err)
	}
	return exists, nil
}

// NextEnrollmentSequence bumps the per-year counter. Inside a transaction
// the counter row stays locked until commit, so concurrent imports serialize
// on it instead of racing on the same candidate.
func (s *Store) NextEnrollmentSequence(ctx context.Context, year int) (int, error) {
	var v int32
	if err := s.db.QueryRow(ctx, nextEnrollmentSequenceSQL, year).Scan(&v); err != nil {
		return 0, fmt.Errorf("next enrollment sequence for %d: %w", year, err)
	}
	return int(v), nil
}

func (s *Store) InsertStudent(ctx context.Context, st core.NewStudent) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, insertStudentSQL,
		st.EnrollmentNumber,
		st.Name,
		st.FatherName,
		toPgText(st.Email),
		st.Phone,
		st.NationalID,
		toPgDate(st.DateOfBirth),
		string(st.Gender),
		st.Education,
		st.Address,
		st.CourseID,
		toPgInt8(st.BatchID),
		toPgInt8(st.TrainingCenterID),
		st.CredentialHash,
		string(st.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert student: %w", mapWriteError(err))
	}
	return id, nil
}

func (s *Store) InsertFeeEntry(ctx context.Context, e core.FeeEntry) error {
	amount, err := toPgNumeric(e.Amount)
	if err != nil {
		return fmt.Errorf("insert fee entry: %w", err)
	}
	_, err = s.db.Exec(ctx, insertFeeEntrySQL,
		e.StudentID,
		amount,
		e.FeeType,
		toPgDate(e.DueDate),
		string(e.Status),
	)
	if err != nil {
		return fmt.Errorf("insert fee entry: %w", mapWriteError(err))
	}
	return nil
}

func (s *Store) InsertImportLog(ctx context.Context, e core.ImportLogEntry) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, insertImportLogSQL,
		toPgUUID(e.ImportID),
		e.ActorID,
		e.FileName,
		int32(e.TotalRows),
		int32(e.SuccessCount),
		int32(e.FailureCount),
		e.TargetCourseID,
		toPgInt8(e.TargetBatchID),
		toPgInt8(e.TargetTrainingCenterID),
		toPgText(e.SourceObject),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert import log: %w", err)
	}
	return id, nil
}

func (s *Store) ListImportLogs(ctx context.Context, limit, offset int) ([]core.ImportLogEntry, error) {
	rows, err := s.db.Query(ctx, listImportLogsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list import logs: %w", err)
	}
	defer rows.Close()

	var out []core.ImportLogEntry
	for rows.Next() {
		var (
			e                       core.ImportLogEntry
			importID                pgtype.UUID
			total, success, failure int32
			batchID, centerID       pgtype.Int8
			sourceObject            pgtype.Text
			createdAt               pgtype.Timestamptz
		)
		err := rows.Scan(
			&e.ID, &importID, &e.ActorID, &e.FileName,
			&total, &success, &failure,
			&e.TargetCourseID, &batchID, &centerID, &sourceObject, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list import logs: scan: %w", err)
		}
		e.ImportID = uuid.UUID(importID.Bytes)
		e.TotalRows, e.SuccessCount, e.FailureCount = int(total), int(success), int(failure)
		e.TargetBatchID = fromPgInt8(batchID)
		e.TargetTrainingCenterID = fromPgInt8(centerID)
		e.SourceObject = fromPgText(sourceObject)
		e.CreatedAt = createdAt.Time
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import logs: %w", err)
	}
	return out, nil
}
