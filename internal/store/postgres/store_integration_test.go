package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/enrollment/internal/core"
)

// newTestStore connects to TEST_DATABASE_URL, applies the schema and empties
// the import tables. Tests are skipped when the variable is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE fee_ledger, students, import_logs, enrollment_sequences RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return New(pool)
}

func testStudent(number, email, phone, nationalID string) core.NewStudent {
	return core.NewStudent{
		EnrollmentNumber: number,
		Name:             "Asha Rao",
		FatherName:       "Ravi Rao",
		Email:            email,
		Phone:            phone,
		NationalID:       nationalID,
		DateOfBirth:      time.Date(2001, 5, 17, 0, 0, 0, 0, time.UTC),
		Gender:           core.GenderFemale,
		Education:        "B.Sc",
		Address:          "12 MG Road",
		CourseID:         7,
		CredentialHash:   "hash",
		Status:           core.StudentActive,
	}
}

func TestStore_InsertAndFindDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertStudent(ctx, testStudent("20250001", "Asha@Example.com", "9876500001", "123456700001"))
	require.NoError(t, err)
	require.Positive(t, id)

	tests := []struct {
		name string
		key  core.DuplicateKey
		want bool
	}{
		{"email differs only by case", core.DuplicateKey{Email: "asha@example.com"}, true},
		{"phone", core.DuplicateKey{Phone: "9876500001"}, true},
		{"national id", core.DuplicateKey{NationalID: "123456700001"}, true},
		{"unrelated", core.DuplicateKey{Email: "x@example.com", Phone: "9876500002", NationalID: "123456700002"}, false},
		{"empty key", core.DuplicateKey{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindDuplicate(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	keys := make([]core.DuplicateKey, len(tests))
	for i, tt := range tests {
		keys[i] = tt.key
	}
	batch, err := s.FindDuplicates(ctx, keys)
	require.NoError(t, err)
	for i, tt := range tests {
		assert.Equal(t, tt.want, batch[i], tt.name)
	}
}

func TestStore_UniqueViolationIsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertStudent(ctx, testStudent("20250001", "", "9876500001", "123456700001"))
	require.NoError(t, err)

	_, err = s.InsertStudent(ctx, testStudent("20250002", "", "9876500001", "123456700002"))
	assert.True(t, errors.Is(err, core.ErrDuplicateStudent), "got %v", err)
}

func TestStore_DeletedStudentsFreeIdentityButKeepNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st := testStudent("20250001", "a@example.com", "9876500001", "123456700001")
	st.Status = core.StudentDeleted
	_, err := s.InsertStudent(ctx, st)
	require.NoError(t, err)

	dup, err := s.FindDuplicate(ctx, core.DuplicateKey{Phone: "9876500001"})
	require.NoError(t, err)
	assert.False(t, dup)

	taken, err := s.ExistsEnrollmentNumber(ctx, "20250001")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestStore_InTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx core.Store) error {
		id, err := tx.InsertStudent(ctx, testStudent("20250001", "", "9876500001", "123456700001"))
		if err != nil {
			return err
		}
		if err := tx.InsertFeeEntry(ctx, core.FeeEntry{
			StudentID: id,
			Amount:    decimal.RequireFromString("500.00"),
			FeeType:   core.FeeTypeRegistration,
			DueDate:   time.Now().AddDate(0, 0, 30),
			Status:    core.FeePending,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	taken, err := s.ExistsEnrollmentNumber(ctx, "20250001")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestStore_NextEnrollmentSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	year := time.Now().Year()

	for i := 1; i <= 2; i++ {
		_, err := s.InsertStudent(ctx, testStudent(core.FormatEnrollmentNumber(year, i), "", fmt.Sprintf("98765%05d", i), fmt.Sprintf("1234567%05d", i)))
		require.NoError(t, err)
	}

	first, err := s.NextEnrollmentSequence(ctx, year)
	require.NoError(t, err)
	assert.Equal(t, 3, first)

	second, err := s.NextEnrollmentSequence(ctx, year)
	require.NoError(t, err)
	assert.Equal(t, 4, second)
}

func TestStore_ImportLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	batch := int64(3)

	for i := range 3 {
		_, err := s.InsertImportLog(ctx, core.ImportLogEntry{
			ImportID:       uuid.New(),
			ActorID:        42,
			FileName:       "students.csv",
			TotalRows:      10,
			SuccessCount:   10 - i,
			FailureCount:   i,
			TargetCourseID: 7,
			TargetBatchID:  &batch,
		})
		require.NoError(t, err)
	}

	logs, err := s.ListImportLogs(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 2, logs[0].FailureCount, "newest first")
	require.NotNil(t, logs[0].TargetBatchID)
	assert.Equal(t, batch, *logs[0].TargetBatchID)
	assert.Nil(t, logs[0].TargetTrainingCenterID)
	assert.NotEqual(t, uuid.Nil, logs[0].ImportID)

	rest, err := s.ListImportLogs(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
