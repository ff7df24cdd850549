package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/enrollment/internal/core"
)

func TestMapWriteError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name          string
		err           error
		wantDuplicate bool
		wantContains  string
	}{
		{
			name:          "unique violation",
			err:           &pgconn.PgError{Code: "23505", ConstraintName: "students_phone_key"},
			wantDuplicate: true,
			wantContains:  "students_phone_key",
		},
		{
			name:          "wrapped unique violation",
			err:           fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "students_email_key"}),
			wantDuplicate: true,
			wantContains:  "students_email_key",
		},
		{
			name:         "foreign key violation",
			err:          &pgconn.PgError{Code: "23503", ConstraintName: "fee_ledger_student_id_fkey"},
			wantContains: "fee_ledger_student_id_fkey",
		},
		{
			name:         "not a postgres error",
			err:          plain,
			wantContains: "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapWriteError(tt.err)
			assert.Equal(t, tt.wantDuplicate, errors.Is(got, core.ErrDuplicateStudent))
			assert.Contains(t, got.Error(), tt.wantContains)
		})
	}
}

func TestMapWriteError_DuplicateMapsToUserMessage(t *testing.T) {
	err := mapWriteError(&pgconn.PgError{Code: "23505"})
	assert.Equal(t, "DB001", core.MapError(err).Code)
}
