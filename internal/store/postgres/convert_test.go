package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPgText(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"", "", false},
		{"   ", "", false},
		{"a@example.com", "a@example.com", true},
		{"  padded  ", "padded", true},
	}
	for _, tt := range tests {
		got := toPgText(tt.in)
		assert.Equal(t, tt.valid, got.Valid, "toPgText(%q).Valid", tt.in)
		assert.Equal(t, tt.want, got.String, "toPgText(%q).String", tt.in)
		assert.Equal(t, tt.want, fromPgText(got))
	}
}

func TestToPgDate_DropsClock(t *testing.T) {
	in := time.Date(2025, 3, 14, 23, 59, 0, 0, time.FixedZone("IST", 5*3600+1800))
	got := toPgDate(in)
	require.True(t, got.Valid)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got.Time)

	assert.False(t, toPgDate(time.Time{}).Valid)
}

func TestToPgNumeric(t *testing.T) {
	tests := []string{"500.00", "0", "1234567890.12", "0.5"}
	for _, in := range tests {
		d := decimal.RequireFromString(in)
		n, err := toPgNumeric(d)
		require.NoError(t, err, in)
		require.True(t, n.Valid, in)
		assert.True(t, decimal.NewFromBigInt(n.Int, n.Exp).Equal(d), "round trip of %s", in)
	}
}

func TestToPgInt8(t *testing.T) {
	assert.False(t, toPgInt8(nil).Valid)
	assert.Nil(t, fromPgInt8(toPgInt8(nil)))

	v := int64(42)
	got := toPgInt8(&v)
	require.True(t, got.Valid)
	assert.Equal(t, int64(42), got.Int64)

	back := fromPgInt8(got)
	require.NotNil(t, back)
	assert.Equal(t, int64(42), *back)
}

func TestToPgUUID(t *testing.T) {
	assert.False(t, toPgUUID(uuid.Nil).Valid)

	id := uuid.New()
	got := toPgUUID(id)
	assert.True(t, got.Valid)
	assert.Equal(t, [16]byte(id), got.Bytes)
}
