package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Parser Benchmarks
// ============================================================================

func benchmarkFile(rows int) []byte {
	var b strings.Builder
	b.WriteString(testHeader + "\n")
	for i := 1; i <= rows; i++ {
		b.WriteString(studentLine(i))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// BenchmarkCSVParser_MaxRows parses a file at the default row limit.
func BenchmarkCSVParser_MaxRows(b *testing.B) {
	data := benchmarkFile(DefaultMaxRows)
	p := CSVParser{}

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSanitizeUTF8_Invalid measures the repair path for Latin-1 exports.
func BenchmarkSanitizeUTF8_Invalid(b *testing.B) {
	data := []byte(strings.Repeat("Jos\xe9 Garc\xeda,", 1000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sanitizeUTF8(data)
	}
}

// ============================================================================
// Validator Benchmarks
// ============================================================================

// BenchmarkValidate compares one duplicate query per row with batched
// lookups against an in-memory store.
func BenchmarkValidate(b *testing.B) {
	for _, n := range []int{100, 1000, DefaultMaxRows} {
		parsed, err := CSVParser{}.Parse(benchmarkFile(n))
		if err != nil {
			b.Fatal(err)
		}
		v := NewValidator(true)

		for _, tc := range []struct {
			name  string
			store Store
		}{
			{"per_row", newMemStore()},
			{"batched", &batchStore{memStore: newMemStore()}},
		} {
			b.Run(fmt.Sprintf("%s/%d", tc.name, n), func(b *testing.B) {
				ctx := context.Background()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := v.Validate(ctx, parsed.Rows, tc.store); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkFormatEnrollmentNumber is on the per-row commit path.
func BenchmarkFormatEnrollmentNumber(b *testing.B) {
	for i := 0; i < b.N; i++ {
		FormatEnrollmentNumber(2025, i%maxEnrollmentSeq+1)
	}
}
