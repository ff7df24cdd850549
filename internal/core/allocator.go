package core

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Enrollment numbers are "{year}{seq:04d}".
const (
	maxEnrollmentSeq      = 9999
	enrollmentRetrySpread = 100
	DefaultAllocatorTries = 5
)

// FormatEnrollmentNumber renders the external enrollment number.
func FormatEnrollmentNumber(year, seq int) string {
	return fmt.Sprintf("%d%04d", year, seq)
}

// Allocator issues enrollment numbers. It is called once per committed row,
// inside that row's transaction, so a rolled back row does not consume a
// sequence value on stores that implement EnrollmentSequencer.
type Allocator struct {
	maxAttempts int
	jitter      func(n int) int // returns a value in [0, n)
}

// NewAllocator creates an Allocator that gives up after maxAttempts taken
// candidates.
func NewAllocator(maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultAllocatorTries
	}
	return &Allocator{maxAttempts: maxAttempts, jitter: rand.IntN}
}

// Allocate returns a free enrollment number for year.
//
// The base sequence comes from the store's atomic counter when available,
// otherwise from the count of students created in year plus one. A taken
// candidate is retried at base plus a random offset in 1..100. Running out
// of attempts, or a sequence above 9999, yields ErrEnrollmentExhausted.
func (a *Allocator) Allocate(ctx context.Context, store Store, year int) (string, error) {
	base, err := baseSequence(ctx, store, year)
	if err != nil {
		return "", err
	}

	seq := base
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			seq = base + 1 + a.jitter(enrollmentRetrySpread)
		}
		if seq > maxEnrollmentSeq {
			return "", fmt.Errorf("year %d: sequence %d out of range: %w", year, seq, ErrEnrollmentExhausted)
		}

		number := FormatEnrollmentNumber(year, seq)
		taken, err := store.ExistsEnrollmentNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check enrollment number %s: %w", number, err)
		}
		if !taken {
			return number, nil
		}
		allocatorRetries.Inc()
	}
	return "", fmt.Errorf("year %d: %d candidates taken: %w", year, a.maxAttempts, ErrEnrollmentExhausted)
}

func baseSequence(ctx context.Context, store Store, year int) (int, error) {
	if seq, ok := store.(EnrollmentSequencer); ok {
		n, err := seq.NextEnrollmentSequence(ctx, year)
		if err != nil {
			return 0, fmt.Errorf("next enrollment sequence: %w", err)
		}
		return n, nil
	}
	n, err := store.CountCreatedInYear(ctx, year)
	if err != nil {
		return 0, fmt.Errorf("count students created in %d: %w", year, err)
	}
	return n + 1, nil
}
