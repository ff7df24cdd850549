package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// memStore is an in-memory Store used by the package tests. InTx snapshots
// the state and restores it when fn fails.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	students []memStudent
	fees     []FeeEntry
	logs     []ImportLogEntry
	taken    map[string]bool // enrollment numbers reserved outside students

	findCalls   int
	countCalls  int
	existsCalls int

	// Failure and timing hooks.
	beforeInsertStudent func(NewStudent)
	failFeeFor          string // student name whose fee insert fails
	failLog             error
}

type memStudent struct {
	NewStudent
	ID        int64
	CreatedAt time.Time
}

func newMemStore() *memStore {
	return &memStore{taken: make(map[string]bool)}
}

// seed adds an existing student created now.
func (m *memStore) seed(s NewStudent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if s.Status == "" {
		s.Status = StudentActive
	}
	m.students = append(m.students, memStudent{NewStudent: s, ID: m.nextID, CreatedAt: time.Now()})
}

func (m *memStore) matches(s memStudent, key DuplicateKey) bool {
	if s.Status == StudentDeleted {
		return false
	}
	return (key.Email != "" && strings.EqualFold(s.Email, key.Email)) ||
		(key.Phone != "" && s.Phone == key.Phone) ||
		(key.NationalID != "" && s.NationalID == key.NationalID)
}

func (m *memStore) FindDuplicate(ctx context.Context, key DuplicateKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	for _, s := range m.students {
		if m.matches(s, key) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountCreatedInYear(ctx context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	n := 0
	for _, s := range m.students {
		if s.Status != StudentDeleted && s.CreatedAt.Year() == year {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ExistsEnrollmentNumber(ctx context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	if m.taken[number] {
		return true, nil
	}
	for _, s := range m.students {
		if s.EnrollmentNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertStudent(ctx context.Context, s NewStudent) (int64, error) {
	if m.beforeInsertStudent != nil {
		m.beforeInsertStudent(s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := DuplicateKey{Email: s.Email, Phone: s.Phone, NationalID: s.NationalID}
	for _, existing := range m.students {
		if m.matches(existing, key) || existing.EnrollmentNumber == s.EnrollmentNumber {
			return 0, ErrDuplicateStudent
		}
	}
	m.nextID++
	m.students = append(m.students, memStudent{NewStudent: s, ID: m.nextID, CreatedAt: time.Now()})
	return m.nextID, nil
}

func (m *memStore) InsertFeeEntry(ctx context.Context, e FeeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.ID == e.StudentID && m.failFeeFor != "" && s.Name == m.failFeeFor {
			return errors.New("fee_ledger insert failed: connection reset by peer")
		}
	}
	m.fees = append(m.fees, e)
	return nil
}

func (m *memStore) InsertImportLog(ctx context.Context, e ImportLogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLog != nil {
		return 0, m.failLog
	}
	e.ID = int64(len(m.logs) + 1)
	e.CreatedAt = time.Now()
	m.logs = append(m.logs, e)
	return e.ID, nil
}

func (m *memStore) ListImportLogs(ctx context.Context, limit, offset int) ([]ImportLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ImportLogEntry
	for i := len(m.logs) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	students := append([]memStudent(nil), m.students...)
	fees := append([]FeeEntry(nil), m.fees...)
	nextID := m.nextID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.students, m.fees, m.nextID = students, fees, nextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) studentByName(name string) (memStudent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.Name == name {
			return s, true
		}
	}
	return memStudent{}, false
}

// batchStore adds set-based duplicate lookup to memStore.
type batchStore struct {
	*memStore
	batchCalls int
	batchSizes []int
}

func (b *batchStore) FindDuplicates(ctx context.Context, keys []DuplicateKey) ([]bool, error) {
	b.mu.Lock()
	b.batchCalls++
	b.batchSizes = append(b.batchSizes, len(keys))
	b.mu.Unlock()

	out := make([]bool, len(keys))
	for i, k := range keys {
		b.mu.Lock()
		for _, s := range b.students {
			if b.matches(s, k) {
				out[i] = true
				break
			}
		}
		b.mu.Unlock()
	}
	return out, nil
}

// seqStore adds an atomic per-year counter to memStore.
type seqStore struct {
	*memStore
	next map[int]int
}

func (s *seqStore) NextEnrollmentSequence(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = make(map[int]int)
	}
	s.next[year]++
	return s.next[year], nil
}

func (s *seqStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.memStore.InTx(ctx, func(Store) error { return fn(s) })
}
