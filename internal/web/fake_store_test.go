package web

import (
	"context"
	"strings"
	"sync"

	"github.com/JonMunkholm/enrollment/internal/core"
)

// fakeStore is an in-memory core.Store that also lists import logs.
type fakeStore struct {
	mu       sync.Mutex
	students []core.NewStudent
	fees     []core.FeeEntry
	logs     []core.ImportLogEntry
}

func (f *fakeStore) FindDuplicate(_ context.Context, key core.DuplicateKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.students {
		if (key.Email != "" && strings.EqualFold(s.Email, key.Email)) ||
			(key.Phone != "" && s.Phone == key.Phone) ||
			(key.NationalID != "" && s.NationalID == key.NationalID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CountCreatedInYear(context.Context, int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.students), nil
}

func (f *fakeStore) ExistsEnrollmentNumber(_ context.Context, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.students {
		if s.EnrollmentNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertStudent(_ context.Context, s core.NewStudent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students = append(f.students, s)
	return int64(len(f.students)), nil
}

func (f *fakeStore) InsertFeeEntry(_ context.Context, e core.FeeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fees = append(f.fees, e)
	return nil
}

func (f *fakeStore) InsertImportLog(_ context.Context, e core.ImportLogEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, e)
	return e.ID, nil
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	return fn(f)
}

func (f *fakeStore) ListImportLogs(_ context.Context, limit, offset int) ([]core.ImportLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ImportLogEntry
	for i := len(f.logs) - 1; i >= 0; i-- {
		out = append(out, f.logs[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	return out[:min(limit, len(out))], nil
}
