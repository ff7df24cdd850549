package core

import (
	"sync"
	"time"
)

// ValidationSession holds one validated upload between validate and commit.
// Verdicts is index-aligned with Rows.
type ValidationSession struct {
	ID           string
	FileName     string
	Rows         []UploadRow
	Verdicts     []RowVerdict
	ValidCount   int
	InvalidCount int
	DroppedLines []int
	Source       []byte // original upload, kept for archiving
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// DefaultSessionTTL is used when a SessionStore is built with a non-positive TTL.
const DefaultSessionTTL = 30 * time.Minute

// SessionStore keeps at most one ValidationSession per session id.
//
// Put replaces any earlier entry. Take removes the entry it returns, so a
// validated upload can be committed at most once. Expired entries are never
// returned and are purged by Sweep.
//
// The store also provides the per-session commit guard (BeginCommit).
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	entries  map[string]*ValidationSession
	inCommit map[string]struct{}
}

// NewSessionStore creates an empty store whose entries live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*ValidationSession),
		inCommit: make(map[string]struct{}),
	}
}

// Put stores s under s.ID, replacing any previous entry, and stamps its
// creation and expiry times.
func (st *SessionStore) Put(s *ValidationSession) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s.CreatedAt = st.now()
	s.ExpiresAt = s.CreatedAt.Add(st.ttl)
	st.entries[s.ID] = s
	sessionsHeld.Set(float64(len(st.entries)))
}

// Take removes and returns the live entry for id.
func (st *SessionStore) Take(id string) (*ValidationSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.entries[id]
	if !ok {
		return nil, false
	}
	delete(st.entries, id)
	sessionsHeld.Set(float64(len(st.entries)))
	if st.now().After(s.ExpiresAt) {
		return nil, false
	}
	return s, true
}

// Has reports whether a live entry exists for id without consuming it.
func (st *SessionStore) Has(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.entries[id]
	return ok && !st.now().After(s.ExpiresAt)
}

// Delete discards the entry for id, if any.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.entries, id)
	sessionsHeld.Set(float64(len(st.entries)))
}

// Sweep removes expired entries and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, s := range st.entries {
		if now.After(s.ExpiresAt) {
			delete(st.entries, id)
			removed++
		}
	}
	sessionsHeld.Set(float64(len(st.entries)))
	return removed
}

// Len returns the number of held entries, expired or not.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// BeginCommit marks a commit as running for id. It returns false when one is
// already running. On success the caller must call the returned release func.
func (st *SessionStore) BeginCommit(id string) (release func(), ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, busy := st.inCommit[id]; busy {
		return nil, false
	}
	st.inCommit[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			delete(st.inCommit, id)
			st.mu.Unlock()
		})
	}, true
}
