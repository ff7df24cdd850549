package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/enrollment/internal/logging"
)

// Options configures a Service. Zero values fall back to defaults; a zero
// Fee means DefaultFeePolicy.
type Options struct {
	MaxFileSize          int64
	MaxRows              int
	MaxConcurrent        int
	MaxWaitTime          time.Duration
	CommitTimeout        time.Duration
	SessionTTL           time.Duration
	AllocatorMaxAttempts int
	IntraBatchDuplicates bool
	AcceptXLSX           bool
	BcryptCost           int
	Fee                  FeePolicy
	Archiver             Archiver
}

// Defaults for Options.
const (
	DefaultMaxFileSize   = 10 << 20
	DefaultMaxRows       = 5000
	DefaultCommitTimeout = 10 * time.Minute
)

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:          DefaultMaxFileSize,
		MaxRows:              DefaultMaxRows,
		MaxConcurrent:        DefaultMaxConcurrentImports,
		MaxWaitTime:          DefaultMaxWaitTime,
		CommitTimeout:        DefaultCommitTimeout,
		SessionTTL:           DefaultSessionTTL,
		AllocatorMaxAttempts: DefaultAllocatorTries,
		IntraBatchDuplicates: true,
		Fee:                  DefaultFeePolicy,
	}
}

// ErrHistoryUnsupported is returned by ImportHistory when the store cannot
// list import logs.
var ErrHistoryUnsupported = errors.New("import history is not supported by this store")

// History paging bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Service is the entry point of the import pipeline.
type Service struct {
	store     Store
	opts      Options
	parsers   Parsers
	validator *Validator
	committer *Committer
	sessions  *SessionStore
	limiter   *ImportLimiter
}

// NewService creates a Service backed by store.
func NewService(store Store, opts Options) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = DefaultCommitTimeout
	}
	if opts.Fee.Amount.Equal(decimal.Zero) && opts.Fee.DueDays == 0 {
		opts.Fee = DefaultFeePolicy
	}

	parsers := DefaultParsers()
	if opts.AcceptXLSX {
		parsers[".xlsx"] = XLSXParser{}
	}

	var committerOpts []CommitterOption
	if opts.Archiver != nil {
		committerOpts = append(committerOpts, WithArchiver(opts.Archiver))
	}

	return &Service{
		store:     store,
		opts:      opts,
		parsers:   parsers,
		validator: NewValidator(opts.IntraBatchDuplicates),
		committer: NewCommitter(store, NewAllocator(opts.AllocatorMaxAttempts), opts.Fee, opts.BcryptCost, committerOpts...),
		sessions:  NewSessionStore(opts.SessionTTL),
		limiter:   NewImportLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
	}
}

// Limiter exposes the concurrency limiter for health checks and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// MaxFileSize is the largest accepted upload in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.opts.MaxFileSize
}

// ValidateFile parses and validates an upload and holds the result for
// sessionID until commit, replacing anything held before. When the upload
// itself is rejected, any previously held result is discarded too.
func (s *Service) ValidateFile(ctx context.Context, sessionID string, raw []byte, filename string) (*ValidateResult, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	logger := logging.ForImport(ctx, "validate", sessionID, "")

	res, sess, err := s.validateFile(ctx, sessionID, raw, filename)
	if err != nil {
		if IsInputError(err) {
			s.sessions.Delete(sessionID)
			filesValidated.WithLabelValues("rejected").Inc()
			logger.Info("upload rejected", "file", filename, "error", err)
		}
		return nil, err
	}

	s.sessions.Put(sess)
	filesValidated.WithLabelValues("accepted").Inc()
	logger.Info("upload validated",
		"file", filename,
		"total", res.TotalRecords,
		"valid", res.ValidRecords,
		"invalid", res.InvalidRecords,
		"dropped_lines", len(res.DroppedLines),
	)
	return res, nil
}

func (s *Service) validateFile(ctx context.Context, sessionID string, raw []byte, filename string) (*ValidateResult, *ValidationSession, error) {
	parser, err := s.parsers.For(filename)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, ErrEmptyFile
	}
	if int64(len(raw)) > s.opts.MaxFileSize {
		return nil, nil, fmt.Errorf("%d bytes exceeds %d: %w", len(raw), s.opts.MaxFileSize, ErrFileTooLarge)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	defer s.limiter.Release()

	parsed, err := parser.Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	if missing := MissingColumns(parsed.Header); len(missing) > 0 {
		return nil, nil, &MissingColumnsError{Columns: missing}
	}
	if len(parsed.Rows) > s.opts.MaxRows {
		return nil, nil, fmt.Errorf("%d rows exceeds %d: %w", len(parsed.Rows), s.opts.MaxRows, ErrTooManyRows)
	}

	verdicts, err := s.validator.Validate(ctx, parsed.Rows, s.store)
	if err != nil {
		return nil, nil, err
	}

	sess := &ValidationSession{
		ID:           sessionID,
		FileName:     filename,
		Rows:         parsed.Rows,
		Verdicts:     verdicts,
		DroppedLines: parsed.DroppedLines,
		Source:       raw,
	}
	res := &ValidateResult{
		TotalRecords:  len(parsed.Rows),
		ErrorMessages: []string{},
		Verdicts:      verdicts,
		PreviewRows:   previewRows(parsed, MaxPreviewRows),
		DroppedLines:  parsed.DroppedLines,
	}
	for _, v := range verdicts {
		if v.Valid() {
			sess.ValidCount++
			continue
		}
		sess.InvalidCount++
		res.ErrorMessages = append(res.ErrorMessages, v.Display())
	}
	res.ValidRecords = sess.ValidCount
	res.InvalidRecords = sess.InvalidCount

	return res, sess, nil
}

func previewRows(parsed *ParsedFile, n int) []map[string]string {
	n = min(n, len(parsed.Rows))
	out := make([]map[string]string, 0, n)
	for _, row := range parsed.Rows[:n] {
		preview := make(map[string]string, len(parsed.Header))
		for _, h := range parsed.Header {
			if h != "" {
				preview[h] = row.Get(h)
			}
		}
		out = append(out, preview)
	}
	return out
}

// CommitImport persists the upload held for sessionID.
//
// Checks run in order: no other commit running for the session, a validated
// upload is held, a course is selected. A missing course keeps the held
// upload; past that point the upload is consumed whatever the row results.
// The run is detached from ctx cancellation and bounded by the commit timeout
// so a disconnecting client cannot stop a batch halfway.
func (s *Service) CommitImport(ctx context.Context, sessionID string, req CommitRequest) (*ImportOutcome, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	release, ok := s.sessions.BeginCommit(sessionID)
	if !ok {
		return nil, ErrCommitInProgress
	}
	defer release()

	if !s.sessions.Has(sessionID) {
		return nil, ErrNoValidatedData
	}
	if req.CourseID <= 0 {
		return nil, ErrMissingCourse
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	sess, ok := s.sessions.Take(sessionID)
	if !ok {
		return nil, ErrNoValidatedData
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CommitTimeout)
	defer cancel()

	return s.committer.Commit(commitCtx, sess, req), nil
}

// DiscardSession drops any upload held for sessionID. Call it on logout.
func (s *Service) DiscardSession(sessionID string) {
	s.sessions.Delete(sessionID)
}

// HasValidatedData reports whether an upload is held for sessionID.
func (s *Service) HasValidatedData(sessionID string) bool {
	return s.sessions.Has(sessionID)
}

// ImportHistory lists past import runs, newest first.
func (s *Service) ImportHistory(ctx context.Context, limit, offset int) ([]ImportLogEntry, error) {
	lister, ok := s.store.(ImportLogLister)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)
	offset = max(offset, 0)

	entries, err := lister.ListImportLogs(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list import logs: %w", err)
	}
	return entries, nil
}
