package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/enrollment/internal/core"
	"github.com/JonMunkholm/enrollment/internal/logging"
	"github.com/JonMunkholm/enrollment/internal/web/templates"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

// handleDownloadTemplate serves the blank import file.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.TemplateFileName))
	_, _ = io.WriteString(w, core.DownloadTemplate())
}

// handleValidate accepts a multipart upload in field "file" and holds the
// validated rows for the caller's session.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, _ := core.IdentityFromContext(r.Context())
	maxSize := s.service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	res, err := s.service.ValidateFile(r.Context(), id.SessionID, data, header.Filename)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		s.render(w, r, templates.ValidationSummary(res))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// commitForm is the commit request body. Optional ids are nil when absent.
type commitForm struct {
	CourseID         int64  `json:"course_id"`
	BatchID          *int64 `json:"batch_id,omitempty"`
	TrainingCenterID *int64 `json:"training_center_id,omitempty"`
}

// handleCommit persists the rows validated earlier in the session.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id, _ := core.IdentityFromContext(r.Context())
	if id.ActorID <= 0 {
		s.respondError(w, r, fmt.Errorf("no actor id: %w", core.ErrMissingSession), http.StatusUnauthorized)
		return
	}

	form, err := parseCommitForm(r)
	if err != nil {
		s.respondMessage(w, r, core.UserMessage{
			Message: err.Error(),
			Action:  "Correct the selection and try again",
			Code:    "IMP002",
		}, http.StatusBadRequest, err)
		return
	}

	logger := logging.ForImport(r.Context(), "commit", id.SessionID, strconv.FormatInt(id.ActorID, 10))
	logger.Info("commit requested", "course_id", form.CourseID)

	out, err := s.service.CommitImport(r.Context(), id.SessionID, core.CommitRequest{
		CourseID:         form.CourseID,
		BatchID:          form.BatchID,
		TrainingCenterID: form.TrainingCenterID,
		ActorID:          id.ActorID,
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		s.render(w, r, templates.ImportSummary(out))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// parseCommitForm reads a JSON body or form values. A missing course is
// left as zero for the service to reject.
func parseCommitForm(r *http.Request) (commitForm, error) {
	var form commitForm
	if sendsJSON(r) {
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&form); err != nil && !errors.Is(err, io.EOF) {
			return form, fmt.Errorf("invalid request body: %w", err)
		}
		if err := positiveID(form.BatchID, "batch"); err != nil {
			return form, err
		}
		return form, positiveID(form.TrainingCenterID, "training center")
	}

	if err := r.ParseForm(); err != nil {
		return form, fmt.Errorf("invalid form: %w", err)
	}
	course, err := optionalID(r.FormValue("course_id"), "course")
	if err != nil {
		return form, err
	}
	if course != nil {
		form.CourseID = *course
	}
	if form.BatchID, err = optionalID(r.FormValue("batch_id"), "batch"); err != nil {
		return form, err
	}
	if form.TrainingCenterID, err = optionalID(r.FormValue("training_center_id"), "training center"); err != nil {
		return form, err
	}
	return form, nil
}

func optionalID(raw, label string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("invalid %s id %q", label, raw)
	}
	return &v, nil
}

func positiveID(v *int64, label string) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("invalid %s id %d", label, *v)
	}
	return nil
}

// handleDiscardSession drops any upload held for the session.
func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	id, _ := core.IdentityFromContext(r.Context())
	s.service.DiscardSession(id.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

// historyResponse is the body of GET /api/import/history.
type historyResponse struct {
	Entries []core.ImportLogEntry `json:"entries"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)
	if limit == 0 {
		limit = core.DefaultHistoryLimit
	}
	offset := parseIntParam(r, "offset", 0)

	entries, err := s.service.ImportHistory(r.Context(), limit, offset)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if entries == nil {
		entries = []core.ImportLogEntry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Entries: entries,
		Limit:   min(limit, core.MaxHistoryLimit),
		Offset:  offset,
	})
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database,omitempty"`
	Imports  core.LimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Imports: s.service.Limiter().Status()}
	status := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health check: database unreachable", "error", err)
			resp.Status, resp.Database = "degraded", "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, status, resp)
}

// parseIntParam parses a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render fragment", "error", err)
	}
}
