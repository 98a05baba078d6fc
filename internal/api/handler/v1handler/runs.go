package v1handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"dlbench/internal/runs"
	"dlbench/pkg/domain"
	"dlbench/pkg/serrors"

	"github.com/go-faster/jx"
)

const (
	// DefaultLimit is the page size of GET /v1/runs without a limit parameter.
	DefaultLimit = 20
	// MaxLimit is the largest accepted limit parameter.
	MaxLimit = 100

	maxBodyBytes = 64 << 10
)

// EncodeRun writes the JSON representation of run to e.
func EncodeRun(e *jx.Encoder, run *domain.Run) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(run.ID.String()) })
		e.Field("mode", func(e *jx.Encoder) { e.Str(string(run.Mode)) })
		e.Field("url", func(e *jx.Encoder) { e.Str(run.URL) })
		e.Field("count", func(e *jx.Encoder) { e.Int(run.Count) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(run.Status)) })
		e.Field("result", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("downloads", func(e *jx.Encoder) { e.Int(run.Result.Downloads) })
				e.Field("bytes", func(e *jx.Encoder) { e.Int64(run.Result.Bytes) })
				e.Field("realSeconds", func(e *jx.Encoder) { e.Float64(run.Result.RealSeconds) })
				e.Field("userSeconds", func(e *jx.Encoder) { e.Float64(run.Result.UserSeconds) })
				e.Field("sysSeconds", func(e *jx.Encoder) { e.Float64(run.Result.SysSeconds) })
			})
		})
		e.Field("attempts", func(e *jx.Encoder) { e.UInt(run.Attempts) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(run.CreatedAt.Format(time.RFC3339Nano)) })
		if !run.UpdatedAt.IsZero() {
			e.Field("updatedAt", func(e *jx.Encoder) { e.Str(run.UpdatedAt.Format(time.RFC3339Nano)) })
		}
	})
}

// DecodeRunRequest parses the body of POST /v1/runs. Unknown fields are
// ignored.
func DecodeRunRequest(body []byte) (runs.RunRequest, error) {
	var req runs.RunRequest
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "mode":
			var s string
			s, err = d.Str()
			req.Mode = domain.Mode(s)
		case "url":
			req.URL, err = d.Str()
		case "count":
			req.Count, err = d.Int()
		default:
			err = d.Skip()
		}

		return err //nolint: wrapcheck
	}); err != nil {
		return runs.RunRequest{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}

	return req, nil
}

// CreateRun queues a new benchmark run.
func (h Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "could not read request body"))

		return
	}
	req, err := DecodeRunRequest(body)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	run, err := h.deps.Runs.Enqueue(r.Context(), GetUserIDFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	var e jx.Encoder
	EncodeRun(&e, run)
	writeJSON(w, http.StatusCreated, e.Bytes())
}

// ListRuns returns a page of the caller's runs.
func (h Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := DefaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxLimit {
			h.writeError(w, r, serrors.With(serrors.ErrBadRequest, "limit must be between 1 and %d", MaxLimit))

			return
		}
		limit = n
	}

	var status domain.RunStatus
	switch s := domain.RunStatus(q.Get("status")); s {
	case "", domain.RunStatusPending, domain.RunStatusCompleted, domain.RunStatusFailed:
		status = s
	default:
		h.writeError(w, r, serrors.With(serrors.ErrBadRequest, "unknown status %q", s))

		return
	}

	items, next, err := h.deps.Runs.UserRuns(r.Context(),
		GetUserIDFromContext(r.Context()),
		status,
		q.Get("cursor"),
		uint(limit)) //nolint: gosec
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range items {
					EncodeRun(e, &items[i])
				}
			})
		})
		e.Field("nextCursor", func(e *jx.Encoder) {
			if next == "" {
				e.Null()

				return
			}
			e.Str(next)
		})
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

// GetRun returns one run of the caller.
func (h Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRunID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid run id"))

		return
	}

	run, err := h.deps.Runs.Result(r.Context(), GetUserIDFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	var e jx.Encoder
	EncodeRun(&e, run)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// DeleteRun deletes one run of the caller.
func (h Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRunID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid run id"))

		return
	}

	if err := h.deps.Runs.Delete(r.Context(), GetUserIDFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err)

		return
	}
	w.WriteHeader(http.StatusNoContent)
}
