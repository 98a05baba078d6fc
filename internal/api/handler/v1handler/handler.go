// Package v1handler implements the v1 REST API of the benchmark service:
// bearer authentication, the runs resource and the JSON error envelope.
package v1handler

import (
	"context"
	"errors"
	"net/http"

	"dlbench/internal/runs"
	"dlbench/pkg/logger"
	"dlbench/pkg/serrors"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// Deps are the services the v1 handlers delegate to.
type Deps struct {
	Runs runs.Runs
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string
	Message string
}

// ErrorStatus pairs an ErrorResponse with its HTTP status.
type ErrorStatus struct {
	StatusCode int
	Response   ErrorResponse
}

//nolint: gochecknoglobals
var kindStatus = map[serrors.Kind]int{
	serrors.ErrNotFound:     http.StatusNotFound,
	serrors.ErrBadRequest:   http.StatusBadRequest,
	serrors.ErrUnauthorized: http.StatusUnauthorized,
	serrors.ErrForbidden:    http.StatusForbidden,
	serrors.ErrConflict:     http.StatusConflict,
	serrors.ErrTimeout:      http.StatusGatewayTimeout,
	serrors.ErrUnavailable:  http.StatusServiceUnavailable,
	serrors.ErrBadStatus:    http.StatusServiceUnavailable,
	serrors.ErrRateLimited:  http.StatusTooManyRequests,
}

//nolint: gochecknoglobals
var kindMessage = map[serrors.Kind]string{
	serrors.ErrNotFound:     "resource not found",
	serrors.ErrBadRequest:   "bad request",
	serrors.ErrUnauthorized: "unauthorized",
	serrors.ErrForbidden:    "forbidden",
	serrors.ErrConflict:     "conflict",
	serrors.ErrTimeout:      "upstream timed out",
	serrors.ErrUnavailable:  "upstream unavailable",
	serrors.ErrBadStatus:    "upstream returned an error",
	serrors.ErrRateLimited:  "rate limited",
}

// NewError maps err to the response sent to the client. Errors without a
// known kind are logged and reported as a bare internal error.
func (h Handler) NewError(ctx context.Context, err error) *ErrorStatus {
	kind := serrors.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		logger.Error(ctx, "internal error", zap.Error(err))

		return &ErrorStatus{
			StatusCode: http.StatusInternalServerError,
			Response: ErrorResponse{
				Code:    serrors.ErrInternal.Error(),
				Message: "internal error",
			},
		}
	}

	msg := kindMessage[kind]
	var se *serrors.Error
	if errors.As(err, &se) && se.Message() != "" {
		msg = se.Message()
	}

	return &ErrorStatus{
		StatusCode: status,
		Response: ErrorResponse{
			Code:    kind.Error(),
			Message: msg,
		},
	}
}

func (h Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := h.NewError(r.Context(), err)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(res.Response.Code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(res.Response.Message) })
	})
	writeJSON(w, res.StatusCode, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Register mounts the v1 routes on mux behind bearer authentication.
func (h Handler) Register(mux *http.ServeMux, sec *SecHandler) {
	auth := func(fn func(http.ResponseWriter, *http.Request)) http.Handler {
		return sec.Middleware(http.HandlerFunc(fn), h.writeError)
	}

	mux.Handle("POST /v1/runs", auth(h.CreateRun))
	mux.Handle("GET /v1/runs", auth(h.ListRuns))
	mux.Handle("GET /v1/runs/{id}", auth(h.GetRun))
	mux.Handle("DELETE /v1/runs/{id}", auth(h.DeleteRun))
}
