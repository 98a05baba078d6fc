package v1handler_test

import (
	"context"
	"errors"
	"testing"

	"dlbench/internal/api/handler/v1handler"
	"dlbench/pkg/logger"
	"dlbench/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Setup(logger.DevelopmentEnvironment, "fatal")
	m.Run()
}

func TestNewError_InternalOnPlainError(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})

	res := h.NewError(context.Background(), errors.New("boom"))
	require.Equal(t, 500, res.StatusCode)
	require.Equal(t, serrors.ErrInternal.Error(), res.Response.Code)
	require.Equal(t, "internal error", res.Response.Message)
}

func TestNewError_KindDefaults(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})

	res := h.NewError(context.Background(), serrors.ErrNotFound)
	require.Equal(t, 404, res.StatusCode)
	require.Equal(t, "NOT_FOUND", res.Response.Code)
	require.Equal(t, "resource not found", res.Response.Message)
}

func TestNewError_StatusMapping(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})

	cases := map[serrors.Kind]int{
		serrors.ErrNotFound:     404,
		serrors.ErrBadRequest:   400,
		serrors.ErrUnauthorized: 401,
		serrors.ErrForbidden:    403,
		serrors.ErrConflict:     409,
		serrors.ErrTimeout:      504,
		serrors.ErrUnavailable:  503,
		serrors.ErrBadStatus:    503,
		serrors.ErrRateLimited:  429,
		serrors.ErrInternal:     500,
	}
	for kind, status := range cases {
		t.Run(kind.Error(), func(t *testing.T) {
			res := h.NewError(context.Background(), serrors.KindOnly(kind))
			require.Equal(t, status, res.StatusCode)
		})
	}
}

func TestNewError_MessageWithoutCause(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})

	err := serrors.Wrap(serrors.ErrUnauthorized, errors.New("bad signature"), "invalid token")
	res := h.NewError(context.Background(), err)
	require.Equal(t, 401, res.StatusCode)
	require.Equal(t, "invalid token", res.Response.Message)
}

func TestNewError_WrappedChain(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})

	err := errors.Join(errors.New("context"), serrors.With(serrors.ErrBadRequest, "count must be between 1 and 10"))
	res := h.NewError(context.Background(), err)
	require.Equal(t, 400, res.StatusCode)
	require.Equal(t, "count must be between 1 and 10", res.Response.Message)
}
