package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestAppError_Codes(t *testing.T) {
	cases := []struct {
		err  *AppError
		http int
		grpc codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("dup"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("missing"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("invalid"), http.StatusUnprocessableEntity, codes.InvalidArgument},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
		{New(Kind("weird"), ""), http.StatusInternalServerError, codes.Internal},
		{nil, http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		require.Equal(t, tc.http, tc.err.StatusCode())
		require.Equal(t, tc.grpc, tc.err.GRPCCode())
	}
}

func TestAppError_CauseAndDetails(t *testing.T) {
	cause := errors.New("driver exploded")
	err := Conflict("serial number already exists",
		WithCause(cause),
		WithDetail("field", "SerialNumber"),
		WithDetails(map[string]any{"serial_number": "SN-001"}),
	)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "serial number already exists: driver exploded", err.Error())
	require.Equal(t, "SerialNumber", err.Details()["field"])
	require.Equal(t, "SN-001", err.Details()["serial_number"])
	require.Equal(t, codes.AlreadyExists, err.GRPCStatus().Code())
}

func TestFrom(t *testing.T) {
	require.Nil(t, From(nil))

	wrapped := fmt.Errorf("service: %w", NotFound("equipment not found"))
	require.Equal(t, KindNotFound, From(wrapped).Kind())
	require.True(t, IsKind(wrapped, KindNotFound))
	require.False(t, IsKind(wrapped, KindConflict))

	plain := From(errors.New("plain"))
	require.Equal(t, KindInternal, plain.Kind())
	require.Equal(t, "internal error", plain.Message())
}
