package httpresponse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
)

func TestWriteResponseWithStatus(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteResponseWithStatus(rec, http.StatusCreated, map[string]int{"updated": 5})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"Status":201,"Body":{"updated":5}}`, rec.Body.String())
}

func TestWriteResponseWithStatus_Unmarshalable(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteResponseWithStatus(rec, http.StatusOK, make(chan int))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "unauthenticated", err: errs.ErrUnauthenticated, expected: http.StatusUnauthorized},
		{name: "unauthorized", err: errs.ErrUnauthorized, expected: http.StatusUnauthorized},
		{name: "wrapped validation", err: fmt.Errorf("%w: username is required", errs.ErrValidationFailed), expected: http.StatusBadRequest},
		{name: "not found", err: errs.ErrNotFound, expected: http.StatusBadRequest},
		{name: "device forbidden", err: errs.ErrDeviceForbidden, expected: http.StatusForbidden},
		{name: "upstream", err: fmt.Errorf("polly: %w", errs.ErrUpstream), expected: http.StatusBadGateway},
		{name: "storage", err: fmt.Errorf("mongo down"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusFor(tt.err))
		})
	}
}

func TestWriteError_HidesServerDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, zap.NewNop().Sugar(), "Test", fmt.Errorf("connection refused to 10.0.0.3"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp Response[ErrorResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestWriteError_ClientError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, zap.NewNop().Sugar(), "Test", fmt.Errorf("%w: linggoID is required", errs.ErrValidationFailed))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "linggoID is required")
}
