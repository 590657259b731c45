package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "linggo_sync/internal/errors"
	"linggo_sync/internal/testutil"
	authUC "linggo_sync/internal/usecase/auth"
)

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			w.Header().Set("X-Test-UID", claims.UID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	issuer := authUC.NewAuthUsecaseHandler("secret", time.Hour)
	token, err := issuer.IssueToken("u1", "d1", "1h")
	require.NoError(t, err)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantUID    string
	}{
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer " + token}, wantStatus: http.StatusOK, wantUID: "u1"},
		{name: "legacy header", headers: map[string]string{LegacyTokenHeader: token}, wantStatus: http.StatusOK, wantUID: "u1"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "garbage", headers: map[string]string{"Authorization": "Bearer nope"}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			Auth(issuer, testutil.NewTestLogger())(okHandler(t)).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUID, w.Header().Get("X-Test-UID"))
		})
	}
}

func TestMatchUID(t *testing.T) {
	ctx := WithClaims(context.Background(), &authUC.Claims{UID: "u1"})

	assert.NoError(t, MatchUID(ctx, "u1"))
	assert.ErrorIs(t, MatchUID(ctx, "u2"), errs.ErrUnauthorized)
	assert.ErrorIs(t, MatchUID(ctx, ""), errs.ErrUnauthorized)
	assert.ErrorIs(t, MatchUID(context.Background(), "u1"), errs.ErrUnauthenticated)
}

func TestDeviceAllowList(t *testing.T) {
	tests := []struct {
		name       string
		devices    []string
		device     string
		wantStatus int
	}{
		{name: "listed", devices: []string{"a", "b"}, device: "b", wantStatus: http.StatusOK},
		{name: "unlisted", devices: []string{"a"}, device: "c", wantStatus: http.StatusForbidden},
		{name: "no header", devices: []string{"a"}, wantStatus: http.StatusForbidden},
		{name: "empty list", device: "a", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.device != "" {
				r.Header.Set(DeviceHeader, tt.device)
			}
			w := httptest.NewRecorder()

			DeviceAllowList(tt.devices, testutil.NewTestLogger())(okHandler(t)).ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestSharedSecret(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
	}{
		{name: "match", configured: "s3cret", sent: "s3cret", wantStatus: http.StatusOK},
		{name: "mismatch", configured: "s3cret", sent: "guess", wantStatus: http.StatusUnauthorized},
		{name: "not configured", configured: "", sent: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(SecretHeader, tt.sent)
			w := httptest.NewRecorder()

			SharedSecret(tt.configured, testutil.NewTestLogger())(okHandler(t)).ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	w := httptest.NewRecorder()
	CORS(okHandler(t)).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
