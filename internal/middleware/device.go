package middleware

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
	"linggo_sync/internal/httpresponse"
)

const DeviceHeader = "deviceId"

// DeviceAllowList only lets listed devices through. An empty list forbids all.
func DeviceAllowList(devices []string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			device := r.Header.Get(DeviceHeader)
			if device == "" || !slices.Contains(devices, device) {
				httpresponse.WriteError(w, r, log, "DeviceAllowList", errs.ErrDeviceForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
