package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
	"linggo_sync/internal/httpresponse"
)

const SecretHeader = "secret"

// SharedSecret guards endpoints called by schedulers and other backends.
// With no secret configured every request is refused.
func SharedSecret(secret string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(SecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httpresponse.WriteError(w, r, log, "SharedSecret",
					fmt.Errorf("%w: invalid secret", errs.ErrUnauthenticated))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
