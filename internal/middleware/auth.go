package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
	"linggo_sync/internal/httpresponse"
	authUC "linggo_sync/internal/usecase/auth"
)

const LegacyTokenHeader = "x-auth-token"

type claimsKey struct{}

type Verifier interface {
	Verify(token string) (*authUC.Claims, error)
}

// Auth rejects requests without a valid credential and stores its claims in
// the request context.
func Auth(verifier Verifier, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.Verify(tokenFromRequest(r))
			if err != nil {
				httpresponse.WriteError(w, r, log, "Auth", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return r.Header.Get(LegacyTokenHeader)
}

func WithClaims(ctx context.Context, claims *authUC.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*authUC.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*authUC.Claims)
	return claims, ok && claims != nil
}

// MatchUID makes sure a user only touches their own data.
func MatchUID(ctx context.Context, uid string) error {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no token, authorization denied", errs.ErrUnauthenticated)
	}
	if uid == "" || uid != claims.UID {
		return errs.ErrUnauthorized
	}
	return nil
}
