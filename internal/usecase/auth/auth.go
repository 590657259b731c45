package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	errs "linggo_sync/internal/errors"
)

// Claims bind a credential to one user on one device.
type Claims struct {
	UID      string `json:"uid"`
	DeviceID string `json:"deviceId"`
	jwt.RegisteredClaims
}

type AuthUsecaseHandler struct {
	secret    []byte
	maxExpiry time.Duration
	now       func() time.Time
}

func NewAuthUsecaseHandler(secret string, maxExpiry time.Duration) *AuthUsecaseHandler {
	return &AuthUsecaseHandler{
		secret:    []byte(secret),
		maxExpiry: maxExpiry,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for issuing and verifying.
func (a *AuthUsecaseHandler) WithClock(now func() time.Time) *AuthUsecaseHandler {
	a.now = now
	return a
}

// IssueToken signs a credential for uid and deviceID valid for exp, which is
// a number of seconds, a Go duration ("90m") or a number of days ("7d").
func (a *AuthUsecaseHandler) IssueToken(uid, deviceID, exp string) (string, error) {
	if uid == "" || deviceID == "" || exp == "" {
		return "", fmt.Errorf("%w: uid, deviceId and exp are required", errs.ErrValidationFailed)
	}
	ttl, err := ParseExpiry(exp)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrValidationFailed, err)
	}
	if a.maxExpiry > 0 && ttl > a.maxExpiry {
		ttl = a.maxExpiry
	}

	now := a.now()
	claims := Claims{
		UID:      uid,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", errs.ErrInternal, err)
	}
	return signed, nil
}

// Verify parses a credential and returns its claims.
func (a *AuthUsecaseHandler) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no token, authorization denied", errs.ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", errs.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: token is not valid", errs.ErrUnauthenticated)
	}
	if claims.UID == "" {
		return nil, fmt.Errorf("%w: token carries no uid", errs.ErrUnauthenticated)
	}
	return claims, nil
}

// ParseExpiry reads the expiry formats accepted by the token endpoint.
func ParseExpiry(exp string) (time.Duration, error) {
	exp = strings.TrimSpace(exp)
	if secs, err := strconv.ParseInt(exp, 10, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("exp must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(exp, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid exp %q", exp)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(exp)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid exp %q", exp)
	}
	return d, nil
}
