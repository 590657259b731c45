package tokens

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	tokenDomain "linggo_sync/internal/domain/token"
	errs "linggo_sync/internal/errors"
)

type TokenStore interface {
	FindByUID(ctx context.Context, uid string) (tokenDomain.UserToken, error)
	// PullToken removes token from every document except the one of keepUID.
	PullToken(ctx context.Context, token, keepUID string) (int64, error)
	// AddToken adds token to uid's set once and applies prefs, creating the
	// document when needed.
	AddToken(ctx context.Context, uid, token string, prefs tokenDomain.Preferences) (tokenDomain.UserToken, error)
	RemoveToken(ctx context.Context, uid, token string) error
	ListReviewEnabled(ctx context.Context) ([]tokenDomain.UserToken, error)
	ListLastLoginBetween(ctx context.Context, from, to int64) ([]tokenDomain.UserToken, error)
}

type Usecase struct {
	store TokenStore
	log   *zap.SugaredLogger
}

func NewUsecase(store TokenStore, log *zap.SugaredLogger) *Usecase {
	return &Usecase{
		store: store,
		log:   log,
	}
}

// Register attaches the token to uid, taking it away from any other user
// that still holds it.
func (u *Usecase) Register(ctx context.Context, uid string, reg tokenDomain.Registration) (tokenDomain.UserToken, error) {
	if err := validateRegistration(uid, reg); err != nil {
		return tokenDomain.UserToken{}, err
	}

	moved, err := u.store.PullToken(ctx, reg.FcmToken, uid)
	if err != nil {
		return tokenDomain.UserToken{}, err
	}
	if moved > 0 {
		u.log.Infof("Register: moved fcm token from %d other user(s) to %s", moved, uid)
	}

	return u.store.AddToken(ctx, uid, reg.FcmToken, reg.Preferences)
}

func (u *Usecase) Get(ctx context.Context, uid string) (tokenDomain.UserToken, error) {
	return u.store.FindByUID(ctx, uid)
}

func (u *Usecase) RemoveToken(ctx context.Context, uid, token string) error {
	if token == "" {
		return fmt.Errorf("%w: fcmToken is required", errs.ErrValidationFailed)
	}
	return u.store.RemoveToken(ctx, uid, token)
}

// RemoveTokenEverywhere drops a token the push provider reported as dead.
func (u *Usecase) RemoveTokenEverywhere(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: fcmToken is required", errs.ErrValidationFailed)
	}
	_, err := u.store.PullToken(ctx, token, "")
	return err
}

// ReviewRecipients selects users with review notifications on whose local
// hour equals the hour of their configured notification time.
func (u *Usecase) ReviewRecipients(ctx context.Context, now time.Time) ([]tokenDomain.Recipient, error) {
	users, err := u.store.ListReviewEnabled(ctx)
	if err != nil {
		return nil, err
	}

	var out []tokenDomain.Recipient
	for _, user := range users {
		if len(user.FcmTokens) == 0 {
			continue
		}
		hour, err := notificationHour(user.ReviewNotificationsTime)
		if err != nil {
			u.log.Warnf("ReviewRecipients: skipping %s: %v", user.UID, err)
			continue
		}
		loc, err := time.LoadLocation(user.TimeZone)
		if err != nil {
			u.log.Warnf("ReviewRecipients: skipping %s: unknown time zone %q", user.UID, user.TimeZone)
			continue
		}
		if now.In(loc).Hour() == hour {
			out = append(out, tokenDomain.Recipient{UID: user.UID, Tokens: user.FcmTokens})
		}
	}
	return out, nil
}

// DaysAwayRecipients selects users whose last login lies between upper and
// lower days ago.
func (u *Usecase) DaysAwayRecipients(ctx context.Context, now time.Time, lower, upper int) ([]tokenDomain.Recipient, error) {
	if lower < 0 || upper < lower {
		return nil, fmt.Errorf("%w: invalid days away window %d..%d", errs.ErrValidationFailed, lower, upper)
	}
	day := 24 * time.Hour
	from := now.Add(-time.Duration(upper) * day).UnixMilli()
	to := now.Add(-time.Duration(lower) * day).UnixMilli()

	users, err := u.store.ListLastLoginBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]tokenDomain.Recipient, 0, len(users))
	for _, user := range users {
		if len(user.FcmTokens) > 0 {
			out = append(out, tokenDomain.Recipient{UID: user.UID, Tokens: user.FcmTokens})
		}
	}
	return out, nil
}

func validateRegistration(uid string, reg tokenDomain.Registration) error {
	if uid == "" {
		return fmt.Errorf("%w: uid is required", errs.ErrValidationFailed)
	}
	if reg.FcmToken == "" {
		return fmt.Errorf("%w: fcmToken is required", errs.ErrValidationFailed)
	}
	if tz := reg.TimeZone; tz != nil {
		if _, err := time.LoadLocation(*tz); err != nil || *tz == "" {
			return fmt.Errorf("%w: unknown time zone %q", errs.ErrValidationFailed, *tz)
		}
	}
	if t := reg.ReviewNotificationsTime; t != nil {
		if _, err := notificationHour(*t); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrValidationFailed, err)
		}
	}
	return nil
}

func notificationHour(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("reviewNotificationsTime %q is not HH:MM", hhmm)
	}
	return t.Hour(), nil
}
