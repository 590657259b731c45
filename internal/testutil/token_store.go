package testutil

import (
	"context"
	"sort"
	"sync"

	tokenDomain "linggo_sync/internal/domain/token"
	errs "linggo_sync/internal/errors"
)

// MemoryTokenStore keeps user tokens in memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	users map[string]*tokenDomain.UserToken

	Err error
}

func NewMemoryTokenStore(users ...tokenDomain.UserToken) *MemoryTokenStore {
	s := &MemoryTokenStore{users: map[string]*tokenDomain.UserToken{}}
	for _, u := range users {
		u := u
		u.FcmTokens = append([]string(nil), u.FcmTokens...)
		s.users[u.UID] = &u
	}
	return s
}

func (s *MemoryTokenStore) Tokens(uid string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[uid]; ok {
		return append([]string(nil), u.FcmTokens...)
	}
	return nil
}

func (s *MemoryTokenStore) FindByUID(_ context.Context, uid string) (tokenDomain.UserToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return tokenDomain.UserToken{}, s.Err
	}
	u, ok := s.users[uid]
	if !ok {
		return tokenDomain.UserToken{}, errs.ErrNotFound
	}
	return copyToken(u), nil
}

func (s *MemoryTokenStore) PullToken(_ context.Context, token, keepUID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var modified int64
	for uid, u := range s.users {
		if uid == keepUID {
			continue
		}
		kept := u.FcmTokens[:0]
		for _, t := range u.FcmTokens {
			if t != token {
				kept = append(kept, t)
			}
		}
		if len(kept) != len(u.FcmTokens) {
			modified++
		}
		u.FcmTokens = kept
	}
	return modified, nil
}

func (s *MemoryTokenStore) AddToken(_ context.Context, uid, token string, prefs tokenDomain.Preferences) (tokenDomain.UserToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return tokenDomain.UserToken{}, s.Err
	}
	u, ok := s.users[uid]
	if !ok {
		u = &tokenDomain.UserToken{UID: uid}
		s.users[uid] = u
	}
	present := false
	for _, t := range u.FcmTokens {
		if t == token {
			present = true
		}
	}
	if !present {
		u.FcmTokens = append(u.FcmTokens, token)
	}
	if prefs.ReviewNotificationsOn != nil {
		u.ReviewNotificationsOn = *prefs.ReviewNotificationsOn
	}
	if prefs.ReviewNotificationsTime != nil {
		u.ReviewNotificationsTime = *prefs.ReviewNotificationsTime
	}
	if prefs.TimeZone != nil {
		u.TimeZone = *prefs.TimeZone
	}
	if prefs.LastLoginTime != nil {
		u.LastLoginTime = *prefs.LastLoginTime
	}
	return copyToken(u), nil
}

func (s *MemoryTokenStore) RemoveToken(_ context.Context, uid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[uid]
	if !ok {
		return errs.ErrNotFound
	}
	kept := u.FcmTokens[:0]
	for _, t := range u.FcmTokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.FcmTokens = kept
	return nil
}

func (s *MemoryTokenStore) ListReviewEnabled(_ context.Context) ([]tokenDomain.UserToken, error) {
	return s.filter(func(u *tokenDomain.UserToken) bool {
		return u.ReviewNotificationsOn && len(u.FcmTokens) > 0
	})
}

func (s *MemoryTokenStore) ListLastLoginBetween(_ context.Context, from, to int64) ([]tokenDomain.UserToken, error) {
	return s.filter(func(u *tokenDomain.UserToken) bool {
		return u.LastLoginTime >= from && u.LastLoginTime <= to && len(u.FcmTokens) > 0
	})
}

func (s *MemoryTokenStore) filter(keep func(*tokenDomain.UserToken) bool) ([]tokenDomain.UserToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []tokenDomain.UserToken
	for _, u := range s.users {
		if keep(u) {
			out = append(out, copyToken(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func copyToken(u *tokenDomain.UserToken) tokenDomain.UserToken {
	c := *u
	c.FcmTokens = append([]string(nil), u.FcmTokens...)
	return c
}
