package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sentLogTTL = 24 * time.Hour

// RedisSentLog remembers which notifications went out today so a rerun of
// the scheduled job does not notify the same user twice.
type RedisSentLog struct {
	client *redis.Client
}

func NewRedisSentLog(client *redis.Client) *RedisSentLog {
	return &RedisSentLog{
		client: client,
	}
}

func sentKey(kind, uid, day string) string {
	return fmt.Sprintf("notified:%s:%s:%s", kind, uid, day)
}

// MarkSent records the notification and reports whether it was the first one
// of its kind for uid on day.
func (r *RedisSentLog) MarkSent(ctx context.Context, kind, uid, day string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	first, err := r.client.SetNX(ctx, sentKey(kind, uid, day), 1, sentLogTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark %s sent: %w", kind, err)
	}
	return first, nil
}

// Forget drops the record again, used when the send itself failed.
func (r *RedisSentLog) Forget(ctx context.Context, kind, uid, day string) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	return r.client.Del(ctx, sentKey(kind, uid, day)).Err()
}
