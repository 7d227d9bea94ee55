package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loginFailuresKeyPrefix = "login:failures:"

// LoginThrottle counts failed logins per username in Redis and blocks further
// attempts once the limit is reached until the window expires.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginThrottle builds a throttle. A nil client or maxAttempts <= 0
// disables throttling.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginThrottle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

func (t *LoginThrottle) enabled() bool {
	return t != nil && t.client != nil && t.maxAttempts > 0
}

func failuresKey(username string) string {
	return loginFailuresKeyPrefix + strings.ToLower(username)
}

// Blocked reports whether username has used up its failed attempts. Redis
// errors are logged and treated as not blocked.
func (t *LoginThrottle) Blocked(ctx context.Context, username string) bool {
	if !t.enabled() {
		return false
	}
	count, err := t.client.Get(ctx, failuresKey(username)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			t.logger.Warn("login throttle lookup failed", zap.Error(err))
		}
		return false
	}
	return count >= t.maxAttempts
}

// RecordFailure increments the failure counter, starting the window on the
// first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) {
	if !t.enabled() {
		return
	}
	key := failuresKey(username)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		t.logger.Warn("login throttle update failed", zap.Error(err))
		return
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			t.logger.Warn("login throttle expiry failed", zap.Error(err))
		}
	}
	if count == int64(t.maxAttempts) {
		t.logger.Warn("login attempts exhausted", zap.String("username", username), zap.Duration("window", t.window))
	}
}

// Reset clears the failure counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) {
	if !t.enabled() {
		return
	}
	if err := t.client.Del(ctx, failuresKey(username)).Err(); err != nil {
		t.logger.Warn("login throttle reset failed", zap.Error(err))
	}
}
