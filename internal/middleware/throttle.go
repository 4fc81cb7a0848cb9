package middleware

import (
	"context" // Redis calls
	"strings" // Key normalization
	"time"    // Durations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
)

// LoginThrottle counts failed logins per identifier and client IP in Redis and locks the pair out
// once the limit is reached; Redis failures let the attempt through
type LoginThrottle struct {
	rdb      *redis.Client // Counter store
	maxFails int64         // Failures before a lockout
	lockout  time.Duration // Lockout length
	window   time.Duration // Lifetime of a failure count
}

// NewLoginThrottle returns a throttle; out of range values fall back to 5 failures and 15 minutes
func NewLoginThrottle(rdb *redis.Client, maxFails int, lockout time.Duration) *LoginThrottle {
	if maxFails < 1 {
		maxFails = 5
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &LoginThrottle{rdb: rdb, maxFails: int64(maxFails), lockout: lockout, window: lockout}
}

// ThrottleKey identifies a login subject
func ThrottleKey(identifier, ip string) string {
	return strings.ToLower(strings.TrimSpace(identifier)) + "|" + ip
}

func attemptsKey(key string) string { return "login:attempts:" + key }
func lockKey(key string) string     { return "login:lock:" + key }

// Locked reports whether key is locked out and for how much longer
func (t *LoginThrottle) Locked(ctx context.Context, key string) (time.Duration, bool) {
	ttl, err := t.rdb.TTL(ctx, lockKey(key)).Result()
	if err != nil {
		logrus.WithError(err).Warn("login throttle unavailable")
		return 0, false
	}
	if ttl <= 0 {
		return 0, false // No lock key
	}
	return ttl, true
}

// RecordFailure counts a failed attempt and returns true when it triggered a lockout
func (t *LoginThrottle) RecordFailure(ctx context.Context, key string) bool {
	// The counter and its expiry land together, so a count never outlives the window
	pipe := t.rdb.TxPipeline()
	pipe.SetNX(ctx, attemptsKey(key), 0, t.window) // Starts the window on the first failure only
	incr := pipe.Incr(ctx, attemptsKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Warn("login throttle unavailable")
		return false
	}
	attempts := incr.Val()
	if attempts < t.maxFails {
		return false
	}

	pipe = t.rdb.TxPipeline()
	pipe.Set(ctx, lockKey(key), attempts, t.lockout)
	pipe.Del(ctx, attemptsKey(key)) // Next window starts fresh after the lock
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Warn("login throttle unavailable")
		return false
	}
	logrus.WithField("attempts", attempts).Warn("login locked out")
	return true
}

// Reset clears the failure count after a successful login
func (t *LoginThrottle) Reset(ctx context.Context, key string) {
	if err := t.rdb.Del(ctx, attemptsKey(key)).Err(); err != nil {
		logrus.WithError(err).Warn("login throttle unavailable")
	}
}
