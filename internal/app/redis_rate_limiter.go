package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter: the first INCR in a window arms the expiry, and the
// remaining TTL tells callers when the window resets.
var rateWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimiter is a distributed fixed-window limiter keyed by
// prefix:scope:subject. One instance is shared across all wallet mutation
// endpoints; the counters live in Redis so every service replica sees the
// same window.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "wallet:rate_limit"
	}
	return &RedisRateLimiter{client: client, prefix: p}
}

// ConsumeRateLimit counts one request against the scope/subject window and
// returns the running count plus the seconds until the window resets. A nil
// client or non-positive limit disables limiting and reports a zero count.
func (r *RedisRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := r.prefix + ":" + scope + ":" + subject
	raw, err := rateWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	count, ttlMs, err := parseWindowReply(raw)
	if err != nil {
		return 0, 0, err
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}
	retryAfter := int((ttlMs + 999) / 1000)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(count), retryAfter, nil
}

// parseWindowReply unpacks the {count, ttl} pair the Lua script returns.
func parseWindowReply(raw interface{}) (count, ttlMs int64, err error) {
	pair, ok := raw.([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit reply shape: %T", raw)
	}
	if count, ok = pair[0].(int64); !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit count type: %T", pair[0])
	}
	if ttlMs, ok = pair[1].(int64); !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit ttl type: %T", pair[1])
	}
	return count, ttlMs, nil
}
