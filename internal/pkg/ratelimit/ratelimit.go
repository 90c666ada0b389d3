package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

var ErrRateLimitTimeout = errors.New("rate limit wait timeout")

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

if rate <= 0 or burst <= 0 then
  return {1, 0, burst}
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
local refill = (delta * rate) / 1000.0
tokens = math.min(burst, tokens + refill)

local allowed = tokens >= requested
local wait_ms = 0
if allowed then
  tokens = tokens - requested
else
  wait_ms = math.ceil((requested - tokens) * 1000.0 / rate)
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, wait_ms, tokens}
`

const (
	submitKeyPrefix = "pricesaver:ratelimit:submit:"
	notifyKeyPrefix = "pricesaver:ratelimit:notify:"
)

// Limiter 基于 Redis 令牌桶限制某类按用户计数的操作频率。
//
// rate 为每秒补充的令牌数，burst 为桶容量；桶按 prefix+用户 分键，
// 因此提交限流与邮件限流互不影响。
type Limiter struct {
	rdb    *redis.Client
	rate   float64
	burst  float64
	prefix string
	logger *slog.Logger
	script *redis.Script
}

func newLimiter(rdb *redis.Client, logger *slog.Logger, rate, burst float64, prefix string) *Limiter {
	return &Limiter{
		rdb:    rdb,
		rate:   rate,
		burst:  burst,
		prefix: prefix,
		logger: logger,
		script: redis.NewScript(tokenBucketLua),
	}
}

// NewSubmitLimiter 创建价格提交限流器（HTTP 入口用 Allow 非阻塞判定）。
func NewSubmitLimiter(rdb *redis.Client, logger *slog.Logger, rate float64, burst float64) *Limiter {
	return newLimiter(rdb, logger, rate, burst, submitKeyPrefix)
}

// NewNotifyLimiter 创建告警邮件限流器（通知 worker 用 Acquire 阻塞等待）。
func NewNotifyLimiter(rdb *redis.Client, logger *slog.Logger, rate float64, burst float64) *Limiter {
	return newLimiter(rdb, logger, rate, burst, notifyKeyPrefix)
}

// Allow 非阻塞获取一个令牌，桶空时返回 false。
func (l *Limiter) Allow(ctx context.Context, userID uint) (bool, error) {
	if l == nil || l.rate <= 0 || l.burst <= 0 {
		return true, nil
	}
	allowed, _, err := l.tryAcquire(ctx, userID)
	return allowed, err
}

// Acquire 阻塞等待一个令牌，直到成功或 ctx 被取消。
func (l *Limiter) Acquire(ctx context.Context, userID uint) error {
	if l == nil || l.rate <= 0 || l.burst <= 0 {
		return nil
	}

	const jitterMax = 10 * time.Millisecond
	start := time.Now()
	for {
		allowed, waitMs, err := l.tryAcquire(ctx, userID)
		if err != nil {
			return err
		}
		if allowed {
			metrics.RateLimitWaitDuration.Observe(time.Since(start).Seconds())
			return nil
		}

		wait := time.Duration(waitMs) * time.Millisecond
		if wait <= 0 {
			wait = 50 * time.Millisecond
		}
		if jitterMax > 0 {
			wait += time.Duration(rand.Int63n(int64(jitterMax)))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			metrics.RateLimitWaitDuration.Observe(time.Since(start).Seconds())
			metrics.RateLimitTimeoutTotal.Inc()
			return ErrRateLimitTimeout
		case <-timer.C:
		}
	}
}

func (l *Limiter) tryAcquire(ctx context.Context, userID uint) (bool, int64, error) {
	key := l.prefix + strconv.FormatUint(uint64(userID), 10)
	now := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{key}, l.rate, l.burst, now, 1).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit eval: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("ratelimit invalid result")
	}

	allowed := toInt64(values[0]) == 1
	waitMs := toInt64(values[1])
	return allowed, waitMs, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if t == "" {
			return 0
		}
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
