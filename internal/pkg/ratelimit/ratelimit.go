// Package ratelimit 提供基于 Redis 的令牌桶限流，用于保护登录/注册端点。
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

if rate <= 0 or burst <= 0 then
  return {1, burst}
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
if allowed then
  tokens = tokens - requested
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, tokens}
`

// Limiter 按 key（通常是客户端 IP）维护独立的令牌桶。
type Limiter struct {
	rdb    *redis.Client
	prefix string
	rate   float64
	burst  float64
	logger *slog.Logger
	script *redis.Script
}

// New 创建 Limiter。rdb 为 nil 时返回 nil，nil Limiter 放行所有请求。
func New(rdb *redis.Client, logger *slog.Logger, prefix string, rate float64, burst float64) *Limiter {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "taskhub:ratelimit:"
	}
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		rate:   rate,
		burst:  burst,
		logger: logger,
		script: redis.NewScript(tokenBucketLua),
	}
}

// Allow 尝试从 key 对应的桶中取出一个令牌。
// 桶空返回 false；Redis 出错时放行（限流是保护手段，不应成为单点故障）。
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.rate <= 0 || l.burst <= 0 {
		return true
	}

	now := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{l.prefix + key}, l.rate, l.burst, now, 1).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("ratelimit eval failed", slog.String("error", err.Error()))
		}
		return true
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 1 {
		if l.logger != nil {
			l.logger.Warn("ratelimit invalid result", slog.String("result", fmt.Sprintf("%v", res)))
		}
		return true
	}

	return toInt64(values[0]) == 1
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
