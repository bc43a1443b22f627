package middleware

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])
	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals * refill_tokens)
			last_refill = last_refill + intervals * interval_ms
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)
	return { allowed, tokens, retry_after_ms }
`)

// RateLimit throttles per client IP and route with a Redis token bucket.
// Without a client, or when Redis errors, requests pass through.
func RateLimit(cfg config.RedisConfig, rdb redis.Scripter, log logrus.FieldLogger) fiber.Handler {
	if rdb == nil || cfg.Capacity <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		key := strings.Join([]string{cfg.Prefix, "ip", c.IP(), "route", c.Method() + " " + c.Path()}, ":")
		args := []interface{}{
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL / time.Second),
		}

		vals, err := tokenBucket.Run(c.UserContext(), rdb, []string{key}, args...).Int64Slice()
		if err != nil || len(vals) != 3 {
			log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
			return c.Next()
		}
		allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			secs := int(math.Ceil(float64(retryMs) / 1000))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "too_many_requests",
				"message":     fmt.Sprintf("rate limit exceeded, retry in %ds", secs),
				"retry_after": secs,
			})
		}
		return c.Next()
	}
}
