package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/resguarit/ticketera-rg-sub004/internal/config"
)

// RateLimit は予約APIのトークンバケット型レート制限ミドルウェア
// 状態はRedis上にLuaスクリプトでアトミックに管理する
// 無効化されている、またはRedisが未接続の場合はパススルーとなる
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	script := redis.NewScript(`
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
			local elapsed = math.max(0, now_ms - last_refill)
			local intervals = math.floor(elapsed / interval_ms)
			if intervals > 0 then
				tokens = math.min(capacity, tokens + (intervals * refill_tokens))
				last_refill = last_refill + (intervals * interval_ms)
			end
		end

		local allowed = 0
		if tokens > 0 then
			allowed = 1
			tokens = tokens - 1
		end

		redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
		redis.call('EXPIRE', key, ttl_seconds)

		return allowed
	`)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ratelimit:" + rateLimitSubject(c)
			args := []interface{}{
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}

			allowed, err := script.Run(c.Request().Context(), rdb, []string{key}, args...).Int()
			if err != nil {
				// レート制限の障害でリクエストを落とさない
				return next(c)
			}
			if allowed == 0 {
				c.Response().Header().Set("Retry-After",
					strconv.FormatInt(int64(cfg.RefillInterval/time.Second)+1, 10))
				return echo.NewHTTPError(http.StatusTooManyRequests, "リクエストが多すぎます")
			}
			return next(c)
		}
	}
}

// rateLimitSubject はバケットのキーとなる主体を返す
// セッションIDがあればセッション単位、なければIP単位で制限する
func rateLimitSubject(c echo.Context) string {
	if sid := c.Request().Header.Get("X-Session-ID"); sid != "" {
		return "session:" + sid
	}
	return "ip:" + c.RealIP()
}
