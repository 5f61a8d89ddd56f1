package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const lastSeenKeyPrefix = "taskhub:lastseen:"

// LastSeen 以 best-effort 方式在 Redis 中记录认证用户的最近活跃时间。
// 写入失败不影响请求；rdb 为 nil 时整个中间件退化为直通。
func LastSeen(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}
		userID := UserID(c)
		if userID == 0 {
			c.Next()
			return
		}

		if ttl <= 0 {
			ttl = 30 * 24 * time.Hour
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		key := fmt.Sprintf("%s%d", lastSeenKeyPrefix, userID)
		_ = rdb.Set(ctx, key, time.Now().Unix(), ttl).Err()

		c.Next()
	}
}
