package middleware

import (
	"context"
	"net/http"

	"taskhub/internal/api/session"
	"taskhub/internal/model"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/token"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// UserFinder 按 ID 解析身份，由 store.UserStore 实现。
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// AuthMiddleware 校验会话 Cookie 并把身份写入上下文。
//
// 每个请求按状态机推进：无 Cookie → 401；令牌非法/过期 → 401；
// 令牌有效但用户已不存在 → 401；否则附加身份（密码哈希已剥除）并放行。
// 任何失败都立即终止请求，不会调用后续 handler。
func AuthMiddleware(verifier *token.Issuer, users UserFinder, cookies session.Transport) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := cookies.Read(c)
		if !ok {
			reject(c, "authentication required")
			return
		}

		userID, err := verifier.Verify(raw)
		if err != nil {
			reject(c, "session invalid or expired")
			return
		}

		// 令牌可能比账户活得久（账户被删除后令牌仍在有效期内）
		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			reject(c, "session invalid or expired")
			return
		}

		identity := user.Sanitized()
		SetCurrentUser(c, &identity)
		c.Next()
	}
}

// SetCurrentUser 把认证身份写入请求上下文，handler 测试也用它注入身份。
func SetCurrentUser(c *gin.Context, user *model.User) {
	c.Set(identityKey, user)
}

func reject(c *gin.Context, message string) {
	if metrics.AuthFailureTotal != nil {
		metrics.AuthFailureTotal.Inc()
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}

// CurrentUser 返回当前请求的认证身份，未认证时返回 nil。
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	user, ok := v.(*model.User)
	if !ok {
		return nil
	}
	return user
}

// UserID 返回当前认证用户的 ID，未认证时返回 0。
func UserID(c *gin.Context) uint {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}
