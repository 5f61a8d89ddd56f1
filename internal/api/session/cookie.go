// Package session 负责把会话令牌绑定到 HTTP Cookie。
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieName 会话 Cookie 名称。
const CookieName = "auth_token"

// Transport 按运行环境写入/清除会话 Cookie。
//
// 生产环境下前端与 API 跨站部署，Cookie 需要 Secure + SameSite=None；
// 本地开发走 http，用 SameSite=Lax 且不带 Secure。
// 清除时必须使用与写入完全一致的属性，否则浏览器会静默忽略。
type Transport struct {
	Prod   bool          // 是否生产环境
	MaxAge time.Duration // Cookie 生存期，与令牌 TTL 对齐
}

// Read 从请求中读取会话令牌。
func (t Transport) Read(c *gin.Context) (string, bool) {
	cookie, err := c.Request.Cookie(CookieName)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Write 在响应上设置会话 Cookie。
func (t Transport) Write(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(t.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   t.Prod,
		SameSite: t.sameSite(),
	})
}

// Clear 使会话 Cookie 立即过期。
func (t Transport) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.Prod,
		SameSite: t.sameSite(),
	})
}

func (t Transport) sameSite() http.SameSite {
	if t.Prod {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
