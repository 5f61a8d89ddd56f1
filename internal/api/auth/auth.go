package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taskhub/internal/api/middleware"
	"taskhub/internal/api/session"
	"taskhub/internal/model"
	"taskhub/internal/pkg/hash"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/token"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
)

// UserStore 是 Handler 依赖的用户持久化契约，由 store.UserStore 实现。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, id uint, username, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
}

// Handler 提供注册、登录与账户管理接口。
type Handler struct {
	users   UserStore
	hasher  hash.Hasher
	issuer  *token.Issuer
	cookies session.Transport
	logger  *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(users UserStore, hasher hash.Hasher, issuer *token.Issuer, cookies session.Transport, logger *slog.Logger) *Handler {
	return &Handler{
		users:   users,
		hasher:  hasher,
		issuer:  issuer,
		cookies: cookies,
		logger:  logger,
	}
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type signinRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentpassword" binding:"required"`
	NewPassword     string `json:"newpassword" binding:"required"`
}

func userPayload(u *model.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
	}
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// Signup 创建新账户。
//
// POST /api/user/signup
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username, email and password are required")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		fail(c, http.StatusBadRequest, "username must not be empty")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if err := ValidatePassword(req.Password); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	user := model.User{
		Username: username,
		Email:    email,
		Password: passwordHash,
	}
	// 邮箱唯一性最终由数据库唯一索引裁决，并发注册时
	// 晚到的一方在这里收到 ErrDuplicateEmail
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			fail(c, http.StatusConflict, "an account with this email already exists")
			return
		}
		h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	if metrics.SignupTotal != nil {
		metrics.SignupTotal.Inc()
	}
	h.logger.Info("user registered", slog.String("email", email))
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "signup successful"})
}

// Signin 校验凭据，签发令牌并写入会话 Cookie。
//
// POST /api/user/signin
//
// 未知邮箱与密码错误返回同一个 403 响应，且未知邮箱时也做一次
// bcrypt 比较，避免通过响应差异或耗时枚举已注册邮箱。
func (h *Handler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.hasher.VerifyDummy(req.Password)
			fail(c, http.StatusForbidden, "incorrect email or password")
			return
		}
		h.logger.Error("find user failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	if !h.hasher.Verify(req.Password, user.Password) {
		fail(c, http.StatusForbidden, "incorrect email or password")
		return
	}

	tok, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	h.cookies.Write(c, tok)

	if metrics.SigninTotal != nil {
		metrics.SigninTotal.Inc()
	}
	h.logger.Info("user signed in", slog.String("email", email))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "signin successful",
		"user":    userPayload(user),
	})
}

// Me 返回当前认证身份。
//
// GET /api/user/me
func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userPayload(user)})
}

// UpdateProfile 更新用户名与邮箱。
//
// PUT /api/user/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username and a valid email are required")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		fail(c, http.StatusBadRequest, "username must not be empty")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.UserID(c), username, email)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			fail(c, http.StatusConflict, "an account with this email already exists")
			return
		}
		h.logger.Error("update profile failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userPayload(user)})
}

// ChangePassword 校验当前密码后更新为新密码。
//
// PUT /api/user/password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "currentpassword and newpassword are required")
		return
	}

	// 上下文里的身份不带哈希，重新取一次完整记录
	user, err := h.users.FindByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("find user failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	if !h.hasher.Verify(req.CurrentPassword, user.Password) {
		fail(c, http.StatusForbidden, "current password is incorrect")
		return
	}

	if err := ValidatePassword(req.NewPassword); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		h.logger.Error("hash password failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	if err := h.users.UpdatePassword(c.Request.Context(), user.ID, passwordHash); err != nil {
		h.logger.Error("update password failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	h.logger.Info("password changed", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password updated"})
}

// Logout 清除会话 Cookie（令牌无服务端状态，过期前在客户端之外仍然有效）。
//
// POST /api/user/logout
func (h *Handler) Logout(c *gin.Context) {
	h.cookies.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}
