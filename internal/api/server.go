package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"taskhub/internal/api/auth"
	"taskhub/internal/api/middleware"
	"taskhub/internal/api/session"
	"taskhub/internal/config"
	"taskhub/internal/model"
	"taskhub/internal/pkg/hash"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/ratelimit"
	"taskhub/internal/pkg/token"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	rdb     *redis.Client
	router  *gin.Engine
	auth    *auth.Handler
	users   middleware.UserFinder
	tasks   TaskStore
	hasher  hash.Hasher
	issuer  *token.Issuer
	cookies session.Transport
	limiter *ratelimit.Limiter
}

// TaskStore 是任务 handler 依赖的持久化契约，由 store.TaskStore 实现。
type TaskStore interface {
	ListByOwner(ctx context.Context, ownerID uint) ([]model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, ownerID, id uint) (*model.Task, error)
	Update(ctx context.Context, ownerID, id uint, updates map[string]interface{}) (*model.Task, error)
	Delete(ctx context.Context, ownerID, id uint) error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis（可选，未配置时限流与活跃标记退化为直通）
// 3. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
	}

	if cfg.IsProd() && cfg.Security.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("running in prod with the development JWT secret, set JWT_SECRET")
	}

	metrics.InitMetrics()

	hasher := hash.NewHasher(cfg.App.BcryptCost)
	issuer := token.NewIssuer(cfg.Security.JWTSecret, cfg.App.TokenTTL)
	cookies := session.Transport{Prod: cfg.IsProd(), MaxAge: cfg.App.TokenTTL}
	users := store.NewUserStore(db)
	limiter := ratelimit.New(rdb, logger, "taskhub:ratelimit:", cfg.App.RateLimit, cfg.App.RateBurst)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rdb:     rdb,
		router:  r,
		auth:    auth.NewHandler(users, hasher, issuer, cookies, logger),
		users:   users,
		tasks:   store.NewTaskStore(db),
		hasher:  hasher,
		issuer:  issuer,
		cookies: cookies,
		limiter: limiter,
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMW := middleware.AuthMiddleware(s.issuer, s.users, s.cookies)
	lastSeen := middleware.LastSeen(s.rdb, 30*24*time.Hour)

	user := s.router.Group("/api/user")
	user.POST("/signup", middleware.RateLimit(s.limiter), s.auth.Signup)
	user.POST("/signin", middleware.RateLimit(s.limiter), s.auth.Signin)

	account := user.Group("")
	account.Use(authMW, lastSeen)
	account.GET("/me", s.auth.Me)
	account.PUT("/profile", s.auth.UpdateProfile)
	account.PUT("/password", s.auth.ChangePassword)
	account.POST("/logout", s.auth.Logout)

	// 路由形状沿用前端既有约定
	tasks := s.router.Group("/api/Task")
	tasks.Use(authMW, lastSeen)
	tasks.GET("/Task", s.handleListTasks)
	tasks.POST("/Task", s.handleCreateTask)
	tasks.GET("/:id/Task", s.handleGetTask)
	tasks.PUT("/:id/Task", s.handleUpdateTask)
	tasks.DELETE("/:id/Task", s.handleDeleteTask)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
