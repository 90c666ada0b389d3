package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/alertstore"
	"github.com/xonn9/Unilag-Price-saver/internal/api/auth"
	"github.com/xonn9/Unilag-Price-saver/internal/api/middleware"
	"github.com/xonn9/Unilag-Price-saver/internal/api/scheduler"
	"github.com/xonn9/Unilag-Price-saver/internal/config"
	"github.com/xonn9/Unilag-Price-saver/internal/engine"
	"github.com/xonn9/Unilag-Price-saver/internal/model"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/dedup"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/metrics"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/notify"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、内存快照以及 Gin 路由引擎。
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	rdb       *redis.Client
	router    *gin.Engine
	store     *engine.RecordStore
	alerts    AlertRuleStore
	sched     *scheduler.Scheduler
	auth      *auth.Handler
	prices    PriceStore
	refresher SnapshotRefresher
	deduper   Deduper
	limiter   SubmitLimiter

	// 批准操作后的刷新合并：连续批准只触发一次快照重载
	refreshDebounce *engine.Debouncer
}

// PriceStore 价格提交的持久化接口。
type PriceStore interface {
	CreatePending(ctx context.Context, rec *model.PriceRecord) error
}

// AlertRuleStore 在调度器所需的规则读写之外，补充按用户清空的能力。
type AlertRuleStore interface {
	scheduler.RuleStore
	Delete(ctx context.Context, userID uint) error
}

// SnapshotRefresher 触发一次快照刷新。
type SnapshotRefresher interface {
	Refresh(ctx context.Context) error
}

// Deduper 提交去重接口。
type Deduper interface {
	IsDuplicate(ctx context.Context, sub dedup.Submission) (bool, error)
	Forget(ctx context.Context, sub dedup.Submission) error
}

// SubmitLimiter 提交限流接口。
type SubmitLimiter interface {
	Allow(ctx context.Context, userID uint) (bool, error)
}

type dbPriceStore struct {
	db *gorm.DB
}

func (s dbPriceStore) CreatePending(ctx context.Context, rec *model.PriceRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化内存快照、调度器与各中间件依赖
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
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.PriceRecord{}, &model.Store{}, &model.Transaction{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	emailNotifier := notify.NewEmailNotifier(&cfg.Email, logger)
	store := engine.NewRecordStore()
	alerts := alertstore.New(rdb)

	mailLimiter := ratelimit.NewNotifyLimiter(rdb, logger, cfg.App.MailRateLimit, cfg.App.MailRateBurst)

	sched := scheduler.NewScheduler(
		db,
		logger,
		store,
		alerts,
		emailNotifier,
		mailLimiter,
		cfg.App.RefreshInterval,
		cfg.App.WorkerPoolSize,
		cfg.App.QueueCapacity,
	)

	deduper := dedup.NewDeduplicator(rdb, time.Duration(cfg.App.DedupWindow)*time.Second)
	limiter := ratelimit.NewSubmitLimiter(rdb, logger, cfg.App.RateLimit, cfg.App.RateBurst)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		router:    r,
		store:     store,
		alerts:    alerts,
		sched:     sched,
		auth:      auth.NewHandler(db, cfg.Security.JWTSecret, cfg.Security.InviteCode, emailNotifier, logger),
		prices:    dbPriceStore{db: db},
		refresher: sched,
		deduper:   deduper,
		limiter:   limiter,

		refreshDebounce: engine.NewDebouncer(cfg.App.DebounceWindow),
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// StartScheduler 启动后台刷新循环。
func (s *Server) StartScheduler(ctx context.Context) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("PANIC in scheduler loop", slog.Any("panic", r))
			}
		}()
		s.sched.Run(ctx)
	}()
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
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/register", s.auth.Register)
	s.router.POST("/login", s.auth.Login)
	s.router.POST("/verify", s.auth.VerifyEmail)
	s.router.POST("/resend", s.auth.ResendCode)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	authed.POST("/logout", s.auth.Logout)
	authed.GET("/me", s.handleGetProfile)

	authed.GET("/categories", s.handleListCategories)
	authed.GET("/prices", s.handleListPrices)
	authed.GET("/prices/category/:id", s.handleListPricesByCategory)
	authed.POST("/prices", s.handleSubmitPrice)

	authed.GET("/stores", s.handleListStores)
	authed.POST("/stores", s.handleCreateStore)

	authed.GET("/alerts", s.handleListAlerts)
	authed.POST("/alerts", s.handleCreateAlert)
	authed.DELETE("/alerts", s.handleClearAlerts)
	authed.DELETE("/alerts/:id", s.handleDeleteAlert)

	authed.GET("/stats", s.handleStats)
	authed.GET("/search", s.handleSearch)
	authed.GET("/compare/:item", s.handleCompare)
	authed.GET("/savings", s.handleSavings)
	authed.GET("/heatmap", s.handleHeatmap)

	admin := authed.Group("/")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/categories", s.handleCreateCategory)
	admin.GET("/prices/pending", s.handleListPending)
	admin.POST("/prices/:id/approve", s.handleApprovePrice)
	admin.POST("/prices/:id/reject", s.handleRejectPrice)
	admin.POST("/refresh", s.handleManualRefresh)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGetProfile 返回当前用户信息（余额与返现流水）。
func (s *Server) handleGetProfile(c *gin.Context) {
	userID := getUserID(c)

	var user model.User
	if err := s.db.Preload("Transactions").Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"role":         user.Role,
		"balance":      user.Balance,
		"transactions": user.Transactions,
	})
}

// handleManualRefresh 手动触发一次快照刷新（管理员）。
func (s *Server) handleManualRefresh(c *gin.Context) {
	if err := s.refresher.Refresh(c.Request.Context()); err != nil {
		if err == scheduler.ErrRefreshInFlight {
			c.JSON(http.StatusConflict, gin.H{"error": "refresh already in flight"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

func getUserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	if id, ok := v.(uint); ok {
		return id
	}
	return 0
}

// parseQueryInt 解析查询参数中的整数值。
func parseQueryInt(c *gin.Context, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	iv, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return iv
}
