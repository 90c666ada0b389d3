package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/engine"
	"github.com/xonn9/Unilag-Price-saver/internal/model"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/metrics"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/notify"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/queue"

	"gorm.io/gorm"
)

// ErrRefreshInFlight 表示已有一次刷新在执行，本次请求被拒绝。
var ErrRefreshInFlight = errors.New("snapshot refresh already in flight")

// RuleStore 告警规则的持久化接口，由 alertstore.Store 实现。
type RuleStore interface {
	Load(ctx context.Context, userID uint) ([]engine.AlertRule, error)
	Save(ctx context.Context, userID uint, rules []engine.AlertRule) error
	UserIDs(ctx context.Context) ([]uint, error)
}

// AlertMailer 告警触发后的邮件发送接口。
type AlertMailer interface {
	SendAlertTriggered(ctx context.Context, toEmail string, itemName string, threshold, price float64) error
}

// MailThrottle 控制每个收件用户的告警邮件发送频率。
type MailThrottle interface {
	Acquire(ctx context.Context, userID uint) error
}

// Scheduler 周期性刷新价格快照并评估所有用户的告警规则。
//
// 刷新串行执行：任一时刻最多只有一次刷新在跑，重叠的触发会被拒绝。
// 数据源失败时保留上一份快照，不会回退到空数据。
type Scheduler struct {
	db       *gorm.DB
	logger   *slog.Logger
	store    *engine.RecordStore
	rules     RuleStore
	mailer    AlertMailer
	mailLimit MailThrottle
	notifier  notify.Notifier
	pool      *queue.Pool
	interval  time.Duration

	inFlight atomic.Bool

	// 可注入的数据加载与收件人查询，便于测试替换。
	loadRecords   func(ctx context.Context) ([]model.PriceRecord, []model.Category, error)
	lookupAddress func(ctx context.Context, userID uint) (string, error)
}

// NewScheduler 创建一个新的调度器实例。
//
// 参数:
//
//	db: MySQL 数据库连接
//	logger: 日志记录器
//	store: 内存快照存储
//	rules: 告警规则持久化
//	mailer: 告警邮件发送器（可为 nil，表示不发邮件）
//	mailLimit: 邮件频率限制（可为 nil，表示不限）
//	interval: 刷新间隔
//	workers: 通知 worker 数（0 表示默认 10）
//	capacity: 通知队列容量（0 表示默认 200）
func NewScheduler(db *gorm.DB, logger *slog.Logger, store *engine.RecordStore, rules RuleStore, mailer AlertMailer, mailLimit MailThrottle, interval time.Duration, workers int, capacity int) *Scheduler {
	if workers <= 0 {
		workers = 10
	}
	if capacity <= 0 {
		capacity = 200
	}

	pool := queue.NewPool(logger, workers, capacity)
	pool.SetFailureHandler(func(err error, task queue.Task) {
		logger.Error("notification task failed", slog.String("error", err.Error()))
	})

	s := &Scheduler{
		db:        db,
		logger:    logger,
		store:     store,
		rules:     rules,
		mailer:    mailer,
		mailLimit: mailLimit,
		notifier:  notify.NewLogNotifier(logger),
		pool:      pool,
		interval:  interval,
	}
	s.loadRecords = s.loadFromDB
	s.lookupAddress = s.lookupEmail
	return s
}

// Run 启动刷新循环，直到 ctx 被取消。
//
// 启动时立即执行一次刷新，之后按 interval 周期触发。
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		slog.String("interval", s.interval.String()),
		slog.Int("queue_capacity", s.pool.Cap()))

	s.pool.Start(ctx)

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(1 * time.Minute)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			if err := s.pool.ShutdownWithTimeout(30 * time.Second); err != nil {
				s.logger.Error("pool shutdown timeout", slog.String("error", err.Error()))
			}
			s.logger.Info("scheduler stopped")
			return

		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInFlight) {
				s.logger.Warn("scheduled refresh failed", slog.String("error", err.Error()))
			}

		case <-statsTicker.C:
			s.printPoolStats()
		}
	}
}

// Refresh 执行一次完整的刷新：加载数据、替换快照、评估告警。
//
// 任一时刻只允许一次刷新；并发触发返回 ErrRefreshInFlight。
// 加载失败时保留当前快照并返回错误。
func (s *Scheduler) Refresh(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.SnapshotRefreshTotal.WithLabelValues("skipped").Inc()
		return ErrRefreshInFlight
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	records, categories, err := s.loadRecords(ctx)
	if err != nil {
		metrics.SnapshotRefreshTotal.WithLabelValues("failed").Inc()
		s.logger.Error("load records failed, keeping previous snapshot",
			slog.String("error", err.Error()),
			slog.Int("previous_records", s.store.Snapshot().Len()))
		return fmt.Errorf("load records: %w", err)
	}

	s.store.Load(records, categories)
	snap := s.store.Snapshot()

	metrics.SnapshotRefreshTotal.WithLabelValues("success").Inc()
	metrics.SnapshotRecords.Set(float64(snap.Len()))

	summary := engine.Aggregate(snap)
	for catID, stats := range summary.PerCategory {
		metrics.CategoryAveragePrice.WithLabelValues(snap.CategoryName(catID)).Set(stats.Average)
	}

	s.logger.Info("snapshot refreshed",
		slog.Int("records", snap.Len()),
		slog.Int("categories", len(categories)),
		slog.String("elapsed", time.Since(start).String()))

	s.evaluateAlerts(ctx, snap)
	return nil
}

// evaluateAlerts 对每个有规则的用户执行一次告警评估。
//
// 持久化失败只记录，不影响其他用户的评估。
func (s *Scheduler) evaluateAlerts(ctx context.Context, snap *engine.Snapshot) {
	userIDs, err := s.rules.UserIDs(ctx)
	if err != nil {
		s.logger.Error("list alert users failed", slog.String("error", err.Error()))
		return
	}

	for _, userID := range userIDs {
		rules, err := s.rules.Load(ctx, userID)
		if err != nil {
			s.logger.Warn("load alert rules failed",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()))
			continue
		}
		if len(rules) == 0 {
			continue
		}

		result := engine.Evaluate(snap, rules)

		if err := s.rules.Save(ctx, userID, result.Rules); err != nil {
			metrics.AlertPersistFailedTotal.Inc()
			s.logger.Warn("persist alert rules failed",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()))
		}

		if len(result.TriggeredNow) == 0 {
			continue
		}
		metrics.AlertRulesTriggeredTotal.Add(float64(len(result.TriggeredNow)))
		s.notifyTriggered(ctx, snap, userID, result.TriggeredNow)
	}
}

// notifyTriggered 为每条新触发的规则派发一个通知任务。
func (s *Scheduler) notifyTriggered(ctx context.Context, snap *engine.Snapshot, userID uint, triggered []engine.AlertRule) {
	for _, rule := range triggered {
		s.logger.Info("alert triggered",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("item", rule.ItemName),
			slog.Float64("threshold", rule.Threshold))

		if s.notifier != nil {
			msg := fmt.Sprintf("Price alert: %s is now at or below %.2f", rule.ItemName, rule.Threshold)
			s.notifier.Notify(ctx, msg, notify.SeveritySuccess, 5*time.Second)
		}

		if s.mailer == nil {
			continue
		}

		rule := rule
		price := engine.CheapestPrice(snap, rule.ItemName)
		ok := s.pool.Submit(func(taskCtx context.Context) error {
			if s.mailLimit != nil {
				if err := s.mailLimit.Acquire(taskCtx, userID); err != nil {
					return fmt.Errorf("throttle alert mail: %w", err)
				}
			}
			email, err := s.lookupAddress(taskCtx, userID)
			if err != nil {
				return fmt.Errorf("lookup recipient: %w", err)
			}
			if email == "" {
				return nil
			}
			return s.mailer.SendAlertTriggered(taskCtx, email, rule.ItemName, rule.Threshold, price)
		})
		if !ok {
			s.logger.Warn("notification dropped, pool full",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("item", rule.ItemName))
		}
	}
}

// loadFromDB 加载所有已批准的价格记录与全部分类。
func (s *Scheduler) loadFromDB(ctx context.Context) ([]model.PriceRecord, []model.Category, error) {
	var records []model.PriceRecord
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.StatusApproved).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, nil, fmt.Errorf("load approved prices: %w", err)
	}

	var categories []model.Category
	if err := s.db.WithContext(ctx).Find(&categories).Error; err != nil {
		return nil, nil, fmt.Errorf("load categories: %w", err)
	}

	return records, categories, nil
}

func (s *Scheduler) lookupEmail(ctx context.Context, userID uint) (string, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Select("email").Where("id = ?", userID).First(&user).Error; err != nil {
		return "", err
	}
	return user.Email, nil
}

// printPoolStats 打印通知队列统计信息。
func (s *Scheduler) printPoolStats() {
	stats := s.pool.Stats()
	s.logger.Info("notification pool statistics",
		slog.Int("pending", s.pool.Len()),
		slog.Int("capacity", s.pool.Cap()),
		slog.Int64("submitted", stats.Submitted),
		slog.Int64("done", stats.Done),
		slog.Int64("succeeded", stats.Succeeded),
		slog.Int64("failed", stats.Failed),
		slog.Int64("dropped", stats.Dropped),
		slog.Int64("panics", stats.Panics),
	)
}
