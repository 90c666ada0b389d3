package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// 入队与关闭通过 mu 互斥：Submit 持读锁发送，Shutdown 持写锁
// 置位并关闭通道，保证不会向已关闭的通道发送。

// Task 表示一个可执行的异步任务（告警邮件、奖励入账等）。
type Task func(ctx context.Context) error

// FailureHandler 任务失败时的回调函数。
type FailureHandler func(err error, task Task)

// Pool 提供固定 worker 数的内存任务池。
//
// 告警评估产生的通知任务通过 Pool 异步派发，避免阻塞刷新循环。
type Pool struct {
	logger  *slog.Logger
	workers int
	tasks   chan Task
	onFail  FailureHandler

	// 优雅关闭
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	// 指标统计
	stats poolStats
}

// poolStats 任务池内部统计（atomic 类型）。
type poolStats struct {
	Submitted atomic.Int64 // 总入队任务数
	Done      atomic.Int64 // 总处理完成数
	Succeeded atomic.Int64 // 成功任务数
	Failed    atomic.Int64 // 失败任务数
	Dropped   atomic.Int64 // 丢弃任务数（队列满）
	Panics    atomic.Int64 // Panic 次数
}

// PoolStats 任务池统计快照（普通值类型，可安全拷贝）。
type PoolStats struct {
	Submitted int64
	Done      int64
	Succeeded int64
	Failed    int64
	Dropped   int64
	Panics    int64
}

// NewPool 创建一个新的任务池。
//
// 参数:
//   - logger: 日志记录器
//   - workers: worker 数量（至少为 1）
//   - capacity: 队列容量（至少为 1）
func NewPool(logger *slog.Logger, workers int, capacity int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{
		logger:  logger,
		workers: workers,
		tasks:   make(chan Task, capacity),
	}
}

// SetFailureHandler 设置失败回调。
func (p *Pool) SetFailureHandler(handler FailureHandler) {
	p.onFail = handler
}

// Start 启动 worker 池，直到 ctx 被取消或调用 Shutdown。
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker stopped", slog.Int("worker_id", id))
			return

		case task, ok := <-p.tasks:
			if !ok {
				p.logger.Debug("worker exit on closed channel", slog.Int("worker_id", id))
				return
			}
			if task != nil {
				p.run(ctx, task, id)
			}
		}
	}
}

// run 执行单个任务，带 panic 恢复和失败回调。
func (p *Pool) run(ctx context.Context, task Task, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.stats.Panics.Add(1)
			p.logger.Error("task panic recovered",
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	err := task(ctx)
	p.stats.Done.Add(1)

	if err != nil {
		p.stats.Failed.Add(1)
		p.logger.Warn("task failed",
			slog.Int("worker_id", workerID),
			slog.String("error", err.Error()))

		if p.onFail != nil {
			p.onFail(err, task)
		}
	} else {
		p.stats.Succeeded.Add(1)
	}
}

// Submit 将任务放入队列，若队列已满则返回 false（非阻塞）。
func (p *Pool) Submit(task Task) bool {
	if task == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("pool is closed, reject task")
		return false
	}

	select {
	case p.tasks <- task:
		p.stats.Submitted.Add(1)
		return true
	default:
		p.stats.Dropped.Add(1)
		p.logger.Warn("pool full, drop task",
			slog.Int("capacity", cap(p.tasks)),
			slog.Int("pending", len(p.tasks)))
		return false
	}
}

// closeTasks 置关闭标记并关闭任务通道；已关闭时返回 false。
func (p *Pool) closeTasks() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.closed = true
	close(p.tasks)
	return true
}

// Shutdown 优雅关闭任务池：
//  1. 标记为已关闭（拒绝新任务）
//  2. 关闭任务通道
//  3. 等待所有 worker 完成当前任务
func (p *Pool) Shutdown() {
	if p.closeTasks() {
		p.logger.Info("pool shutdown initiated, waiting for workers to finish")
		p.wg.Wait()
		p.logger.Info("pool shutdown completed")
	}
}

// ShutdownWithTimeout 带超时的优雅关闭。
func (p *Pool) ShutdownWithTimeout(timeout time.Duration) error {
	if !p.closeTasks() {
		return fmt.Errorf("pool already closed")
	}
	p.logger.Info("pool shutdown initiated with timeout",
		slog.String("timeout", timeout.String()))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("pool shutdown completed")
		return nil
	case <-time.After(timeout):
		p.logger.Error("pool shutdown timeout")
		return fmt.Errorf("shutdown timeout after %s", timeout)
	}
}

// Stats 获取统计信息的快照。
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted: p.stats.Submitted.Load(),
		Done:      p.stats.Done.Load(),
		Succeeded: p.stats.Succeeded.Load(),
		Failed:    p.stats.Failed.Load(),
		Dropped:   p.stats.Dropped.Load(),
		Panics:    p.stats.Panics.Load(),
	}
}

// Len 返回当前待处理的任务数量。
func (p *Pool) Len() int {
	return len(p.tasks)
}

// Cap 返回队列的容量。
func (p *Pool) Cap() int {
	return cap(p.tasks)
}

// IsClosed 返回任务池是否已关闭。
func (p *Pool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
